package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ideascube/ideascube-sub000/internal/search"
)

// eachBatchSize 全量遍历时每批加载的记录数
const eachBatchSize = 200

// searchablePtr 可检索模型的指针类型约束
type searchablePtr[T any] interface {
	*T
	search.Searchable
}

// loadOrdered 按 ids 顺序加载记录，不存在的 id 跳过
func loadOrdered[T any, P searchablePtr[T]](ctx context.Context, db *gorm.DB, ids []uint) ([]search.Searchable, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []T
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]P, len(rows))
	for i := range rows {
		p := P(&rows[i])
		byID[p.SearchID()] = p
	}

	out := make([]search.Searchable, 0, len(rows))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// eachRecord 分批遍历全部记录
func eachRecord[T any, P searchablePtr[T]](ctx context.Context, db *gorm.DB, fn func(search.Searchable) error) error {
	var batch []T
	return db.WithContext(ctx).FindInBatches(&batch, eachBatchSize, func(_ *gorm.DB, _ int) error {
		for i := range batch {
			if err := fn(P(&batch[i])); err != nil {
				return err
			}
		}
		return nil
	}).Error
}
