package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ideascube/ideascube-sub000/internal/model"
	"github.com/ideascube/ideascube-sub000/internal/search"
)

// DocumentRepository 媒体数据访问接口，同时作为检索来源
type DocumentRepository interface {
	search.Source
	Create(ctx context.Context, d *model.Document) error
	GetByID(ctx context.Context, id uint) (*model.Document, error)
	// FindByTitleKind 媒体导入按标题与类型判重
	FindByTitleKind(ctx context.Context, title, kind string) (*model.Document, error)
	Update(ctx context.Context, d *model.Document) error
	Delete(ctx context.Context, d *model.Document) error
}

type documentRepo struct {
	db *gorm.DB
}

// NewDocumentRepo 创建 DocumentRepository 实例
func NewDocumentRepo(db *gorm.DB) DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) Model() string { return model.ModelDocument }

func (r *documentRepo) Create(ctx context.Context, d *model.Document) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *documentRepo) GetByID(ctx context.Context, id uint) (*model.Document, error) {
	var d model.Document
	if err := r.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *documentRepo) FindByTitleKind(ctx context.Context, title, kind string) (*model.Document, error) {
	var d model.Document
	err := r.db.WithContext(ctx).
		Where("title = ? AND kind = ?", title, kind).
		Last(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *documentRepo) Update(ctx context.Context, d *model.Document) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *documentRepo) Delete(ctx context.Context, d *model.Document) error {
	return r.db.WithContext(ctx).Delete(d).Error
}

func (r *documentRepo) LoadByIDs(ctx context.Context, ids []uint) ([]search.Searchable, error) {
	return loadOrdered[model.Document](ctx, r.db, ids)
}

func (r *documentRepo) Each(ctx context.Context, fn func(search.Searchable) error) error {
	return eachRecord[model.Document](ctx, r.db, fn)
}
