package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User          UserRepository
	Content       ContentRepository
	Book          BookRepository
	Document      DocumentRepository
	Configuration ConfigurationRepository

	db *gorm.DB
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:          NewUserRepo(db),
		Content:       NewContentRepo(db),
		Book:          NewBookRepo(db),
		Document:      NewDocumentRepo(db),
		Configuration: NewConfigurationRepo(db),
		db:            db,
	}
}

// Checkpoint 将 WAL 日志合并回主库文件，归档数据库文件前调用
// 未绑定数据库（测试中手工组装）时为空操作
func (r *Repository) Checkpoint(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx).Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error
}
