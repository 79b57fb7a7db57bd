package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ideascube/ideascube-sub000/internal/model"
)

// ConfigurationRepository 配置项数据访问接口
type ConfigurationRepository interface {
	Get(ctx context.Context, namespace, key string) (*model.Configuration, error)
	// Upsert 按 (namespace, key) 插入或覆盖
	Upsert(ctx context.Context, cfg *model.Configuration) error
	Delete(ctx context.Context, namespace, key string) error
	List(ctx context.Context) ([]model.Configuration, error)
}

type configurationRepo struct {
	db *gorm.DB
}

// NewConfigurationRepo 创建 ConfigurationRepository 实例
func NewConfigurationRepo(db *gorm.DB) ConfigurationRepository {
	return &configurationRepo{db: db}
}

func (r *configurationRepo) Get(ctx context.Context, namespace, key string) (*model.Configuration, error) {
	var cfg model.Configuration
	err := r.db.WithContext(ctx).
		Where("namespace = ? AND key = ?", namespace, key).
		First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *configurationRepo) Upsert(ctx context.Context, cfg *model.Configuration) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "actor_id", "date"}),
	}).Create(cfg).Error
}

func (r *configurationRepo) Delete(ctx context.Context, namespace, key string) error {
	return r.db.WithContext(ctx).
		Where("namespace = ? AND key = ?", namespace, key).
		Delete(&model.Configuration{}).Error
}

func (r *configurationRepo) List(ctx context.Context) ([]model.Configuration, error) {
	var cfgs []model.Configuration
	err := r.db.WithContext(ctx).
		Order("namespace ASC, key ASC").
		Find(&cfgs).Error
	return cfgs, err
}
