package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ideascube/ideascube-sub000/internal/model"
	"github.com/ideascube/ideascube-sub000/internal/search"
)

// ContentRepository 博客文章数据访问接口，同时作为检索来源
type ContentRepository interface {
	search.Source
	Create(ctx context.Context, c *model.Content) error
	GetByID(ctx context.Context, id uint) (*model.Content, error)
	Update(ctx context.Context, c *model.Content) error
	Delete(ctx context.Context, c *model.Content) error
}

type contentRepo struct {
	db *gorm.DB
}

// NewContentRepo 创建 ContentRepository 实例
func NewContentRepo(db *gorm.DB) ContentRepository {
	return &contentRepo{db: db}
}

func (r *contentRepo) Model() string { return model.ModelContent }

func (r *contentRepo) Create(ctx context.Context, c *model.Content) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *contentRepo) GetByID(ctx context.Context, id uint) (*model.Content, error) {
	var c model.Content
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *contentRepo) Update(ctx context.Context, c *model.Content) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *contentRepo) Delete(ctx context.Context, c *model.Content) error {
	return r.db.WithContext(ctx).Delete(c).Error
}

func (r *contentRepo) LoadByIDs(ctx context.Context, ids []uint) ([]search.Searchable, error) {
	return loadOrdered[model.Content](ctx, r.db, ids)
}

func (r *contentRepo) Each(ctx context.Context, fn func(search.Searchable) error) error {
	return eachRecord[model.Content](ctx, r.db, fn)
}
