package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ideascube/ideascube-sub000/internal/model"
	"github.com/ideascube/ideascube-sub000/internal/search"
)

// BookRepository 图书数据访问接口，同时作为检索来源
type BookRepository interface {
	search.Source
	Create(ctx context.Context, b *model.Book) error
	GetByID(ctx context.Context, id uint) (*model.Book, error)
	GetByISBN(ctx context.Context, isbn string) (*model.Book, error)
	Update(ctx context.Context, b *model.Book) error
	Delete(ctx context.Context, b *model.Book) error
}

type bookRepo struct {
	db *gorm.DB
}

// NewBookRepo 创建 BookRepository 实例
func NewBookRepo(db *gorm.DB) BookRepository {
	return &bookRepo{db: db}
}

func (r *bookRepo) Model() string { return model.ModelBook }

func (r *bookRepo) Create(ctx context.Context, b *model.Book) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *bookRepo) GetByID(ctx context.Context, id uint) (*model.Book, error) {
	var b model.Book
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookRepo) GetByISBN(ctx context.Context, isbn string) (*model.Book, error) {
	var b model.Book
	if err := r.db.WithContext(ctx).Where("isbn = ?", isbn).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookRepo) Update(ctx context.Context, b *model.Book) error {
	return r.db.WithContext(ctx).Save(b).Error
}

func (r *bookRepo) Delete(ctx context.Context, b *model.Book) error {
	return r.db.WithContext(ctx).Delete(b).Error
}

func (r *bookRepo) LoadByIDs(ctx context.Context, ids []uint) ([]search.Searchable, error) {
	return loadOrdered[model.Book](ctx, r.db, ids)
}

func (r *bookRepo) Each(ctx context.Context, fn func(search.Searchable) error) error {
	return eachRecord[model.Book](ctx, r.db, fn)
}
