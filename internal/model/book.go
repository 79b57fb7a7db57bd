package model

import (
	"gorm.io/gorm"

	"github.com/ideascube/ideascube-sub000/internal/search"
)

// Book 图书目录，对应表 books
type Book struct {
	ID          uint    `gorm:"primaryKey"                            json:"id"`
	ISBN        string  `gorm:"column:isbn;type:varchar(40)"          json:"isbn"`
	Name        string  `gorm:"type:varchar(300);not null"            json:"name"`
	Authors     string  `gorm:"type:varchar(300);not null;default:''" json:"authors"`
	Serie       string  `gorm:"type:varchar(300);not null;default:''" json:"serie"`
	Subtitle    string  `gorm:"type:varchar(300);not null;default:''" json:"subtitle"`
	Publisher   string  `gorm:"type:varchar(100);not null;default:''" json:"publisher"`
	Description string  `gorm:"type:text;not null;default:''"         json:"description"`
	Section     string  `gorm:"type:varchar(40);not null;default:''"  json:"section"`
	Lang        string  `gorm:"type:varchar(10);not null;default:''"  json:"lang"`
	Tags        TagList `gorm:"type:text;not null;default:''"         json:"tags"`
	BaseModel
}

// TableName 指定表名
func (Book) TableName() string { return "books" }

// ── search.Searchable ──

func (b *Book) SearchModel() string { return ModelBook }
func (b *Book) SearchID() uint      { return b.ID }

func (b *Book) IndexStrings() []string {
	return append([]string{b.Name, b.ISBN, b.Authors, b.Serie, b.Subtitle, b.Publisher, b.Description}, b.Tags...)
}

func (b *Book) IndexPublic() bool   { return true }
func (b *Book) IndexLang() string   { return b.Lang }
func (b *Book) IndexKind() string   { return b.Section }
func (b *Book) IndexTags() []string { return b.Tags.Slugs() }
func (b *Book) IndexSource() string { return "" }
func (b *Book) IsIndexable() bool   { return true }

func (b *Book) AfterSave(tx *gorm.DB) error   { return search.IndexWith(tx, b) }
func (b *Book) AfterDelete(tx *gorm.DB) error { return search.DeindexWith(tx, b) }
