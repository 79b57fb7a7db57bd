package model

import (
	"time"

	"gorm.io/gorm"

	"github.com/ideascube/ideascube-sub000/internal/search"
)

// Content 状态
const (
	ContentDraft     = 1
	ContentPublished = 2
	ContentDeleted   = 3
)

// Content 博客文章，对应表 contents
type Content struct {
	ID          uint      `gorm:"primaryKey"                           json:"id"`
	Title       string    `gorm:"type:varchar(100);not null"           json:"title"`
	Summary     string    `gorm:"type:text;not null;default:''"        json:"summary"`
	Text        string    `gorm:"type:text;not null;default:''"        json:"text"`
	Author      string    `gorm:"type:varchar(300);not null;default:''" json:"author"`
	Status      int       `gorm:"not null;default:1"                   json:"status"`
	PublishedAt time.Time `gorm:"not null"                             json:"published_at"`
	Lang        string    `gorm:"type:varchar(10);not null;default:''" json:"lang"`
	Tags        TagList   `gorm:"type:text;not null;default:''"        json:"tags"`
	BaseModel
}

// TableName 指定表名
func (Content) TableName() string { return "contents" }

// IsPublished 已发布即对所有人可见
func (c *Content) IsPublished() bool { return c.Status == ContentPublished }

// ── search.Searchable ──

func (c *Content) SearchModel() string { return ModelContent }
func (c *Content) SearchID() uint      { return c.ID }

func (c *Content) IndexStrings() []string {
	return append([]string{c.Title, c.Text, c.Author}, c.Tags...)
}

func (c *Content) IndexPublic() bool   { return c.IsPublished() }
func (c *Content) IndexLang() string   { return c.Lang }
func (c *Content) IndexKind() string   { return "" }
func (c *Content) IndexTags() []string { return c.Tags.Slugs() }
func (c *Content) IndexSource() string { return "" }
func (c *Content) IsIndexable() bool   { return c.Status != ContentDeleted }

// ── gorm 钩子：与业务写入处于同一事务 ──

func (c *Content) AfterSave(tx *gorm.DB) error   { return search.IndexWith(tx, c) }
func (c *Content) AfterDelete(tx *gorm.DB) error { return search.DeindexWith(tx, c) }
