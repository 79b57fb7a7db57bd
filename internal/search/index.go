// Package search 基于 SQLite FTS4 的全文检索索引
//
// 可检索的记录（博客、图书、媒体）在保存后写入虚拟表 idx，删除前移除；
// 查询通过 text MATCH 命中，并按 rank(matchinfo(idx)) 降序排列。
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// TableName FTS4 虚拟表名
const TableName = "idx"

// createTableSQL 列顺序决定 matchinfo 中的列序号，修改后需全量重建索引
const createTableSQL = "CREATE VIRTUAL TABLE " + TableName +
	" USING fts4(model, model_id, public, text, lang, kind, tags, source)"

var (
	// ErrEmptyQuery 查询条件为空
	ErrEmptyQuery = errors.New("搜索条件不能为空")
	// ErrInvalidQuery 全文检索表达式无法解析，如括号不成对
	ErrInvalidQuery = errors.New("搜索表达式不合法")
	// ErrModelRequired 主键只在同一模型内唯一，IDs 必须指定模型
	ErrModelRequired = errors.New("按主键检索时必须指定模型")
)

// Searchable 可被索引的记录
type Searchable interface {
	SearchModel() string
	SearchID() uint
	IndexStrings() []string
	IndexPublic() bool
	IndexLang() string
	IndexKind() string
	IndexTags() []string
	IndexSource() string
	IsIndexable() bool
}

// Query 索引查询条件，零值字段不参与过滤
type Query struct {
	Text       string
	Model      string
	Kind       string
	Lang       string
	Source     string
	Tags       []string
	PublicOnly bool
	Limit      int
}

// Hit 单条命中
type Hit struct {
	Model     string  `gorm:"column:model"`
	ModelID   uint    `gorm:"column:model_id"`
	Relevancy float64 `gorm:"column:relevancy"`
}

// Index FTS4 索引访问
type Index struct {
	db *gorm.DB
}

// NewIndex 创建 Index
func NewIndex(db *gorm.DB) *Index {
	return &Index{db: db}
}

// CreateTable 创建索引表；force 为 true 时先删除已有表（用于全量重建）
func (i *Index) CreateTable(ctx context.Context, force bool) error {
	db := i.db.WithContext(ctx)

	var count int64
	err := db.Raw("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?", TableName).
		Scan(&count).Error
	if err != nil {
		return fmt.Errorf("检查索引表失败: %w", err)
	}
	if count > 0 && !force {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DROP TABLE IF EXISTS " + TableName).Error; err != nil {
			return fmt.Errorf("删除索引表失败: %w", err)
		}
		if err := tx.Exec(createTableSQL).Error; err != nil {
			return fmt.Errorf("创建索引表失败: %w", err)
		}
		return nil
	})
}

// Index 写入或覆盖一条记录的索引行
func (i *Index) Index(ctx context.Context, s Searchable) error {
	return IndexWith(i.db.WithContext(ctx), s)
}

// Deindex 删除一条记录的索引行
func (i *Index) Deindex(ctx context.Context, s Searchable) error {
	return DeindexWith(i.db.WithContext(ctx), s)
}

// IndexWith 在给定连接/事务上索引记录，供 gorm AfterSave 钩子调用
// 索引行以 (model, model_id) 唯一，先删后插；不可索引的记录只删除旧行
func IndexWith(tx *gorm.DB, s Searchable) error {
	db := tx.Session(&gorm.Session{NewDB: true})

	if err := db.Exec("DELETE FROM "+TableName+" WHERE model = ? AND model_id = ?",
		s.SearchModel(), s.SearchID()).Error; err != nil {
		return fmt.Errorf("清理旧索引失败: %w", err)
	}
	if !s.IsIndexable() {
		return nil
	}

	public := 0
	if s.IndexPublic() {
		public = 1
	}

	err := db.Exec("INSERT INTO "+TableName+" (model, model_id, public, text, lang, kind, tags, source) "+
		"VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		s.SearchModel(), s.SearchID(), public,
		JoinText(s.IndexStrings()), s.IndexLang(), s.IndexKind(),
		EncodeTags(s.IndexTags()), s.IndexSource(),
	).Error
	if err != nil {
		return fmt.Errorf("写入索引失败: %w", err)
	}
	return nil
}

// DeindexWith 在给定连接/事务上移除记录索引，供 gorm AfterDelete 钩子调用
func DeindexWith(tx *gorm.DB, s Searchable) error {
	db := tx.Session(&gorm.Session{NewDB: true})
	if err := db.Exec("DELETE FROM "+TableName+" WHERE model = ? AND model_id = ?",
		s.SearchModel(), s.SearchID()).Error; err != nil {
		return fmt.Errorf("删除索引失败: %w", err)
	}
	return nil
}

// Search 按条件查询命中，含文本时按相关度降序
func (i *Index) Search(ctx context.Context, q Query) ([]Hit, error) {
	db := i.db.WithContext(ctx).Table(TableName)

	if q.Text != "" {
		db = db.Select("model, model_id, rank(matchinfo(" + TableName + ")) AS relevancy").
			Where("text MATCH ?", q.Text).
			Order("relevancy DESC")
	} else {
		// matchinfo 只能用于全文查询
		db = db.Select("model, model_id, 0.0 AS relevancy").Order("rowid")
	}

	if q.Model != "" {
		db = db.Where("model = ?", q.Model)
	}
	if q.Kind != "" {
		db = db.Where("kind = ?", q.Kind)
	}
	if q.Lang != "" {
		db = db.Where("lang = ?", q.Lang)
	}
	if q.Source != "" {
		db = db.Where("source = ?", q.Source)
	}
	if q.PublicOnly {
		db = db.Where("public = ?", 1)
	}
	for _, tag := range q.Tags {
		db = db.Where("tags LIKE ?", TagPattern(tag))
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	var hits []Hit
	if err := db.Scan(&hits).Error; err != nil {
		if q.Text != "" && isMatchSyntaxError(err) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		return nil, fmt.Errorf("索引查询失败: %w", err)
	}
	return hits, nil
}

// IDs 返回指定模型下命中记录的主键，保持相关度顺序并去重
// 跨模型检索请使用 Search，按 (Model, ModelID) 区分记录
func (i *Index) IDs(ctx context.Context, q Query) ([]uint, error) {
	if q.Model == "" {
		return nil, ErrModelRequired
	}
	hits, err := i.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint]bool, len(hits))
	ids := make([]uint, 0, len(hits))
	for _, h := range hits {
		if seen[h.ModelID] {
			continue
		}
		seen[h.ModelID] = true
		ids = append(ids, h.ModelID)
	}
	return ids, nil
}

// Count 返回索引行数，model 为空时统计全部
func (i *Index) Count(ctx context.Context, model string) (int64, error) {
	db := i.db.WithContext(ctx).Table(TableName)
	if model != "" {
		db = db.Where("model = ?", model)
	}
	var n int64
	if err := db.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// ── 文本编码 ──

// JoinText 拼接非空的索引字符串
func JoinText(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// EncodeTags 将标签编码为 |a|b|，无标签时为 ||
func EncodeTags(tags []string) string {
	return "|" + strings.Join(tags, "|") + "|"
}

// TagPattern 单个标签的 LIKE 匹配模式
func TagPattern(tag string) string {
	return "%|" + strings.ToLower(tag) + "|%"
}
