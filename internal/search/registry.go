package search

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Source 一类可检索记录的数据来源（由 repository 实现）
type Source interface {
	// Model 与 Searchable.SearchModel 一致的模型名
	Model() string
	// LoadByIDs 按给定顺序加载记录，不存在的 id 直接跳过
	LoadByIDs(ctx context.Context, ids []uint) ([]Searchable, error)
	// Each 遍历全部记录
	Each(ctx context.Context, fn func(Searchable) error) error
}

// Registry 已注册的检索来源
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewRegistry 创建 Registry 并注册给定来源
func NewRegistry(sources ...Source) *Registry {
	r := &Registry{sources: make(map[string]Source)}
	for _, s := range sources {
		r.Register(s)
	}
	return r
}

// Register 注册来源，同名覆盖
func (r *Registry) Register(s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.Model()] = s
}

// Get 按模型名查找来源
func (r *Registry) Get(model string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[model]
	return s, ok
}

// Models 返回已注册的模型名（排序）
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Result 一条带相关度的检索结果
type Result struct {
	Record    Searchable
	Relevancy float64
}

// Reindex 重建索引表并索引全部已注册记录，返回每个模型的索引数量
func (r *Registry) Reindex(ctx context.Context, idx *Index) (map[string]int, error) {
	if err := idx.CreateTable(ctx, true); err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, model := range r.Models() {
		src, _ := r.Get(model)
		n := 0
		err := src.Each(ctx, func(s Searchable) error {
			if !s.IsIndexable() {
				return nil
			}
			if err := idx.Index(ctx, s); err != nil {
				return err
			}
			n++
			return nil
		})
		if err != nil {
			return counts, fmt.Errorf("重建 %s 索引失败: %w", model, err)
		}
		counts[model] = n
	}
	return counts, nil
}

// Search 跨全部来源检索并按相关度加载记录
// q.Model 非空时只检索该模型
func (r *Registry) Search(ctx context.Context, idx *Index, q Query) ([]Result, error) {
	if q.Text == "" && len(q.Tags) == 0 && q.Kind == "" && q.Lang == "" && q.Source == "" {
		return nil, ErrEmptyQuery
	}

	hits, err := idx.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	// 按模型分组批量加载，再按命中顺序还原
	idsByModel := make(map[string][]uint)
	for _, h := range hits {
		idsByModel[h.Model] = append(idsByModel[h.Model], h.ModelID)
	}

	type key struct {
		model string
		id    uint
	}
	loaded := make(map[key]Searchable, len(hits))
	for model, ids := range idsByModel {
		src, ok := r.Get(model)
		if !ok {
			continue // 已下线的模型残留索引
		}
		records, err := src.LoadByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("加载 %s 记录失败: %w", model, err)
		}
		for _, rec := range records {
			loaded[key{model, rec.SearchID()}] = rec
		}
	}

	results := make([]Result, 0, len(hits))
	seen := make(map[key]bool, len(hits))
	for _, h := range hits {
		k := key{h.Model, h.ModelID}
		rec, ok := loaded[k]
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		results = append(results, Result{Record: rec, Relevancy: h.Relevancy})
	}
	return results, nil
}

// ── Engine ──

// Engine 绑定注册表与索引，供上层以单一入口检索与重建
type Engine struct {
	registry *Registry
	index    *Index
}

// NewEngine 创建 Engine
func NewEngine(idx *Index, sources ...Source) *Engine {
	return &Engine{registry: NewRegistry(sources...), index: idx}
}

// Models 已注册的模型名
func (e *Engine) Models() []string { return e.registry.Models() }

// Search 检索并加载记录
func (e *Engine) Search(ctx context.Context, q Query) ([]Result, error) {
	return e.registry.Search(ctx, e.index, q)
}

// Reindex 全量重建索引
func (e *Engine) Reindex(ctx context.Context) (map[string]int, error) {
	return e.registry.Reindex(ctx, e.index)
}
