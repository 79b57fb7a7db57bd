package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ideascube/ideascube-sub000/config"
	"github.com/ideascube/ideascube-sub000/internal/dto"
	"github.com/ideascube/ideascube-sub000/internal/model"
	"github.com/ideascube/ideascube-sub000/internal/search"
)

// ── 搜索模块业务错误 ──

var ErrInvalidQuery = errors.New("搜索语法错误")

// SearchService 搜索业务接口
type SearchService interface {
	Search(ctx context.Context, req *dto.SearchRequest, isStaff bool) (*dto.SearchResponse, error)
	Reindex(ctx context.Context) (map[string]int, error)
	Models() []string
}

type searchService struct {
	engine     SearchEngine
	maxResults int
	logger     *zap.Logger
}

// NewSearchService 创建 SearchService 实例
func NewSearchService(cfg *config.Config, engine SearchEngine, logger *zap.Logger) SearchService {
	return &searchService{
		engine:     engine,
		maxResults: cfg.Search.MaxResults,
		logger:     logger,
	}
}

func (s *searchService) Models() []string { return s.engine.Models() }

// ────────────────────── Search ──────────────────────

// Search 全文检索；非管理员只能看到公开记录，查询文本为空时返回空结果
func (s *searchService) Search(ctx context.Context, req *dto.SearchRequest, isStaff bool) (*dto.SearchResponse, error) {
	text := strings.TrimSpace(req.Q)
	resp := &dto.SearchResponse{Query: text, Hits: []dto.SearchHit{}}
	if text == "" {
		return resp, nil
	}

	q := search.Query{
		Text:       text,
		Model:      req.Model,
		Kind:       strings.TrimSpace(req.Kind),
		Lang:       strings.TrimSpace(req.Lang),
		Source:     strings.TrimSpace(req.Source),
		Tags:       parseTagFilter(req.Tags),
		PublicOnly: !isStaff,
		Limit:      s.maxResults,
	}

	results, err := s.engine.Search(ctx, q)
	if err != nil {
		if errors.Is(err, search.ErrEmptyQuery) {
			return resp, nil
		}
		if errors.Is(err, search.ErrInvalidQuery) {
			return nil, ErrInvalidQuery
		}
		s.logger.Error("搜索失败", zap.String("q", text), zap.Error(err))
		return nil, err
	}

	for _, r := range results {
		resp.Hits = append(resp.Hits, toSearchHit(r))
	}
	resp.Total = len(resp.Hits)
	return resp, nil
}

// ────────────────────── Reindex ──────────────────────

func (s *searchService) Reindex(ctx context.Context) (map[string]int, error) {
	counts, err := s.engine.Reindex(ctx)
	if err != nil {
		s.logger.Error("重建索引失败", zap.Error(err))
		return nil, err
	}
	s.logger.Info("重建索引完成", zap.Any("counts", counts))
	return counts, nil
}

// ── 辅助函数 ──

// parseTagFilter 解析逗号分隔的标签过滤条件并转为 slug
func parseTagFilter(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return model.ParseTags(raw).Slugs()
}

func toSearchHit(r search.Result) dto.SearchHit {
	rec := r.Record
	hit := dto.SearchHit{
		Model:     rec.SearchModel(),
		ID:        rec.SearchID(),
		Kind:      rec.IndexKind(),
		Lang:      rec.IndexLang(),
		Tags:      rec.IndexTags(),
		Public:    rec.IndexPublic(),
		Relevancy: r.Relevancy,
	}

	switch v := rec.(type) {
	case *model.Content:
		hit.Title, hit.Summary, hit.Tags = v.Title, v.Summary, v.Tags
	case *model.Book:
		hit.Title, hit.Summary, hit.Tags = v.Name, v.Description, v.Tags
	case *model.Document:
		hit.Title, hit.Summary, hit.Tags = v.Title, v.Summary, v.Tags
	}
	if hit.Tags == nil {
		hit.Tags = []string{}
	}
	return hit
}
