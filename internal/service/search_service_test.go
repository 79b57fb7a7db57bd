package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/ideascube/ideascube-sub000/internal/dto"
	"github.com/ideascube/ideascube-sub000/internal/model"
	"github.com/ideascube/ideascube-sub000/internal/search"
)

func setupTestSearchService() (SearchService, *mockSearchEngine) {
	engine := &mockSearchEngine{}
	return NewSearchService(testConfig(), engine, zap.NewNop()), engine
}

func TestSearch_EmptyTextReturnsNothing(t *testing.T) {
	svc, engine := setupTestSearchService()

	resp, err := svc.Search(context.Background(), &dto.SearchRequest{Q: "   ", Kind: "video"}, true)
	if err != nil {
		t.Fatalf("期望无错误，实际: %v", err)
	}
	if resp.Total != 0 || len(resp.Hits) != 0 {
		t.Errorf("空查询应返回空结果，实际: %+v", resp)
	}
	if engine.lastQuery != nil {
		t.Error("空查询不应访问索引")
	}
}

func TestSearch_BuildsQuery(t *testing.T) {
	svc, engine := setupTestSearchService()

	req := &dto.SearchRequest{Q: " solar ", Model: "Document", Kind: "video", Lang: "fr", Source: "pkg", Tags: "Énergie, solar power,,"}
	if _, err := svc.Search(context.Background(), req, false); err != nil {
		t.Fatalf("搜索失败: %v", err)
	}

	q := engine.lastQuery
	if q == nil {
		t.Fatal("未调用索引查询")
	}
	want := search.Query{
		Text:       "solar",
		Model:      "Document",
		Kind:       "video",
		Lang:       "fr",
		Source:     "pkg",
		Tags:       []string{"energie", "solar-power"},
		PublicOnly: true,
		Limit:      50,
	}
	if !reflect.DeepEqual(*q, want) {
		t.Errorf("查询条件不符\n期望: %+v\n实际: %+v", want, *q)
	}
}

func TestSearch_StaffSeesPrivate(t *testing.T) {
	svc, engine := setupTestSearchService()

	if _, err := svc.Search(context.Background(), &dto.SearchRequest{Q: "draft"}, true); err != nil {
		t.Fatalf("搜索失败: %v", err)
	}
	if engine.lastQuery.PublicOnly {
		t.Error("管理员搜索不应限制为公开记录")
	}
}

func TestSearch_MapsRecords(t *testing.T) {
	svc, engine := setupTestSearchService()
	engine.results = []search.Result{
		{Record: &model.Document{ID: 3, Title: "Film", Summary: "desc", Kind: "video", Lang: "fr", Tags: model.TagList{"Nature"}}, Relevancy: 2.5},
		{Record: &model.Book{ID: 7, Name: "Moby Dick", Description: "whale", Section: "1"}, Relevancy: 1},
		{Record: &model.Content{ID: 9, Title: "News", Status: model.ContentDraft}, Relevancy: 0.5},
	}

	resp, err := svc.Search(context.Background(), &dto.SearchRequest{Q: "x"}, true)
	if err != nil {
		t.Fatalf("搜索失败: %v", err)
	}
	if resp.Total != 3 {
		t.Fatalf("期望 3 条结果，实际: %d", resp.Total)
	}

	doc := resp.Hits[0]
	if doc.Model != model.ModelDocument || doc.ID != 3 || doc.Title != "Film" || doc.Relevancy != 2.5 {
		t.Errorf("文档结果不符: %+v", doc)
	}
	if !reflect.DeepEqual(doc.Tags, []string{"Nature"}) {
		t.Errorf("结果应返回原始标签名，实际: %v", doc.Tags)
	}
	if book := resp.Hits[1]; book.Title != "Moby Dick" || book.Kind != "1" || book.Tags == nil {
		t.Errorf("图书结果不符: %+v", book)
	}
	if post := resp.Hits[2]; post.Public {
		t.Error("草稿不应标记为公开")
	}
}

func TestSearch_Errors(t *testing.T) {
	svc, engine := setupTestSearchService()

	engine.err = fmt.Errorf("%w: malformed MATCH expression: [(]", search.ErrInvalidQuery)
	if _, err := svc.Search(context.Background(), &dto.SearchRequest{Q: "\""}, false); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("期望 ErrInvalidQuery，实际: %v", err)
	}

	engine.err = search.ErrEmptyQuery
	resp, err := svc.Search(context.Background(), &dto.SearchRequest{Q: "x"}, false)
	if err != nil || resp.Total != 0 {
		t.Errorf("ErrEmptyQuery 应转为空结果，实际: %+v, %v", resp, err)
	}

	// 仅凭错误文本不应判定为表达式错误
	engine.err = errors.New("索引查询失败: malformed MATCH expression")
	if _, err := svc.Search(context.Background(), &dto.SearchRequest{Q: "x"}, false); errors.Is(err, ErrInvalidQuery) {
		t.Errorf("非 SQLite 错误不应转为 ErrInvalidQuery")
	}

	engine.err = errMockDB
	if _, err := svc.Search(context.Background(), &dto.SearchRequest{Q: "x"}, false); !errors.Is(err, errMockDB) {
		t.Errorf("期望透传数据库错误，实际: %v", err)
	}
}

func TestReindex(t *testing.T) {
	svc, engine := setupTestSearchService()
	engine.counts = map[string]int{"Document": 4}

	counts, err := svc.Reindex(context.Background())
	if err != nil {
		t.Fatalf("重建索引失败: %v", err)
	}
	if counts["Document"] != 4 {
		t.Errorf("期望 Document 4 条，实际: %v", counts)
	}
	if len(svc.Models()) != 3 {
		t.Errorf("期望 3 个模型，实际: %v", svc.Models())
	}
}
