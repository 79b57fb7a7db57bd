package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ideascube/ideascube-sub000/config"
	"github.com/ideascube/ideascube-sub000/internal/model"
	"github.com/ideascube/ideascube-sub000/internal/repository"
	"github.com/ideascube/ideascube-sub000/internal/search"
	"github.com/ideascube/ideascube-sub000/pkg/database"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

// setupTestDB 在临时目录创建数据库并执行全部迁移
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := &config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "default.sqlite"), MaxOpenConns: 1}
	db, err := database.NewDB(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("打开数据库失败: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取 sql.DB 失败: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		t.Fatalf("执行迁移失败: %v", err)
	}
	return db
}

func newDocument(title string) *model.Document {
	return &model.Document{
		Title:    title,
		Summary:  "summary of " + title,
		Lang:     "en",
		Original: "mediacenter/document/" + title + ".mp4",
	}
}

// ═══════════════════════════════════════════════════════════
// Test: 保存/删除钩子同步索引
// ═══════════════════════════════════════════════════════════

func TestDocument_HooksKeepIndexInSync(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	idx := search.NewIndex(db)
	ctx := context.Background()

	doc := newDocument("volcano")
	doc.Tags = model.TagList{"Géologie"}
	if err := repo.Document.Create(ctx, doc); err != nil {
		t.Fatalf("创建媒体失败: %v", err)
	}
	if doc.Kind != model.KindVideo {
		t.Errorf("Kind = %q, want video", doc.Kind)
	}

	ids, err := idx.IDs(ctx, search.Query{Model: model.ModelDocument, Text: "volcano", Tags: []string{"geologie"}})
	if err != nil {
		t.Fatalf("检索失败: %v", err)
	}
	if len(ids) != 1 || ids[0] != doc.ID {
		t.Fatalf("创建后应可检索, got %v", ids)
	}

	doc.Title = "glacier"
	if err := repo.Document.Update(ctx, doc); err != nil {
		t.Fatalf("更新媒体失败: %v", err)
	}
	if ids, _ := idx.IDs(ctx, search.Query{Model: model.ModelDocument, Text: "volcano"}); len(ids) != 0 {
		t.Errorf("旧标题不应再命中, got %v", ids)
	}
	if n, _ := idx.Count(ctx, model.ModelDocument); n != 1 {
		t.Errorf("索引行数 = %d, want 1", n)
	}

	if err := repo.Document.Delete(ctx, doc); err != nil {
		t.Fatalf("删除媒体失败: %v", err)
	}
	if n, _ := idx.Count(ctx, ""); n != 0 {
		t.Errorf("删除后索引行数 = %d, want 0", n)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Transaction Rollback
// ═══════════════════════════════════════════════════════════

func TestTransaction_RollbackDropsIndexRow(t *testing.T) {
	db := setupTestDB(t)
	idx := search.NewIndex(db)
	ctx := context.Background()

	errAbort := errors.New("abort")
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewDocumentRepo(tx).Create(ctx, newDocument("ephemeral")); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("期望事务返回 abort, got %v", err)
	}

	if n, _ := idx.Count(ctx, ""); n != 0 {
		t.Errorf("事务回滚后索引应为空, got %d", n)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Registry 与仓储联动
// ═══════════════════════════════════════════════════════════

func TestRegistry_ReindexFromRepositories(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	idx := search.NewIndex(db)
	ctx := context.Background()

	published := &model.Content{Title: "Harvest festival", Text: "harvest in the village", Status: model.ContentPublished, PublishedAt: time.Now()}
	draft := &model.Content{Title: "Harvest draft", Status: model.ContentDraft, PublishedAt: time.Now()}
	book := &model.Book{Name: "The harvest book", Authors: "Someone", Section: "digital"}
	for _, rec := range []interface{}{published, draft, book} {
		if err := db.WithContext(ctx).Create(rec).Error; err != nil {
			t.Fatalf("创建记录失败: %v", err)
		}
	}

	// 清空后重建
	if err := db.WithContext(ctx).Exec("DELETE FROM idx").Error; err != nil {
		t.Fatalf("清空索引失败: %v", err)
	}

	reg := search.NewRegistry(repo.Content, repo.Book, repo.Document)
	counts, err := reg.Reindex(ctx, idx)
	if err != nil {
		t.Fatalf("Reindex 失败: %v", err)
	}
	if counts[model.ModelContent] != 2 || counts[model.ModelBook] != 1 || counts[model.ModelDocument] != 0 {
		t.Errorf("counts = %v", counts)
	}

	results, err := reg.Search(ctx, idx, search.Query{Text: "harvest", PublicOnly: true})
	if err != nil {
		t.Fatalf("Search 失败: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("公开结果数 = %d, want 2", len(results))
	}
	for _, r := range results {
		if c, ok := r.Record.(*model.Content); ok && c.ID == draft.ID {
			t.Error("草稿不应出现在公开结果中")
		}
	}

	results, err = reg.Search(ctx, idx, search.Query{Text: "harvest", Kind: "digital"})
	if err != nil {
		t.Fatalf("Search 失败: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("按 kind 过滤结果数 = %d, want 1", len(results))
	}
	if b, ok := results[0].Record.(*model.Book); !ok || b.ID != book.ID {
		t.Errorf("期望命中图书, got %#v", results[0].Record)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: 配置与用户
// ═══════════════════════════════════════════════════════════

func TestConfiguration_Upsert(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ctx := context.Background()

	user := &model.User{Serial: "admin", PasswordHash: "x", IsStaff: true}
	if err := repo.User.Create(ctx, user); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}

	first := &model.Configuration{Namespace: "server", Key: "site-name", Value: `"A"`, Date: time.Now()}
	if err := repo.Configuration.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert 失败: %v", err)
	}
	second := &model.Configuration{Namespace: "server", Key: "site-name", Value: `"B"`, ActorID: &user.ID, Date: time.Now()}
	if err := repo.Configuration.Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert 失败: %v", err)
	}

	all, err := repo.Configuration.List(ctx)
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if len(all) != 1 || all[0].Value != `"B"` || all[0].ActorID == nil || *all[0].ActorID != user.ID {
		t.Fatalf("Upsert 应覆盖同一行, got %+v", all)
	}

	if err := repo.Configuration.Delete(ctx, "server", "site-name"); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	if _, err := repo.Configuration.Get(ctx, "server", "site-name"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("删除后应返回 ErrRecordNotFound, got %v", err)
	}
}

func TestUser_GetBySerial(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ctx := context.Background()

	if err := repo.User.Create(ctx, &model.User{Serial: "u1", FullName: "User One", PasswordHash: "h"}); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	if err := repo.User.Create(ctx, &model.User{Serial: "u1", PasswordHash: "h"}); err == nil {
		t.Error("重复 serial 应失败")
	}

	u, err := repo.User.GetBySerial(ctx, "u1")
	if err != nil {
		t.Fatalf("GetBySerial 失败: %v", err)
	}
	if u.FullName != "User One" || u.IsStaff {
		t.Errorf("unexpected user: %+v", u)
	}
}

func TestRepository_Checkpoint(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ctx := context.Background()

	if err := repo.Document.Create(ctx, newDocument("checkpoint")); err != nil {
		t.Fatalf("创建文档失败: %v", err)
	}
	if err := repo.Checkpoint(ctx); err != nil {
		t.Errorf("WAL checkpoint 失败: %v", err)
	}

	// 手工组装的聚合没有数据库
	if err := (&repository.Repository{}).Checkpoint(ctx); err != nil {
		t.Errorf("期望空操作，实际: %v", err)
	}
}
