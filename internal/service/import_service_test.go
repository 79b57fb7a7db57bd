package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ideascube/ideascube-sub000/internal/dto"
	"github.com/ideascube/ideascube-sub000/internal/media"
	"github.com/ideascube/ideascube-sub000/internal/model"
	"github.com/ideascube/ideascube-sub000/internal/repository"
)

type importFixture struct {
	svc       ImportService
	docs      *mockDocumentRepo
	metaPath  string
	mediaRoot string
}

// setupTestImportService 准备元数据文件与被引用的媒体文件
func setupTestImportService(t *testing.T, csv string) *importFixture {
	t.Helper()
	src := t.TempDir()
	for name, content := range map[string]string{
		"film.mp4":  "fake video",
		"cover.png": "fake png",
		"notes.txt": "plain text",
	} {
		if err := os.WriteFile(filepath.Join(src, name), []byte(content), 0o644); err != nil {
			t.Fatalf("写入测试文件失败: %v", err)
		}
	}
	metaPath := filepath.Join(src, "meta.csv")
	if err := os.WriteFile(metaPath, []byte(csv), 0o644); err != nil {
		t.Fatalf("写入元数据失败: %v", err)
	}

	cfg := testConfig()
	cfg.Storage.MediaRoot = t.TempDir()
	docs := newMockDocumentRepo()
	repo := &repository.Repository{Document: docs}

	return &importFixture{
		svc:       NewImportService(cfg, repo, zap.NewNop()),
		docs:      docs,
		metaPath:  metaPath,
		mediaRoot: cfg.Storage.MediaRoot,
	}
}

const importHeader = "title,summary,path,credits,lang,preview,kind,tags\n"

func TestImportMedias_Success(t *testing.T) {
	f := setupTestImportService(t, importHeader+
		"Un film,Un résumé,film.mp4,Moi,,cover.png,,\"nature, forêt\"\n"+
		"Des notes,Résumé,notes.txt,Toi,en,,bogus,\n")

	report, err := f.svc.ImportMedias(context.Background(), &dto.ImportMediasRequest{Path: f.metaPath})
	if err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	if report.HasErrors() {
		t.Fatalf("不应有错误:\n%s", report.Render(3))
	}
	if got := report.Items(media.LevelNotice, "Uploaded media"); len(got) != 2 {
		t.Errorf("期望 2 条上传记录，实际: %v", got)
	}

	film, err := f.docs.FindByTitleKind(context.Background(), "Un film", model.KindVideo)
	if err != nil {
		t.Fatalf("未找到导入的视频: %v", err)
	}
	if film.Lang != "fr" {
		t.Errorf("缺省语言应为配置的默认语言，实际: %q", film.Lang)
	}
	if film.Original != "mediacenter/document/film.mp4" || film.Preview != "mediacenter/preview/cover.png" {
		t.Errorf("文件路径不符: %q %q", film.Original, film.Preview)
	}
	if strings.Join(film.Tags, "|") != "nature|forêt" {
		t.Errorf("标签不符: %v", film.Tags)
	}
	if _, err := os.Stat(filepath.Join(f.mediaRoot, "mediacenter", "document", "film.mp4")); err != nil {
		t.Errorf("媒体文件未复制: %v", err)
	}

	notes, err := f.docs.FindByTitleKind(context.Background(), "Des notes", model.KindText)
	if err != nil {
		t.Fatalf("无效类型应按文件名推断为 text: %v", err)
	}
	if notes.Lang != "en" {
		t.Errorf("期望语言 en，实际: %q", notes.Lang)
	}
}

func TestImportMedias_RowErrors(t *testing.T) {
	f := setupTestImportService(t, importHeader+
		",no title,film.mp4,Moi,,,,\n"+
		"No path,desc,,Moi,,,,\n"+
		"Missing file,desc,missing.mp4,Moi,,,,\n"+
		"No summary,,film.mp4,Moi,,,,\n"+
		"Bad preview,desc,film.mp4,Moi,,notes.txt,,\n")

	report, err := f.svc.ImportMedias(context.Background(), &dto.ImportMediasRequest{Path: f.metaPath})
	if err != nil {
		t.Fatalf("行级问题不应中断导入: %v", err)
	}

	for _, msg := range []string{"Missing title", "Missing path", "Path not found", "summary: This field is required.", "preview: Upload a valid image."} {
		if len(report.Items(media.LevelError, msg)) != 1 {
			t.Errorf("期望错误 %q 一次，报告:\n%s", msg, report.Render(3))
		}
	}
	if len(f.docs.docs) != 0 {
		t.Errorf("出错的行不应保存，实际保存: %d", len(f.docs.docs))
	}
}

func TestImportMedias_ExistingAndUpdate(t *testing.T) {
	f := setupTestImportService(t, importHeader+"Un film,v1,film.mp4,Moi,,,video,\n")
	ctx := context.Background()

	if _, err := f.svc.ImportMedias(ctx, &dto.ImportMediasRequest{Path: f.metaPath}); err != nil {
		t.Fatalf("首次导入失败: %v", err)
	}

	report, err := f.svc.ImportMedias(ctx, &dto.ImportMediasRequest{Path: f.metaPath})
	if err != nil {
		t.Fatalf("重复导入失败: %v", err)
	}
	if got := report.Items(media.LevelWarning, "Document exists (Use --update for reimport)"); len(got) != 1 || got[0] != "Un film" {
		t.Errorf("期望已存在警告，实际: %v", got)
	}

	if err := os.WriteFile(f.metaPath, []byte(importHeader+"Un film,v2,film.mp4,Moi,,,video,\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	report, err = f.svc.ImportMedias(ctx, &dto.ImportMediasRequest{Path: f.metaPath, Update: true})
	if err != nil {
		t.Fatalf("更新导入失败: %v", err)
	}
	if report.Count(media.LevelNotice) != 1 {
		t.Errorf("期望一条上传记录，报告:\n%s", report.Render(3))
	}
	if len(f.docs.docs) != 1 {
		t.Fatalf("更新不应新增文档，实际: %d", len(f.docs.docs))
	}
	if doc := f.docs.docs[1]; doc.Summary != "v2" {
		t.Errorf("期望摘要更新为 v2，实际: %q", doc.Summary)
	}
	// 第二次复制时重名文件追加后缀
	if doc := f.docs.docs[1]; doc.Original == "mediacenter/document/film.mp4" || !strings.HasSuffix(doc.Original, ".mp4") {
		t.Errorf("重名文件应改名，实际: %q", doc.Original)
	}
}

func TestImportMedias_DryRun(t *testing.T) {
	f := setupTestImportService(t, importHeader+"Un film,desc,film.mp4,Moi,,,,\n")

	report, err := f.svc.ImportMedias(context.Background(), &dto.ImportMediasRequest{Path: f.metaPath, DryRun: true})
	if err != nil {
		t.Fatalf("试运行失败: %v", err)
	}
	if got := report.Items(media.LevelNotice, "Metadata valid"); len(got) != 1 {
		t.Errorf("期望校验通过记录，实际: %v", got)
	}
	if len(f.docs.docs) != 0 {
		t.Error("试运行不应保存")
	}
	if _, err := os.Stat(filepath.Join(f.mediaRoot, "mediacenter")); !os.IsNotExist(err) {
		t.Error("试运行不应复制文件")
	}
}

func TestImportMedias_TruncatesTitle(t *testing.T) {
	long := strings.Repeat("word ", 30)
	f := setupTestImportService(t, importHeader+long+",desc,film.mp4,Moi,,,,\n")

	if _, err := f.svc.ImportMedias(context.Background(), &dto.ImportMediasRequest{Path: f.metaPath}); err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	doc := f.docs.docs[1]
	if doc == nil {
		t.Fatal("文档未保存")
	}
	if !strings.HasSuffix(doc.Title, "…") || len([]rune(doc.Title)) > media.TitleMaxLength {
		t.Errorf("标题应截断，实际: %q", doc.Title)
	}
}

func TestImportMedias_FileErrors(t *testing.T) {
	f := setupTestImportService(t, "title,path\nx,film.mp4\n")

	_, err := f.svc.ImportMedias(context.Background(), &dto.ImportMediasRequest{Path: f.metaPath})
	if !errors.Is(err, ErrMissingColumns) {
		t.Errorf("期望 ErrMissingColumns，实际: %v", err)
	}

	_, err = f.svc.ImportMedias(context.Background(), &dto.ImportMediasRequest{Path: filepath.Join(t.TempDir(), "none.csv")})
	if !errors.Is(err, ErrImportFileNotFound) {
		t.Errorf("期望 ErrImportFileNotFound，实际: %v", err)
	}
}

func TestImportMedias_ShortFirstRowIsRowError(t *testing.T) {
	f := setupTestImportService(t, importHeader+
		"Court,desc,film.mp4\n"+
		"Complet,desc,notes.txt,Toi,,,,\n")

	report, err := f.svc.ImportMedias(context.Background(), &dto.ImportMediasRequest{Path: f.metaPath})
	if err != nil {
		t.Fatalf("表头完整时不应报缺列: %v", err)
	}
	if len(report.Items(media.LevelError, "credits: This field is required.")) != 1 {
		t.Errorf("短行应报告 credits 缺失，报告:\n%s", report.Render(3))
	}
	if _, err := f.docs.FindByTitleKind(context.Background(), "Complet", model.KindText); err != nil {
		t.Errorf("完整的行应被导入: %v", err)
	}
}

func TestImportMedias_SaveErrorStopsAndCleansUp(t *testing.T) {
	f := setupTestImportService(t, importHeader+"Un film,desc,film.mp4,Moi,,,,\n")
	f.docs.saveErr = errMockDB

	_, err := f.svc.ImportMedias(context.Background(), &dto.ImportMediasRequest{Path: f.metaPath})
	if !errors.Is(err, errMockDB) {
		t.Fatalf("期望数据库错误，实际: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.mediaRoot, "mediacenter", "document", "film.mp4")); !os.IsNotExist(err) {
		t.Error("保存失败时应删除已复制的文件")
	}
}
