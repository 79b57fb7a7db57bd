package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ideascube/ideascube-sub000/config"
	"github.com/ideascube/ideascube-sub000/internal/dto"
	"github.com/ideascube/ideascube-sub000/internal/media"
	"github.com/ideascube/ideascube-sub000/internal/model"
	"github.com/ideascube/ideascube-sub000/internal/repository"
)

// ── 媒体导入业务错误 ──

var (
	ErrImportFileNotFound = errors.New("元数据文件不存在")
	ErrMissingColumns     = errors.New("元数据缺少必需列")
)

// 媒体文件在 media_root 下的存放目录
const (
	documentUploadDir = "mediacenter/document"
	previewUploadDir  = "mediacenter/preview"
)

const (
	maxCreditsLength = 300
	maxLangLength    = 10
)

// ImportService 媒体批量导入业务接口
type ImportService interface {
	// ImportMedias 按元数据文件逐行导入，行级问题记入报告；
	// 只有文件本身无法读取时返回错误
	ImportMedias(ctx context.Context, req *dto.ImportMediasRequest) (*media.Reporter, error)
}

type importService struct {
	repo        *repository.Repository
	mediaRoot   string
	defaultLang string
	logger      *zap.Logger
}

// NewImportService 创建 ImportService 实例
func NewImportService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) ImportService {
	return &importService{
		repo:        repo,
		mediaRoot:   cfg.Storage.MediaRoot,
		defaultLang: cfg.Media.DefaultLanguage,
		logger:      logger,
	}
}

// ────────────────────── ImportMedias ──────────────────────

func (s *importService) ImportMedias(ctx context.Context, req *dto.ImportMediasRequest) (*media.Reporter, error) {
	metaPath, err := filepath.Abs(req.Path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(metaPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrImportFileNotFound, metaPath)
		}
		return nil, err
	}

	table, err := media.ReadFile(metaPath, req.Encoding)
	if err != nil {
		return nil, err
	}
	if missing := table.MissingColumns(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	root := filepath.Dir(metaPath)
	report := media.NewReporter()
	for _, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := s.importRow(ctx, root, row, req, report); err != nil {
			return report, err
		}
	}

	s.logger.Info("媒体导入完成",
		zap.String("path", metaPath),
		zap.Int("rows", len(table.Rows)),
		zap.Int("errors", report.Count(media.LevelError)),
		zap.Int("warnings", report.Count(media.LevelWarning)),
		zap.Bool("dry_run", req.DryRun),
	)
	return report, nil
}

// importRow 处理单行，只在数据库故障时返回错误
func (s *importService) importRow(ctx context.Context, root string, row media.Row, req *dto.ImportMediasRequest, report *media.Reporter) error {
	title := row.Get("title")
	if title == "" {
		report.Error("Missing title", row.String())
		return nil
	}
	title = media.SmartTruncate(title, media.TitleMaxLength)

	lang := row.Get("lang")
	if lang == "" {
		lang = s.defaultLang
	}

	original := row.Get("path")
	if original == "" {
		report.Error("Missing path", row.String())
		return nil
	}

	// other 按文件名重新推断，与 Document.BeforeSave 一致
	kind := strings.ToLower(row.Get("kind"))
	if !model.IsValidKind(kind) || kind == model.KindOther {
		kind = model.GuessKind(original)
	}

	existing, err := s.repo.Document.FindByTitleKind(ctx, title, kind)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询文档失败", zap.String("title", title), zap.Error(err))
		return err
	}
	if existing != nil && !req.Update {
		report.Warning("Document exists (Use --update for reimport)", title)
		return nil
	}

	originalPath := filepath.Join(root, original)
	if !isRegularFile(originalPath) {
		report.Error("Path not found", originalPath)
		return nil
	}
	previewPath := ""
	if preview := row.Get("preview"); preview != "" {
		previewPath = filepath.Join(root, preview)
		if !isRegularFile(previewPath) {
			report.Error("Path not found", previewPath)
			return nil
		}
	}

	summary, credits := row.Get("summary"), row.Get("credits")
	if problems := validateDocument(summary, credits, lang, previewPath); len(problems) > 0 {
		for _, p := range problems {
			report.Error(p, row.String())
		}
		return nil
	}

	if req.DryRun {
		report.Notice("Metadata valid", title)
		return nil
	}

	doc := existing
	if doc == nil {
		doc = &model.Document{}
	}
	doc.Title = title
	doc.Summary = summary
	doc.Credits = credits
	doc.Lang = lang
	doc.Kind = kind
	doc.Tags = model.ParseTags(row.Get("tags"))

	var copied []string
	cleanup := func() {
		for _, p := range copied {
			_ = os.Remove(filepath.Join(s.mediaRoot, filepath.FromSlash(p)))
		}
	}

	rel, err := s.storeFile(originalPath, documentUploadDir)
	if err != nil {
		report.Error("Copy failed: "+err.Error(), originalPath)
		return nil
	}
	copied = append(copied, rel)
	doc.Original = rel

	if previewPath != "" {
		rel, err := s.storeFile(previewPath, previewUploadDir)
		if err != nil {
			cleanup()
			report.Error("Copy failed: "+err.Error(), previewPath)
			return nil
		}
		copied = append(copied, rel)
		doc.Preview = rel
	}

	if existing != nil {
		err = s.repo.Document.Update(ctx, doc)
	} else {
		err = s.repo.Document.Create(ctx, doc)
	}
	if err != nil {
		cleanup()
		s.logger.Error("保存文档失败", zap.String("title", title), zap.Error(err))
		return err
	}

	report.Notice("Uploaded media", doc.Title)
	return nil
}

// validateDocument 文档字段校验，返回 "field: message" 形式的问题列表
func validateDocument(summary, credits, lang, previewPath string) []string {
	var problems []string
	if summary == "" {
		problems = append(problems, "summary: This field is required.")
	}
	if credits == "" {
		problems = append(problems, "credits: This field is required.")
	} else if utf8.RuneCountInString(credits) > maxCreditsLength {
		problems = append(problems, fmt.Sprintf("credits: Ensure this value has at most %d characters.", maxCreditsLength))
	}
	if utf8.RuneCountInString(lang) > maxLangLength {
		problems = append(problems, fmt.Sprintf("lang: Ensure this value has at most %d characters.", maxLangLength))
	}
	if previewPath != "" && model.GuessKind(previewPath) != model.KindImage {
		problems = append(problems, "preview: Upload a valid image.")
	}
	return problems
}

// storeFile 复制文件到 media_root/dir，重名时追加随机后缀
// 返回相对 media_root 的 "/" 分隔路径
func (s *importService) storeFile(src, dir string) (string, error) {
	destDir := filepath.Join(s.mediaRoot, filepath.FromSlash(dir))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}

	name := filepath.Base(src)
	dest := filepath.Join(destDir, name)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(name)
		name = strings.TrimSuffix(name, ext) + "_" + uuid.NewString()[:8] + ext
		dest = filepath.Join(destDir, name)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dest)
		return "", err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dest)
		return "", err
	}
	return path.Join(dir, name), nil
}

func isRegularFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
