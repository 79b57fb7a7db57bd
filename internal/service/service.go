package service

import (
	"context"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ideascube/ideascube-sub000/config"
	"github.com/ideascube/ideascube-sub000/internal/backup"
	"github.com/ideascube/ideascube-sub000/internal/configuration"
	"github.com/ideascube/ideascube-sub000/internal/repository"
	"github.com/ideascube/ideascube-sub000/internal/search"
	"github.com/ideascube/ideascube-sub000/pkg/jwt"
)

// ── 外部组件接口 ──

// TokenBlacklist Token 黑名单（Redis 实现），nil 表示未启用
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// SearchEngine 全文检索入口（search.Engine 实现）
type SearchEngine interface {
	Models() []string
	Search(ctx context.Context, q search.Query) ([]search.Result, error)
	Reindex(ctx context.Context) (map[string]int, error)
}

// BackupManager 备份归档管理（backup.Manager 实现）
type BackupManager interface {
	RemoteEnabled() bool
	List(ctx context.Context) ([]*backup.Backup, error)
	Get(name string) (*backup.Backup, error)
	Open(name string) (*os.File, *backup.Backup, error)
	Create(ctx context.Context, format string) (*backup.Backup, error)
	Restore(ctx context.Context, name string) (*backup.Backup, error)
	Load(ctx context.Context, name string, r io.Reader) (*backup.Backup, error)
	Delete(ctx context.Context, name string) error
	Push(ctx context.Context, name string) error
	ApplyRetention(ctx context.Context) ([]string, error)
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth   AuthService
	User   UserService
	Search SearchService
	Backup BackupService
	Config ConfigService
	Import ImportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	engine SearchEngine,
	backups BackupManager,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:   NewAuthService(cfg, repo, jwtMgr, blacklist, logger),
		User:   NewUserService(repo, logger),
		Search: NewSearchService(cfg, engine, logger),
		Backup: NewBackupService(backups, repo.Checkpoint, logger),
		Config: NewConfigService(repo, configuration.NewRegistry(), logger),
		Import: NewImportService(cfg, repo, logger),
	}
}
