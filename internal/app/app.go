// Package app 组装服务进程与命令行共用的依赖：数据库、仓储、检索、备份与服务层
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ideascube/ideascube-sub000/config"
	"github.com/ideascube/ideascube-sub000/internal/backup"
	"github.com/ideascube/ideascube-sub000/internal/repository"
	"github.com/ideascube/ideascube-sub000/internal/search"
	"github.com/ideascube/ideascube-sub000/internal/service"
	"github.com/ideascube/ideascube-sub000/pkg/database"
	"github.com/ideascube/ideascube-sub000/pkg/jwt"
	"github.com/ideascube/ideascube-sub000/pkg/redis"
	"github.com/ideascube/ideascube-sub000/pkg/storage"
)

// Options 控制可选组件
type Options struct {
	// WithRedis 为 true 且 redis.enabled 时连接 Redis；连接失败降级运行
	WithRedis bool
}

// App 已初始化的依赖集合
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	DB      *gorm.DB
	Repo    *repository.Repository
	Redis   *redis.Client
	JWT     *jwt.Manager
	Engine  *search.Engine
	Backups *backup.Manager
	Service *service.Service
}

// New 依次连接数据库、执行迁移并装配 Repository → Service
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, DB: db}

	// Redis 可选：连接失败时降级运行，Token 黑名单与登录限流不可用
	if opts.WithRedis && cfg.Redis.Enabled {
		rdb, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，Token 黑名单功能将不可用", zap.Error(err))
		} else {
			a.Redis = rdb
		}
	}

	a.JWT = jwt.NewManager(&cfg.Auth)
	a.Repo = repository.NewRepository(db)
	a.Engine = search.NewEngine(search.NewIndex(db), a.Repo.Content, a.Repo.Book, a.Repo.Document)

	backupOpts := []backup.Option{backup.WithScheduledPrepare(a.Repo.Checkpoint)}
	if cfg.Backup.Remote.Enabled {
		store, err := storage.NewS3Store(&cfg.Backup.Remote, storage.WithLogger(logger))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("初始化异地备份存储失败: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			logger.Warn("检查异地备份存储桶失败", zap.String("bucket", store.Bucket()), zap.Error(err))
		}
		backupOpts = append(backupOpts, backup.WithUploader(store))
	}
	a.Backups = backup.NewManager(&cfg.Backup, &cfg.Storage, logger, backupOpts...)

	// 未启用 Redis 时传入 nil 接口，而不是持有 nil 指针的接口
	var blacklist service.TokenBlacklist
	if a.Redis != nil {
		blacklist = a.Redis
	}
	a.Service = service.NewService(cfg, a.Repo, a.JWT, blacklist, a.Engine, a.Backups, logger)

	return a, nil
}

// Close 停止定时备份并关闭数据库与 Redis 连接
func (a *App) Close() {
	if a.Backups != nil {
		a.Backups.Stop()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("关闭 Redis 连接失败", zap.Error(err))
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
