package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ideascube/ideascube-sub000/config"
	"github.com/ideascube/ideascube-sub000/internal/api/handler"
	"github.com/ideascube/ideascube-sub000/internal/api/router"
	"github.com/ideascube/ideascube-sub000/internal/app"
	applogger "github.com/ideascube/ideascube-sub000/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("backuped_root", cfg.Storage.BackupedRoot),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 数据库、迁移、Redis 与依赖注入
	a, err := app.New(ctx, cfg, logger, app.Options{WithRedis: true})
	if err != nil {
		logger.Fatal("初始化失败", zap.Error(err))
	}
	defer a.Close()

	// 4. 定时备份
	if cfg.Backup.ScheduleInterval > 0 {
		if err := a.Backups.Start(ctx, cfg.Backup.ScheduleInterval); err != nil {
			logger.Error("启动定时备份失败", zap.Error(err))
		}
	}

	// 5. 初始化路由
	h := handler.NewHandler(a.Service)
	engine := router.Setup(cfg, h, a.JWT, a.Redis, logger)

	// 6. 启动 HTTP 服务器（优雅关闭）
	// 备份上传与下载可能持续较久，不设置写超时
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 7. 监听系统信号，优雅关闭
	<-ctx.Done()
	logger.Info("收到关闭信号，开始优雅关闭...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	logger.Info("服务器已关闭")
}
