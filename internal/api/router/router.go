package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ideascube/ideascube-sub000/config"
	"github.com/ideascube/ideascube-sub000/internal/api/handler"
	"github.com/ideascube/ideascube-sub000/internal/api/middleware"
	"github.com/ideascube/ideascube-sub000/pkg/jwt"
	"github.com/ideascube/ideascube-sub000/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		v1.POST("/auth/login", middleware.RateLimit(rdb, cfg.Auth.LoginRateLimit, time.Minute), h.Auth.Login)

		// 搜索与配置读取对匿名用户开放，管理员可见非公开内容
		public := v1.Group("")
		public.Use(middleware.OptionalJWTAuth(jwtMgr, rdb))
		{
			public.GET("/search", h.Search.Search)
			public.GET("/config", h.Config.ListConfig)
			public.GET("/config/:namespace/:key", h.Config.GetConfig)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 以下仅限管理员
			staff := authorized.Group("")
			staff.Use(middleware.StaffOnly())
			{
				staff.POST("/search/reindex", h.Search.Reindex)

				staff.PUT("/config/:namespace/:key", h.Config.SetConfig)
				staff.DELETE("/config/:namespace/:key", h.Config.ResetConfig)

				users := staff.Group("/users")
				{
					users.GET("", h.User.ListUsers)
					users.POST("", h.User.CreateUser)
				}

				backups := staff.Group("/backups")
				{
					backups.GET("", h.Backup.ListBackups)
					backups.POST("", h.Backup.CreateBackup)
					backups.POST("/upload", h.Backup.UploadBackup)
					backups.POST("/retention", h.Backup.ApplyRetention)
					backups.POST("/:name/restore", h.Backup.RestoreBackup)
					backups.GET("/:name/download", h.Backup.DownloadBackup)
					backups.POST("/:name/push", h.Backup.PushBackup)
					backups.DELETE("/:name", h.Backup.DeleteBackup)
				}
			}
		}
	}

	return r
}
