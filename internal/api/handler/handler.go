package handler

import "github.com/ideascube/ideascube-sub000/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth   *AuthHandler
	User   *UserHandler
	Search *SearchHandler
	Backup *BackupHandler
	Config *ConfigHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:   NewAuthHandler(svc.Auth),
		User:   NewUserHandler(svc.User),
		Search: NewSearchHandler(svc.Search),
		Backup: NewBackupHandler(svc.Backup),
		Config: NewConfigHandler(svc.Config),
	}
}
