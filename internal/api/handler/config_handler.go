package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ideascube/ideascube-sub000/internal/configuration"
	"github.com/ideascube/ideascube-sub000/internal/dto"
	"github.com/ideascube/ideascube-sub000/internal/service"
	"github.com/ideascube/ideascube-sub000/pkg/response"
)

// ConfigHandler 配置模块 HTTP 处理器
type ConfigHandler struct {
	configSvc service.ConfigService
}

// NewConfigHandler 创建 ConfigHandler
func NewConfigHandler(configSvc service.ConfigService) *ConfigHandler {
	return &ConfigHandler{configSvc: configSvc}
}

// ListConfig 全部命名空间及其配置值
// GET /api/v1/config
func (h *ConfigHandler) ListConfig(c *gin.Context) {
	list, err := h.configSvc.List(c.Request.Context())
	if err != nil {
		handleConfigError(c, err)
		return
	}
	response.OKList(c, list, len(list))
}

// GetConfig 单个配置值
// GET /api/v1/config/:namespace/:key
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	resp, err := h.configSvc.Get(c.Request.Context(), c.Param("namespace"), c.Param("key"))
	if err != nil {
		handleConfigError(c, err)
		return
	}
	response.OK(c, resp)
}

// SetConfig 写入配置值
// PUT /api/v1/config/:namespace/:key
func (h *ConfigHandler) SetConfig(c *gin.Context) {
	var req dto.SetConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.configSvc.Set(c.Request.Context(), c.Param("namespace"), c.Param("key"), req.Value, actorID(c))
	if err != nil {
		handleConfigError(c, err)
		return
	}
	response.OK(c, resp)
}

// ResetConfig 恢复默认值
// DELETE /api/v1/config/:namespace/:key
func (h *ConfigHandler) ResetConfig(c *gin.Context) {
	if err := h.configSvc.Reset(c.Request.Context(), c.Param("namespace"), c.Param("key")); err != nil {
		handleConfigError(c, err)
		return
	}
	response.OK(c, nil)
}

// handleConfigError 统一配置模块错误映射
func handleConfigError(c *gin.Context, err error) {
	var (
		nsErr    *configuration.NoSuchNamespaceError
		keyErr   *configuration.NoSuchKeyError
		valueErr *configuration.InvalidValueError
	)
	switch {
	case errors.As(err, &nsErr):
		response.NotFound(c, 40001, nsErr.Error())
	case errors.As(err, &keyErr):
		response.NotFound(c, 40002, keyErr.Error())
	case errors.As(err, &valueErr):
		response.UnprocessableEntity(c, 40003, "配置值类型错误", valueErr.Error())
	default:
		response.InternalError(c)
	}
}
