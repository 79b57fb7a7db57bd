package handler

import (
	"errors"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/ideascube/ideascube-sub000/internal/backup"
	"github.com/ideascube/ideascube-sub000/internal/dto"
	"github.com/ideascube/ideascube-sub000/internal/service"
	pkgerrors "github.com/ideascube/ideascube-sub000/pkg/errors"
	"github.com/ideascube/ideascube-sub000/pkg/response"
)

// uploadField 备份上传的表单字段名
const uploadField = "upload"

// BackupHandler 备份模块 HTTP 处理器（仅管理员）
type BackupHandler struct {
	backupSvc service.BackupService
}

// NewBackupHandler 创建 BackupHandler
func NewBackupHandler(backupSvc service.BackupService) *BackupHandler {
	return &BackupHandler{backupSvc: backupSvc}
}

// ListBackups 备份列表（按名称排序）
// GET /api/v1/backups
func (h *BackupHandler) ListBackups(c *gin.Context) {
	list, err := h.backupSvc.List(c.Request.Context())
	if err != nil {
		handleBackupError(c, err)
		return
	}
	response.OKList(c, list, len(list))
}

// CreateBackup 创建备份
// POST /api/v1/backups
func (h *BackupHandler) CreateBackup(c *gin.Context) {
	var req dto.CreateBackupRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
	}

	b, err := h.backupSvc.Create(c.Request.Context(), &req)
	if err != nil {
		handleBackupError(c, err)
		return
	}
	response.Created(c, b)
}

// UploadBackup 上传备份文件，文件名需符合备份命名规则
// POST /api/v1/backups/upload
func (h *BackupHandler) UploadBackup(c *gin.Context) {
	file, header, err := c.Request.FormFile(uploadField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			return
		}
		response.BadRequest(c, 30006, pkgerrors.ErrEmptyUpload.Error())
		return
	}
	defer file.Close()

	b, err := h.backupSvc.Upload(c.Request.Context(), filepath.Base(header.Filename), file)
	if err != nil {
		handleBackupError(c, err)
		return
	}
	response.Created(c, b)
}

// RestoreBackup 从备份恢复数据目录
// POST /api/v1/backups/:name/restore
func (h *BackupHandler) RestoreBackup(c *gin.Context) {
	b, err := h.backupSvc.Restore(c.Request.Context(), c.Param("name"))
	if err != nil {
		handleBackupError(c, err)
		return
	}
	response.OK(c, b)
}

// DownloadBackup 下载备份文件
// GET /api/v1/backups/:name/download
func (h *BackupHandler) DownloadBackup(c *gin.Context) {
	f, b, err := h.backupSvc.Open(c.Param("name"))
	if err != nil {
		handleBackupError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Description", "File Transfer")
	c.DataFromReader(http.StatusOK, b.Size, "application/octet-stream", f, map[string]string{
		"Content-Disposition": "attachment; filename*=UTF-8''" + url.PathEscape(b.Name),
	})
}

// DeleteBackup 删除备份
// DELETE /api/v1/backups/:name
func (h *BackupHandler) DeleteBackup(c *gin.Context) {
	if err := h.backupSvc.Delete(c.Request.Context(), c.Param("name")); err != nil {
		handleBackupError(c, err)
		return
	}
	response.OK(c, nil)
}

// PushBackup 上传备份到异地存储
// POST /api/v1/backups/:name/push
func (h *BackupHandler) PushBackup(c *gin.Context) {
	if err := h.backupSvc.Push(c.Request.Context(), c.Param("name")); err != nil {
		handleBackupError(c, err)
		return
	}
	response.OK(c, nil)
}

// ApplyRetention 按保留策略清理备份
// POST /api/v1/backups/retention
func (h *BackupHandler) ApplyRetention(c *gin.Context) {
	resp, err := h.backupSvc.ApplyRetention(c.Request.Context())
	if err != nil {
		handleBackupError(c, err)
		return
	}
	response.OK(c, resp)
}

// handleBackupError 统一备份模块错误映射
func handleBackupError(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, backup.ErrInvalidName), errors.Is(err, backup.ErrUnsupportedExtension):
		response.ErrorWithDetails(c, http.StatusBadRequest, 30001, "备份文件名无效", err.Error())
	case errors.Is(err, backup.ErrUnknownFormat), errors.Is(err, backup.ErrFormatNotCreatable):
		response.ErrorWithDetails(c, http.StatusBadRequest, 30002, "不支持的备份格式", err.Error())
	case errors.Is(err, backup.ErrNotFound):
		response.NotFound(c, 30003, "备份不存在")
	case errors.Is(err, backup.ErrInvalidArchive), errors.Is(err, backup.ErrUnsafePath), errors.Is(err, backup.ErrEntryTooLarge):
		response.UnprocessableEntity(c, 30004, "备份文件内容无效", err.Error())
	case errors.Is(err, backup.ErrRemoteDisabled):
		response.Error(c, http.StatusConflict, 30005, "未启用异地备份")
	case errors.As(err, &maxErr):
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
	default:
		response.InternalError(c)
	}
}
