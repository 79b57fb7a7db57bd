package dto

// ── 备份模块 DTO ──

// CreateBackupRequest 创建备份请求，format 为空时使用配置的默认格式
type CreateBackupRequest struct {
	Format string `json:"format" binding:"omitempty,oneof=tar gztar bztar zip"`
}

// BackupResponse 备份信息
type BackupResponse struct {
	Name    string `json:"name"`
	Source  string `json:"source"`
	Version string `json:"version"`
	Date    string `json:"date"`
	Format  string `json:"format"`
	Size    int64  `json:"size"`
}

// RetentionResponse 保留策略清理结果
type RetentionResponse struct {
	Deleted []string `json:"deleted"`
}
