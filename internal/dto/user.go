package dto

// ── 用户模块 DTO ──

// CreateUserRequest 创建用户请求（CLI 与管理员共用）
type CreateUserRequest struct {
	Serial   string `json:"serial"    binding:"required,max=40"`
	FullName string `json:"full_name" binding:"omitempty,max=200"`
	Password string `json:"password"  binding:"required,min=8,max=72"`
	IsStaff  bool   `json:"is_staff"`
}
