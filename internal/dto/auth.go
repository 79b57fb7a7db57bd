package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Serial   string `json:"serial"   binding:"required,max=40"`
	Password string `json:"password" binding:"required"`
}
