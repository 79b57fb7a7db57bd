package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ideascube/ideascube-sub000/pkg/jwt"
	"github.com/ideascube/ideascube-sub000/pkg/response"
)

// 认证中间件注入的上下文键
const (
	CtxUserID  = "user_id"
	CtxSerial  = "serial"
	CtxIsStaff = "is_staff"
	CtxClaims  = "claims"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(CtxUserID)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return 0, false
	}
	id, ok := v.(uint)
	if !ok || id == 0 {
		response.Unauthorized(c, 10002, "未认证")
		return 0, false
	}
	return id, true
}

// IsStaff 当前请求是否来自管理员；未登录时为 false
func IsStaff(c *gin.Context) bool {
	return c.GetBool(CtxIsStaff)
}

// GetClaims 当前请求的 Token 声明，未登录时为 nil
func GetClaims(c *gin.Context) *jwt.Claims {
	v, exists := c.Get(CtxClaims)
	if !exists {
		return nil
	}
	claims, _ := v.(*jwt.Claims)
	return claims
}

// actorID 当前登录用户 ID，未登录时为 nil
func actorID(c *gin.Context) *uint {
	v, exists := c.Get(CtxUserID)
	if !exists {
		return nil
	}
	id, ok := v.(uint)
	if !ok || id == 0 {
		return nil
	}
	return &id
}
