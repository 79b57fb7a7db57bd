package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/ideascube/ideascube-sub000/pkg/errors"
	"github.com/ideascube/ideascube-sub000/pkg/jwt"
	"github.com/ideascube/ideascube-sub000/pkg/redis"
	"github.com/ideascube/ideascube-sub000/pkg/response"
)

// 注入 gin.Context 的认证信息键，与 handler 包一致
const (
	ctxUserID  = "user_id"
	ctxSerial  = "serial"
	ctxIsStaff = "is_staff"
	ctxClaims  = "claims"
)

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token；
// rdb 非 nil 时拒绝已登出（黑名单中）的 Token，Redis 出错时降级放行
func JWTAuth(jwtMgr *jwt.Manager, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, 10002, "缺少认证头或格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(token)
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}

		if rdb != nil && claims.ID != "" {
			revoked, err := rdb.IsBlacklisted(c.Request.Context(), claims.ID)
			if err == nil && revoked {
				response.Unauthorized(c, 10002, "Token 已失效")
				c.Abort()
				return
			}
		}

		if !setIdentity(c, claims) {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}

		c.Next()
	}
}

// OptionalJWTAuth 可选认证：携带有效 Token 时注入用户信息，否则按匿名请求放行
func OptionalJWTAuth(jwtMgr *jwt.Manager, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}
		claims, err := jwtMgr.ParseToken(token)
		if err != nil {
			c.Next()
			return
		}
		if rdb != nil && claims.ID != "" {
			if revoked, err := rdb.IsBlacklisted(c.Request.Context(), claims.ID); err == nil && revoked {
				c.Next()
				return
			}
		}
		setIdentity(c, claims)
		c.Next()
	}
}

// StaffOnly 管理员权限中间件，需在 JWTAuth 之后使用
func StaffOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ctxUserID); !exists {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}
		if !c.GetBool(ctxIsStaff) {
			response.Forbidden(c, 10003, pkgerrors.ErrStaffRequired.Error())
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// setIdentity 将用户信息注入上下文；Token 中的用户 ID 非法时返回 false
func setIdentity(c *gin.Context, claims *jwt.Claims) bool {
	id, err := strconv.ParseUint(claims.UserID, 10, 64)
	if err != nil || id == 0 {
		return false
	}
	c.Set(ctxUserID, uint(id))
	c.Set(ctxSerial, claims.Serial)
	c.Set(ctxIsStaff, claims.IsStaff)
	c.Set(ctxClaims, claims)
	return true
}
