package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"guardian/backend/internal/api/middleware"
	"guardian/backend/internal/model"
	"guardian/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, middleware.CtxUserID)
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, middleware.CtxRole)
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// tokenMeta 当前 Access Token 的 jti 与过期时刻，登出时使用
func tokenMeta(c *gin.Context) (string, time.Time) {
	jti := c.GetString(middleware.CtxTokenJTI)
	exp, _ := c.Get(middleware.CtxTokenExp)
	t, _ := exp.(time.Time)
	return jti, t
}

// resolveGuardID 保安只能查自己；主管 / 管理员可指定 guard_id，不指定时为自己
func resolveGuardID(c *gin.Context, requested string) (string, bool) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return "", false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return "", false
	}
	if requested == "" || requested == callerID {
		return callerID, true
	}
	if role == model.RoleGuard {
		response.Forbidden(c, 10003, "只能查看自己的数据")
		return "", false
	}
	return requested, true
}
