package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求（工牌号 + 密码）
type LoginRequest struct {
	BadgeNumber string `json:"badge_number" binding:"required"`
	Password    string `json:"password"     binding:"required"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=64"`
}
