package dto

// ── 用户模块 DTO ──

// CreateUserRequest 创建用户请求（管理员）
type CreateUserRequest struct {
	Name           string `json:"name"             binding:"required,min=2,max=100"`
	BadgeNumber    string `json:"badge_number"     binding:"required,min=1,max=30"`
	Email          string `json:"email"            binding:"required,email"`
	Phone          string `json:"phone"            binding:"omitempty,max=30"`
	Password       string `json:"password"         binding:"required,min=8,max=64"`
	Role           string `json:"role"             binding:"required,oneof=admin supervisor guard"`
	TelegramChatID *int64 `json:"telegram_chat_id"`
}

// UpdateUserRequest 更新用户请求
type UpdateUserRequest struct {
	Name           *string `json:"name"             binding:"omitempty,min=2,max=100"`
	Email          *string `json:"email"            binding:"omitempty,email"`
	Phone          *string `json:"phone"            binding:"omitempty,max=30"`
	Role           *string `json:"role"             binding:"omitempty,oneof=admin supervisor guard"`
	TelegramChatID *int64  `json:"telegram_chat_id"`
	IsActive       *bool   `json:"is_active"`
}

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	Role    string `form:"role"    binding:"omitempty,oneof=admin supervisor guard"`
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
	PaginationRequest
}

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	BadgeNumber    string `json:"badge_number"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
	Role           string `json:"role"`
	TelegramChatID *int64 `json:"telegram_chat_id,omitempty"`
	IsActive       bool   `json:"is_active"`
	CreatedAt      string `json:"created_at"`
}

// ResetPasswordResponse 重置密码响应（临时密码仅返回一次）
type ResetPasswordResponse struct {
	TempPassword string `json:"temp_password"`
}
