package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 用户角色
const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RoleGuard      = "guard"
)

// User 用户表，对应 users（保安与管理人员共用）
type User struct {
	UserID         string `gorm:"type:uuid;primaryKey"                       json:"user_id"`
	Name           string `gorm:"type:varchar(100);not null"                 json:"name"`
	BadgeNumber    string `gorm:"type:varchar(30);not null;uniqueIndex"      json:"badge_number"`
	Email          string `gorm:"type:varchar(255);not null"                 json:"email"`
	Phone          string `gorm:"type:varchar(30)"                           json:"phone,omitempty"`
	PasswordHash   string `gorm:"type:varchar(255);not null"                 json:"-"`
	Role           string `gorm:"type:varchar(20);not null;default:'guard'"  json:"role"`
	TelegramChatID *int64 `json:"telegram_chat_id,omitempty"`
	IsActive       bool   `gorm:"not null;default:true"                      json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// BeforeCreate 补齐主键
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.UserID == "" {
		u.UserID = uuid.NewString()
	}
	return nil
}

// IsStaff 是否为管理角色（admin / supervisor）
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleSupervisor
}
