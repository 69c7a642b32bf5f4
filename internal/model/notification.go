package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 通知类型
const (
	NotificationNoShow  = "no_show"
	NotificationLicence = "licence_expiry"
)

// Notification 站内通知表，对应 notifications
type Notification struct {
	NotificationID string  `gorm:"type:uuid;primaryKey"                json:"notification_id"`
	UserID         string  `gorm:"type:uuid;not null;index"            json:"user_id"`
	Type           string  `gorm:"type:varchar(50);not null"           json:"type"`
	Title          string  `gorm:"type:varchar(200);not null"          json:"title"`
	Content        string  `gorm:"type:text;not null"                  json:"content"`
	IsRead         bool    `gorm:"not null;default:false"              json:"is_read"`
	RelatedType    *string `gorm:"type:varchar(20)"                    json:"related_type,omitempty"` // shift | no_show_alert | licence
	RelatedID      *string `gorm:"type:uuid"                           json:"related_id,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }

// BeforeCreate 补齐主键
func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	if n.NotificationID == "" {
		n.NotificationID = uuid.NewString()
	}
	return nil
}

// PushSubscription Web Push 订阅表，对应 push_subscriptions
type PushSubscription struct {
	Endpoint  string    `gorm:"type:text;primaryKey"               json:"endpoint"`
	UserID    string    `gorm:"type:uuid;not null;index"           json:"user_id"`
	P256DH    string    `gorm:"column:p256dh;type:text;not null"   json:"p256dh"`
	Auth      string    `gorm:"type:text;not null"                 json:"auth"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (PushSubscription) TableName() string { return "push_subscriptions" }
