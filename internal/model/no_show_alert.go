package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 缺勤告警状态
const (
	AlertPending      = "pending"
	AlertAcknowledged = "acknowledged"
	AlertResolved     = "resolved"
)

// NoShowAlert 缺勤告警表，对应 no_show_alerts
// (guard_id, shift_id) 唯一，由数据库约束保证同一班次只告警一次
type NoShowAlert struct {
	AlertID                string     `gorm:"type:uuid;primaryKey"                                     json:"alert_id"`
	GuardID                string     `gorm:"type:uuid;not null;uniqueIndex:uq_no_show_guard_shift"    json:"guard_id"`
	ShiftID                string     `gorm:"type:uuid;not null;uniqueIndex:uq_no_show_guard_shift"    json:"shift_id"`
	ExpectedShiftStartTime time.Time  `gorm:"not null;index"                                           json:"expected_shift_start_time"`
	AlertTime              time.Time  `gorm:"not null"                                                 json:"alert_time"`
	Status                 string     `gorm:"type:varchar(20);not null;default:'pending'"              json:"status"`
	AcknowledgedBy         *string    `gorm:"type:uuid"                                                json:"acknowledged_by,omitempty"`
	AcknowledgedAt         *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedBy             *string    `gorm:"type:uuid"                                                json:"resolved_by,omitempty"`
	ResolvedAt             *time.Time `json:"resolved_at,omitempty"`
	ResolutionNote         string     `gorm:"type:varchar(500)"                                        json:"resolution_note,omitempty"`
	BaseModel

	// 关联
	Guard *User  `gorm:"foreignKey:GuardID;references:UserID" json:"guard,omitempty"`
	Shift *Shift `gorm:"foreignKey:ShiftID;references:ShiftID" json:"shift,omitempty"`
}

// TableName 指定表名
func (NoShowAlert) TableName() string { return "no_show_alerts" }

// BeforeCreate 补齐主键
func (a *NoShowAlert) BeforeCreate(_ *gorm.DB) error {
	if a.AlertID == "" {
		a.AlertID = uuid.NewString()
	}
	return nil
}

// Key 去重键
func (a *NoShowAlert) Key() string {
	return a.GuardID + "|" + a.ShiftID
}
