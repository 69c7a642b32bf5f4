package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 班次动态类型（固定集合）
const (
	ActivityConfirmed  = "confirmed"
	ActivityCheckedIn  = "checked_in"
	ActivityCheckedOut = "checked_out"
	ActivityDeclined   = "declined"
)

// ValidActivityType 是否为合法的动态类型
func ValidActivityType(t string) bool {
	switch t {
	case ActivityConfirmed, ActivityCheckedIn, ActivityCheckedOut, ActivityDeclined:
		return true
	}
	return false
}

// ShiftActivity 班次动态表，对应 shift_activities（只追加）
type ShiftActivity struct {
	ActivityID   string    `gorm:"type:uuid;primaryKey"                 json:"activity_id"`
	ShiftID      *string   `gorm:"type:uuid;index"                      json:"shift_id,omitempty"`
	GuardID      string    `gorm:"type:uuid;not null;index"             json:"guard_id"`
	ActivityType string    `gorm:"type:varchar(20);not null"            json:"activity_type"`
	Timestamp    time.Time `gorm:"column:occurred_at;not null;index" json:"timestamp"`
	Note         string    `gorm:"type:varchar(500)"                    json:"note,omitempty"`
	PerformedBy  *string   `gorm:"type:uuid"                            json:"performed_by,omitempty"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"   json:"created_at"`
}

// TableName 指定表名
func (ShiftActivity) TableName() string { return "shift_activities" }

// BeforeCreate 补齐主键
func (a *ShiftActivity) BeforeCreate(_ *gorm.DB) error {
	if a.ActivityID == "" {
		a.ActivityID = uuid.NewString()
	}
	return nil
}
