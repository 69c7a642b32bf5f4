package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BreakWindow 班次内的休息时段，时间为 "HH:MM"
type BreakWindow struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Paid      bool   `json:"paid"`
}

// Shift 排班表，对应 shifts
// EndTime 早于 StartTime 表示跨午夜
type Shift struct {
	ShiftID   string        `gorm:"type:uuid;primaryKey"                       json:"shift_id"`
	GuardID   string        `gorm:"type:uuid;not null;index:idx_shift_guard_date" json:"guard_id"`
	SiteID    *string       `gorm:"type:uuid"                                  json:"site_id,omitempty"`
	ShiftDate time.Time     `gorm:"type:date;not null;index:idx_shift_guard_date" json:"shift_date"`
	StartTime string        `gorm:"type:varchar(5);not null"                   json:"start_time"`
	EndTime   string        `gorm:"type:varchar(5);not null"                   json:"end_time"`
	Position  string        `gorm:"type:varchar(100)"                          json:"position,omitempty"`
	Breaks    []BreakWindow `gorm:"column:break_times;type:jsonb;serializer:json" json:"break_times"`
	Notes     string        `gorm:"type:varchar(500)"                          json:"notes,omitempty"`
	VersionedModel

	// 关联
	Guard *User `gorm:"foreignKey:GuardID;references:UserID" json:"guard,omitempty"`
	Site  *Site `gorm:"foreignKey:SiteID;references:SiteID"  json:"site,omitempty"`
}

// TableName 指定表名
func (Shift) TableName() string { return "shifts" }

// BeforeCreate 补齐主键
func (s *Shift) BeforeCreate(_ *gorm.DB) error {
	if s.ShiftID == "" {
		s.ShiftID = uuid.NewString()
	}
	return nil
}
