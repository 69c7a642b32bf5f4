package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 工资差异审核状态
const (
	VariancePending       = "pending"
	VarianceInvestigating = "investigating"
	VarianceResolved      = "resolved"
)

// PayrollInput 已付工时表，对应 payroll_input_data
type PayrollInput struct {
	InputID        string    `gorm:"type:uuid;primaryKey"                                     json:"input_id"`
	GuardID        string    `gorm:"type:uuid;not null;uniqueIndex:uq_payroll_input_period"   json:"guard_id"`
	PayPeriodStart time.Time `gorm:"type:date;not null;uniqueIndex:uq_payroll_input_period"   json:"pay_period_start"`
	PayPeriodEnd   time.Time `gorm:"type:date;not null;uniqueIndex:uq_payroll_input_period"   json:"pay_period_end"`
	HoursPaid      float64   `gorm:"type:numeric(7,2);not null"                               json:"hours_paid"`
	Source         string    `gorm:"type:varchar(20);not null;default:'manual'"               json:"source"` // manual | import
	BaseModel

	Guard *User `gorm:"foreignKey:GuardID;references:UserID" json:"guard,omitempty"`
}

// TableName 指定表名
func (PayrollInput) TableName() string { return "payroll_input_data" }

// BeforeCreate 补齐主键
func (p *PayrollInput) BeforeCreate(_ *gorm.DB) error {
	if p.InputID == "" {
		p.InputID = uuid.NewString()
	}
	return nil
}

// PayrollVariance 工资差异表，对应 payroll_variances
// VarianceDate 即工资周期起始日
type PayrollVariance struct {
	VarianceID     string     `gorm:"type:uuid;primaryKey"                                        json:"variance_id"`
	GuardID        string     `gorm:"type:uuid;not null;uniqueIndex:uq_payroll_variance_period"   json:"guard_id"`
	VarianceDate   time.Time  `gorm:"type:date;not null;uniqueIndex:uq_payroll_variance_period"   json:"variance_date"`
	PayPeriodEnd   time.Time  `gorm:"type:date;not null;uniqueIndex:uq_payroll_variance_period"   json:"pay_period_end"`
	ScheduledHours float64    `gorm:"type:numeric(7,2);not null"                                  json:"scheduled_hours"`
	ActualHours    float64    `gorm:"type:numeric(7,2);not null"                                  json:"actual_hours"`
	PaidHours      float64    `gorm:"type:numeric(7,2);not null"                                  json:"paid_hours"`
	VarianceHours  float64    `gorm:"type:numeric(7,2);not null"                                  json:"variance_hours"`
	Status         string     `gorm:"type:varchar(20);not null;default:'pending'"                 json:"status"`
	ReviewedBy     *string    `gorm:"type:uuid"                                                   json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	ReviewNote     string     `gorm:"type:varchar(500)"                                           json:"review_note,omitempty"`
	BaseModel

	Guard *User `gorm:"foreignKey:GuardID;references:UserID" json:"guard,omitempty"`
}

// TableName 指定表名
func (PayrollVariance) TableName() string { return "payroll_variances" }

// BeforeCreate 补齐主键
func (p *PayrollVariance) BeforeCreate(_ *gorm.DB) error {
	if p.VarianceID == "" {
		p.VarianceID = uuid.NewString()
	}
	return nil
}
