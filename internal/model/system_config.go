package model

// SystemConfig 系统配置表，对应 system_config（单行强类型）
type SystemConfig struct {
	Singleton               bool    `gorm:"primaryKey;default:true"         json:"-"`
	NoShowGraceMinutes      int     `gorm:"not null;default:10"             json:"no_show_grace_minutes"`
	CheckInProximityMinutes int     `gorm:"not null;default:30"             json:"check_in_proximity_minutes"`
	VarianceThresholdHours  float64 `gorm:"type:numeric(5,2);not null;default:0.25" json:"variance_threshold_hours"`
	LicenceWarningDays      int     `gorm:"not null;default:30"             json:"licence_warning_days"`
	BaseModel
}

// TableName 指定表名
func (SystemConfig) TableName() string { return "system_config" }
