package dto

// ── 系统配置模块 DTO ──

// UpdateSystemConfigRequest 更新系统配置请求
type UpdateSystemConfigRequest struct {
	NoShowGraceMinutes      *int     `json:"no_show_grace_minutes"      binding:"omitempty,min=0,max=240"`
	CheckInProximityMinutes *int     `json:"check_in_proximity_minutes" binding:"omitempty,min=0,max=240"`
	VarianceThresholdHours  *float64 `json:"variance_threshold_hours"   binding:"omitempty,min=0,max=24"`
	LicenceWarningDays      *int     `json:"licence_warning_days"       binding:"omitempty,min=1,max=365"`
}

// SystemConfigResponse 系统配置响应
type SystemConfigResponse struct {
	NoShowGraceMinutes      int     `json:"no_show_grace_minutes"`
	CheckInProximityMinutes int     `json:"check_in_proximity_minutes"`
	VarianceThresholdHours  float64 `json:"variance_threshold_hours"`
	LicenceWarningDays      int     `json:"licence_warning_days"`
	UpdatedAt               string  `json:"updated_at"`
}
