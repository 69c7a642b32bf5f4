package dto

// ── 工资差异模块 DTO ──

// PayrollRunRequest 计算工资差异请求
// 起止日期均为空时取上一个完整的周一至周日
type PayrollRunRequest struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

// PayrollFailure 单个保安计算失败原因
type PayrollFailure struct {
	GuardID string `json:"guard_id"`
	Reason  string `json:"reason"`
}

// PayrollRunResponse 工资差异计算汇总
type PayrollRunResponse struct {
	PeriodStart     string                    `json:"period_start"`
	PeriodEnd       string                    `json:"period_end"`
	ThresholdHours  float64                   `json:"threshold_hours"`
	GuardsScanned   int                       `json:"guards_scanned"`
	Created         int                       `json:"created"`
	Updated         int                       `json:"updated"`
	Locked          int                       `json:"locked"` // 已进入审核流程、未覆盖
	WithinThreshold int                       `json:"within_threshold"`
	Cleared         int                       `json:"cleared"` // 回落到阈值内而撤销的 pending 记录
	SkippedNoInput  int                       `json:"skipped_no_input"`
	Failed          []PayrollFailure          `json:"failed"`
	Variances       []PayrollVarianceResponse `json:"variances"`
}

// PayrollVarianceListRequest 差异列表查询参数
type PayrollVarianceListRequest struct {
	Status  string `form:"status"   binding:"omitempty,oneof=pending investigating resolved"`
	GuardID string `form:"guard_id" binding:"omitempty,uuid"`
	From    string `form:"from"`
	To      string `form:"to"`
	PaginationRequest
}

// UpdateVarianceStatusRequest 审核工资差异
type UpdateVarianceStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=investigating resolved"`
	Note   string `json:"note"   binding:"omitempty,max=500"`
}

// PayrollVarianceResponse 工资差异响应
type PayrollVarianceResponse struct {
	ID             string      `json:"id"`
	GuardID        string      `json:"guard_id"`
	Guard          *GuardBrief `json:"guard,omitempty"`
	PeriodStart    string      `json:"period_start"`
	PeriodEnd      string      `json:"period_end"`
	ScheduledHours float64     `json:"scheduled_hours"`
	ActualHours    float64     `json:"actual_hours"`
	PaidHours      float64     `json:"paid_hours"`
	VarianceHours  float64     `json:"variance_hours"`
	Status         string      `json:"status"`
	ReviewedBy     *string     `json:"reviewed_by,omitempty"`
	ReviewedAt     *string     `json:"reviewed_at,omitempty"`
	ReviewNote     string      `json:"review_note,omitempty"`
	CreatedAt      string      `json:"created_at"`
	UpdatedAt      string      `json:"updated_at"`
}

// ── 已付工时 ──

// PayrollInputRequest 录入已付工时（同一周期重复录入即覆盖）
type PayrollInputRequest struct {
	GuardID        string   `json:"guard_id"         binding:"required,uuid"`
	PayPeriodStart string   `json:"pay_period_start" binding:"required"`
	PayPeriodEnd   string   `json:"pay_period_end"   binding:"required"`
	HoursPaid      *float64 `json:"hours_paid"       binding:"required,min=0,max=744"`
}

// PayrollInputListRequest 已付工时列表查询参数
type PayrollInputListRequest struct {
	GuardID     string `form:"guard_id"     binding:"omitempty,uuid"`
	PeriodStart string `form:"period_start"`
	PeriodEnd   string `form:"period_end"`
	PaginationRequest
}

// PayrollInputResponse 已付工时响应
type PayrollInputResponse struct {
	ID             string  `json:"id"`
	GuardID        string  `json:"guard_id"`
	PayPeriodStart string  `json:"pay_period_start"`
	PayPeriodEnd   string  `json:"pay_period_end"`
	HoursPaid      float64 `json:"hours_paid"`
	Source         string  `json:"source"`
	UpdatedAt      string  `json:"updated_at"`
}

// ImportRowError 导入失败的行
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// PayrollImportResponse 导入结果
type PayrollImportResponse struct {
	Imported int              `json:"imported"`
	Errors   []ImportRowError `json:"errors"`
}

// PayrollExportRequest 导出参数
type PayrollExportRequest struct {
	From   string `form:"from"   binding:"required"`
	To     string `form:"to"     binding:"required"`
	Status string `form:"status" binding:"omitempty,oneof=pending investigating resolved"`
}
