package dto

// ── 排班模块 DTO ──

// BreakWindow 休息时段
type BreakWindow struct {
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time"   binding:"required"`
	Paid      bool   `json:"paid"`
}

// CreateShiftRequest 创建班次请求
type CreateShiftRequest struct {
	GuardID   string        `json:"guard_id"    binding:"required,uuid"`
	SiteID    *string       `json:"site_id"     binding:"omitempty,uuid"`
	ShiftDate string        `json:"shift_date"  binding:"required"`
	StartTime string        `json:"start_time"  binding:"required"`
	EndTime   string        `json:"end_time"    binding:"required"`
	Position  string        `json:"position"    binding:"omitempty,max=100"`
	Breaks    []BreakWindow `json:"break_times" binding:"omitempty,dive"`
	Notes     string        `json:"notes"       binding:"omitempty,max=500"`
}

// UpdateShiftRequest 更新班次请求（乐观锁）
type UpdateShiftRequest struct {
	GuardID   *string        `json:"guard_id"    binding:"omitempty,uuid"`
	SiteID    *string        `json:"site_id"     binding:"omitempty,uuid"`
	ShiftDate *string        `json:"shift_date"`
	StartTime *string        `json:"start_time"`
	EndTime   *string        `json:"end_time"`
	Position  *string        `json:"position"    binding:"omitempty,max=100"`
	Breaks    *[]BreakWindow `json:"break_times"`
	Notes     *string        `json:"notes"       binding:"omitempty,max=500"`
	Version   int            `json:"version"     binding:"required,min=1"`
}

// ShiftListRequest 班次列表查询参数
type ShiftListRequest struct {
	GuardID string `form:"guard_id" binding:"omitempty,uuid"`
	SiteID  string `form:"site_id"  binding:"omitempty,uuid"`
	From    string `form:"from"`
	To      string `form:"to"`
	PaginationRequest
}

// MyShiftsRequest 我的班次查询参数
type MyShiftsRequest struct {
	From string `form:"from"`
	To   string `form:"to"`
}

// ShiftResponse 班次响应
type ShiftResponse struct {
	ID        string        `json:"id"`
	GuardID   string        `json:"guard_id"`
	Guard     *GuardBrief   `json:"guard,omitempty"`
	SiteID    *string       `json:"site_id,omitempty"`
	Site      *SiteBrief    `json:"site,omitempty"`
	ShiftDate string        `json:"shift_date"`
	StartTime string        `json:"start_time"`
	EndTime   string        `json:"end_time"`
	Position  string        `json:"position,omitempty"`
	Breaks    []BreakWindow `json:"break_times"`
	Notes     string        `json:"notes,omitempty"`
	Version   int           `json:"version"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
}

// ShiftBrief 班次简要信息
type ShiftBrief struct {
	ID        string  `json:"id"`
	ShiftDate string  `json:"shift_date"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Position  string  `json:"position,omitempty"`
	SiteID    *string `json:"site_id,omitempty"`
}

// ── 班次动态 ──

// CreateActivityRequest 记录班次动态请求
// Timestamp 为空时取服务器当前时间
type CreateActivityRequest struct {
	ActivityType string `json:"activity_type" binding:"required,oneof=confirmed checked_in checked_out declined"`
	Timestamp    string `json:"timestamp"`
	Note         string `json:"note"          binding:"omitempty,max=500"`
}

// ActivityResponse 班次动态响应
type ActivityResponse struct {
	ID           string  `json:"id"`
	ShiftID      *string `json:"shift_id,omitempty"`
	GuardID      string  `json:"guard_id"`
	ActivityType string  `json:"activity_type"`
	Timestamp    string  `json:"timestamp"`
	Note         string  `json:"note,omitempty"`
	PerformedBy  *string `json:"performed_by,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// ── 休息状态 ──

// 休息状态取值
const (
	StatusOnBreak           = "on_break"
	StatusOnShiftNotOnBreak = "on_shift_not_on_break"
	StatusOffShift          = "off_shift"
)

// BreakStatusRequest 查询休息状态参数，date/time 为空时取当前时刻
type BreakStatusRequest struct {
	GuardID string `form:"guard_id" binding:"omitempty,uuid"`
	Date    string `form:"date"`
	Time    string `form:"time"`
}

// BreakStatusResponse 休息状态响应
type BreakStatusResponse struct {
	Status    string       `json:"status"`
	Shift     *ShiftBrief  `json:"shift,omitempty"`
	Break     *BreakWindow `json:"break,omitempty"`
	NextBreak *BreakWindow `json:"next_break,omitempty"`
}

// ── 排班日历 ──

// RotaICSRequest 日历订阅参数
type RotaICSRequest struct {
	GuardID string `form:"guard_id" binding:"omitempty,uuid"`
	Days    int    `form:"days"     binding:"omitempty,min=1,max=90"`
}
