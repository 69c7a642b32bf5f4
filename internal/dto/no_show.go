package dto

// ── 缺勤检测模块 DTO ──

// NoShowRunRequest 手动触发缺勤检测
// At 为空时以当前时刻为准（RFC3339）
type NoShowRunRequest struct {
	At string `json:"at"`
}

// NoShowRunResponse 检测结果汇总
type NoShowRunResponse struct {
	RunAt          string                `json:"run_at"`
	WindowStart    string                `json:"window_start"`
	WindowEnd      string                `json:"window_end"`
	GraceMinutes   int                   `json:"grace_minutes"`
	Scanned        int                   `json:"scanned"`
	Evaluated      int                   `json:"evaluated"`
	SkippedInGrace int                   `json:"skipped_in_grace"`
	WithActivity   int                   `json:"with_activity"`
	Duplicates     int                   `json:"duplicates"`
	Invalid        int                   `json:"invalid"` // 时间格式无效被跳过的班次
	Created        []NoShowAlertResponse `json:"created"`
}

// NoShowAlertListRequest 告警列表查询参数
type NoShowAlertListRequest struct {
	Status  string `form:"status"   binding:"omitempty,oneof=pending acknowledged resolved"`
	GuardID string `form:"guard_id" binding:"omitempty,uuid"`
	From    string `form:"from"`
	To      string `form:"to"`
	PaginationRequest
}

// ResolveAlertRequest 处理告警请求
type ResolveAlertRequest struct {
	Note string `json:"note" binding:"omitempty,max=500"`
}

// NoShowAlertResponse 缺勤告警响应
type NoShowAlertResponse struct {
	ID                     string      `json:"id"`
	GuardID                string      `json:"guard_id"`
	Guard                  *GuardBrief `json:"guard,omitempty"`
	ShiftID                string      `json:"shift_id"`
	ExpectedShiftStartTime string      `json:"expected_shift_start_time"`
	AlertTime              string      `json:"alert_time"`
	Status                 string      `json:"status"`
	AcknowledgedBy         *string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt         *string     `json:"acknowledged_at,omitempty"`
	ResolvedBy             *string     `json:"resolved_by,omitempty"`
	ResolvedAt             *string     `json:"resolved_at,omitempty"`
	ResolutionNote         string      `json:"resolution_note,omitempty"`
}
