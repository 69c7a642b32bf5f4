package service

import (
	"time"

	"guardian/backend/internal/dto"
	"guardian/backend/internal/model"
)

const timeLayout = time.RFC3339

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func formatDate(t time.Time) string {
	return t.Format(model.DateLayout)
}

// actorPtr 空 ID（系统任务）记为 NULL
func actorPtr(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func toGuardBrief(u *model.User) *dto.GuardBrief {
	if u == nil {
		return nil
	}
	return &dto.GuardBrief{ID: u.UserID, Name: u.Name, BadgeNumber: u.BadgeNumber}
}

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:             u.UserID,
		Name:           u.Name,
		BadgeNumber:    u.BadgeNumber,
		Email:          u.Email,
		Phone:          u.Phone,
		Role:           u.Role,
		TelegramChatID: u.TelegramChatID,
		IsActive:       u.IsActive,
		CreatedAt:      formatTime(u.CreatedAt),
	}
}

func toBreakDTOs(breaks []model.BreakWindow) []dto.BreakWindow {
	out := make([]dto.BreakWindow, 0, len(breaks))
	for _, b := range breaks {
		out = append(out, dto.BreakWindow{StartTime: b.StartTime, EndTime: b.EndTime, Paid: b.Paid})
	}
	return out
}

func fromBreakDTOs(breaks []dto.BreakWindow) []model.BreakWindow {
	out := make([]model.BreakWindow, 0, len(breaks))
	for _, b := range breaks {
		out = append(out, model.BreakWindow{StartTime: b.StartTime, EndTime: b.EndTime, Paid: b.Paid})
	}
	return out
}

func toShiftBrief(s *model.Shift) *dto.ShiftBrief {
	return &dto.ShiftBrief{
		ID:        s.ShiftID,
		ShiftDate: formatDate(s.ShiftDate),
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Position:  s.Position,
		SiteID:    s.SiteID,
	}
}

func toShiftResponse(s *model.Shift) *dto.ShiftResponse {
	resp := &dto.ShiftResponse{
		ID:        s.ShiftID,
		GuardID:   s.GuardID,
		Guard:     toGuardBrief(s.Guard),
		SiteID:    s.SiteID,
		ShiftDate: formatDate(s.ShiftDate),
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Position:  s.Position,
		Breaks:    toBreakDTOs(s.Breaks),
		Notes:     s.Notes,
		Version:   s.Version,
		CreatedAt: formatTime(s.CreatedAt),
		UpdatedAt: formatTime(s.UpdatedAt),
	}
	if s.Site != nil {
		resp.Site = &dto.SiteBrief{ID: s.Site.SiteID, Name: s.Site.Name}
	}
	return resp
}

func toAlertResponse(a *model.NoShowAlert) dto.NoShowAlertResponse {
	return dto.NoShowAlertResponse{
		ID:                     a.AlertID,
		GuardID:                a.GuardID,
		Guard:                  toGuardBrief(a.Guard),
		ShiftID:                a.ShiftID,
		ExpectedShiftStartTime: formatTime(a.ExpectedShiftStartTime),
		AlertTime:              formatTime(a.AlertTime),
		Status:                 a.Status,
		AcknowledgedBy:         a.AcknowledgedBy,
		AcknowledgedAt:         formatTimePtr(a.AcknowledgedAt),
		ResolvedBy:             a.ResolvedBy,
		ResolvedAt:             formatTimePtr(a.ResolvedAt),
		ResolutionNote:         a.ResolutionNote,
	}
}

func toVarianceResponse(v *model.PayrollVariance) dto.PayrollVarianceResponse {
	return dto.PayrollVarianceResponse{
		ID:             v.VarianceID,
		GuardID:        v.GuardID,
		Guard:          toGuardBrief(v.Guard),
		PeriodStart:    formatDate(v.VarianceDate),
		PeriodEnd:      formatDate(v.PayPeriodEnd),
		ScheduledHours: v.ScheduledHours,
		ActualHours:    v.ActualHours,
		PaidHours:      v.PaidHours,
		VarianceHours:  v.VarianceHours,
		Status:         v.Status,
		ReviewedBy:     v.ReviewedBy,
		ReviewedAt:     formatTimePtr(v.ReviewedAt),
		ReviewNote:     v.ReviewNote,
		CreatedAt:      formatTime(v.CreatedAt),
		UpdatedAt:      formatTime(v.UpdatedAt),
	}
}

func toInputResponse(p *model.PayrollInput) dto.PayrollInputResponse {
	return dto.PayrollInputResponse{
		ID:             p.InputID,
		GuardID:        p.GuardID,
		PayPeriodStart: formatDate(p.PayPeriodStart),
		PayPeriodEnd:   formatDate(p.PayPeriodEnd),
		HoursPaid:      p.HoursPaid,
		Source:         p.Source,
		UpdatedAt:      formatTime(p.UpdatedAt),
	}
}
