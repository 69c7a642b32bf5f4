package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"guardian/backend/internal/dto"
	"guardian/backend/internal/model"
	"guardian/backend/internal/repository"
)

// ── 休息状态模块业务错误 ──

var (
	ErrOverlappingShifts = errors.New("该保安在同一时段存在重叠班次")
)

// BreakStatusService 休息状态判定接口
type BreakStatusService interface {
	// Evaluate 判定保安在 date 的 clock 时刻所处状态
	// 无班次不是错误，返回 off_shift
	Evaluate(ctx context.Context, guardID, date, clock string) (*dto.BreakStatusResponse, error)
	// EvaluateAt 以绝对时刻判定
	EvaluateAt(ctx context.Context, guardID string, now time.Time) (*dto.BreakStatusResponse, error)
}

type breakStatusService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewBreakStatusService 创建 BreakStatusService 实例
func NewBreakStatusService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) BreakStatusService {
	return &breakStatusService{repo: repo, loc: loc, logger: logger}
}

func (s *breakStatusService) Evaluate(ctx context.Context, guardID, date, clock string) (*dto.BreakStatusResponse, error) {
	day, err := time.ParseInLocation(model.DateLayout, strings.TrimSpace(date), s.loc)
	if err != nil {
		return nil, ErrInvalidDate
	}
	offset, err := parseClock(clock)
	if err != nil {
		return nil, err
	}
	return s.EvaluateAt(ctx, guardID, atClock(day, 0, offset, s.loc))
}

func (s *breakStatusService) EvaluateAt(ctx context.Context, guardID string, now time.Time) (*dto.BreakStatusResponse, error) {
	now = now.In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	// 前一天的跨午夜班次也可能覆盖当前时刻
	shifts, err := s.repo.Shift.ListByGuardAndDates(ctx, guardID, model.DateOf(today.AddDate(0, 0, -1)), model.DateOf(today))
	if err != nil {
		s.logger.Error("查询班次失败", zap.String("guard_id", guardID), zap.Error(err))
		return nil, err
	}

	spans, err := s.relevantSpans(shifts, today)
	if err != nil {
		return nil, err
	}

	// 1. 休息优先
	for _, sp := range spans {
		for _, b := range sp.breaks {
			if b.contains(now) {
				bw := dto.BreakWindow{StartTime: b.window.StartTime, EndTime: b.window.EndTime, Paid: b.window.Paid}
				return &dto.BreakStatusResponse{
					Status: dto.StatusOnBreak,
					Shift:  toShiftBrief(sp.shift),
					Break:  &bw,
				}, nil
			}
		}
	}

	// 2. 班次内、非休息
	for _, sp := range spans {
		if !sp.contains(now) {
			continue
		}
		resp := &dto.BreakStatusResponse{
			Status: dto.StatusOnShiftNotOnBreak,
			Shift:  toShiftBrief(sp.shift),
		}
		var next *breakSpan
		for i := range sp.breaks {
			b := sp.breaks[i]
			if b.start.Before(now) {
				continue
			}
			if next == nil || b.start.Before(next.start) {
				next = &sp.breaks[i]
			}
		}
		if next != nil {
			resp.NextBreak = &dto.BreakWindow{StartTime: next.window.StartTime, EndTime: next.window.EndTime, Paid: next.window.Paid}
		}
		return resp, nil
	}

	return &dto.BreakStatusResponse{Status: dto.StatusOffShift}, nil
}

// relevantSpans 当天全部班次 + 前一天延续到当天的班次；存在重叠时报错
func (s *breakStatusService) relevantSpans(shifts []model.Shift, today time.Time) ([]shiftSpan, error) {
	todayDate := model.DateOf(today)
	spans := make([]shiftSpan, 0, len(shifts))
	for i := range shifts {
		sp, err := buildShiftSpan(&shifts[i], s.loc)
		if err != nil {
			return nil, fmt.Errorf("班次 %s: %w", shifts[i].ShiftID, err)
		}
		if model.DateOf(shifts[i].ShiftDate).Before(todayDate) && !sp.end.After(today) {
			continue
		}
		spans = append(spans, sp)
	}

	for i := range spans {
		for j := i + 1; j < len(spans); j++ {
			if spans[i].overlaps(spans[j]) {
				return nil, fmt.Errorf("%w: %s 与 %s", ErrOverlappingShifts, spans[i].shift.ShiftID, spans[j].shift.ShiftID)
			}
		}
	}
	return spans, nil
}
