package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"guardian/backend/internal/model"
	"guardian/backend/internal/repository"
)

// ── 排班日历导出 ──────────────────────────────────────────────
//
// 把保安未来若干天的班次生成 iCalendar (RFC 5545) 订阅源：
//   - 每个班次一个 VEVENT，UID 固定为 shift_id，客户端重复订阅时覆盖而非新增
//   - 跨午夜班次的 DTEND 落在次日
//   - 休息时段写入 DESCRIPTION
//   - 时间无效的班次跳过并记录日志，不影响其余班次
// ─────────────────────────────────────────────────────────────

const (
	rotaDefaultDays = 28
	rotaProductID   = "-//guardian//rota//EN"
)

// RotaService 排班日历接口
type RotaService interface {
	// ICS 生成保安从昨天起 days 天内的班次日历
	ICS(ctx context.Context, guardID string, days int) ([]byte, error)
}

type rotaService struct {
	repo   *repository.Repository
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewRotaService 创建 RotaService 实例
func NewRotaService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) RotaService {
	return &rotaService{repo: repo, loc: loc, now: time.Now, logger: logger}
}

func (s *rotaService) ICS(ctx context.Context, guardID string, days int) ([]byte, error) {
	if days <= 0 {
		days = rotaDefaultDays
	}

	guard, err := s.repo.User.GetByID(ctx, guardID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrGuardNotFound
		}
		s.logger.Error("查询保安失败", zap.String("guard_id", guardID), zap.Error(err))
		return nil, err
	}

	// 从昨天开始，前一天的夜班仍可能在进行中
	today := model.DateOf(s.now().In(s.loc))
	from := today.AddDate(0, 0, -1)
	to := today.AddDate(0, 0, days)

	shifts, err := s.repo.Shift.ListByGuardAndDates(ctx, guardID, from, to)
	if err != nil {
		s.logger.Error("查询排班失败", zap.String("guard_id", guardID), zap.Error(err))
		return nil, err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(rotaProductID)
	cal.SetXWRCalName(fmt.Sprintf("排班 - %s (%s)", guard.Name, guard.BadgeNumber))
	cal.SetXWRTimezone(s.loc.String())

	stamp := s.now().UTC()
	for i := range shifts {
		shift := &shifts[i]
		span, err := buildShiftSpan(shift, s.loc)
		if err != nil {
			s.logger.Warn("日历跳过时间无效的班次", zap.String("shift_id", shift.ShiftID), zap.Error(err))
			continue
		}

		event := cal.AddEvent(shift.ShiftID + "@guardian")
		event.SetDtStampTime(stamp)
		event.SetModifiedAt(shift.UpdatedAt.UTC())
		event.SetStartAt(span.start.UTC())
		event.SetEndAt(span.end.UTC())
		event.SetSummary(rotaSummary(shift))
		if shift.Site != nil {
			loc := shift.Site.Name
			if shift.Site.Address != "" {
				loc += ", " + shift.Site.Address
			}
			event.SetLocation(loc)
		}
		if desc := rotaDescription(shift); desc != "" {
			event.SetDescription(desc)
		}
	}

	return []byte(cal.Serialize()), nil
}

func rotaSummary(shift *model.Shift) string {
	summary := "执勤 " + shift.StartTime + "-" + shift.EndTime
	if shift.Position != "" {
		summary += " · " + shift.Position
	}
	return summary
}

func rotaDescription(shift *model.Shift) string {
	var lines []string
	for _, b := range shift.Breaks {
		kind := "不带薪"
		if b.Paid {
			kind = "带薪"
		}
		lines = append(lines, fmt.Sprintf("休息 %s-%s（%s）", b.StartTime, b.EndTime, kind))
	}
	if shift.Notes != "" {
		lines = append(lines, shift.Notes)
	}
	return strings.Join(lines, "\n")
}
