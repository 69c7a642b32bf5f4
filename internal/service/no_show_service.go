package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"guardian/backend/config"
	"guardian/backend/internal/dto"
	"guardian/backend/internal/model"
	"guardian/backend/internal/repository"
)

// ── 缺勤检测模块业务错误 ──

var (
	ErrAlertNotFound         = errors.New("缺勤告警不存在")
	ErrAlertStatusTransition = errors.New("告警当前状态不允许该操作")
)

// NoShowNotifier 新告警的异步分发（不阻塞检测流程）
type NoShowNotifier interface {
	NotifyNoShows(alerts []*model.NoShowAlert)
}

// NoShowService 缺勤检测与告警处理接口
type NoShowService interface {
	// Detect 以当前时刻运行一次检测
	Detect(ctx context.Context) (*dto.NoShowRunResponse, error)
	// DetectAt 以指定时刻运行一次检测
	DetectAt(ctx context.Context, now time.Time) (*dto.NoShowRunResponse, error)
	List(ctx context.Context, req *dto.NoShowAlertListRequest) ([]dto.NoShowAlertResponse, int64, error)
	Acknowledge(ctx context.Context, alertID, actorID string) (*dto.NoShowAlertResponse, error)
	Resolve(ctx context.Context, alertID, actorID, note string) (*dto.NoShowAlertResponse, error)
}

type noShowService struct {
	cfg      *config.Config
	repo     *repository.Repository
	notifier NoShowNotifier
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewNoShowService 创建 NoShowService 实例，notifier 可为 nil
func NewNoShowService(cfg *config.Config, repo *repository.Repository, notifier NoShowNotifier, logger *zap.Logger) NoShowService {
	return &noShowService{
		cfg:      cfg,
		repo:     repo,
		notifier: notifier,
		loc:      cfg.Server.Location(),
		now:      time.Now,
		logger:   logger,
	}
}

// ════════════════════════════════════════════════════════════
// 检测
// ════════════════════════════════════════════════════════════

func (s *noShowService) Detect(ctx context.Context) (*dto.NoShowRunResponse, error) {
	return s.DetectAt(ctx, s.now())
}

// DetectAt 流程：
//  1. 计算扫描窗口 [now - lookback, now + grace + buffer]
//  2. 拉取班次、签到动态、已有告警；任何一次读取失败都直接中止，不写入
//  3. 逐个班次判定，过了宽限期且无有效签到、无已有告警的生成 pending 告警
//  4. 批量插入（存储层唯一约束兜底并发），新告警交给通知分发
func (s *noShowService) DetectAt(ctx context.Context, now time.Time) (*dto.NoShowRunResponse, error) {
	st, err := loadSettings(ctx, s.repo.SystemConfig, s.cfg)
	if err != nil {
		s.logger.Error("缺勤检测中止：读取配置失败", zap.Error(err))
		return nil, err
	}

	now = now.In(s.loc)
	grace := st.grace()
	proximity := st.proximity()
	windowStart := now.Add(-s.cfg.Attendance.Lookback)
	windowEnd := now.Add(grace + s.cfg.Attendance.Buffer)

	// ── 读取 ──
	shifts, err := s.repo.Shift.ListByDateRange(ctx, model.DateOf(windowStart), model.DateOf(windowEnd))
	if err != nil {
		s.logger.Error("缺勤检测中止：查询班次失败", zap.Error(err))
		return nil, fmt.Errorf("查询班次失败: %w", err)
	}

	activities, err := s.repo.Activity.ListByTypesInRange(ctx, s.cfg.Attendance.CheckInTypes, windowStart.Add(-proximity), now)
	if err != nil {
		s.logger.Error("缺勤检测中止：查询签到记录失败", zap.Error(err))
		return nil, fmt.Errorf("查询签到记录失败: %w", err)
	}

	existing, err := s.repo.NoShowAlert.ListByExpectedStartRange(ctx, windowStart, windowEnd)
	if err != nil {
		s.logger.Error("缺勤检测中止：查询已有告警失败", zap.Error(err))
		return nil, fmt.Errorf("查询已有告警失败: %w", err)
	}

	alerted := make(map[string]struct{}, len(existing))
	for i := range existing {
		alerted[existing[i].Key()] = struct{}{}
	}

	byGuard := make(map[string][]model.ShiftActivity)
	for _, a := range activities {
		byGuard[a.GuardID] = append(byGuard[a.GuardID], a)
	}

	// ── 判定 ──
	result := &dto.NoShowRunResponse{
		RunAt:        formatTime(now),
		WindowStart:  formatTime(windowStart),
		WindowEnd:    formatTime(windowEnd),
		GraceMinutes: st.GraceMinutes,
		Created:      []dto.NoShowAlertResponse{},
	}

	var candidates []*model.NoShowAlert
	for i := range shifts {
		shift := &shifts[i]
		start, err := shiftStart(shift, s.loc)
		if err != nil {
			result.Invalid++
			s.logger.Warn("跳过时间无效的班次", zap.String("shift_id", shift.ShiftID), zap.Error(err))
			continue
		}
		if start.Before(windowStart) || start.After(windowEnd) {
			continue
		}
		result.Scanned++

		deadline := start.Add(grace)
		if !now.After(deadline) {
			result.SkippedInGrace++
			continue
		}
		result.Evaluated++

		if hasCheckIn(byGuard[shift.GuardID], shift.ShiftID, start.Add(-proximity), deadline) {
			result.WithActivity++
			continue
		}

		alert := &model.NoShowAlert{
			GuardID:                shift.GuardID,
			ShiftID:                shift.ShiftID,
			ExpectedShiftStartTime: start.UTC(),
			AlertTime:              now.UTC(),
			Status:                 model.AlertPending,
		}
		if _, dup := alerted[alert.Key()]; dup {
			result.Duplicates++
			continue
		}
		alerted[alert.Key()] = struct{}{}
		candidates = append(candidates, alert)
	}

	// ── 写入 ──
	inserted, err := s.repo.NoShowAlert.CreateBatchIfAbsent(ctx, candidates)
	if err != nil {
		s.logger.Error("写入缺勤告警失败", zap.Int("candidates", len(candidates)), zap.Error(err))
		return nil, fmt.Errorf("写入缺勤告警失败: %w", err)
	}
	result.Duplicates += len(candidates) - len(inserted)

	for _, a := range inserted {
		result.Created = append(result.Created, toAlertResponse(a))
	}

	if len(inserted) > 0 && s.notifier != nil {
		s.notifier.NotifyNoShows(inserted)
	}

	s.logger.Info("缺勤检测完成",
		zap.Time("now", now),
		zap.Int("scanned", result.Scanned),
		zap.Int("evaluated", result.Evaluated),
		zap.Int("in_grace", result.SkippedInGrace),
		zap.Int("with_activity", result.WithActivity),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("created", len(inserted)),
	)

	return result, nil
}

// hasCheckIn 同一保安在 [from, to]（闭区间）内存在签到，且签到未绑定班次或绑定的就是该班次
func hasCheckIn(activities []model.ShiftActivity, shiftID string, from, to time.Time) bool {
	for _, a := range activities {
		if a.ShiftID != nil && *a.ShiftID != shiftID {
			continue
		}
		if a.Timestamp.Before(from) || a.Timestamp.After(to) {
			continue
		}
		return true
	}
	return false
}

// ════════════════════════════════════════════════════════════
// 告警列表与状态流转
// ════════════════════════════════════════════════════════════

func (s *noShowService) List(ctx context.Context, req *dto.NoShowAlertListRequest) ([]dto.NoShowAlertResponse, int64, error) {
	filter := repository.NoShowAlertFilter{Status: req.Status, GuardID: req.GuardID}
	if req.From != "" {
		from, err := time.ParseInLocation(model.DateLayout, req.From, s.loc)
		if err != nil {
			return nil, 0, ErrInvalidDate
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := time.ParseInLocation(model.DateLayout, req.To, s.loc)
		if err != nil {
			return nil, 0, ErrInvalidDate
		}
		to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.To = &to
	}

	alerts, total, err := s.repo.NoShowAlert.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询缺勤告警列表失败", zap.Error(err))
		return nil, 0, err
	}

	list := make([]dto.NoShowAlertResponse, 0, len(alerts))
	for i := range alerts {
		list = append(list, toAlertResponse(&alerts[i]))
	}
	return list, total, nil
}

// Acknowledge pending → acknowledged
func (s *noShowService) Acknowledge(ctx context.Context, alertID, actorID string) (*dto.NoShowAlertResponse, error) {
	alert, err := s.getAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert.Status != model.AlertPending {
		return nil, ErrAlertStatusTransition
	}

	now := s.now().UTC()
	alert.Status = model.AlertAcknowledged
	alert.AcknowledgedBy = actorPtr(actorID)
	alert.AcknowledgedAt = &now
	alert.UpdatedBy = actorPtr(actorID)

	return s.transition(ctx, alert, model.AlertPending)
}

// Resolve pending | acknowledged → resolved
func (s *noShowService) Resolve(ctx context.Context, alertID, actorID, note string) (*dto.NoShowAlertResponse, error) {
	alert, err := s.getAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert.Status != model.AlertPending && alert.Status != model.AlertAcknowledged {
		return nil, ErrAlertStatusTransition
	}

	now := s.now().UTC()
	alert.Status = model.AlertResolved
	alert.ResolvedBy = actorPtr(actorID)
	alert.ResolvedAt = &now
	alert.ResolutionNote = note
	alert.UpdatedBy = actorPtr(actorID)

	return s.transition(ctx, alert, model.AlertPending, model.AlertAcknowledged)
}

func (s *noShowService) getAlert(ctx context.Context, id string) (*model.NoShowAlert, error) {
	alert, err := s.repo.NoShowAlert.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		s.logger.Error("查询缺勤告警失败", zap.String("alert_id", id), zap.Error(err))
		return nil, err
	}
	return alert, nil
}

// transition 条件更新，期间状态被他人改动则视为非法流转
func (s *noShowService) transition(ctx context.Context, alert *model.NoShowAlert, from ...string) (*dto.NoShowAlertResponse, error) {
	ok, err := s.repo.NoShowAlert.UpdateStatus(ctx, alert, from)
	if err != nil {
		s.logger.Error("更新告警状态失败", zap.String("alert_id", alert.AlertID), zap.Error(err))
		return nil, err
	}
	if !ok {
		return nil, ErrAlertStatusTransition
	}
	resp := toAlertResponse(alert)
	return &resp, nil
}
