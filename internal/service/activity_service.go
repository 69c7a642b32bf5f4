package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"guardian/backend/internal/dto"
	"guardian/backend/internal/model"
	"guardian/backend/internal/repository"
)

// ── 班次动态模块业务错误 ──

var (
	ErrInvalidActivityType = errors.New("班次动态类型无效")
	ErrInvalidTimestamp    = errors.New("时间戳格式无效，应为 RFC3339")
	ErrForbiddenShift      = errors.New("只能为自己的班次记录动态")
)

// ActivityService 班次动态（确认 / 签到 / 签退 / 拒绝）接口
type ActivityService interface {
	// Record 追加一条动态；保安只能操作自己的班次，主管可代为记录
	Record(ctx context.Context, shiftID string, req *dto.CreateActivityRequest, actorID, actorRole string) (*dto.ActivityResponse, error)
	ListByShift(ctx context.Context, shiftID string) ([]dto.ActivityResponse, error)
}

type activityService struct {
	repo   *repository.Repository
	now    func() time.Time
	logger *zap.Logger
}

// NewActivityService 创建 ActivityService 实例
func NewActivityService(repo *repository.Repository, logger *zap.Logger) ActivityService {
	return &activityService{repo: repo, now: time.Now, logger: logger}
}

func (s *activityService) Record(ctx context.Context, shiftID string, req *dto.CreateActivityRequest, actorID, actorRole string) (*dto.ActivityResponse, error) {
	if !model.ValidActivityType(req.ActivityType) {
		return nil, ErrInvalidActivityType
	}

	shift, err := s.loadShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if actorRole == model.RoleGuard && shift.GuardID != actorID {
		return nil, ErrForbiddenShift
	}

	ts := s.now().UTC()
	if strings.TrimSpace(req.Timestamp) != "" {
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(req.Timestamp))
		if err != nil {
			return nil, ErrInvalidTimestamp
		}
		ts = parsed.UTC()
	}

	activity := &model.ShiftActivity{
		ShiftID:      &shift.ShiftID,
		GuardID:      shift.GuardID,
		ActivityType: req.ActivityType,
		Timestamp:    ts,
		Note:         req.Note,
		PerformedBy:  actorPtr(actorID),
	}
	if err := s.repo.Activity.Create(ctx, activity); err != nil {
		s.logger.Error("记录班次动态失败",
			zap.String("shift_id", shiftID),
			zap.String("type", req.ActivityType),
			zap.Error(err),
		)
		return nil, err
	}

	resp := toActivityResponse(activity)
	return &resp, nil
}

func (s *activityService) ListByShift(ctx context.Context, shiftID string) ([]dto.ActivityResponse, error) {
	if _, err := s.loadShift(ctx, shiftID); err != nil {
		return nil, err
	}

	activities, err := s.repo.Activity.ListByShift(ctx, shiftID)
	if err != nil {
		s.logger.Error("查询班次动态失败", zap.String("shift_id", shiftID), zap.Error(err))
		return nil, err
	}

	list := make([]dto.ActivityResponse, 0, len(activities))
	for i := range activities {
		list = append(list, toActivityResponse(&activities[i]))
	}
	return list, nil
}

func (s *activityService) loadShift(ctx context.Context, id string) (*model.Shift, error) {
	shift, err := s.repo.Shift.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrShiftNotFound
		}
		s.logger.Error("查询班次失败", zap.String("shift_id", id), zap.Error(err))
		return nil, err
	}
	return shift, nil
}

func toActivityResponse(a *model.ShiftActivity) dto.ActivityResponse {
	return dto.ActivityResponse{
		ID:           a.ActivityID,
		ShiftID:      a.ShiftID,
		GuardID:      a.GuardID,
		ActivityType: a.ActivityType,
		Timestamp:    formatTime(a.Timestamp),
		Note:         a.Note,
		PerformedBy:  a.PerformedBy,
		CreatedAt:    formatTime(a.CreatedAt),
	}
}
