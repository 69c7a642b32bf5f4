package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"guardian/backend/internal/dto"
	"guardian/backend/internal/model"
	"guardian/backend/internal/repository"
	pkgerrors "guardian/backend/pkg/errors"
)

// ── 排班模块业务错误 ──

var (
	ErrShiftNotFound    = errors.New("班次不存在")
	ErrShiftGuardRole   = errors.New("只能给保安角色排班")
	ErrShiftRangeTooBig = errors.New("查询日期范围不能超过 92 天")
)

const maxShiftRangeDays = 92

// ShiftService 排班管理接口
type ShiftService interface {
	Create(ctx context.Context, req *dto.CreateShiftRequest, actorID string) (*dto.ShiftResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateShiftRequest, actorID string) (*dto.ShiftResponse, error)
	Delete(ctx context.Context, id, actorID string) error
	GetByID(ctx context.Context, id string) (*dto.ShiftResponse, error)
	List(ctx context.Context, req *dto.ShiftListRequest) ([]dto.ShiftResponse, int64, error)
	// ListMine 保安查询自己的班次，默认今天起 14 天
	ListMine(ctx context.Context, guardID string, req *dto.MyShiftsRequest) ([]dto.ShiftResponse, error)
}

type shiftService struct {
	repo   *repository.Repository
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewShiftService 创建 ShiftService 实例
func NewShiftService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) ShiftService {
	return &shiftService{repo: repo, loc: loc, now: time.Now, logger: logger}
}

func (s *shiftService) Create(ctx context.Context, req *dto.CreateShiftRequest, actorID string) (*dto.ShiftResponse, error) {
	date, err := model.ParseDate(strings.TrimSpace(req.ShiftDate))
	if err != nil {
		return nil, ErrInvalidDate
	}

	shift := &model.Shift{
		GuardID:   req.GuardID,
		SiteID:    req.SiteID,
		ShiftDate: date,
		StartTime: strings.TrimSpace(req.StartTime),
		EndTime:   strings.TrimSpace(req.EndTime),
		Position:  req.Position,
		Breaks:    fromBreakDTOs(req.Breaks),
		Notes:     req.Notes,
	}
	shift.CreatedBy = actorPtr(actorID)
	shift.UpdatedBy = actorPtr(actorID)

	if err := s.validate(ctx, shift); err != nil {
		return nil, err
	}

	if err := s.repo.Shift.Create(ctx, shift); err != nil {
		s.logger.Error("创建班次失败", zap.String("guard_id", shift.GuardID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("班次已创建",
		zap.String("shift_id", shift.ShiftID),
		zap.String("guard_id", shift.GuardID),
		zap.String("date", formatDate(shift.ShiftDate)),
	)
	return s.GetByID(ctx, shift.ShiftID)
}

func (s *shiftService) Update(ctx context.Context, id string, req *dto.UpdateShiftRequest, actorID string) (*dto.ShiftResponse, error) {
	shift, err := s.getShift(ctx, id)
	if err != nil {
		return nil, err
	}
	if shift.Version != req.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}

	if req.GuardID != nil {
		shift.GuardID = *req.GuardID
	}
	if req.SiteID != nil {
		shift.SiteID = req.SiteID
		if *req.SiteID == "" {
			shift.SiteID = nil
		}
	}
	if req.ShiftDate != nil {
		date, err := model.ParseDate(strings.TrimSpace(*req.ShiftDate))
		if err != nil {
			return nil, ErrInvalidDate
		}
		shift.ShiftDate = date
	}
	if req.StartTime != nil {
		shift.StartTime = strings.TrimSpace(*req.StartTime)
	}
	if req.EndTime != nil {
		shift.EndTime = strings.TrimSpace(*req.EndTime)
	}
	if req.Position != nil {
		shift.Position = *req.Position
	}
	if req.Breaks != nil {
		shift.Breaks = fromBreakDTOs(*req.Breaks)
	}
	if req.Notes != nil {
		shift.Notes = *req.Notes
	}
	shift.UpdatedBy = actorPtr(actorID)
	// 关联对象以 ID 为准，避免旧的预加载数据混入更新
	shift.Guard = nil
	shift.Site = nil

	if err := s.validate(ctx, shift); err != nil {
		return nil, err
	}

	if err := s.repo.Shift.Update(ctx, shift); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, err
		}
		s.logger.Error("更新班次失败", zap.String("shift_id", id), zap.Error(err))
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *shiftService) Delete(ctx context.Context, id, actorID string) error {
	if err := s.repo.Shift.Delete(ctx, id, actorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrShiftNotFound
		}
		s.logger.Error("删除班次失败", zap.String("shift_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *shiftService) GetByID(ctx context.Context, id string) (*dto.ShiftResponse, error) {
	shift, err := s.getShift(ctx, id)
	if err != nil {
		return nil, err
	}
	return toShiftResponse(shift), nil
}

func (s *shiftService) List(ctx context.Context, req *dto.ShiftListRequest) ([]dto.ShiftResponse, int64, error) {
	filter := repository.ShiftFilter{GuardID: req.GuardID, SiteID: req.SiteID}
	if req.From != "" {
		from, err := model.ParseDate(req.From)
		if err != nil {
			return nil, 0, ErrInvalidDate
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := model.ParseDate(req.To)
		if err != nil {
			return nil, 0, ErrInvalidDate
		}
		filter.To = &to
	}

	shifts, total, err := s.repo.Shift.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询班次列表失败", zap.Error(err))
		return nil, 0, err
	}

	list := make([]dto.ShiftResponse, 0, len(shifts))
	for i := range shifts {
		list = append(list, *toShiftResponse(&shifts[i]))
	}
	return list, total, nil
}

func (s *shiftService) ListMine(ctx context.Context, guardID string, req *dto.MyShiftsRequest) ([]dto.ShiftResponse, error) {
	today := model.DateOf(s.now().In(s.loc))
	from, to := today, today.AddDate(0, 0, 13)

	var err error
	if req.From != "" {
		if from, err = model.ParseDate(req.From); err != nil {
			return nil, ErrInvalidDate
		}
	}
	if req.To != "" {
		if to, err = model.ParseDate(req.To); err != nil {
			return nil, ErrInvalidDate
		}
	}
	if to.Before(from) {
		return nil, ErrInvalidDate
	}
	if to.Sub(from) > maxShiftRangeDays*24*time.Hour {
		return nil, ErrShiftRangeTooBig
	}

	shifts, err := s.repo.Shift.ListByGuardAndDates(ctx, guardID, from, to)
	if err != nil {
		s.logger.Error("查询我的班次失败", zap.String("guard_id", guardID), zap.Error(err))
		return nil, err
	}

	list := make([]dto.ShiftResponse, 0, len(shifts))
	for i := range shifts {
		list = append(list, *toShiftResponse(&shifts[i]))
	}
	return list, nil
}

// ────── 内部方法 ──────

func (s *shiftService) getShift(ctx context.Context, id string) (*model.Shift, error) {
	shift, err := s.repo.Shift.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		s.logger.Error("查询班次失败", zap.String("shift_id", id), zap.Error(err))
		return nil, err
	}
	return shift, nil
}

// validate 时间合法、保安与站点存在、与该保安相邻日期的班次不重叠
func (s *shiftService) validate(ctx context.Context, shift *model.Shift) error {
	span, err := buildShiftSpan(shift, s.loc)
	if err != nil {
		return err
	}
	if err := validateShiftSpan(span); err != nil {
		return err
	}

	guard, err := s.repo.User.GetByID(ctx, shift.GuardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGuardNotFound
		}
		s.logger.Error("查询保安失败", zap.String("guard_id", shift.GuardID), zap.Error(err))
		return err
	}
	if guard.Role != model.RoleGuard {
		return ErrShiftGuardRole
	}

	if shift.SiteID != nil {
		if _, err := s.repo.Site.GetByID(ctx, *shift.SiteID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSiteNotFound
			}
			s.logger.Error("查询站点失败", zap.String("site_id", *shift.SiteID), zap.Error(err))
			return err
		}
	}

	// 跨午夜班次最多延伸到次日，前后各看一天即可
	neighbours, err := s.repo.Shift.ListByGuardAndDates(ctx, shift.GuardID,
		shift.ShiftDate.AddDate(0, 0, -1), shift.ShiftDate.AddDate(0, 0, 1))
	if err != nil {
		s.logger.Error("查询相邻班次失败", zap.String("guard_id", shift.GuardID), zap.Error(err))
		return err
	}
	for i := range neighbours {
		other := &neighbours[i]
		if other.ShiftID == shift.ShiftID {
			continue
		}
		otherSpan, err := buildShiftSpan(other, s.loc)
		if err != nil {
			// 历史脏数据不阻塞新排班
			continue
		}
		if span.overlaps(otherSpan) {
			return ErrOverlappingShifts
		}
	}
	return nil
}
