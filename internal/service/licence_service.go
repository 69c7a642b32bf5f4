package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"guardian/backend/config"
	"guardian/backend/internal/dto"
	"guardian/backend/internal/model"
	"guardian/backend/internal/repository"
)

// ── 上岗证模块业务错误 ──

var (
	ErrLicenceNotFound = errors.New("上岗证不存在")
)

// LicenceService 上岗证管理接口
// LicenceNotifier 上岗证到期提醒的接收方
type LicenceNotifier interface {
	NotifyLicences(licences []model.Licence)
}

type LicenceService interface {
	Create(ctx context.Context, req *dto.CreateLicenceRequest, actorID string) (*dto.LicenceResponse, error)
	List(ctx context.Context, req *dto.LicenceListRequest) ([]dto.LicenceResponse, int64, error)
	// Expiring 到期日在 days 天内（含已过期）的证件，days 为空时取系统配置
	Expiring(ctx context.Context, days *int) ([]dto.LicenceResponse, error)
	Delete(ctx context.Context, id, actorID string) error
	// RemindExpiring 把预警期内的证件交给通知渠道，返回数量
	RemindExpiring(ctx context.Context) (int, error)
}

type licenceService struct {
	cfg    *config.Config
	repo     *repository.Repository
	notifier LicenceNotifier
	loc      *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewLicenceService 创建 LicenceService 实例
// notifier 可为 nil，此时 RemindExpiring 只统计不发送
func NewLicenceService(cfg *config.Config, repo *repository.Repository, notifier LicenceNotifier, logger *zap.Logger) LicenceService {
	return &licenceService{
		cfg:      cfg,
		repo:     repo,
		notifier: notifier,
		loc:      cfg.Server.Location(),
		now:      time.Now,
		logger:   logger,
	}
}

func (s *licenceService) Create(ctx context.Context, req *dto.CreateLicenceRequest, actorID string) (*dto.LicenceResponse, error) {
	expiry, err := model.ParseDate(strings.TrimSpace(req.ExpiryDate))
	if err != nil {
		return nil, ErrInvalidDate
	}

	guard, err := s.repo.User.GetByID(ctx, req.GuardID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrGuardNotFound
		}
		s.logger.Error("查询保安失败", zap.String("guard_id", req.GuardID), zap.Error(err))
		return nil, err
	}

	licence := &model.Licence{
		GuardID:       req.GuardID,
		LicenceType:   strings.TrimSpace(req.LicenceType),
		LicenceNumber: strings.TrimSpace(req.LicenceNumber),
		ExpiryDate:    expiry,
	}
	licence.CreatedBy = actorPtr(actorID)
	licence.UpdatedBy = actorPtr(actorID)

	if err := s.repo.Licence.Create(ctx, licence); err != nil {
		s.logger.Error("登记上岗证失败", zap.String("guard_id", req.GuardID), zap.Error(err))
		return nil, err
	}
	licence.Guard = guard

	st, err := loadSettings(ctx, s.repo.SystemConfig, s.cfg)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(licence, st.LicenceWarningDays)
	return &resp, nil
}

func (s *licenceService) List(ctx context.Context, req *dto.LicenceListRequest) ([]dto.LicenceResponse, int64, error) {
	st, err := loadSettings(ctx, s.repo.SystemConfig, s.cfg)
	if err != nil {
		return nil, 0, err
	}

	licences, total, err := s.repo.Licence.List(ctx, req.GuardID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询上岗证列表失败", zap.Error(err))
		return nil, 0, err
	}

	list := make([]dto.LicenceResponse, 0, len(licences))
	for i := range licences {
		list = append(list, s.toResponse(&licences[i], st.LicenceWarningDays))
	}
	return list, total, nil
}

func (s *licenceService) Expiring(ctx context.Context, days *int) ([]dto.LicenceResponse, error) {
	st, err := loadSettings(ctx, s.repo.SystemConfig, s.cfg)
	if err != nil {
		return nil, err
	}
	window := st.LicenceWarningDays
	if days != nil {
		window = *days
	}

	until := s.today().AddDate(0, 0, window)
	licences, err := s.repo.Licence.ListExpiringBefore(ctx, until)
	if err != nil {
		s.logger.Error("查询即将到期证件失败", zap.Error(err))
		return nil, err
	}

	list := make([]dto.LicenceResponse, 0, len(licences))
	for i := range licences {
		list = append(list, s.toResponse(&licences[i], window))
	}
	return list, nil
}

func (s *licenceService) Delete(ctx context.Context, id, actorID string) error {
	if err := s.repo.Licence.Delete(ctx, id, actorID); err != nil {
		if isNotFound(err) {
			return ErrLicenceNotFound
		}
		s.logger.Error("删除上岗证失败", zap.String("licence_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *licenceService) RemindExpiring(ctx context.Context) (int, error) {
	st, err := loadSettings(ctx, s.repo.SystemConfig, s.cfg)
	if err != nil {
		return 0, err
	}

	// 已过期超过一个预警期的不再提醒
	today := s.today()
	licences, err := s.repo.Licence.ListExpiringBefore(ctx, today.AddDate(0, 0, st.LicenceWarningDays))
	if err != nil {
		s.logger.Error("查询即将到期证件失败", zap.Error(err))
		return 0, err
	}
	from := today.AddDate(0, 0, -st.LicenceWarningDays)
	due := licences[:0]
	for _, l := range licences {
		if !model.DateOf(l.ExpiryDate).Before(from) {
			due = append(due, l)
		}
	}

	if len(due) > 0 && s.notifier != nil {
		s.notifier.NotifyLicences(due)
	}
	return len(due), nil
}

func (s *licenceService) today() time.Time {
	return model.DateOf(s.now().In(s.loc))
}

// toResponse 剩余天数 <0 为已过期，<= warningDays 为即将到期
func (s *licenceService) toResponse(l *model.Licence, warningDays int) dto.LicenceResponse {
	remaining := int(model.DateOf(l.ExpiryDate).Sub(s.today()).Hours() / 24)

	status := dto.LicenceValid
	switch {
	case remaining < 0:
		status = dto.LicenceExpired
	case remaining <= warningDays:
		status = dto.LicenceExpiring
	}

	return dto.LicenceResponse{
		ID:            l.LicenceID,
		GuardID:       l.GuardID,
		Guard:         toGuardBrief(l.Guard),
		LicenceType:   l.LicenceType,
		LicenceNumber: l.LicenceNumber,
		ExpiryDate:    formatDate(l.ExpiryDate),
		DaysRemaining: remaining,
		Status:        status,
	}
}
