package service

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"guardian/backend/config"
	"guardian/backend/internal/repository"
	"guardian/backend/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	User         UserService
	Site         SiteService
	Shift        ShiftService
	Activity     ActivityService
	BreakStatus  BreakStatusService
	Rota         RotaService
	NoShow       NoShowService
	Payroll      PayrollService
	Licence      LicenceService
	Notification NotificationService
	SystemConfig SystemConfigService
}

// NewService 创建 Service 聚合
// blacklist / notifier 为可选依赖，未配置 Redis 或推送渠道时传 nil
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	notifier Notifier,
	logger *zap.Logger,
) *Service {
	loc := cfg.Server.Location()
	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, blacklist, logger),
		User:         NewUserService(repo, logger),
		Site:         NewSiteService(repo, logger),
		Shift:        NewShiftService(repo, loc, logger),
		Activity:     NewActivityService(repo, logger),
		BreakStatus:  NewBreakStatusService(repo, loc, logger),
		Rota:         NewRotaService(repo, loc, logger),
		NoShow:       NewNoShowService(cfg, repo, notifier, logger),
		Payroll:      NewPayrollService(cfg, repo, logger),
		Licence:      NewLicenceService(cfg, repo, notifier, logger),
		Notification: NewNotificationService(cfg, repo, logger),
		SystemConfig: NewSystemConfigService(cfg, repo, logger),
	}
}

// Notifier 告警与提醒的统一出口，由通知分发器实现
type Notifier interface {
	NoShowNotifier
	LicenceNotifier
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
