package handler

import (
	"github.com/gin-gonic/gin"

	"guardian/backend/config"
	"guardian/backend/internal/service"
	"guardian/backend/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Site         *SiteHandler
	Shift        *ShiftHandler
	BreakStatus  *BreakStatusHandler
	Rota         *RotaHandler
	NoShow       *NoShowHandler
	Payroll      *PayrollHandler
	Licence      *LicenceHandler
	Notification *NotificationHandler
	SystemConfig *SystemConfigHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth, &cfg.Auth),
		User:         NewUserHandler(svc.User),
		Site:         NewSiteHandler(svc.Site),
		Shift:        NewShiftHandler(svc.Shift, svc.Activity),
		BreakStatus:  NewBreakStatusHandler(svc.BreakStatus, cfg.Server.Location()),
		Rota:         NewRotaHandler(svc.Rota),
		NoShow:       NewNoShowHandler(svc.NoShow),
		Payroll:      NewPayrollHandler(svc.Payroll),
		Licence:      NewLicenceHandler(svc.Licence),
		Notification: NewNotificationHandler(svc.Notification),
		SystemConfig: NewSystemConfigHandler(svc.SystemConfig),
	}
}

// badParam 参数校验失败统一响应，details 带具体原因
func badParam(c *gin.Context, err error) {
	response.ErrorWithDetails(c, 400, 10001, "参数校验失败", err.Error())
}
