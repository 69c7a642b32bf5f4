package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"guardian/backend/config"
	"guardian/backend/internal/api/handler"
	"guardian/backend/internal/api/middleware"
	"guardian/backend/internal/model"
	"guardian/backend/pkg/jwt"
)

const (
	defaultBodyLimit = 1 << 20  // 1 MiB
	importBodyLimit  = 20 << 20 // 工资表上传
	loginRateLimit   = 10       // 每 IP 每分钟
)

// Setup 初始化并返回 Gin 路由引擎
// blacklist / counter 为 nil 时分别跳过黑名单校验、使用进程内限流
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	jwtMgr *jwt.Manager,
	blacklist middleware.Blacklist,
	counter middleware.Counter,
	db *gorm.DB,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RateLimit(counter, cfg.Server.RateLimit, time.Minute, logger))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	cacheStore := middleware.NewCacheStore(cfg.Cache.TTL)
	cached := middleware.Cache(cacheStore, cfg.Cache.TTL)
	jwtAuth := middleware.JWTAuth(jwtMgr, blacklist, logger)
	supervisors := middleware.RoleAuth(model.RoleAdmin, model.RoleSupervisor)
	admins := middleware.RoleAuth(model.RoleAdmin)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		auth.Use(middleware.BodyLimit(defaultBodyLimit))
		{
			auth.POST("/login", middleware.RateLimit(counter, loginRateLimit, time.Minute, logger), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 上传接口单独放宽请求体
		uploads := v1.Group("")
		uploads.Use(jwtAuth, middleware.BodyLimit(importBodyLimit))
		{
			uploads.POST("/payroll/inputs/import", supervisors, h.Payroll.ImportInputs)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(jwtAuth, middleware.BodyLimit(defaultBodyLimit))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 用户模块
			users := authorized.Group("/users")
			{
				users.GET("", supervisors, h.User.ListUsers)
				users.GET("/:id", supervisors, h.User.GetUser)
				users.POST("", admins, h.User.CreateUser)
				users.PUT("/:id", admins, h.User.UpdateUser)
				users.POST("/:id/reset-password", admins, h.User.ResetPassword)
			}

			// 站点模块
			sites := authorized.Group("/sites")
			{
				sites.GET("", h.Site.ListSites)
				sites.GET("/:id", h.Site.GetSite)
				sites.POST("", admins, h.Site.CreateSite)
				sites.PUT("/:id", admins, h.Site.UpdateSite)
				sites.DELETE("/:id", admins, h.Site.DeleteSite)
			}

			// 班次与班次动态
			shifts := authorized.Group("/shifts")
			{
				shifts.GET("", supervisors, h.Shift.ListShifts)
				shifts.GET("/my", h.Shift.ListMyShifts)
				shifts.GET("/:id", h.Shift.GetShift)
				shifts.POST("", supervisors, h.Shift.CreateShift)
				shifts.PUT("/:id", supervisors, h.Shift.UpdateShift)
				shifts.DELETE("/:id", supervisors, h.Shift.DeleteShift)
				shifts.POST("/:id/activities", h.Shift.RecordActivity) // 保安本人或主管（Service 层鉴权）
				shifts.GET("/:id/activities", h.Shift.ListActivities)
			}

			// 休息状态与排班日历
			authorized.GET("/break-status", h.BreakStatus.GetStatus)
			authorized.GET("/rota/ics", cached, h.Rota.GetICS)

			// 缺勤告警
			noShow := authorized.Group("/no-show", supervisors)
			{
				noShow.POST("/run", h.NoShow.Run)
				noShow.GET("/alerts", h.NoShow.ListAlerts)
				noShow.PUT("/alerts/:id/acknowledge", h.NoShow.Acknowledge)
				noShow.PUT("/alerts/:id/resolve", h.NoShow.Resolve)
			}

			// 工资差异
			payroll := authorized.Group("/payroll", supervisors)
			{
				payroll.POST("/run", h.Payroll.Run)
				payroll.GET("/variances", h.Payroll.ListVariances)
				payroll.GET("/variances/export", h.Payroll.ExportVariances)
				payroll.GET("/variances/:id", h.Payroll.GetVariance)
				payroll.PUT("/variances/:id/status", h.Payroll.UpdateStatus)
				payroll.PUT("/inputs", h.Payroll.UpsertInput)
				payroll.GET("/inputs", h.Payroll.ListInputs)
			}

			// 上岗证
			licences := authorized.Group("/licences")
			{
				licences.GET("", h.Licence.List)
				licences.GET("/expiring", supervisors, cached, h.Licence.Expiring)
				licences.POST("", supervisors, h.Licence.Create)
				licences.DELETE("/:id", supervisors, h.Licence.Delete)
			}

			// 通知
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.List)
				notifications.GET("/unread-count", h.Notification.UnreadCount)
				notifications.PUT("/read-all", h.Notification.MarkAllRead)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
				notifications.GET("/push/key", h.Notification.PushKey)
				notifications.POST("/push/subscribe", h.Notification.Subscribe)
				notifications.POST("/push/unsubscribe", h.Notification.Unsubscribe)
			}

			// 系统配置
			systemConfig := authorized.Group("/system-config")
			{
				systemConfig.GET("", supervisors, h.SystemConfig.GetConfig)
				systemConfig.PUT("", admins, h.SystemConfig.UpdateConfig)
			}
		}
	}

	return r
}
