package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"guardian/backend/internal/dto"
	"guardian/backend/internal/service"
	"guardian/backend/pkg/response"
)

// NoShowHandler 缺勤检测与告警处理
type NoShowHandler struct {
	noShowSvc service.NoShowService
}

// NewNoShowHandler 创建 NoShowHandler
func NewNoShowHandler(noShowSvc service.NoShowService) *NoShowHandler {
	return &NoShowHandler{noShowSvc: noShowSvc}
}

// Run 手动触发一次检测；at 为空时取当前时刻，否则按 RFC3339 解析（用于补跑）
// POST /api/v1/no-show/run
func (h *NoShowHandler) Run(c *gin.Context) {
	var req dto.NoShowRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
	}

	var (
		result *dto.NoShowRunResponse
		err    error
	)
	if at := strings.TrimSpace(req.At); at != "" {
		t, perr := time.Parse(time.RFC3339, at)
		if perr != nil {
			badParam(c, service.ErrInvalidTimestamp)
			return
		}
		result, err = h.noShowSvc.DetectAt(c.Request.Context(), t)
	} else {
		result, err = h.noShowSvc.Detect(c.Request.Context())
	}
	if err != nil {
		h.handleNoShowError(c, err)
		return
	}

	response.OK(c, result)
}

// ListAlerts 告警列表
// GET /api/v1/no-show/alerts?status=&guard_id=&from=&to=
func (h *NoShowHandler) ListAlerts(c *gin.Context) {
	var req dto.NoShowAlertListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	alerts, total, err := h.noShowSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleNoShowError(c, err)
		return
	}

	response.OKPage(c, alerts, total, req.GetPage(), req.GetPageSize())
}

// Acknowledge 确认告警
// PUT /api/v1/no-show/alerts/:id/acknowledge
func (h *NoShowHandler) Acknowledge(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	alert, err := h.noShowSvc.Acknowledge(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		h.handleNoShowError(c, err)
		return
	}

	response.OK(c, alert)
}

// Resolve 处理完毕
// PUT /api/v1/no-show/alerts/:id/resolve
func (h *NoShowHandler) Resolve(c *gin.Context) {
	var req dto.ResolveAlertRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	alert, err := h.noShowSvc.Resolve(c.Request.Context(), c.Param("id"), callerID, req.Note)
	if err != nil {
		h.handleNoShowError(c, err)
		return
	}

	response.OK(c, alert)
}

// handleNoShowError 统一处理缺勤模块业务错误
func (h *NoShowHandler) handleNoShowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAlertNotFound):
		response.NotFound(c, 16001, "缺勤告警不存在")
	case errors.Is(err, service.ErrAlertStatusTransition):
		response.Conflict(c, 16002, "告警当前状态不允许该操作")
	case errors.Is(err, service.ErrInvalidDate):
		badParam(c, err)
	default:
		response.InternalError(c)
	}
}
