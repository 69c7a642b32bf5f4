package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"guardian/backend/internal/dto"
	"guardian/backend/internal/model"
	"guardian/backend/internal/service"
	"guardian/backend/pkg/response"
)

// BreakStatusHandler 休息状态查询
type BreakStatusHandler struct {
	svc service.BreakStatusService
	loc *time.Location
	now func() time.Time
}

// NewBreakStatusHandler 创建 BreakStatusHandler；loc 用于补齐缺省的日期
func NewBreakStatusHandler(svc service.BreakStatusService, loc *time.Location) *BreakStatusHandler {
	return &BreakStatusHandler{svc: svc, loc: loc, now: time.Now}
}

// GetStatus 保安在某一时刻是否在班、是否在休息
// GET /api/v1/break-status?guard_id=&date=&time=
func (h *BreakStatusHandler) GetStatus(c *gin.Context) {
	var req dto.BreakStatusRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	guardID, ok := resolveGuardID(c, req.GuardID)
	if !ok {
		return
	}

	var (
		result *dto.BreakStatusResponse
		err    error
	)
	if req.Date == "" && req.Time == "" {
		result, err = h.svc.EvaluateAt(c.Request.Context(), guardID, h.now())
	} else {
		now := h.now().In(h.loc)
		if req.Date == "" {
			req.Date = now.Format(model.DateLayout)
		}
		if req.Time == "" {
			req.Time = now.Format("15:04:05")
		}
		result, err = h.svc.Evaluate(c.Request.Context(), guardID, req.Date, req.Time)
	}
	if err != nil {
		h.handleBreakStatusError(c, err)
		return
	}

	response.OK(c, result)
}

// handleBreakStatusError 统一处理休息状态业务错误
func (h *BreakStatusHandler) handleBreakStatusError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOverlappingShifts):
		response.ErrorWithDetails(c, 409, 14004, "该保安在同一时段存在重叠班次", err.Error())
	case errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrInvalidClockTime),
		errors.Is(err, service.ErrInvalidShiftTimes):
		badParam(c, err)
	default:
		response.InternalError(c)
	}
}
