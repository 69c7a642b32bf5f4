package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"guardian/backend/internal/dto"
	"guardian/backend/internal/service"
	pkgerrors "guardian/backend/pkg/errors"
	"guardian/backend/pkg/response"
)

// ShiftHandler 班次与班次动态 HTTP 处理器
type ShiftHandler struct {
	shiftSvc    service.ShiftService
	activitySvc service.ActivityService
}

// NewShiftHandler 创建 ShiftHandler
func NewShiftHandler(shiftSvc service.ShiftService, activitySvc service.ActivityService) *ShiftHandler {
	return &ShiftHandler{shiftSvc: shiftSvc, activitySvc: activitySvc}
}

// ListShifts 班次列表
// GET /api/v1/shifts?guard_id=&site_id=&from=&to=
func (h *ShiftHandler) ListShifts(c *gin.Context) {
	var req dto.ShiftListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	shifts, total, err := h.shiftSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OKPage(c, shifts, total, req.GetPage(), req.GetPageSize())
}

// ListMyShifts 我的班次
// GET /api/v1/shifts/my?from=&to=
func (h *ShiftHandler) ListMyShifts(c *gin.Context) {
	var req dto.MyShiftsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	shifts, err := h.shiftSvc.ListMine(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, gin.H{"list": shifts})
}

// GetShift 班次详情
// GET /api/v1/shifts/:id
func (h *ShiftHandler) GetShift(c *gin.Context) {
	shift, err := h.shiftSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	if _, ok := resolveGuardID(c, shift.GuardID); !ok {
		return
	}

	response.OK(c, shift)
}

// CreateShift 排班
// POST /api/v1/shifts
func (h *ShiftHandler) CreateShift(c *gin.Context) {
	var req dto.CreateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	shift, err := h.shiftSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.Created(c, shift)
}

// UpdateShift 修改班次（乐观锁）
// PUT /api/v1/shifts/:id
func (h *ShiftHandler) UpdateShift(c *gin.Context) {
	var req dto.UpdateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	shift, err := h.shiftSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, shift)
}

// DeleteShift 删除班次
// DELETE /api/v1/shifts/:id
func (h *ShiftHandler) DeleteShift(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.shiftSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, nil)
}

// ────────────────────── 班次动态 ──────────────────────

// RecordActivity 记录确认 / 签到 / 签退 / 拒绝
// POST /api/v1/shifts/:id/activities
func (h *ShiftHandler) RecordActivity(c *gin.Context) {
	var req dto.CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	activity, err := h.activitySvc.Record(c.Request.Context(), c.Param("id"), &req, callerID, role)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.Created(c, activity)
}

// ListActivities 班次动态列表
// GET /api/v1/shifts/:id/activities
func (h *ShiftHandler) ListActivities(c *gin.Context) {
	list, err := h.activitySvc.ListByShift(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// handleShiftError 统一处理班次模块业务错误
func (h *ShiftHandler) handleShiftError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrShiftNotFound):
		response.NotFound(c, 14001, "班次不存在")
	case errors.Is(err, service.ErrGuardNotFound):
		response.NotFound(c, 14002, "保安不存在")
	case errors.Is(err, service.ErrSiteNotFound):
		response.NotFound(c, 13001, "站点不存在")
	case errors.Is(err, service.ErrShiftGuardRole):
		response.BadRequest(c, 14003, "只能给保安角色排班")
	case errors.Is(err, service.ErrOverlappingShifts):
		response.ErrorWithDetails(c, 409, 14004, "该保安在同一时段存在重叠班次", err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 14005, "班次已被其他人修改，请刷新后重试")
	case errors.Is(err, service.ErrShiftRangeTooBig):
		response.BadRequest(c, 14006, "查询日期范围不能超过 92 天")
	case errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrInvalidClockTime),
		errors.Is(err, service.ErrInvalidShiftTimes):
		badParam(c, err)
	case errors.Is(err, service.ErrInvalidActivityType),
		errors.Is(err, service.ErrInvalidTimestamp):
		badParam(c, err)
	case errors.Is(err, service.ErrForbiddenShift):
		response.Forbidden(c, 14007, "只能为自己的班次记录动态")
	default:
		response.InternalError(c)
	}
}
