package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"guardian/backend/internal/dto"
	"guardian/backend/internal/model"
	"guardian/backend/internal/service"
	"guardian/backend/pkg/response"
)

// LicenceHandler 上岗证登记与到期预警
type LicenceHandler struct {
	licenceSvc service.LicenceService
}

// NewLicenceHandler 创建 LicenceHandler
func NewLicenceHandler(licenceSvc service.LicenceService) *LicenceHandler {
	return &LicenceHandler{licenceSvc: licenceSvc}
}

// Create 登记上岗证
// POST /api/v1/licences
func (h *LicenceHandler) Create(c *gin.Context) {
	var req dto.CreateLicenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	lic, err := h.licenceSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleLicenceError(c, err)
		return
	}

	response.Created(c, lic)
}

// List 上岗证列表；保安只能查看自己的
// GET /api/v1/licences?guard_id=
func (h *LicenceHandler) List(c *gin.Context) {
	var req dto.LicenceListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	role, ok := MustGetRole(c)
	if !ok {
		return
	}
	// 保安不带 guard_id 时只看自己；主管不带时查全部
	if role == model.RoleGuard || req.GuardID != "" {
		guardID, ok := resolveGuardID(c, req.GuardID)
		if !ok {
			return
		}
		req.GuardID = guardID
	}

	items, total, err := h.licenceSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleLicenceError(c, err)
		return
	}

	response.OKPage(c, items, total, req.GetPage(), req.GetPageSize())
}

// Expiring 预警期内（含已过期）的证件
// GET /api/v1/licences/expiring?days=
func (h *LicenceHandler) Expiring(c *gin.Context) {
	var req dto.ExpiringLicenceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	items, err := h.licenceSvc.Expiring(c.Request.Context(), req.Days)
	if err != nil {
		h.handleLicenceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": items})
}

// Delete 删除上岗证
// DELETE /api/v1/licences/:id
func (h *LicenceHandler) Delete(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.licenceSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleLicenceError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleLicenceError 统一处理上岗证模块业务错误
func (h *LicenceHandler) handleLicenceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLicenceNotFound):
		response.NotFound(c, 18001, "上岗证不存在")
	case errors.Is(err, service.ErrGuardNotFound):
		response.NotFound(c, 14002, "保安不存在")
	case errors.Is(err, service.ErrInvalidDate):
		badParam(c, err)
	default:
		response.InternalError(c)
	}
}
