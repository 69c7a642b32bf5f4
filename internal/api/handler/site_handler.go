package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"guardian/backend/internal/dto"
	"guardian/backend/internal/service"
	"guardian/backend/pkg/response"
)

// SiteHandler 站点模块 HTTP 处理器
type SiteHandler struct {
	siteSvc service.SiteService
}

// NewSiteHandler 创建 SiteHandler
func NewSiteHandler(siteSvc service.SiteService) *SiteHandler {
	return &SiteHandler{siteSvc: siteSvc}
}

// ListSites 站点列表
// GET /api/v1/sites
func (h *SiteHandler) ListSites(c *gin.Context) {
	var req dto.SiteListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	sites, err := h.siteSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": sites})
}

// GetSite 站点详情
// GET /api/v1/sites/:id
func (h *SiteHandler) GetSite(c *gin.Context) {
	site, err := h.siteSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleSiteError(c, err)
		return
	}

	response.OK(c, site)
}

// CreateSite 创建站点
// POST /api/v1/sites
func (h *SiteHandler) CreateSite(c *gin.Context) {
	var req dto.CreateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	site, err := h.siteSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleSiteError(c, err)
		return
	}

	response.Created(c, site)
}

// UpdateSite 更新站点
// PUT /api/v1/sites/:id
func (h *SiteHandler) UpdateSite(c *gin.Context) {
	var req dto.UpdateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	site, err := h.siteSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleSiteError(c, err)
		return
	}

	response.OK(c, site)
}

// DeleteSite 删除站点
// DELETE /api/v1/sites/:id
func (h *SiteHandler) DeleteSite(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.siteSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleSiteError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleSiteError 统一处理站点模块业务错误
func (h *SiteHandler) handleSiteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSiteNotFound):
		response.NotFound(c, 13001, "站点不存在")
	default:
		response.InternalError(c)
	}
}
