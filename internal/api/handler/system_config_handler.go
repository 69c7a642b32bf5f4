package handler

import (
	"github.com/gin-gonic/gin"

	"guardian/backend/internal/dto"
	"guardian/backend/internal/service"
	"guardian/backend/pkg/response"
)

// SystemConfigHandler 系统配置（缺勤宽限、工时阈值等运行参数）
type SystemConfigHandler struct {
	configSvc service.SystemConfigService
}

// NewSystemConfigHandler 创建 SystemConfigHandler
func NewSystemConfigHandler(configSvc service.SystemConfigService) *SystemConfigHandler {
	return &SystemConfigHandler{configSvc: configSvc}
}

// GetConfig 获取系统配置，未保存过时返回配置文件缺省值
// GET /api/v1/system-config
func (h *SystemConfigHandler) GetConfig(c *gin.Context) {
	cfg, err := h.configSvc.Get(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, cfg)
}

// UpdateConfig 部分更新，未传字段保持原值
// PUT /api/v1/system-config
func (h *SystemConfigHandler) UpdateConfig(c *gin.Context) {
	var req dto.UpdateSystemConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	cfg, err := h.configSvc.Update(c.Request.Context(), &req, callerID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, cfg)
}
