package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"guardian/backend/internal/dto"
	"guardian/backend/internal/service"
	"guardian/backend/pkg/response"
)

// RotaHandler 排班日历订阅
type RotaHandler struct {
	rotaSvc service.RotaService
}

// NewRotaHandler 创建 RotaHandler
func NewRotaHandler(rotaSvc service.RotaService) *RotaHandler {
	return &RotaHandler{rotaSvc: rotaSvc}
}

// GetICS 输出 text/calendar，可直接被日历客户端订阅
// GET /api/v1/rota/ics?guard_id=&days=
func (h *RotaHandler) GetICS(c *gin.Context) {
	var req dto.RotaICSRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	guardID, ok := resolveGuardID(c, req.GuardID)
	if !ok {
		return
	}

	data, err := h.rotaSvc.ICS(c.Request.Context(), guardID, req.Days)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGuardNotFound):
			response.NotFound(c, 14002, "保安不存在")
		default:
			response.InternalError(c)
		}
		return
	}

	response.File(c, "text/calendar; charset=utf-8", "rota.ics", data)
}
