package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"guardian/backend/internal/dto"
	"guardian/backend/internal/service"
	"guardian/backend/pkg/response"
)

// NotificationHandler 站内通知与浏览器推送订阅
type NotificationHandler struct {
	notifSvc service.NotificationService
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(notifSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifSvc: notifSvc}
}

// List 当前用户的通知
// GET /api/v1/notifications?unread_only=
func (h *NotificationHandler) List(c *gin.Context) {
	var req dto.NotificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	items, total, err := h.notifSvc.List(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OKPage(c, items, total, req.GetPage(), req.GetPageSize())
}

// UnreadCount 未读数
// GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.notifSvc.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, result)
}

// MarkRead 标记单条已读
// PUT /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.notifSvc.MarkRead(c.Request.Context(), c.Param("id"), userID); err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, nil)
}

// MarkAllRead 全部已读
// PUT /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.notifSvc.MarkAllRead(c.Request.Context(), userID); err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, nil)
}

// PushKey VAPID 公钥，前端订阅前调用
// GET /api/v1/notifications/push/key
func (h *NotificationHandler) PushKey(c *gin.Context) {
	response.OK(c, h.notifSvc.PushKey())
}

// Subscribe 保存浏览器推送订阅
// POST /api/v1/notifications/push/subscribe
func (h *NotificationHandler) Subscribe(c *gin.Context) {
	var req dto.PushSubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.notifSvc.Subscribe(c.Request.Context(), userID, &req); err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.Created(c, nil)
}

// Unsubscribe 取消推送订阅
// POST /api/v1/notifications/push/unsubscribe
func (h *NotificationHandler) Unsubscribe(c *gin.Context) {
	var req struct {
		Endpoint string `json:"endpoint" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.notifSvc.Unsubscribe(c.Request.Context(), req.Endpoint); err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleNotificationError 统一处理通知模块业务错误
func (h *NotificationHandler) handleNotificationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotificationNotFound):
		response.NotFound(c, 19001, "通知不存在")
	case errors.Is(err, service.ErrPushDisabled):
		response.BadRequest(c, 19002, "服务端未启用 Web Push")
	default:
		response.InternalError(c)
	}
}
