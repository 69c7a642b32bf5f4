package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"guardian/backend/config"
	"guardian/backend/internal/dto"
	"guardian/backend/internal/model"
	"guardian/backend/internal/repository"
)

// ── 通知模块业务错误 ──

var (
	ErrNotificationNotFound = errors.New("通知不存在")
	ErrPushDisabled         = errors.New("服务端未启用 Web Push")
)

// NotificationService 站内通知与推送订阅接口
type NotificationService interface {
	List(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error)
	UnreadCount(ctx context.Context, userID string) (*dto.UnreadCountResponse, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
	PushKey() *dto.PushKeyResponse
	Subscribe(ctx context.Context, userID string, req *dto.PushSubscribeRequest) error
	Unsubscribe(ctx context.Context, endpoint string) error
}

type notificationService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) NotificationService {
	return &notificationService{cfg: cfg, repo: repo, logger: logger}
}

func (s *notificationService) List(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error) {
	list, total, err := s.repo.Notification.ListByUser(ctx, userID, req.UnreadOnly, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询通知失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.NotificationResponse, 0, len(list))
	for i := range list {
		n := &list[i]
		result = append(result, dto.NotificationResponse{
			ID:          n.NotificationID,
			Type:        n.Type,
			Title:       n.Title,
			Content:     n.Content,
			IsRead:      n.IsRead,
			RelatedType: n.RelatedType,
			RelatedID:   n.RelatedID,
			CreatedAt:   formatTime(n.CreatedAt),
		})
	}
	return result, total, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (*dto.UnreadCountResponse, error) {
	n, err := s.repo.Notification.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("统计未读通知失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return &dto.UnreadCountResponse{Count: n}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.Notification.MarkRead(ctx, id, userID); err != nil {
		if isNotFound(err) {
			return ErrNotificationNotFound
		}
		s.logger.Error("标记已读失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.repo.Notification.MarkAllRead(ctx, userID); err != nil {
		s.logger.Error("全部标记已读失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

func (s *notificationService) PushKey() *dto.PushKeyResponse {
	return &dto.PushKeyResponse{
		PublicKey: s.cfg.Push.PublicKey,
		Enabled:   s.cfg.Push.Enabled(),
	}
}

func (s *notificationService) Subscribe(ctx context.Context, userID string, req *dto.PushSubscribeRequest) error {
	if !s.cfg.Push.Enabled() {
		return ErrPushDisabled
	}

	sub := &model.PushSubscription{
		Endpoint: req.Endpoint,
		UserID:   userID,
		P256DH:   req.Keys.P256DH,
		Auth:     req.Keys.Auth,
	}
	if err := s.repo.PushSubscription.Upsert(ctx, sub); err != nil {
		s.logger.Error("保存推送订阅失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

func (s *notificationService) Unsubscribe(ctx context.Context, endpoint string) error {
	if err := s.repo.PushSubscription.DeleteByEndpoint(ctx, endpoint); err != nil {
		s.logger.Error("删除推送订阅失败", zap.Error(err))
		return err
	}
	return nil
}
