package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"guardian/backend/config"
	"guardian/backend/internal/model"
	"guardian/backend/internal/repository"
)

// pushClient 推送发送抽象，测试时替换
type pushClient interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

type vapidClient struct{}

func (vapidClient) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// pushPayload 浏览器 Service Worker 收到的 JSON
type pushPayload struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	RelatedType string `json:"related_type,omitempty"`
	RelatedID   string `json:"related_id,omitempty"`
}

// WebPushSender 通过 VAPID 向浏览器订阅推送
type WebPushSender struct {
	repo    *repository.Repository
	options *webpush.Options
	client  pushClient
	logger  *zap.Logger
}

func NewWebPushSender(cfg *config.PushConfig, repo *repository.Repository, logger *zap.Logger) *WebPushSender {
	return &WebPushSender{
		repo: repo,
		options: &webpush.Options{
			Subscriber:      cfg.Subject,
			VAPIDPublicKey:  cfg.PublicKey,
			VAPIDPrivateKey: cfg.PrivateKey,
			TTL:             cfg.TTL,
		},
		client: vapidClient{},
		logger: logger,
	}
}

func (s *WebPushSender) Name() string { return "web_push" }

// Send 向接收人的全部订阅推送；单条失败只记录，过期订阅（404/410）直接删除
func (s *WebPushSender) Send(ctx context.Context, recipients []model.User, msgs []Message) error {
	ids := make([]string, 0, len(recipients))
	for i := range recipients {
		ids = append(ids, recipients[i].UserID)
	}
	subs, err := s.repo.PushSubscription.ListByUserIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("查询推送订阅失败: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	var failed int
	for _, m := range msgs {
		payload, err := json.Marshal(pushPayload{
			Type:        m.Type,
			Title:       m.Title,
			Body:        m.Body,
			RelatedType: m.RelatedType,
			RelatedID:   m.RelatedID,
		})
		if err != nil {
			return fmt.Errorf("序列化推送内容失败: %w", err)
		}
		for i := range subs {
			if subs[i].Endpoint == "" {
				continue
			}
			if err := s.push(ctx, &subs[i], payload); err != nil {
				failed++
				s.logger.Warn("推送失败", zap.String("endpoint", subs[i].Endpoint), zap.Error(err))
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d 条推送失败", failed)
	}
	return nil
}

func (s *WebPushSender) push(ctx context.Context, sub *model.PushSubscription, payload []byte) error {
	resp, err := s.client.Send(payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.P256DH, Auth: sub.Auth},
	}, s.options)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		if err := s.repo.PushSubscription.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
			s.logger.Error("删除失效订阅失败", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
		// 失效后不再向它推送后续消息
		sub.Endpoint = ""
		s.logger.Info("推送订阅已失效，已删除", zap.Int("status", resp.StatusCode))
		return nil
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: HTTP %d", errPushRejected, resp.StatusCode)
	}
	return nil
}

var errPushRejected = errors.New("推送服务拒绝")
