package notification

import (
	"context"
	"fmt"

	"guardian/backend/internal/model"
	"guardian/backend/internal/repository"
)

// InAppSender 写入站内通知表
type InAppSender struct {
	repo *repository.Repository
}

func NewInAppSender(repo *repository.Repository) *InAppSender {
	return &InAppSender{repo: repo}
}

func (s *InAppSender) Name() string { return "in_app" }

// Send 每个接收人每条消息一行，整批写入
func (s *InAppSender) Send(ctx context.Context, recipients []model.User, msgs []Message) error {
	rows := make([]model.Notification, 0, len(recipients)*len(msgs))
	for i := range recipients {
		for _, m := range msgs {
			rows = append(rows, model.Notification{
				UserID:      recipients[i].UserID,
				Type:        m.Type,
				Title:       m.Title,
				Content:     m.Body,
				RelatedType: optional(m.RelatedType),
				RelatedID:   optional(m.RelatedID),
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	if err := s.repo.Notification.CreateBatch(ctx, rows); err != nil {
		return fmt.Errorf("写入站内通知失败: %w", err)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
