package notification

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"guardian/backend/internal/model"
)

// botAPI tgbotapi.BotAPI 中用到的部分
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender 发送到绑定了 Telegram 的个人；接收人含主管或管理员时同时发到主管群
type TelegramSender struct {
	bot            botAPI
	supervisorChat int64
	logger         *zap.Logger
}

func NewTelegramSender(bot botAPI, supervisorChat int64, logger *zap.Logger) *TelegramSender {
	return &TelegramSender{bot: bot, supervisorChat: supervisorChat, logger: logger}
}

func (s *TelegramSender) Name() string { return "telegram" }

// Send 同一批消息合并为一条文本，每个 chat 只发一次
func (s *TelegramSender) Send(ctx context.Context, recipients []model.User, msgs []Message) error {
	chats := s.chatIDs(recipients)
	if len(chats) == 0 || len(msgs) == 0 {
		return nil
	}
	text := telegramText(msgs)

	var failed int
	for _, chatID := range chats {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			failed++
			s.logger.Warn("Telegram 发送失败", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d 个 Telegram 会话发送失败", failed)
	}
	return nil
}

func (s *TelegramSender) chatIDs(recipients []model.User) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	add := func(id int64) {
		if id == 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for i := range recipients {
		if recipients[i].Role == model.RoleSupervisor || recipients[i].Role == model.RoleAdmin {
			add(s.supervisorChat)
			break
		}
	}
	for i := range recipients {
		if recipients[i].TelegramChatID != nil {
			add(*recipients[i].TelegramChatID)
		}
	}
	return ids
}

func telegramText(msgs []Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("【")
		b.WriteString(m.Title)
		b.WriteString("】")
		b.WriteString(m.Body)
	}
	return b.String()
}
