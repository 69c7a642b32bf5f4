package notification

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"guardian/backend/config"
	"guardian/backend/internal/repository"
)

// BuildSenders 按配置组装通知渠道，站内通知始终启用
// Telegram 初始化失败不影响启动，只是跳过该渠道
func BuildSenders(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) []Sender {
	senders := []Sender{NewInAppSender(repo)}

	if cfg.Push.Enabled() {
		senders = append(senders, NewWebPushSender(&cfg.Push, repo, logger))
	}

	if cfg.Telegram.BotToken != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			logger.Warn("Telegram 初始化失败，跳过该渠道", zap.Error(err))
		} else {
			logger.Info("Telegram 已连接", zap.String("bot", bot.Self.UserName))
			senders = append(senders, NewTelegramSender(bot, cfg.Telegram.SupervisorChat, logger))
		}
	}

	return senders
}
