package email

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"

	"stockpilot/internal/logger"
)

// TelegramConfig holds Telegram notification settings.
type TelegramConfig struct {
	Token  string
	ChatID int64
}

// TelegramNotifier mirrors the dispatched report into a Telegram chat. It is
// a convenience channel on top of SMTP: a send failure here is logged and
// never fails the dispatch step.
type TelegramNotifier struct {
	bot    *telego.Bot
	chatID int64
	logger *logger.Logger
}

// NewTelegramNotifier creates a new notifier.
func NewTelegramNotifier(cfg TelegramConfig, log *logger.Logger) (*TelegramNotifier, error) {
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramNotifier{
		bot:    bot,
		chatID: cfg.ChatID,
		logger: log,
	}, nil
}

// Notify sends the report body to the configured chat.
func (n *TelegramNotifier) Notify(ctx context.Context, r *Report) {
	text := fmt.Sprintf("%s\n\n%s", r.Subject, RenderBody(r))

	params := &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: n.chatID},
		Text:   text,
	}
	if _, err := n.bot.SendMessage(ctx, params); err != nil {
		n.logger.WarnCtx(ctx, "telegram notification failed",
			logger.Field{Key: "chat_id", Value: n.chatID},
			logger.Field{Key: "error", Value: err.Error()})
		return
	}

	n.logger.DebugCtx(ctx, "telegram notification sent",
		logger.Field{Key: "chat_id", Value: n.chatID})
}
