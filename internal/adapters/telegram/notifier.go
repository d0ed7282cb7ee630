package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"superloja-social/internal/domain"
	"superloja-social/internal/infra/metrics"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier отправляет отчёт о неудачных постах в служебный чат.
type Notifier struct {
	bot    sender
	chatID int64
	log    zerolog.Logger
}

var _ domain.RunNotifier = (*Notifier)(nil)

// NewNotifier создаёт уведомитель. Без токена или чата возвращает nil.
func NewNotifier(token string, chatID int64, logger zerolog.Logger) (*Notifier, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return newNotifier(bot, chatID, logger), nil
}

func newNotifier(bot sender, chatID int64, logger zerolog.Logger) *Notifier {
	return &Notifier{bot: bot, chatID: chatID, log: logger}
}

// NotifyRun шлёт отчёт, только если в запуске были ошибки.
func (n *Notifier) NotifyRun(ctx context.Context, action domain.RunAction, summary domain.RunSummary) error {
	report := FormatRunReport(action, summary)
	if report == "" {
		return nil
	}
	target := strconv.FormatInt(n.chatID, 10)
	for _, part := range SplitMessage(report, MessageLimit) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(n.chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		start := time.Now()
		_, err := n.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", target, start, err)
		if err != nil {
			return fmt.Errorf("отправка отчёта: %w", err)
		}
	}
	n.log.Info().Int("failed", len(summary.Failed())).Msg("отчёт о запуске отправлен")
	return nil
}
