package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"superloja-social/internal/domain"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func TestFormatRunReportEscapesErrors(t *testing.T) {
	summary := domain.RunSummary{Success: true, Processed: 2, Results: []domain.RunResult{
		{PostID: uuid.New(), Platform: domain.PlatformFacebook, Status: domain.PostPosted, Success: true},
		{PostID: uuid.New(), Platform: domain.PlatformInstagram, Status: domain.PostFailed, Error: `Instagram API error: {"error":"<bad>"}`},
	}}
	report := FormatRunReport(domain.ActionProcessAll, summary)
	if !strings.Contains(report, "с ошибкой: 1") {
		t.Fatalf("ожидали счётчик ошибок: %s", report)
	}
	if strings.Contains(report, "<bad>") || !strings.Contains(report, "&lt;bad&gt;") {
		t.Fatalf("текст ошибки должен быть экранирован: %s", report)
	}
	if strings.Contains(report, summary.Results[0].PostID.String()) {
		t.Fatalf("успешные посты в отчёт не попадают")
	}
}

func TestNotifierSkipsCleanRun(t *testing.T) {
	bot := &fakeSender{}
	n := newNotifier(bot, 42, zerolog.Nop())
	summary := domain.RunSummary{Success: true, Processed: 1, Results: []domain.RunResult{{Success: true}}}
	if err := n.NotifyRun(context.Background(), domain.ActionProcessAll, summary); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(bot.sent) != 0 {
		t.Fatalf("без ошибок сообщений быть не должно")
	}
}

func TestNotifierSendsHTMLParts(t *testing.T) {
	bot := &fakeSender{}
	n := newNotifier(bot, 42, zerolog.Nop())
	var results []domain.RunResult
	for i := 0; i < 40; i++ {
		results = append(results, domain.RunResult{PostID: uuid.New(), Platform: domain.PlatformFacebook, Status: domain.PostFailed, Error: strings.Repeat("x", 200)})
	}
	if err := n.NotifyRun(context.Background(), domain.ActionPostGenerated, domain.RunSummary{Success: true, Processed: 40, Results: results}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(bot.sent) < 2 {
		t.Fatalf("длинный отчёт должен быть разбит, частей: %d", len(bot.sent))
	}
	for _, msg := range bot.sent {
		if msg.ChatID != 42 || msg.ParseMode != tgbotapi.ModeHTML {
			t.Fatalf("неожиданные параметры сообщения: %+v", msg)
		}
		if len([]rune(msg.Text)) > MessageLimit {
			t.Fatalf("часть превышает лимит")
		}
	}
}

func TestNotifierReturnsSendError(t *testing.T) {
	bot := &fakeSender{err: errors.New("chat not found")}
	n := newNotifier(bot, 42, zerolog.Nop())
	summary := domain.RunSummary{Results: []domain.RunResult{{PostID: uuid.New(), Error: "boom"}}}
	if err := n.NotifyRun(context.Background(), domain.ActionProcessAll, summary); err == nil {
		t.Fatalf("ожидали ошибку отправки")
	}
}

func TestNewNotifierDisabledWithoutConfig(t *testing.T) {
	n, err := NewNotifier("", 0, zerolog.Nop())
	if err != nil || n != nil {
		t.Fatalf("без токена уведомитель выключен, получили %v, %v", n, err)
	}
}
