package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"superloja-social/internal/adapters/telegram"
	"superloja-social/internal/domain"
	"superloja-social/internal/infra/metrics"
	"superloja-social/internal/usecase/plans"
)

// Runner запускает обработку постов.
type Runner interface {
	Run(ctx context.Context, action domain.RunAction) (domain.RunSummary, error)
}

// Plans — команды панели, доступные из чата.
type Plans interface {
	List(ctx context.Context) ([]domain.Plan, error)
	Get(ctx context.Context, id uuid.UUID) (plans.PlanDetails, error)
	Pause(ctx context.Context, id uuid.UUID) (domain.Plan, error)
	Resume(ctx context.Context, id uuid.UUID) (domain.Plan, error)
	RetryPost(ctx context.Context, id uuid.UUID) (domain.Post, error)
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Handler обслуживает вебхук служебного бота. Команды принимаются
// только из чата администраторов.
type Handler struct {
	bot         sender
	log         zerolog.Logger
	runner      Runner
	plans       Plans
	adminChatID int64

	mu         sync.Mutex
	lastUpdate int
	running    bool
	runs       sync.WaitGroup
}

// NewHandler создаёт обработчик.
func NewHandler(bot sender, log zerolog.Logger, runner Runner, plans Plans, adminChatID int64) *Handler {
	return &Handler{bot: bot, log: log, runner: runner, plans: plans, adminChatID: adminChatID}
}

// HandleUpdate обрабатывает входящий апдейт.
// Повторно доставленные Telegram апдейты пропускаются по update_id.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if h.duplicate(upd.UpdateID) {
		h.log.Debug().Int("update_id", upd.UpdateID).Msg("повторный апдейт пропущен")
		return
	}
	if upd.Message != nil {
		if !h.allowed(upd.Message.Chat.ID) {
			h.log.Warn().Int64("chat_id", upd.Message.Chat.ID).Msg("команда из чужого чата")
			return
		}
		h.handleMessage(ctx, upd.Message)
	} else if upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil {
		if !h.allowed(upd.CallbackQuery.Message.Chat.ID) {
			return
		}
		h.handleCallback(ctx, upd.CallbackQuery)
	}
}

// Wait ждёт завершения запусков, начатых из чата.
func (h *Handler) Wait() {
	h.runs.Wait()
}

func (h *Handler) duplicate(updateID int) bool {
	if updateID <= 0 {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if updateID <= h.lastUpdate {
		return true
	}
	h.lastUpdate = updateID
	return false
}

func (h *Handler) allowed(chatID int64) bool {
	return h.adminChatID != 0 && chatID == h.adminChatID
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	command := msg.Command()
	arg := strings.TrimSpace(msg.CommandArguments())
	switch command {
	case "start", "help":
		h.reply(chatID, helpMessage, runKeyboard())
	case "run":
		h.handleRun(ctx, chatID, domain.ParseRunAction(arg))
	case "plans":
		h.handleList(ctx, chatID)
	case "plan":
		h.withID(chatID, arg, "/plan <id>", func(id uuid.UUID) { h.handlePlan(ctx, chatID, id) })
	case "pause":
		h.withID(chatID, arg, "/pause <id>", func(id uuid.UUID) { h.handlePlanCommand(ctx, chatID, id, h.plans.Pause) })
	case "resume":
		h.withID(chatID, arg, "/resume <id>", func(id uuid.UUID) { h.handlePlanCommand(ctx, chatID, id, h.plans.Resume) })
	case "retry":
		h.withID(chatID, arg, "/retry <post-id>", func(id uuid.UUID) { h.handleRetry(ctx, chatID, id) })
	default:
		h.reply(chatID, "Неизвестная команда. Используйте /help", nil)
	}
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	kind, payload, _ := strings.Cut(cb.Data, ":")
	switch kind {
	case "run":
		h.handleRun(ctx, chatID, domain.ParseRunAction(payload))
	case "pause", "resume":
		id, err := uuid.Parse(payload)
		if err != nil {
			return
		}
		cmd := h.plans.Pause
		if kind == "resume" {
			cmd = h.plans.Resume
		}
		h.handlePlanCommand(ctx, chatID, id, cmd)
	}
	if _, err := h.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		h.log.Warn().Err(err).Msg("не удалось ответить на callback")
	}
}

const helpMessage = `<b>SuperLoja: публикации</b>
/run [generate_only|post_generated] — запустить обработку
/plans — список планов
/plan &lt;id&gt; — статистика плана
/pause &lt;id&gt;, /resume &lt;id&gt; — пауза и возобновление
/retry &lt;post-id&gt; — вернуть упавший пост в очередь`

// handleRun запускает обработку в фоне и сразу отвечает в чат.
// Итог приходит отдельным сообщением.
func (h *Handler) handleRun(ctx context.Context, chatID int64, action domain.RunAction) {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		h.reply(chatID, "Запуск уже выполняется, попробуйте позже", nil)
		return
	}
	h.running = true
	h.runs.Add(1)
	h.mu.Unlock()

	h.reply(chatID, fmt.Sprintf("⏳ <code>%s</code>: запуск начат", action), nil)
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			h.mu.Lock()
			h.running = false
			h.mu.Unlock()
			h.runs.Done()
		}()
		h.runAndReport(runCtx, chatID, action)
	}()
}

func (h *Handler) runAndReport(ctx context.Context, chatID int64, action domain.RunAction) {
	summary, err := h.runner.Run(ctx, action)
	if err != nil {
		if errors.Is(err, domain.ErrRunInProgress) {
			h.reply(chatID, "Запуск уже выполняется, попробуйте позже", nil)
			return
		}
		h.log.Error().Err(err).Str("action", string(action)).Msg("запуск из бота не выполнен")
		h.reply(chatID, "Ошибка запуска: "+html.EscapeString(err.Error()), nil)
		return
	}
	text := fmt.Sprintf("✅ <code>%s</code>: обработано %d, с ошибкой %d", action, summary.Processed, len(summary.Failed()))
	if report := telegram.FormatRunReport(action, summary); report != "" {
		text += "\n\n" + report
	}
	h.reply(chatID, text, nil)
}

func (h *Handler) handleList(ctx context.Context, chatID int64) {
	list, err := h.plans.List(ctx)
	if err != nil {
		h.reply(chatID, "Ошибка: "+html.EscapeString(err.Error()), nil)
		return
	}
	if len(list) == 0 {
		h.reply(chatID, "Планов пока нет", nil)
		return
	}
	var b strings.Builder
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(list))
	for i, p := range list {
		fmt.Fprintf(&b, "%d. <b>%s</b> [%s] %s – %s\n<code>%s</code>\n", i+1, html.EscapeString(p.Name), p.Status,
			p.StartDate.Format(time.DateOnly), p.EndDate.Format(time.DateOnly), p.ID)
		switch p.Status {
		case domain.PlanActive:
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⏸ "+p.Name, "pause:"+p.ID.String())))
		case domain.PlanPaused:
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("▶️ "+p.Name, "resume:"+p.ID.String())))
		}
	}
	var markup *tgbotapi.InlineKeyboardMarkup
	if len(rows) > 0 {
		m := tgbotapi.NewInlineKeyboardMarkup(rows...)
		markup = &m
	}
	h.reply(chatID, b.String(), markup)
}

func (h *Handler) handlePlan(ctx context.Context, chatID int64, id uuid.UUID) {
	details, err := h.plans.Get(ctx, id)
	if err != nil {
		h.replyErr(chatID, err)
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b> [%s]\n", html.EscapeString(details.Name), details.Status)
	for _, st := range []domain.PostStatus{domain.PostPending, domain.PostGenerated, domain.PostPosted, domain.PostFailed} {
		fmt.Fprintf(&b, "%s: %d\n", st, details.Stats[st])
	}
	h.reply(chatID, b.String(), nil)
}

func (h *Handler) handlePlanCommand(ctx context.Context, chatID int64, id uuid.UUID, cmd func(context.Context, uuid.UUID) (domain.Plan, error)) {
	plan, err := cmd(ctx, id)
	if err != nil {
		h.replyErr(chatID, err)
		return
	}
	h.reply(chatID, fmt.Sprintf("План <b>%s</b> теперь %s", html.EscapeString(plan.Name), plan.Status), nil)
}

func (h *Handler) handleRetry(ctx context.Context, chatID int64, id uuid.UUID) {
	post, err := h.plans.RetryPost(ctx, id)
	if err != nil {
		h.replyErr(chatID, err)
		return
	}
	h.reply(chatID, fmt.Sprintf("Пост <code>%s</code> возвращён в статус %s", post.ID, post.Status), nil)
}

func (h *Handler) withID(chatID int64, arg, usage string, fn func(uuid.UUID)) {
	id, err := uuid.Parse(arg)
	if err != nil {
		h.reply(chatID, "Использование: "+html.EscapeString(usage), nil)
		return
	}
	fn(id)
}

func (h *Handler) replyErr(chatID int64, err error) {
	switch {
	case errors.Is(err, domain.ErrPlanNotFound):
		h.reply(chatID, "План не найден", nil)
	case errors.Is(err, domain.ErrPostNotFound):
		h.reply(chatID, "Пост не найден", nil)
	case errors.Is(err, plans.ErrPlanExpired):
		h.reply(chatID, "Срок плана истёк, возобновить нельзя", nil)
	case errors.Is(err, plans.ErrInvalidTransition):
		h.reply(chatID, "Недопустимая смена статуса: "+html.EscapeString(err.Error()), nil)
	default:
		h.log.Error().Err(err).Msg("команда бота не выполнена")
		h.reply(chatID, "Ошибка: "+html.EscapeString(err.Error()), nil)
	}
}

func runKeyboard() *tgbotapi.InlineKeyboardMarkup {
	buttons := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚀 Обработать всё", "run:"+string(domain.ActionProcessAll)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✍️ Только генерация", "run:"+string(domain.ActionGenerateOnly)),
			tgbotapi.NewInlineKeyboardButtonData("📤 Только публикация", "run:"+string(domain.ActionPostGenerated)),
		),
	)
	return &buttons
}

func (h *Handler) reply(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	parts := telegram.SplitMessage(text, telegram.MessageLimit)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		if i == len(parts)-1 && keyboard != nil {
			msg.ReplyMarkup = keyboard
		}
		start := time.Now()
		_, err := h.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			h.log.Error().Err(err).Msg("не удалось отправить сообщение")
			return
		}
	}
}
