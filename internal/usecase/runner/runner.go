package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"superloja-social/internal/domain"
	"superloja-social/internal/infra/metrics"
)

const (
	// DefaultBatchSize — сколько постов обрабатывается за один запуск.
	DefaultBatchSize = 10
	// LockKey — ключ блокировки запуска.
	LockKey = "superloja:weekly-plans:run"

	errContentGeneration = "content generation failed"
)

// Runner обрабатывает посты, срок которых наступил.
type Runner struct {
	posts     domain.PostRepo
	generator domain.ContentGenerator
	publisher domain.Publisher
	locker    domain.RunLocker
	notifier  domain.RunNotifier
	batchSize int
	lockTTL   time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// Option настраивает раннер.
type Option func(*Runner)

// WithBatchSize меняет размер пачки.
func WithBatchSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithLocker включает блокировку запусков.
func WithLocker(locker domain.RunLocker, ttl time.Duration) Option {
	return func(r *Runner) {
		r.locker = locker
		if ttl > 0 {
			r.lockTTL = ttl
		}
	}
}

// WithNotifier подключает отчёт о запуске.
func WithNotifier(n domain.RunNotifier) Option {
	return func(r *Runner) { r.notifier = n }
}

// WithClock подменяет часы.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// New создаёт раннер.
func New(posts domain.PostRepo, generator domain.ContentGenerator, publisher domain.Publisher, logger zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{
		posts:     posts,
		generator: generator,
		publisher: publisher,
		batchSize: DefaultBatchSize,
		lockTTL:   10 * time.Minute,
		log:       logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run выбирает посты по действию и обрабатывает их по одному.
// Ошибка возвращается только если запуск не удалось начать.
func (r *Runner) Run(ctx context.Context, action domain.RunAction) (domain.RunSummary, error) {
	start := time.Now()
	action = domain.ParseRunAction(string(action))
	logger := r.log.With().Str("action", string(action)).Logger()

	if r.locker != nil {
		acquired, err := r.locker.Acquire(ctx, LockKey, r.lockTTL)
		if err != nil {
			metrics.ObserveRun(string(action), "error", start)
			return domain.RunSummary{}, fmt.Errorf("блокировка запуска: %w", err)
		}
		if !acquired {
			metrics.ObserveRun(string(action), "locked", start)
			return domain.RunSummary{}, domain.ErrRunInProgress
		}
		defer func() {
			if err := r.locker.Release(context.WithoutCancel(ctx), LockKey); err != nil {
				logger.Warn().Err(err).Msg("не удалось снять блокировку запуска")
			}
		}()
	}

	due, err := r.posts.ListDue(ctx, action.Statuses(), r.now(), r.batchSize)
	if err != nil {
		metrics.ObserveRun(string(action), "error", start)
		return domain.RunSummary{}, fmt.Errorf("выборка постов: %w", err)
	}
	logger.Info().Int("due", len(due)).Msg("раннер: начало обработки")

	summary := domain.RunSummary{Success: true, Results: make([]domain.RunResult, 0, len(due))}
	for _, post := range due {
		res := r.processSafe(ctx, logger, action, post)
		metrics.ObservePost(string(res.Platform), string(res.Status))
		summary.Results = append(summary.Results, res)
	}
	summary.Processed = len(summary.Results)

	failed := len(summary.Failed())
	outcome := "ok"
	if failed > 0 {
		outcome = "partial"
	}
	metrics.ObserveRun(string(action), outcome, start)
	logger.Info().Int("processed", summary.Processed).Int("failed", failed).Dur("took", time.Since(start)).Msg("раннер: обработка завершена")

	if r.notifier != nil {
		if err := r.notifier.NotifyRun(ctx, action, summary); err != nil {
			logger.Warn().Err(err).Msg("не удалось отправить отчёт о запуске")
		}
	}
	return summary, nil
}

// processSafe изолирует пост: любая ошибка или паника помечает только его.
func (r *Runner) processSafe(ctx context.Context, logger zerolog.Logger, action domain.RunAction, post domain.Post) (res domain.RunResult) {
	logger = logger.With().Str("post_id", post.ID.String()).Str("platform", string(post.Platform)).Logger()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Interface("panic", rec).Msg("паника при обработке поста")
			res = r.fail(ctx, logger, post, fmt.Sprintf("panic: %v", rec))
		}
	}()

	res, err := r.process(ctx, logger, action, post)
	if err != nil {
		logger.Error().Err(err).Msg("ошибка обработки поста")
		return r.fail(ctx, logger, post, err.Error())
	}
	return res
}

func (r *Runner) process(ctx context.Context, logger zerolog.Logger, action domain.RunAction, post domain.Post) (domain.RunResult, error) {
	var content string
	switch {
	case action.Generates() && (!post.HasContent() || post.Status == domain.PostPending):
		generated, err := r.generator.Generate(ctx, post)
		if err != nil {
			return domain.RunResult{}, err
		}
		if generated != nil && generated.Text != "" {
			if err := r.posts.MarkGenerated(context.WithoutCancel(ctx), post.ID, generated.Text, generated.BannerURL); err != nil {
				return domain.RunResult{}, fmt.Errorf("сохранение текста: %w", err)
			}
			content = generated.Text
			logger.Debug().Msg("текст сгенерирован")
		}
	case post.Status == domain.PostGenerated && post.HasContent():
		content = *post.GeneratedContent
	}

	if content == "" {
		return r.fail(ctx, logger, post, errContentGeneration), nil
	}
	if !action.Publishes() {
		return domain.RunResult{PostID: post.ID, Status: domain.PostGenerated, Platform: post.Platform, Success: true}, nil
	}

	result, err := r.publisher.Publish(ctx, domain.PublishRequest{
		PostID:    post.ID,
		Platform:  post.Platform,
		Text:      content,
		ProductID: post.ProductID,
	})
	if err == nil && !result.Success {
		err = errors.New("publish failed: " + result.ErrorBody)
	}
	if err != nil {
		return domain.RunResult{}, err
	}
	// Пост уже принят площадкой: статус сохраняется даже после отмены запроса.
	if err := r.posts.MarkPosted(context.WithoutCancel(ctx), post.ID, result.ExternalID, r.now().UTC()); err != nil {
		return domain.RunResult{}, fmt.Errorf("сохранение публикации: %w", err)
	}
	return domain.RunResult{PostID: post.ID, Status: domain.PostPosted, Platform: post.Platform, Success: true}, nil
}

// fail сохраняет статус failed. Сгенерированный текст не трогается.
func (r *Runner) fail(ctx context.Context, logger zerolog.Logger, post domain.Post, message string) domain.RunResult {
	if err := r.posts.MarkFailed(context.WithoutCancel(ctx), post.ID, message); err != nil {
		logger.Error().Err(err).Msg("не удалось сохранить статус failed")
	}
	return domain.RunResult{PostID: post.ID, Status: domain.PostFailed, Platform: post.Platform, Success: false, Error: message}
}
