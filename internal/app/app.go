// Package app собирает зависимости раннера и сервиса планов из конфига.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"superloja-social/internal/adapters/generator"
	"superloja-social/internal/adapters/publisher"
	"superloja-social/internal/adapters/repo"
	"superloja-social/internal/adapters/telegram"
	"superloja-social/internal/infra/cache"
	"superloja-social/internal/infra/config"
	"superloja-social/internal/infra/db"
	applog "superloja-social/internal/infra/log"
	openai "superloja-social/internal/infra/openai"
	"superloja-social/internal/usecase/plans"
	"superloja-social/internal/usecase/runner"
)

// App — собранные сервисы и ресурсы, которые нужно закрыть.
type App struct {
	Runner *runner.Runner
	Plans  *plans.Service

	pool  *pgxpool.Pool
	redis *redis.Client
}

// Build подключается к БД и собирает раннер.
func Build(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (*App, error) {
	if cfg.PGDSN == "" {
		return nil, errors.New("PG_DSN не задан")
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(cfg.PGDSN); err != nil {
			return nil, fmt.Errorf("миграции: %w", err)
		}
		logger.Info().Msg("миграции применены")
	}
	pool, err := db.Connect(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return nil, fmt.Errorf("подключение к БД: %w", err)
	}
	a := &App{pool: pool}
	store := repo.NewPostgres(pool)

	llm := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Timeout)
	if !llm.Configured() {
		logger.Warn().Msg("OPENAI_API_KEY не задан: генерация текста будет пропускаться")
	}
	gen := generator.NewOpenAI(llm, generator.Options{
		Model:       cfg.OpenAI.Model,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Temperature: cfg.OpenAI.Temperature,
		Timeout:     cfg.OpenAI.Timeout,
	}, applog.Component(logger, "generator"))

	graph := publisher.GraphOptions{BaseURL: cfg.Graph.BaseURL, Version: cfg.Graph.Version, Timeout: cfg.Graph.Timeout}
	pub := publisher.NewRegistry(store, store, applog.Component(logger, "publisher"),
		[]publisher.Client{
			publisher.NewFacebook(graph, cfg.Facebook.PageID, cfg.Facebook.PageToken),
			publisher.NewInstagram(graph, cfg.Instagram.BusinessID, cfg.Instagram.AccessToken, cfg.Instagram.PlaceholderImageURL),
		},
		publisher.WithRateLimit(cfg.Graph.RPS),
		publisher.WithDefaultLink(cfg.Facebook.Link),
	)

	opts := []runner.Option{runner.WithBatchSize(cfg.Runner.BatchSize)}
	if cfg.Runner.LockEnabled {
		if cfg.RedisAddr == "" {
			a.Close()
			return nil, errors.New("RUN_LOCK_ENABLED требует REDIS_ADDR")
		}
		rdb, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("подключение к redis: %w", err)
		}
		a.redis = rdb
		opts = append(opts, runner.WithLocker(cache.NewRedisLocker(rdb), cfg.Runner.LockTTL))
	}
	notifier, err := telegram.NewNotifier(cfg.Telegram.Token, cfg.Telegram.AlertChatID, applog.Component(logger, "notifier"))
	if err != nil {
		logger.Warn().Err(err).Msg("уведомления в Telegram отключены")
	} else if notifier != nil {
		opts = append(opts, runner.WithNotifier(notifier))
	}

	a.Runner = runner.New(store, gen, pub, applog.Component(logger, "runner"), opts...)
	a.Plans = plans.NewService(store, store, applog.Component(logger, "plans"))
	return a, nil
}

// Close освобождает соединения.
func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
