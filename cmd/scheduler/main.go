package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"superloja-social/internal/app"
	"superloja-social/internal/domain"
	"superloja-social/internal/infra/config"
	applog "superloja-social/internal/infra/log"
	"superloja-social/internal/infra/metrics"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)
	log.Logger = logger

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler: не удалось собрать приложение")
	}
	defer application.Close()

	metrics.StartServer(ctx, applog.Component(logger, "metrics"), cfg.MetricsAddr)

	action := domain.ParseRunAction(cfg.Runner.Action)
	cronLogger := cronLog{logger: applog.Component(logger, "cron")}
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))
	if _, err := c.AddFunc(cfg.Runner.Schedule, func() {
		summary, err := application.Runner.Run(ctx, action)
		if err != nil {
			log.Error().Err(err).Msg("scheduler: запуск не выполнен")
			return
		}
		log.Info().Int("processed", summary.Processed).Int("failed", len(summary.Failed())).Msg("scheduler: запуск выполнен")
	}); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Runner.Schedule).Msg("scheduler: неверное расписание")
	}

	c.Start()
	log.Info().Str("schedule", cfg.Runner.Schedule).Str("action", string(action)).Msg("scheduler: старт")
	<-ctx.Done()
	log.Info().Msg("scheduler: остановка")
	<-c.Stop().Done()
}
