package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"superloja-social/internal/adapters/httpapi"
	"superloja-social/internal/app"
	"superloja-social/internal/infra/config"
	httpinfra "superloja-social/internal/infra/http"
	applog "superloja-social/internal/infra/log"
	"superloja-social/internal/infra/metrics"
)

const requestTimeout = 5 * time.Minute

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)
	log.Logger = logger

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("api: не удалось собрать приложение")
	}
	defer application.Close()

	server := httpinfra.NewServer(applog.Component(logger, "http"), requestTimeout)
	httpapi.NewHandler(application.Runner, application.Plans, applog.Component(logger, "httpapi")).Mount(server.Router, cfg.AdminToken)
	if cfg.AdminToken == "" {
		log.Warn().Msg("api: ADMIN_API_TOKEN не задан, маршруты открыты")
	}

	go func() {
		if err := server.Start(fmt.Sprintf(":%d", cfg.Port), requestTimeout+30*time.Second); err != nil {
			log.Error().Err(err).Msg("api: сервер остановлен")
			stop()
		}
	}()
	<-ctx.Done()
	log.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
