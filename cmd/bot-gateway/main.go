package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"superloja-social/internal/adapters/bot"
	"superloja-social/internal/app"
	"superloja-social/internal/infra/config"
	httpinfra "superloja-social/internal/infra/http"
	applog "superloja-social/internal/infra/log"
	"superloja-social/internal/infra/metrics"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)
	log.Logger = logger

	if cfg.Telegram.Token == "" || cfg.Telegram.AlertChatID == 0 {
		log.Fatal().Msg("bot-gateway: нужны TG_BOT_TOKEN и TG_ALERT_CHAT_ID")
	}
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("bot-gateway: не удалось собрать приложение")
	}
	defer application.Close()

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.Fatal().Err(err).Msg("bot-gateway: не удалось создать бота")
	}
	h := bot.NewHandler(botAPI, applog.Component(logger, "bot"), application.Runner, application.Plans, cfg.Telegram.AlertChatID)

	server := httpinfra.NewServer(applog.Component(logger, "http"), 5*time.Minute)
	server.Router.Post("/bot/webhook", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Telegram.WebhookSecret != "" {
			got := r.Header.Get("X-Telegram-Bot-Api-Secret-Token")
			if subtle.ConstantTimeCompare([]byte(got), []byte(cfg.Telegram.WebhookSecret)) != 1 {
				httpinfra.WriteError(w, http.StatusUnauthorized, "invalid webhook secret")
				return
			}
		}
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			httpinfra.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.HandleUpdate(r.Context(), update)
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := server.Start(fmt.Sprintf(":%d", cfg.Port), 6*time.Minute); err != nil {
			log.Error().Err(err).Msg("bot-gateway: сервер остановлен")
			stop()
		}
	}()
	<-ctx.Done()
	log.Info().Msg("bot-gateway: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	h.Wait()
}
