package config

import (
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("FACEBOOK_PAGE_ID", "123")
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if cfg.Runner.BatchSize != 10 {
		t.Fatalf("ожидали размер пачки 10, получили %d", cfg.Runner.BatchSize)
	}
	if cfg.Runner.Schedule != "@every 30m" {
		t.Fatalf("неожиданное расписание: %s", cfg.Runner.Schedule)
	}
	if cfg.Runner.LockEnabled {
		t.Fatalf("блокировка запусков должна быть выключена по умолчанию")
	}
	if cfg.Runner.LockTTL != 10*time.Minute {
		t.Fatalf("неожиданный TTL блокировки: %v", cfg.Runner.LockTTL)
	}
	if cfg.OpenAI.APIKey != "sk-test" || cfg.Facebook.PageID != "123" {
		t.Fatalf("секреты не прочитаны из окружения")
	}
	if cfg.Instagram.PlaceholderImageURL == "" {
		t.Fatalf("ожидали адрес заглушки для Instagram")
	}
}

func TestParseInvalidDuration(t *testing.T) {
	t.Setenv("RUN_LOCK_TTL", "ten minutes")
	if _, err := Parse(); err == nil {
		t.Fatalf("ожидали ошибку разбора длительности")
	}
}
