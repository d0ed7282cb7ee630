package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
// Секреты читаются один раз при старте и передаются в конструкторы явно.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
	AdminToken  string `envconfig:"ADMIN_API_TOKEN"`

	PGDSN       string `envconfig:"PG_DSN"`
	PGMaxConns  int32  `envconfig:"PG_MAX_CONNS" default:"5"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	OpenAI struct {
		APIKey      string        `envconfig:"OPENAI_API_KEY"`
		BaseURL     string        `envconfig:"OPENAI_BASE_URL"`
		Model       string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
		Timeout     time.Duration `envconfig:"OPENAI_TIMEOUT" default:"60s"`
		MaxTokens   int           `envconfig:"OPENAI_MAX_TOKENS" default:"500"`
		Temperature float64       `envconfig:"OPENAI_TEMPERATURE" default:"0.8"`
	} `envconfig:""`

	Graph struct {
		BaseURL string        `envconfig:"GRAPH_API_URL" default:"https://graph.facebook.com"`
		Version string        `envconfig:"GRAPH_API_VERSION" default:"v18.0"`
		Timeout time.Duration `envconfig:"GRAPH_API_TIMEOUT" default:"30s"`
		RPS     float64       `envconfig:"PUBLISH_RPS" default:"1"`
	} `envconfig:""`

	Facebook struct {
		PageID    string `envconfig:"FACEBOOK_PAGE_ID"`
		PageToken string `envconfig:"FACEBOOK_PAGE_TOKEN"`
		Link      string `envconfig:"FACEBOOK_POST_LINK" default:"https://superloja.vip"`
	} `envconfig:""`

	Instagram struct {
		BusinessID          string `envconfig:"INSTAGRAM_BUSINESS_ID"`
		AccessToken         string `envconfig:"INSTAGRAM_ACCESS_TOKEN"`
		PlaceholderImageURL string `envconfig:"INSTAGRAM_PLACEHOLDER_IMAGE_URL" default:"https://superloja.vip/placeholder.svg"`
	} `envconfig:""`

	Runner struct {
		BatchSize   int           `envconfig:"RUNNER_BATCH_SIZE" default:"10"`
		Schedule    string        `envconfig:"RUNNER_SCHEDULE" default:"@every 30m"`
		Action      string        `envconfig:"RUNNER_ACTION" default:"process_all"`
		LockEnabled bool          `envconfig:"RUN_LOCK_ENABLED" default:"false"`
		LockTTL     time.Duration `envconfig:"RUN_LOCK_TTL" default:"10m"`
	} `envconfig:""`

	Telegram struct {
		Token         string `envconfig:"TG_BOT_TOKEN"`
		AlertChatID   int64  `envconfig:"TG_ALERT_CHAT_ID"`
		WebhookSecret string `envconfig:"TG_WEBHOOK_SECRET"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// Parse читает конфиг из окружения и возвращает ошибку вместо завершения процесса.
func Parse() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}
