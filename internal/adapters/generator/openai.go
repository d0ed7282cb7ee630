package generator

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"superloja-social/internal/domain"
	openai "superloja-social/internal/infra/openai"
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Options задаёт параметры генерации.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// OpenAI реализует domain.ContentGenerator через Chat Completions.
type OpenAI struct {
	client chatClient
	opts   Options
	log    zerolog.Logger
}

var _ domain.ContentGenerator = (*OpenAI)(nil)

// NewOpenAI создаёт генератор.
func NewOpenAI(client chatClient, opts Options, logger zerolog.Logger) *OpenAI {
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 500
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &OpenAI{client: client, opts: opts, log: logger}
}

// Generate готовит текст поста за одну попытку.
// Любая ошибка провайдера или отсутствие ключа дают nil без ошибки.
func (g *OpenAI) Generate(ctx context.Context, post domain.Post) (*domain.Content, error) {
	logger := g.log.With().Str("post_id", post.ID.String()).Str("post_type", string(post.PostType)).Logger()
	if g.client == nil {
		logger.Warn().Msg("генератор: клиент LLM не настроен")
		return nil, nil
	}
	prompt := BuildPrompt(ContextFromPost(post))

	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.opts.Model,
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
		Messages: []openai.ChatMessage{
			{Role: openai.RoleSystem, Content: prompt.System()},
			{Role: openai.RoleUser, Content: prompt.User()},
		},
	})
	if err != nil {
		if errors.Is(err, openai.ErrMissingAPIKey) {
			logger.Warn().Msg("генератор: ключ OpenAI не задан")
		} else {
			logger.Error().Err(err).Msg("генератор: ошибка запроса к LLM")
		}
		return nil, nil
	}
	text := resp.FirstContent()
	if text == "" {
		logger.Warn().Msg("генератор: пустой ответ LLM")
		return nil, nil
	}
	// баннер рисуется на клиенте, здесь всегда nil
	return &domain.Content{Text: text}, nil
}
