package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"superloja-social/internal/domain"
)

// Client — площадка, умеющая опубликовать текст.
type Client interface {
	Platform() domain.Platform
	Post(ctx context.Context, text, imageURL, link string) (string, error)
}

type imageSelector interface {
	ImageURL(imageURL string) string
}

// Registry реализует domain.Publisher и выбирает клиента по площадке.
type Registry struct {
	clients  map[domain.Platform]Client
	limiters map[domain.Platform]*rate.Limiter
	products domain.ProductRepo
	history  domain.HistoryRepo
	link     string
	log      zerolog.Logger
	now      func() time.Time
}

var _ domain.Publisher = (*Registry)(nil)

// RegistryOption настраивает реестр.
type RegistryOption func(*Registry)

// WithRateLimit ограничивает частоту публикаций на каждой площадке.
func WithRateLimit(rps float64) RegistryOption {
	return func(r *Registry) {
		if rps <= 0 {
			return
		}
		for platform := range r.clients {
			r.limiters[platform] = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithDefaultLink задаёт ссылку для постов Facebook, если в запросе её нет.
func WithDefaultLink(link string) RegistryOption {
	return func(r *Registry) { r.link = link }
}

// WithClock подменяет часы, например в тестах.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry собирает реестр площадок.
func NewRegistry(products domain.ProductRepo, history domain.HistoryRepo, logger zerolog.Logger, clients []Client, opts ...RegistryOption) *Registry {
	r := &Registry{
		clients:  make(map[domain.Platform]Client, len(clients)),
		limiters: make(map[domain.Platform]*rate.Limiter, len(clients)),
		products: products,
		history:  history,
		log:      logger,
		now:      time.Now,
	}
	for _, c := range clients {
		r.clients[c.Platform()] = c
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Publish публикует текст и пишет попытку в журнал.
func (r *Registry) Publish(ctx context.Context, req domain.PublishRequest) (domain.PublishResult, error) {
	client, ok := r.clients[req.Platform]
	if !ok {
		return domain.PublishResult{}, fmt.Errorf("unsupported platform: %q", req.Platform)
	}
	logger := r.log.With().Str("post_id", req.PostID.String()).Str("platform", string(req.Platform)).Logger()

	imageURL := r.productImage(ctx, logger, req.ProductID)
	if sel, ok := client.(imageSelector); ok {
		imageURL = sel.ImageURL(imageURL)
	}
	link := req.Link
	if link == "" && req.Platform == domain.PlatformFacebook {
		link = r.link
	}

	if lim, ok := r.limiters[req.Platform]; ok {
		if err := lim.Wait(ctx); err != nil {
			return domain.PublishResult{}, fmt.Errorf("%s: rate limit wait: %w", req.Platform, err)
		}
	}

	externalID, err := client.Post(ctx, req.Text, imageURL, link)
	result := domain.PublishResult{Success: err == nil, ExternalID: externalID}
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			result.ErrorBody = apiErr.Body
		} else {
			result.ErrorBody = err.Error()
		}
		logger.Warn().Err(err).Msg("публикация не удалась")
	} else {
		logger.Info().Str("external_post_id", externalID).Msg("пост опубликован")
	}
	r.record(ctx, logger, req, imageURL, result)
	return result, err
}

// productImage возвращает пустую строку, если картинки нет или товар не найден.
func (r *Registry) productImage(ctx context.Context, logger zerolog.Logger, productID *uuid.UUID) string {
	if productID == nil || r.products == nil {
		return ""
	}
	image, err := r.products.GetProductImage(ctx, *productID)
	if err != nil {
		if !errors.Is(err, domain.ErrProductNotFound) {
			logger.Warn().Err(err).Str("product_id", productID.String()).Msg("не удалось получить картинку товара")
		}
		return ""
	}
	return image
}

func (r *Registry) record(ctx context.Context, logger zerolog.Logger, req domain.PublishRequest, imageURL string, result domain.PublishResult) {
	if r.history == nil {
		return
	}
	entry := domain.HistoryEntry{
		ID:             uuid.New(),
		PostID:         req.PostID,
		Platform:       req.Platform,
		Content:        req.Text,
		ImageURL:       imageURL,
		Success:        result.Success,
		ExternalPostID: result.ExternalID,
		ErrorMessage:   result.ErrorBody,
		AttemptedAt:    r.now().UTC(),
	}
	if req.ProductID != nil {
		entry.Metadata = map[string]any{"product_id": req.ProductID.String()}
	}
	// журнал вспомогательный, его сбой не меняет исход публикации
	if err := r.history.AppendHistory(ctx, entry); err != nil {
		logger.Error().Err(err).Msg("не удалось записать историю публикации")
	}
}
