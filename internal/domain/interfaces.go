package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrPlanNotFound возвращается, когда план не найден.
	ErrPlanNotFound = errors.New("plan not found")
	// ErrPostNotFound возвращается, когда пост не найден.
	ErrPostNotFound = errors.New("post not found")
	// ErrProductNotFound возвращается, когда товар не найден.
	ErrProductNotFound = errors.New("product not found")
)

// PlanRepo управляет планами публикаций.
type PlanRepo interface {
	ListPlans(ctx context.Context) ([]Plan, error)
	GetPlan(ctx context.Context, id uuid.UUID) (Plan, error)
	SetPlanStatus(ctx context.Context, id uuid.UUID, status PlanStatus) error
	// CompleteExpiredPlan переводит план в completed, если он всё ещё active.
	CompleteExpiredPlan(ctx context.Context, id uuid.UUID) error
	PlanPostStats(ctx context.Context, id uuid.UUID) (PlanStats, error)
}

// PostRepo управляет постами плана.
type PostRepo interface {
	// ListDue возвращает не более limit постов с указанными статусами,
	// у которых scheduled_for <= now и план активен, старые первыми.
	ListDue(ctx context.Context, statuses []PostStatus, now time.Time, limit int) ([]Post, error)
	GetPost(ctx context.Context, id uuid.UUID) (Post, error)
	ListPlanPosts(ctx context.Context, planID uuid.UUID) ([]Post, error)
	MarkGenerated(ctx context.Context, id uuid.UUID, content string, bannerURL *string) error
	MarkPosted(ctx context.Context, id uuid.UUID, externalID string, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error
	// ResetStatus возвращает пост в указанный статус и очищает ошибку.
	ResetStatus(ctx context.Context, id uuid.UUID, status PostStatus) error
}

// ProductRepo отдаёт данные товаров магазина.
type ProductRepo interface {
	GetProductImage(ctx context.Context, id uuid.UUID) (string, error)
}

// HistoryRepo пишет журнал попыток публикации.
type HistoryRepo interface {
	AppendHistory(ctx context.Context, entry HistoryEntry) error
}

// ContentGenerator готовит маркетинговый текст для поста.
// Возвращает nil без ошибки, если текст получить не удалось.
type ContentGenerator interface {
	Generate(ctx context.Context, post Post) (*Content, error)
}

// Publisher публикует текст на площадке.
type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (PublishResult, error)
}
