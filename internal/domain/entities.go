package domain

import (
	"time"

	"github.com/google/uuid"
)

// Plan описывает недельный план публикаций (weekly_posting_plans).
type Plan struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      time.Time  `json:"end_date"`
	PostsPerDay  int        `json:"posts_per_day"`
	AutoGenerate bool       `json:"auto_generate"`
	Status       PlanStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Expired сообщает, что дата окончания плана уже прошла.
// Дата окончания включительная: план действует до конца этого дня по UTC.
func (p Plan) Expired(now time.Time) bool {
	end := p.EndDate.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	return !now.UTC().Before(end)
}

// EffectiveStatus возвращает статус с учётом истечения срока плана.
func (p Plan) EffectiveStatus(now time.Time) PlanStatus {
	if p.Status == PlanActive && p.Expired(now) {
		return PlanCompleted
	}
	return p.Status
}

// Product — снимок товара магазина, привязанного к посту.
type Product struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Price    float64   `json:"price"`
	ImageURL string    `json:"image_url,omitempty"`
}

// Post описывает запланированную публикацию (weekly_plan_posts).
type Post struct {
	ID               uuid.UUID  `json:"id"`
	PlanID           uuid.UUID  `json:"plan_id"`
	ProductID        *uuid.UUID `json:"product_id,omitempty"`
	Product          *Product   `json:"product,omitempty"`
	Platform         Platform   `json:"platform"`
	PostType         PostType   `json:"post_type"`
	ScheduledFor     time.Time  `json:"scheduled_for"`
	Status           PostStatus `json:"status"`
	GeneratedContent *string    `json:"generated_content,omitempty"`
	BannerURL        *string    `json:"banner_url,omitempty"`
	ErrorMessage     *string    `json:"error_message,omitempty"`
	ExternalPostID   *string    `json:"external_post_id,omitempty"`
	PostedAt         *time.Time `json:"posted_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// HasContent сообщает, что у поста уже есть сгенерированный текст.
func (p Post) HasContent() bool {
	return p.GeneratedContent != nil && *p.GeneratedContent != ""
}

// Content — результат генерации текста для поста.
type Content struct {
	Text      string
	BannerURL *string
}

// PublishRequest содержит всё, что нужно площадке для публикации.
type PublishRequest struct {
	PostID    uuid.UUID
	Platform  Platform
	Text      string
	ProductID *uuid.UUID
	Link      string
}

// PublishResult описывает исход публикации.
type PublishResult struct {
	Success    bool
	ExternalID string
	ErrorBody  string
}

// RunResult — итог обработки одного поста в рамках запуска.
type RunResult struct {
	PostID   uuid.UUID  `json:"post_id"`
	Status   PostStatus `json:"status"`
	Platform Platform   `json:"platform"`
	Success  bool       `json:"success"`
	Error    string     `json:"error,omitempty"`
}

// RunSummary возвращается вызывающей стороне без изменений.
type RunSummary struct {
	Success   bool        `json:"success"`
	Processed int         `json:"processed"`
	Results   []RunResult `json:"results"`
}

// Failed возвращает только неуспешные результаты.
func (s RunSummary) Failed() []RunResult {
	var out []RunResult
	for _, r := range s.Results {
		if !r.Success {
			out = append(out, r)
		}
	}
	return out
}

// PlanStats — количество постов плана по статусам.
type PlanStats map[PostStatus]int
