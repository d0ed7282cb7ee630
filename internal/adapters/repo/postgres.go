package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"superloja-social/internal/domain"
	"superloja-social/internal/infra/metrics"
)

// Postgres реализует репозитории планов, постов, товаров и журнала на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.PlanRepo    = (*Postgres)(nil)
	_ domain.PostRepo    = (*Postgres)(nil)
	_ domain.ProductRepo = (*Postgres)(nil)
	_ domain.HistoryRepo = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

const postColumns = `
p.id, p.plan_id, p.product_id, p.platform, p.post_type, p.scheduled_for, p.status,
p.generated_content, p.banner_url, p.error_message, p.external_post_id, p.posted_at,
p.created_at, p.updated_at,
pr.id, pr.name, pr.price, pr.image_url`

// dueQuery строит выборку постов к обработке.
// Пост считается due, если scheduled_for <= now и его план активен и не истёк.
func dueQuery(statuses []domain.PostStatus, now time.Time, limit int) (string, []any) {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	query := `
SELECT` + postColumns + `
FROM weekly_plan_posts p
JOIN weekly_posting_plans w ON w.id = p.plan_id
LEFT JOIN products pr ON pr.id = p.product_id
WHERE p.status = ANY($1)
  AND p.scheduled_for <= $2
  AND w.status = 'active'
  AND w.end_date >= ($2::timestamptz AT TIME ZONE 'UTC')::date
ORDER BY p.scheduled_for ASC
LIMIT $3`
	return query, []any{values, now.UTC(), limit}
}

// ListDue реализует domain.PostRepo.
func (p *Postgres) ListDue(ctx context.Context, statuses []domain.PostStatus, now time.Time, limit int) ([]domain.Post, error) {
	if len(statuses) == 0 || limit <= 0 {
		return nil, nil
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	query, args := dueQuery(statuses, now, limit)
	start := time.Now()
	rows, err := p.pool.Query(ctx, query, args...)
	metrics.ObserveNetworkRequest("postgres", "posts_list_due", "weekly_plan_posts", start, err)
	if err != nil {
		return nil, fmt.Errorf("выборка постов к обработке: %w", err)
	}
	return collectPosts(rows)
}

// GetPost возвращает пост по идентификатору.
func (p *Postgres) GetPost(ctx context.Context, id uuid.UUID) (domain.Post, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
SELECT`+postColumns+`
FROM weekly_plan_posts p
LEFT JOIN products pr ON pr.id = p.product_id
WHERE p.id = $1`, id)
	post, err := scanPost(row)
	metrics.ObserveNetworkRequest("postgres", "posts_get", "weekly_plan_posts", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Post{}, domain.ErrPostNotFound
	}
	return post, err
}

// ListPlanPosts возвращает посты плана по времени публикации.
func (p *Postgres) ListPlanPosts(ctx context.Context, planID uuid.UUID) ([]domain.Post, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT`+postColumns+`
FROM weekly_plan_posts p
LEFT JOIN products pr ON pr.id = p.product_id
WHERE p.plan_id = $1
ORDER BY p.scheduled_for ASC`, planID)
	metrics.ObserveNetworkRequest("postgres", "posts_list_by_plan", "weekly_plan_posts", start, err)
	if err != nil {
		return nil, err
	}
	return collectPosts(rows)
}

// MarkGenerated сохраняет сгенерированный текст и переводит пост в generated.
func (p *Postgres) MarkGenerated(ctx context.Context, id uuid.UUID, content string, bannerURL *string) error {
	return p.updatePost(ctx, "posts_mark_generated", `
UPDATE weekly_plan_posts
SET status = 'generated', generated_content = $2, banner_url = $3, error_message = NULL, updated_at = now()
WHERE id = $1`, id, content, bannerURL)
}

// MarkPosted переводит пост в posted.
func (p *Postgres) MarkPosted(ctx context.Context, id uuid.UUID, externalID string, at time.Time) error {
	var ext sql.NullString
	if externalID != "" {
		ext = sql.NullString{String: externalID, Valid: true}
	}
	return p.updatePost(ctx, "posts_mark_posted", `
UPDATE weekly_plan_posts
SET status = 'posted', external_post_id = $2, posted_at = $3, error_message = NULL, updated_at = now()
WHERE id = $1`, id, ext, at.UTC())
}

// MarkFailed переводит пост в failed. Сгенерированный текст не трогается.
func (p *Postgres) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	return p.updatePost(ctx, "posts_mark_failed", `
UPDATE weekly_plan_posts
SET status = 'failed', error_message = $2, updated_at = now()
WHERE id = $1`, id, message)
}

// ResetStatus возвращает пост в указанный статус и очищает ошибку.
func (p *Postgres) ResetStatus(ctx context.Context, id uuid.UUID, status domain.PostStatus) error {
	return p.updatePost(ctx, "posts_reset_status", `
UPDATE weekly_plan_posts
SET status = $2, error_message = NULL, updated_at = now()
WHERE id = $1`, id, string(status))
}

func (p *Postgres) updatePost(ctx context.Context, operation, query string, args ...any) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, query, args...)
	metrics.ObserveNetworkRequest("postgres", operation, "weekly_plan_posts", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

// GetProductImage возвращает адрес изображения товара. Пустая строка — изображения нет.
func (p *Postgres) GetProductImage(ctx context.Context, id uuid.UUID) (string, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var image sql.NullString
	start := time.Now()
	err := p.pool.QueryRow(ctx, `SELECT image_url FROM products WHERE id = $1`, id).Scan(&image)
	metrics.ObserveNetworkRequest("postgres", "products_get_image", "products", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrProductNotFound
	}
	if err != nil {
		return "", err
	}
	return image.String, nil
}

// AppendHistory добавляет запись в social_posts_history.
func (p *Postgres) AppendHistory(ctx context.Context, entry domain.HistoryEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.AttemptedAt.IsZero() {
		entry.AttemptedAt = time.Now().UTC()
	}
	var payload []byte
	if entry.Metadata != nil {
		if data, err := json.Marshal(entry.Metadata); err == nil {
			payload = data
		}
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO social_posts_history (id, post_id, platform, content, image_url, success, external_post_id, error_message, metadata, attempted_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10)
`, entry.ID, entry.PostID, string(entry.Platform), entry.Content, entry.ImageURL, entry.Success, entry.ExternalPostID, entry.ErrorMessage, payload, entry.AttemptedAt)
	metrics.ObserveNetworkRequest("postgres", "history_insert", "social_posts_history", start, err)
	return err
}

func collectPosts(rows pgx.Rows) ([]domain.Post, error) {
	defer rows.Close()
	var posts []domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// scanPost читает строку и проверяет перечисления до передачи в раннер.
func scanPost(row pgx.Row) (domain.Post, error) {
	var (
		post                           domain.Post
		productID                      uuid.NullUUID
		platform, postType, status     string
		content, banner, errMsg, extID sql.NullString
		postedAt                       sql.NullTime
		prID                           uuid.NullUUID
		prName, prImage                sql.NullString
		prPrice                        sql.NullFloat64
	)
	if err := row.Scan(
		&post.ID, &post.PlanID, &productID, &platform, &postType, &post.ScheduledFor, &status,
		&content, &banner, &errMsg, &extID, &postedAt,
		&post.CreatedAt, &post.UpdatedAt,
		&prID, &prName, &prPrice, &prImage,
	); err != nil {
		return domain.Post{}, err
	}
	var err error
	if post.Platform, err = domain.ParsePlatform(platform); err != nil {
		return domain.Post{}, fmt.Errorf("пост %s: %w", post.ID, err)
	}
	if post.PostType, err = domain.ParsePostType(postType); err != nil {
		return domain.Post{}, fmt.Errorf("пост %s: %w", post.ID, err)
	}
	if post.Status, err = domain.ParsePostStatus(status); err != nil {
		return domain.Post{}, fmt.Errorf("пост %s: %w", post.ID, err)
	}
	if productID.Valid {
		id := productID.UUID
		post.ProductID = &id
	}
	if prID.Valid {
		post.Product = &domain.Product{ID: prID.UUID, Name: prName.String, Price: prPrice.Float64, ImageURL: prImage.String}
	}
	post.GeneratedContent = nullString(content)
	post.BannerURL = nullString(banner)
	post.ErrorMessage = nullString(errMsg)
	post.ExternalPostID = nullString(extID)
	if postedAt.Valid {
		ts := postedAt.Time
		post.PostedAt = &ts
	}
	return post, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
