package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"superloja-social/internal/domain"
	"superloja-social/internal/infra/metrics"
)

const planColumns = `id, name, description, start_date, end_date, posts_per_day, auto_generate, status, created_at, updated_at`

// ListPlans возвращает все планы, новые первыми.
func (p *Postgres) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT `+planColumns+` FROM weekly_posting_plans ORDER BY start_date DESC, created_at DESC`)
	metrics.ObserveNetworkRequest("postgres", "plans_list", "weekly_posting_plans", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var plans []domain.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

// GetPlan возвращает план по идентификатору.
func (p *Postgres) GetPlan(ctx context.Context, id uuid.UUID) (domain.Plan, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	plan, err := scanPlan(p.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM weekly_posting_plans WHERE id = $1`, id))
	metrics.ObserveNetworkRequest("postgres", "plans_get", "weekly_posting_plans", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Plan{}, domain.ErrPlanNotFound
	}
	return plan, err
}

// SetPlanStatus обновляет статус плана.
func (p *Postgres) SetPlanStatus(ctx context.Context, id uuid.UUID, status domain.PlanStatus) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `UPDATE weekly_posting_plans SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	metrics.ObserveNetworkRequest("postgres", "plans_set_status", "weekly_posting_plans", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}

// CompleteExpiredPlan переводит план в completed, только если он всё ещё active.
func (p *Postgres) CompleteExpiredPlan(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
UPDATE weekly_posting_plans
SET status = 'completed', updated_at = now()
WHERE id = $1 AND status = 'active' AND end_date < (now() AT TIME ZONE 'UTC')::date`, id)
	metrics.ObserveNetworkRequest("postgres", "plans_complete_expired", "weekly_posting_plans", start, err)
	return err
}

// PlanPostStats считает посты плана по статусам.
func (p *Postgres) PlanPostStats(ctx context.Context, id uuid.UUID) (domain.PlanStats, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT status, count(*) FROM weekly_plan_posts WHERE plan_id = $1 GROUP BY status`, id)
	metrics.ObserveNetworkRequest("postgres", "posts_stats", "weekly_plan_posts", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stats := domain.PlanStats{}
	for rows.Next() {
		var (
			raw   string
			count int
		)
		if err := rows.Scan(&raw, &count); err != nil {
			return nil, err
		}
		status, err := domain.ParsePostStatus(raw)
		if err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func scanPlan(row pgx.Row) (domain.Plan, error) {
	var (
		plan        domain.Plan
		description sql.NullString
		status      string
	)
	if err := row.Scan(&plan.ID, &plan.Name, &description, &plan.StartDate, &plan.EndDate, &plan.PostsPerDay, &plan.AutoGenerate, &status, &plan.CreatedAt, &plan.UpdatedAt); err != nil {
		return domain.Plan{}, err
	}
	parsed, err := domain.ParsePlanStatus(status)
	if err != nil {
		return domain.Plan{}, fmt.Errorf("план %s: %w", plan.ID, err)
	}
	plan.Status = parsed
	plan.Description = description.String
	return plan, nil
}
