package plans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"superloja-social/internal/domain"
)

var (
	// ErrInvalidTransition возвращается при недопустимой смене статуса.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrPlanExpired возвращается при попытке возобновить истёкший план.
	ErrPlanExpired = errors.New("plan end date has passed")
)

// PlanDetails — план со счётчиками постов по статусам.
type PlanDetails struct {
	domain.Plan
	Stats domain.PlanStats `json:"stats"`
}

// Service обслуживает команды панели управления.
type Service struct {
	plans domain.PlanRepo
	posts domain.PostRepo
	log   zerolog.Logger
	now   func() time.Time
}

// NewService создаёт сервис.
func NewService(plans domain.PlanRepo, posts domain.PostRepo, logger zerolog.Logger) *Service {
	return &Service{plans: plans, posts: posts, log: logger, now: time.Now}
}

// List возвращает планы с учётом истечения срока.
// Истёкшие активные планы сохраняются как completed.
func (s *Service) List(ctx context.Context) ([]domain.Plan, error) {
	list, err := s.plans.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение планов: %w", err)
	}
	now := s.now()
	for i := range list {
		list[i] = s.correct(ctx, list[i], now)
	}
	return list, nil
}

// Get возвращает план и статистику его постов.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (PlanDetails, error) {
	plan, err := s.plans.GetPlan(ctx, id)
	if err != nil {
		return PlanDetails{}, err
	}
	plan = s.correct(ctx, plan, s.now())
	stats, err := s.plans.PlanPostStats(ctx, id)
	if err != nil {
		return PlanDetails{}, fmt.Errorf("статистика плана: %w", err)
	}
	return PlanDetails{Plan: plan, Stats: stats}, nil
}

// Pause приостанавливает активный план.
func (s *Service) Pause(ctx context.Context, id uuid.UUID) (domain.Plan, error) {
	return s.transition(ctx, id, domain.PlanPaused)
}

// Resume возобновляет приостановленный план, если срок ещё не вышел.
func (s *Service) Resume(ctx context.Context, id uuid.UUID) (domain.Plan, error) {
	return s.transition(ctx, id, domain.PlanActive)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to domain.PlanStatus) (domain.Plan, error) {
	plan, err := s.plans.GetPlan(ctx, id)
	if err != nil {
		return domain.Plan{}, err
	}
	now := s.now()
	plan = s.correct(ctx, plan, now)
	if !plan.Status.CanTransition(to) {
		return domain.Plan{}, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, plan.Status, to)
	}
	if to == domain.PlanActive && plan.Expired(now) {
		return domain.Plan{}, ErrPlanExpired
	}
	if err := s.plans.SetPlanStatus(ctx, id, to); err != nil {
		return domain.Plan{}, fmt.Errorf("смена статуса плана: %w", err)
	}
	s.log.Info().Str("plan_id", id.String()).Str("from", string(plan.Status)).Str("to", string(to)).Msg("статус плана изменён")
	plan.Status = to
	return plan, nil
}

// Posts возвращает посты плана вместе с текстами ошибок.
func (s *Service) Posts(ctx context.Context, id uuid.UUID) ([]domain.Post, error) {
	if _, err := s.plans.GetPlan(ctx, id); err != nil {
		return nil, err
	}
	posts, err := s.posts.ListPlanPosts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("посты плана: %w", err)
	}
	return posts, nil
}

// RetryPost возвращает упавший пост в очередь раннера.
// Пост с готовым текстом становится generated, иначе pending.
func (s *Service) RetryPost(ctx context.Context, postID uuid.UUID) (domain.Post, error) {
	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return domain.Post{}, err
	}
	target := domain.PostPending
	if post.HasContent() {
		target = domain.PostGenerated
	}
	if post.Status != domain.PostFailed || !post.Status.CanTransition(target) {
		return domain.Post{}, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, post.Status, target)
	}
	if err := s.posts.ResetStatus(ctx, postID, target); err != nil {
		return domain.Post{}, fmt.Errorf("повтор поста: %w", err)
	}
	s.log.Info().Str("post_id", postID.String()).Str("status", string(target)).Msg("пост возвращён в очередь")
	post.Status = target
	post.ErrorMessage = nil
	return post, nil
}

// correct помечает истёкший активный план завершённым. Ошибка записи
// не мешает чтению: статус в ответе всё равно эффективный.
func (s *Service) correct(ctx context.Context, plan domain.Plan, now time.Time) domain.Plan {
	effective := plan.EffectiveStatus(now)
	if effective == plan.Status {
		return plan
	}
	if err := s.plans.CompleteExpiredPlan(ctx, plan.ID); err != nil {
		s.log.Warn().Err(err).Str("plan_id", plan.ID.String()).Msg("не удалось завершить истёкший план")
	}
	plan.Status = effective
	return plan
}
