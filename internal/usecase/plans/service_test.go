package plans

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"superloja-social/internal/domain"
)

type stubPlans struct {
	plans     map[uuid.UUID]*domain.Plan
	completed []uuid.UUID
	stats     domain.PlanStats
}

func (s *stubPlans) ListPlans(context.Context) ([]domain.Plan, error) {
	var out []domain.Plan
	for _, p := range s.plans {
		out = append(out, *p)
	}
	return out, nil
}

func (s *stubPlans) GetPlan(_ context.Context, id uuid.UUID) (domain.Plan, error) {
	p, ok := s.plans[id]
	if !ok {
		return domain.Plan{}, domain.ErrPlanNotFound
	}
	return *p, nil
}

func (s *stubPlans) SetPlanStatus(_ context.Context, id uuid.UUID, status domain.PlanStatus) error {
	s.plans[id].Status = status
	return nil
}

func (s *stubPlans) CompleteExpiredPlan(_ context.Context, id uuid.UUID) error {
	s.completed = append(s.completed, id)
	s.plans[id].Status = domain.PlanCompleted
	return nil
}

func (s *stubPlans) PlanPostStats(context.Context, uuid.UUID) (domain.PlanStats, error) {
	return s.stats, nil
}

type stubPosts struct {
	domain.PostRepo
	post  domain.Post
	reset domain.PostStatus
}

func (s *stubPosts) GetPost(context.Context, uuid.UUID) (domain.Post, error) { return s.post, nil }

func (s *stubPosts) ResetStatus(_ context.Context, _ uuid.UUID, status domain.PostStatus) error {
	s.reset = status
	return nil
}

var today = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

func newService(plans *stubPlans, posts domain.PostRepo) *Service {
	s := NewService(plans, posts, zerolog.Nop())
	s.now = func() time.Time { return today }
	return s
}

func plan(status domain.PlanStatus, endDaysFromToday int) *domain.Plan {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	return &domain.Plan{ID: uuid.New(), Status: status, StartDate: day.AddDate(0, 0, -7), EndDate: day.AddDate(0, 0, endDaysFromToday)}
}

func TestListCompletesExpiredPlans(t *testing.T) {
	expired := plan(domain.PlanActive, -1)
	lastDay := plan(domain.PlanActive, 0)
	repo := &stubPlans{plans: map[uuid.UUID]*domain.Plan{expired.ID: expired, lastDay.ID: lastDay}}

	list, err := newService(repo, nil).List(context.Background())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	for _, p := range list {
		want := domain.PlanActive
		if p.ID == expired.ID {
			want = domain.PlanCompleted
		}
		if p.Status != want {
			t.Fatalf("план %s: ожидали %s, получили %s", p.ID, want, p.Status)
		}
	}
	if len(repo.completed) != 1 || repo.completed[0] != expired.ID {
		t.Fatalf("ожидали сохранение completed только для истёкшего плана: %v", repo.completed)
	}
}

func TestPauseResume(t *testing.T) {
	p := plan(domain.PlanActive, 3)
	repo := &stubPlans{plans: map[uuid.UUID]*domain.Plan{p.ID: p}}
	svc := newService(repo, nil)

	paused, err := svc.Pause(context.Background(), p.ID)
	if err != nil || paused.Status != domain.PlanPaused {
		t.Fatalf("ожидали paused, получили %v, %v", paused.Status, err)
	}
	if _, err := svc.Pause(context.Background(), p.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("повторная пауза должна быть недопустимой, получили %v", err)
	}
	resumed, err := svc.Resume(context.Background(), p.ID)
	if err != nil || resumed.Status != domain.PlanActive {
		t.Fatalf("ожидали active, получили %v, %v", resumed.Status, err)
	}
}

func TestResumeRejectsExpiredAndCompleted(t *testing.T) {
	expired := plan(domain.PlanPaused, -2)
	done := plan(domain.PlanCompleted, 5)
	repo := &stubPlans{plans: map[uuid.UUID]*domain.Plan{expired.ID: expired, done.ID: done}}
	svc := newService(repo, nil)

	if _, err := svc.Resume(context.Background(), expired.ID); !errors.Is(err, ErrPlanExpired) {
		t.Fatalf("ожидали ErrPlanExpired, получили %v", err)
	}
	if _, err := svc.Resume(context.Background(), done.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("ожидали ErrInvalidTransition, получили %v", err)
	}
	if _, err := svc.Resume(context.Background(), uuid.New()); !errors.Is(err, domain.ErrPlanNotFound) {
		t.Fatalf("ожидали ErrPlanNotFound, получили %v", err)
	}
}

func TestGetReturnsStats(t *testing.T) {
	p := plan(domain.PlanActive, 1)
	repo := &stubPlans{plans: map[uuid.UUID]*domain.Plan{p.ID: p}, stats: domain.PlanStats{domain.PostPosted: 4, domain.PostFailed: 1}}

	details, err := newService(repo, nil).Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if details.Stats[domain.PostPosted] != 4 || details.Stats[domain.PostFailed] != 1 {
		t.Fatalf("неожиданная статистика: %v", details.Stats)
	}
}

func TestRetryPost(t *testing.T) {
	text := "pronto"
	msg := "Facebook API error: {}"
	posts := &stubPosts{post: domain.Post{ID: uuid.New(), Status: domain.PostFailed, GeneratedContent: &text, ErrorMessage: &msg}}
	svc := newService(&stubPlans{}, posts)

	post, err := svc.RetryPost(context.Background(), posts.post.ID)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if posts.reset != domain.PostGenerated || post.Status != domain.PostGenerated || post.ErrorMessage != nil {
		t.Fatalf("пост с текстом должен вернуться в generated: %+v", post)
	}

	posts.post = domain.Post{ID: uuid.New(), Status: domain.PostFailed}
	if _, err := svc.RetryPost(context.Background(), posts.post.ID); err != nil || posts.reset != domain.PostPending {
		t.Fatalf("пост без текста должен вернуться в pending: %v, %s", err, posts.reset)
	}

	posts.post = domain.Post{ID: uuid.New(), Status: domain.PostPosted}
	if _, err := svc.RetryPost(context.Background(), posts.post.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("повтор опубликованного поста недопустим, получили %v", err)
	}
}
