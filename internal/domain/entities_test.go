package domain

import (
	"testing"
	"time"
)

func TestPlanEffectiveStatus(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	plan := Plan{Status: PlanActive, EndDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)}
	if got := plan.EffectiveStatus(now); got != PlanActive {
		t.Fatalf("план действует до конца дня окончания, получили %v", got)
	}
	plan.EndDate = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	if got := plan.EffectiveStatus(now); got != PlanCompleted {
		t.Fatalf("истёкший активный план должен считаться completed, получили %v", got)
	}
	plan.Status = PlanPaused
	if got := plan.EffectiveStatus(now); got != PlanPaused {
		t.Fatalf("статус paused не меняется, получили %v", got)
	}
}

func TestRunSummaryFailed(t *testing.T) {
	s := RunSummary{Results: []RunResult{{Success: true}, {Success: false, Error: "x"}}}
	if got := s.Failed(); len(got) != 1 || got[0].Error != "x" {
		t.Fatalf("ожидали один неуспешный результат, получили %v", got)
	}
}

func TestPostHasContent(t *testing.T) {
	empty := ""
	text := "Olá"
	if (Post{}).HasContent() || (Post{GeneratedContent: &empty}).HasContent() {
		t.Fatalf("пустой текст не считается контентом")
	}
	if !(Post{GeneratedContent: &text}).HasContent() {
		t.Fatalf("ожидали наличие контента")
	}
}
