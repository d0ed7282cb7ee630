package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrRunInProgress возвращается, если другой запуск уже держит блокировку.
var ErrRunInProgress = errors.New("run already in progress")

// RunAction выбирает режим работы раннера.
type RunAction string

const (
	// ActionGenerateOnly — только генерация для pending-постов.
	ActionGenerateOnly RunAction = "generate_only"
	// ActionPostGenerated — только публикация уже сгенерированных постов.
	ActionPostGenerated RunAction = "post_generated"
	// ActionProcessAll — генерация при необходимости и публикация.
	ActionProcessAll RunAction = "process_all"
)

// ParseRunAction приводит действие к известному значению.
// Пустое и неизвестное действие трактуется как process_all.
func ParseRunAction(raw string) RunAction {
	switch RunAction(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionGenerateOnly:
		return ActionGenerateOnly
	case ActionPostGenerated:
		return ActionPostGenerated
	default:
		return ActionProcessAll
	}
}

// Statuses возвращает набор статусов, которые выбирает действие.
func (a RunAction) Statuses() []PostStatus {
	switch a {
	case ActionGenerateOnly:
		return []PostStatus{PostPending}
	case ActionPostGenerated:
		return []PostStatus{PostGenerated}
	default:
		return []PostStatus{PostPending, PostGenerated}
	}
}

// Generates сообщает, выполняет ли действие генерацию.
func (a RunAction) Generates() bool {
	return a != ActionPostGenerated
}

// Publishes сообщает, выполняет ли действие публикацию.
func (a RunAction) Publishes() bool {
	return a != ActionGenerateOnly
}

// RunLocker сериализует запуски раннера между процессами.
type RunLocker interface {
	// Acquire возвращает false без ошибки, если блокировка уже занята.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RunNotifier получает итог запуска.
type RunNotifier interface {
	NotifyRun(ctx context.Context, action RunAction, summary RunSummary) error
}
