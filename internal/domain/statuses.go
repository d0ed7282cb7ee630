package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEnum возвращается при неизвестном значении перечисления.
var ErrInvalidEnum = errors.New("invalid enum value")

// PlanStatus описывает состояние плана.
type PlanStatus string

const (
	PlanActive    PlanStatus = "active"
	PlanPaused    PlanStatus = "paused"
	PlanCompleted PlanStatus = "completed"
)

// Platform — социальная сеть, в которую публикуется пост.
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
)

// PostType определяет характер текста.
type PostType string

const (
	PostTypeProduct     PostType = "product"
	PostTypePromotional PostType = "promotional"
	PostTypeEngagement  PostType = "engagement"
)

// PostStatus описывает жизненный цикл поста.
type PostStatus string

const (
	PostPending   PostStatus = "pending"
	PostGenerated PostStatus = "generated"
	PostPosted    PostStatus = "posted"
	PostFailed    PostStatus = "failed"
)

var (
	planStatuses = map[PlanStatus]struct{}{PlanActive: {}, PlanPaused: {}, PlanCompleted: {}}
	platforms    = map[Platform]struct{}{PlatformFacebook: {}, PlatformInstagram: {}}
	postTypes    = map[PostType]struct{}{PostTypeProduct: {}, PostTypePromotional: {}, PostTypeEngagement: {}}
	postStatuses = map[PostStatus]struct{}{PostPending: {}, PostGenerated: {}, PostPosted: {}, PostFailed: {}}
)

func normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ParsePlanStatus проверяет статус плана.
func ParsePlanStatus(raw string) (PlanStatus, error) {
	v := PlanStatus(normalize(raw))
	if _, ok := planStatuses[v]; !ok {
		return "", fmt.Errorf("plan status %q: %w", raw, ErrInvalidEnum)
	}
	return v, nil
}

// ParsePlatform проверяет площадку.
func ParsePlatform(raw string) (Platform, error) {
	v := Platform(normalize(raw))
	if _, ok := platforms[v]; !ok {
		return "", fmt.Errorf("platform %q: %w", raw, ErrInvalidEnum)
	}
	return v, nil
}

// ParsePostType проверяет тип поста.
func ParsePostType(raw string) (PostType, error) {
	v := PostType(normalize(raw))
	if _, ok := postTypes[v]; !ok {
		return "", fmt.Errorf("post type %q: %w", raw, ErrInvalidEnum)
	}
	return v, nil
}

// ParsePostStatus проверяет статус поста.
func ParsePostStatus(raw string) (PostStatus, error) {
	v := PostStatus(normalize(raw))
	if _, ok := postStatuses[v]; !ok {
		return "", fmt.Errorf("post status %q: %w", raw, ErrInvalidEnum)
	}
	return v, nil
}

// CanTransition сообщает, допустим ли переход статуса поста.
// Раннер двигает статусы только вперёд: pending → generated → posted,
// failed достижим из pending и generated. Из failed пост возвращает
// только оператор командой повтора.
func (s PostStatus) CanTransition(to PostStatus) bool {
	switch s {
	case PostPending:
		return to == PostGenerated || to == PostFailed
	case PostGenerated:
		return to == PostPosted || to == PostFailed
	case PostFailed:
		return to == PostPending || to == PostGenerated
	default:
		return false
	}
}

// CanTransition сообщает, допустим ли переход статуса плана по команде оператора.
func (s PlanStatus) CanTransition(to PlanStatus) bool {
	switch s {
	case PlanActive:
		return to == PlanPaused || to == PlanCompleted
	case PlanPaused:
		return to == PlanActive || to == PlanCompleted
	default:
		return false
	}
}
