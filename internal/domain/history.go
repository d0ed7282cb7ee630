package domain

import (
	"time"

	"github.com/google/uuid"
)

// HistoryEntry — запись журнала social_posts_history.
// Журнал только дополняется и раннером не читается.
type HistoryEntry struct {
	ID             uuid.UUID
	PostID         uuid.UUID
	Platform       Platform
	Content        string
	ImageURL       string
	Success        bool
	ExternalPostID string
	ErrorMessage   string
	Metadata       map[string]any
	AttemptedAt    time.Time
}
