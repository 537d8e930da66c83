package model

import "time"

type AttemptStatus string

// An attempt that was never started has no row ("not started").
const (
	AttemptActive    AttemptStatus = "active"
	AttemptCompleted AttemptStatus = "completed"
	AttemptExpired   AttemptStatus = "expired"
	AttemptLocked    AttemptStatus = "locked"
)

// CanTransition reports whether an attempt may move from s to next.
// completed, expired and locked are terminal.
func (s AttemptStatus) CanTransition(next AttemptStatus) bool {
	if s != AttemptActive {
		return false
	}
	switch next {
	case AttemptCompleted, AttemptExpired, AttemptLocked:
		return true
	}
	return false
}

type UserQuest struct {
	ID          string                 `json:"id"`
	QuestID     string                 `json:"quest_id"`
	UserID      string                 `json:"user_id"`
	Status      AttemptStatus          `json:"status"`
	Progress    map[string]interface{} `json:"progress"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ExpiresAt   *time.Time             `json:"expires_at,omitempty"`
	QuestTitle  *string                `json:"quest_title,omitempty"` // For display
}
