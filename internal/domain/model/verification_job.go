package model

import "time"

const (
	JobStatusQueued     = "Queued"
	JobStatusProcessing = "Processing" // Worker picked it up and holds the submission lock
	JobStatusCompleted  = "Completed"
	JobStatusFailed     = "Failed" // Gave up after max attempts or unrecoverable error
)

type VerificationJob struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submission_id"`
	Status       string    `json:"status"`
	Attempts     int       `json:"attempts"`
	LastError    *string   `json:"last_error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
