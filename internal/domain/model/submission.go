package model

import "time"

type SubmissionType string
type SubmissionStatus string

const (
	SubmissionReceipt SubmissionType = "receipt"
	SubmissionPhoto   SubmissionType = "photo"
	SubmissionTicket  SubmissionType = "ticket"
	SubmissionVideo   SubmissionType = "video"

	StatusPending     SubmissionStatus = "pending"
	StatusVerified    SubmissionStatus = "verified"
	StatusRejected    SubmissionStatus = "rejected"
	StatusUnderReview SubmissionStatus = "under_review"
)

func (t SubmissionType) Valid() bool {
	switch t {
	case SubmissionReceipt, SubmissionPhoto, SubmissionTicket, SubmissionVideo:
		return true
	}
	return false
}

// VerificationResult is the evaluator verdict plus the evidence it was based on.
type VerificationResult struct {
	Status        SubmissionStatus       `json:"status"`
	Confidence    float64                `json:"confidence"`
	Details       map[string]interface{} `json:"details"`
	ExtractedText string                 `json:"extractedText"`
}

type QuestSubmission struct {
	ID                  string                 `json:"id"`
	UserQuestID         string                 `json:"user_quest_id"`
	SubmissionType      SubmissionType         `json:"submission_type"`
	FileURL             string                 `json:"file_url"`
	Status              SubmissionStatus       `json:"status"`
	VerificationResults *VerificationResult    `json:"verification_results,omitempty"`
	ReviewerNotes       *string                `json:"reviewer_notes,omitempty"`
	Metadata            map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`

	// Joined from user_quests; not columns of quest_submissions.
	UserID  string `json:"user_id"`
	QuestID string `json:"quest_id"`
}
