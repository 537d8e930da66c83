package service

import (
	"context"
	"database/sql"
	"trippey_quests/internal/common"
	"trippey_quests/internal/domain/model"
	"trippey_quests/internal/domain/repository"
	"trippey_quests/internal/platform/logging"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	attemptRepo    repository.UserQuestRepository
	jobService     *VerificationJobService
	db             *sql.DB // For transactions
}

func NewSubmissionService(
	subRepo repository.SubmissionRepository,
	attemptRepo repository.UserQuestRepository,
	jobService *VerificationJobService,
	db *sql.DB,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: subRepo,
		attemptRepo:    attemptRepo,
		jobService:     jobService,
		db:             db,
	}
}

type CreateSubmissionRequest struct {
	UserQuestID    string                 `json:"user_quest_id" validate:"required,uuid"`
	SubmissionType model.SubmissionType   `json:"submission_type" validate:"required,oneof=receipt photo ticket video"`
	FileURL        string                 `json:"file_url" validate:"required,url"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

type SubmissionReceipt struct {
	Submission *model.QuestSubmission `json:"submission"`
	JobID      string                 `json:"job_id"`
}

// CreateSubmission stores a pending proof against an active attempt and
// queues it for verification.
func (s *SubmissionService) CreateSubmission(ctx context.Context, userID string, req CreateSubmissionRequest) (*SubmissionReceipt, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	attempt, err := s.attemptRepo.FindAttemptByID(ctx, nil, req.UserQuestID)
	if err != nil {
		return nil, common.Errorf("quest attempt %s: %w", req.UserQuestID, err)
	}
	if attempt.UserID != userID {
		return nil, common.Errorf("attempt belongs to another user: %w", common.ErrForbidden)
	}
	if attempt.Status != model.AttemptActive {
		return nil, common.Errorf("attempt is %s: %w", attempt.Status, common.ErrAttemptNotActive)
	}

	submission := &model.QuestSubmission{
		ID:             uuid.NewString(),
		UserQuestID:    attempt.ID,
		SubmissionType: req.SubmissionType,
		FileURL:        req.FileURL,
		Status:         model.StatusPending,
		Metadata:       req.Metadata,
		UserID:         attempt.UserID,
		QuestID:        attempt.QuestID,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.submissionRepo.CreateSubmission(ctx, tx, submission); err != nil {
		return nil, common.Errorf("failed to create submission: %w", err)
	}
	job, err := s.jobService.CreateJob(ctx, tx, submission.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}

	// The submission is durable at this point; a failed push is recovered by the reconciler.
	_ = s.jobService.Push(ctx, job.ID)

	logging.WithFields(logrus.Fields{
		"submission_id": submission.ID,
		"job_id":        job.ID,
		"user_id":       userID,
		"type":          submission.SubmissionType,
	}).Info("submission created")
	return &SubmissionReceipt{Submission: submission, JobID: job.ID}, nil
}

// GetSubmission returns a submission only to the user who made it.
func (s *SubmissionService) GetSubmission(ctx context.Context, userID, submissionID string) (*model.QuestSubmission, error) {
	sub, err := s.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, common.ErrNotFound
	}
	return sub, nil
}

func (s *SubmissionService) ListMySubmissions(ctx context.Context, userID string, limit, offset int) ([]model.QuestSubmission, error) {
	limit, offset = clampPage(limit, offset, 20, 100)
	return s.submissionRepo.ListSubmissionsByUser(ctx, userID, limit, offset)
}
