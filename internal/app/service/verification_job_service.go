package service

import (
	"context"
	"database/sql"
	"time"
	"trippey_quests/internal/common"
	"trippey_quests/internal/domain/model"
	"trippey_quests/internal/domain/repository"
	"trippey_quests/internal/platform/logging"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// JobQueue is the slice of the redis client the job service pushes with.
type JobQueue interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

type VerificationJobService struct {
	jobRepo   repository.VerificationJobRepository
	queue     JobQueue
	queueName string
}

func NewVerificationJobService(jobRepo repository.VerificationJobRepository, queue JobQueue, queueName string) *VerificationJobService {
	return &VerificationJobService{jobRepo: jobRepo, queue: queue, queueName: queueName}
}

// CreateJob records a queued job inside the caller's transaction. Call Push
// once that transaction has committed so workers never see an unknown job ID.
func (s *VerificationJobService) CreateJob(ctx context.Context, tx *sql.Tx, submissionID string) (*model.VerificationJob, error) {
	job := &model.VerificationJob{
		ID:           uuid.NewString(),
		SubmissionID: submissionID,
		Status:       model.JobStatusQueued,
	}
	if err := s.jobRepo.CreateJob(ctx, tx, job); err != nil {
		return nil, common.Errorf("failed to create verification job in DB: %w", err)
	}
	return job, nil
}

// Push hands a job ID to the workers. A failed push leaves the job Queued in
// the database, where the reconciler picks it up again.
func (s *VerificationJobService) Push(ctx context.Context, jobID string) error {
	if err := s.queue.LPush(ctx, s.queueName, jobID).Err(); err != nil {
		logging.WithFields(logrus.Fields{"job_id": jobID}).WithError(err).Error("failed to push job to redis")
		return common.Errorf("failed to push job ID to Redis queue: %w", err)
	}
	logging.WithFields(logrus.Fields{"job_id": jobID, "queue": s.queueName}).Debug("verification job enqueued")
	return nil
}

// RequeueStale re-pushes jobs that have sat in Queued longer than olderThan.
func (s *VerificationJobService) RequeueStale(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	jobs, err := s.jobRepo.FindStaleQueued(ctx, olderThan, limit)
	if err != nil {
		return 0, err
	}
	pushed := 0
	for _, job := range jobs {
		if err := s.Push(ctx, job.ID); err != nil {
			return pushed, err
		}
		if err := s.jobRepo.UpdateJobStatus(ctx, nil, job.ID, model.JobStatusQueued, job.LastError); err != nil {
			return pushed, err
		}
		pushed++
	}
	return pushed, nil
}
