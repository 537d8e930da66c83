package worker

import (
	"context"
	"errors"
	"time"
	"trippey_quests/internal/app/service"
	"trippey_quests/internal/common"
	"trippey_quests/internal/domain/model"
	"trippey_quests/internal/domain/repository"
	"trippey_quests/internal/platform/logging"
	"trippey_quests/internal/platform/metrics"
	"trippey_quests/internal/platform/queue"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	popTimeout = 5 * time.Second

	// Delay before a job that lost the submission lock goes back on the queue.
	lockedRetryDelay = time.Second
	retryBackoffBase = 2 * time.Second
	retryBackoffMax  = 30 * time.Second
)

// JobQueue is the slice of the redis client the worker consumes with.
// Producers LPush and workers BRPop, so the list is FIFO.
type JobQueue interface {
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

type Verifier interface {
	VerifySubmission(ctx context.Context, submissionID string) (*service.VerifyOutcome, error)
}

// VerificationWorker drains the verification queue. Each job runs under a
// per-submission lock so a submission is never verified twice concurrently.
type VerificationWorker struct {
	queue       JobQueue
	locker      *queue.Locker
	jobRepo     repository.VerificationJobRepository
	verifier    Verifier
	queueName   string
	maxAttempts int
	backoffBase time.Duration
	backoffMax  time.Duration
	log         *logrus.Entry
}

func NewVerificationWorker(
	jobQueue JobQueue,
	locker *queue.Locker,
	jobRepo repository.VerificationJobRepository,
	verifier Verifier,
	queueName string,
	maxAttempts int,
) *VerificationWorker {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &VerificationWorker{
		queue:       jobQueue,
		locker:      locker,
		jobRepo:     jobRepo,
		verifier:    verifier,
		queueName:   queueName,
		maxAttempts: maxAttempts,
		backoffBase: retryBackoffBase,
		backoffMax:  retryBackoffMax,
		log:         logging.WithComponent("verification_worker"),
	}
}

// Start blocks until ctx is cancelled.
func (w *VerificationWorker) Start(ctx context.Context) {
	w.log.WithField("queue", w.queueName).Info("verification worker started")
	for {
		if ctx.Err() != nil {
			w.log.Info("verification worker stopping")
			return
		}
		res, err := w.queue.BRPop(ctx, popTimeout, w.queueName).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.log.WithError(err).Error("failed to pop from verification queue")
			sleep(ctx, 5*time.Second)
			continue
		}
		// BRPop returns [queue, value].
		if len(res) < 2 || res[1] == "" {
			w.log.Warn("empty job id popped")
			continue
		}
		if retry, delay := w.processWithLock(ctx, res[1]); retry {
			w.requeue(ctx, res[1], delay)
		}
	}
}

// processWithLock runs one job and reports whether it goes back on the queue
// and after how long. The lock is released before the caller waits.
func (w *VerificationWorker) processWithLock(ctx context.Context, jobID string) (bool, time.Duration) {
	log := w.log.WithField("job_id", jobID)

	job, err := w.jobRepo.GetJobByID(ctx, jobID)
	if err != nil {
		// Without the row there is nothing to verify or to retry.
		log.WithError(err).Error("failed to load verification job")
		metrics.RecordJob("unknown")
		return false, 0
	}

	lock, ok, err := w.locker.Acquire(ctx, job.SubmissionID)
	if err != nil {
		log.WithError(err).Error("failed to attempt submission lock")
		return true, lockedRetryDelay
	}
	if !ok {
		log.WithField("submission_id", job.SubmissionID).Info("submission is locked by another worker; re-queueing")
		return true, lockedRetryDelay
	}
	defer func() {
		released, err := lock.Release(context.Background())
		if err != nil {
			log.WithError(err).Error("failed to release submission lock")
		} else if !released {
			log.Warn("submission lock expired before release")
		}
	}()

	if retry := w.handleJob(ctx, job); retry {
		return true, w.retryBackoff(job.Attempts)
	}
	return false, 0
}

// handleJob runs one verification and records the job outcome. It reports
// whether the job should go back on the queue.
func (w *VerificationWorker) handleJob(ctx context.Context, job *model.VerificationJob) bool {
	log := w.log.WithFields(logrus.Fields{"job_id": job.ID, "submission_id": job.SubmissionID})

	if job.Status == model.JobStatusCompleted || job.Status == model.JobStatusFailed {
		log.WithField("status", job.Status).Debug("job already finished; dropping duplicate")
		return false
	}
	if err := w.jobRepo.UpdateJobStatus(ctx, nil, job.ID, model.JobStatusProcessing, nil); err != nil {
		log.WithError(err).Warn("failed to mark job processing")
	}
	attempts, err := w.jobRepo.IncrementJobAttempts(ctx, nil, job.ID)
	if err != nil {
		log.WithError(err).Warn("failed to count job attempt")
		attempts = job.Attempts + 1
	}
	job.Attempts = attempts

	outcome, err := w.verifier.VerifySubmission(ctx, job.SubmissionID)
	if err == nil {
		w.finish(ctx, job.ID, model.JobStatusCompleted, nil)
		metrics.RecordJob("completed")
		log.WithFields(logrus.Fields{
			"status": outcome.Result.Status,
			"coins":  outcome.CoinsAwarded,
		}).Info("verification job completed")
		return false
	}

	msg := err.Error()
	permanent := errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrValidation)
	if permanent || attempts >= w.maxAttempts {
		w.finish(ctx, job.ID, model.JobStatusFailed, &msg)
		metrics.RecordJob("failed")
		log.WithError(err).WithField("attempts", attempts).Error("verification job failed")
		return false
	}

	w.finish(ctx, job.ID, model.JobStatusQueued, &msg)
	metrics.RecordJob("retried")
	log.WithError(err).WithField("attempts", attempts).Warn("verification job will be retried")
	return true
}

func (w *VerificationWorker) finish(ctx context.Context, jobID, status string, lastError *string) {
	if err := w.jobRepo.UpdateJobStatus(ctx, nil, jobID, status, lastError); err != nil {
		w.log.WithError(err).WithFields(logrus.Fields{"job_id": jobID, "status": status}).Error("failed to update job status")
	}
}

// retryBackoff grows linearly with the attempt count up to backoffMax.
func (w *VerificationWorker) retryBackoff(attempts int) time.Duration {
	d := w.backoffBase * time.Duration(max(attempts, 1))
	if w.backoffMax > 0 && d > w.backoffMax {
		return w.backoffMax
	}
	return d
}

// requeue waits out delay, then pushes jobID behind everything already
// waiting. The push still happens when ctx is cancelled mid-wait.
func (w *VerificationWorker) requeue(ctx context.Context, jobID string, delay time.Duration) {
	sleep(ctx, delay)
	if err := w.queue.LPush(context.WithoutCancel(ctx), w.queueName, jobID).Err(); err != nil {
		// The row stays Queued; the reconciler pushes it again later.
		w.log.WithError(err).WithField("job_id", jobID).Error("failed to re-queue job")
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
