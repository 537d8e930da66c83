package worker

import (
	"context"
	"time"
	"trippey_quests/internal/app/service"
	"trippey_quests/internal/domain/repository"
	"trippey_quests/internal/platform/logging"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const reconcileBatch = 100

type StaleRequeuer interface {
	RequeueStale(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

// Reconciler repairs state the request path could leave behind: verified
// submissions whose award never committed, attempts past their deadline and
// jobs that never reached a worker.
type Reconciler struct {
	cron        *cron.Cron
	submissions repository.SubmissionRepository
	attempts    repository.UserQuestRepository
	quests      service.QuestLookup
	rewards     service.CompletionAwarder
	jobs        StaleRequeuer
	staleAfter  time.Duration
	log         *logrus.Entry
}

func NewReconciler(
	submissions repository.SubmissionRepository,
	attempts repository.UserQuestRepository,
	quests service.QuestLookup,
	rewards service.CompletionAwarder,
	jobs StaleRequeuer,
	staleAfter time.Duration,
) *Reconciler {
	return &Reconciler{
		cron:        cron.New(),
		submissions: submissions,
		attempts:    attempts,
		quests:      quests,
		rewards:     rewards,
		jobs:        jobs,
		staleAfter:  staleAfter,
		log:         logging.WithComponent("reconciler"),
	}
}

type ReconcileReport struct {
	Awarded  int
	Expired  int64
	Requeued int
}

// Start schedules RunOnce with a standard cron spec or an @every descriptor.
func (r *Reconciler) Start(schedule string) error {
	if _, err := r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		r.RunOnce(ctx)
	}); err != nil {
		return err
	}
	r.cron.Start()
	r.log.WithField("schedule", schedule).Info("reconciler scheduled")
	return nil
}

// Stop waits for a running pass to finish or ctx to end.
func (r *Reconciler) Stop(ctx context.Context) {
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (r *Reconciler) RunOnce(ctx context.Context) ReconcileReport {
	var report ReconcileReport

	pending, err := r.submissions.FindVerifiedUnrewarded(ctx, reconcileBatch)
	if err != nil {
		r.log.WithError(err).Error("failed to list unrewarded submissions")
	}
	for i := range pending {
		sub := &pending[i]
		quest, err := r.quests.GetQuestByID(ctx, sub.QuestID)
		if err != nil {
			r.log.WithError(err).WithField("submission_id", sub.ID).Error("quest lookup failed during reconcile")
			continue
		}
		coins, err := r.rewards.CompleteAndAward(ctx, sub, quest)
		if err != nil {
			r.log.WithError(err).WithField("submission_id", sub.ID).Error("award retry failed")
			continue
		}
		if coins > 0 {
			report.Awarded++
		}
	}

	if report.Expired, err = r.attempts.ExpireOverdueAttempts(ctx); err != nil {
		r.log.WithError(err).Error("failed to expire overdue attempts")
	}

	if report.Requeued, err = r.jobs.RequeueStale(ctx, r.staleAfter, reconcileBatch); err != nil {
		r.log.WithError(err).Error("failed to requeue stale jobs")
	}

	if report.Awarded > 0 || report.Expired > 0 || report.Requeued > 0 {
		r.log.WithFields(logrus.Fields{
			"awarded":  report.Awarded,
			"expired":  report.Expired,
			"requeued": report.Requeued,
		}).Info("reconcile pass repaired state")
	}
	return report
}
