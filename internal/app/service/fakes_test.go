package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"
	"trippey_quests/internal/common"
	"trippey_quests/internal/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

type fakeAttempts struct {
	mu       sync.Mutex
	attempts map[string]*model.UserQuest
}

func newFakeAttempts(list ...*model.UserQuest) *fakeAttempts {
	f := &fakeAttempts{attempts: map[string]*model.UserQuest{}}
	for _, a := range list {
		f.attempts[a.ID] = a
	}
	return f
}

func (f *fakeAttempts) CreateAttempt(_ context.Context, _ *sql.Tx, a *model.UserQuest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.attempts {
		if existing.UserID == a.UserID && existing.QuestID == a.QuestID &&
			(existing.Status == model.AttemptActive || existing.Status == model.AttemptCompleted) {
			return common.ErrConflict
		}
	}
	f.attempts[a.ID] = a
	return nil
}

func (f *fakeAttempts) FindAttemptByID(_ context.Context, _ *sql.Tx, id string) (*model.UserQuest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttempts) FindLiveAttempt(_ context.Context, userID, questID string) (*model.UserQuest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.attempts {
		if a.UserID == userID && a.QuestID == questID &&
			(a.Status == model.AttemptActive || a.Status == model.AttemptCompleted) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeAttempts) ListAttemptsByUser(_ context.Context, userID string) ([]model.UserQuest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.UserQuest{}
	for _, a := range f.attempts {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAttempts) CompleteAttempt(_ context.Context, _ *sql.Tx, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok || a.Status != model.AttemptActive {
		return false, nil
	}
	now := time.Now()
	a.Status = model.AttemptCompleted
	a.CompletedAt = &now
	return true, nil
}

func (f *fakeAttempts) ExpireOverdueAttempts(context.Context) (int64, error) { return 0, nil }

type fakeLedger struct {
	mu        sync.Mutex
	keys      map[string]bool
	rewards   []model.Reward
	available map[string]int
	lifetime  map[string]int
	creditErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{keys: map[string]bool{}, available: map[string]int{}, lifetime: map[string]int{}}
}

func (f *fakeLedger) InsertReward(_ context.Context, _ *sql.Tx, r *model.Reward) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[r.AwardKey] {
		return false, nil
	}
	f.keys[r.AwardKey] = true
	f.rewards = append(f.rewards, *r)
	return true, nil
}

func (f *fakeLedger) CreditCoins(_ context.Context, _ *sql.Tx, userID string, amount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.creditErr != nil {
		return f.creditErr
	}
	f.available[userID] += amount
	f.lifetime[userID] += amount
	return nil
}

func (f *fakeLedger) DebitCoins(_ context.Context, _ *sql.Tx, userID string, amount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.available[userID] < amount {
		return common.ErrInsufficientFunds
	}
	f.available[userID] -= amount
	return nil
}

func (f *fakeLedger) GetLedger(_ context.Context, userID string) (*model.CoinLedger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &model.CoinLedger{
		UserID:         userID,
		TotalCoins:     f.lifetime[userID],
		AvailableCoins: f.available[userID],
		LifetimeEarned: f.lifetime[userID],
	}, nil
}

func (f *fakeLedger) ListRewards(_ context.Context, userID string, limit, offset int) ([]model.Reward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Reward{}
	for _, r := range f.rewards {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeLeaderboard struct {
	mu        sync.Mutex
	entries   map[string]*model.LeaderboardEntry
	recordErr error
}

func newFakeLeaderboard() *fakeLeaderboard {
	return &fakeLeaderboard{entries: map[string]*model.LeaderboardEntry{}}
}

func (f *fakeLeaderboard) RecordCompletion(_ context.Context, _ *sql.Tx, userID string, coins int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	e, ok := f.entries[userID]
	if !ok {
		e = &model.LeaderboardEntry{UserID: userID}
		f.entries[userID] = e
	}
	e.TotalQuestsCompleted++
	e.TotalCoinsEarned += coins
	e.CurrentStreak++
	if e.CurrentStreak > e.LongestStreak {
		e.LongestStreak = e.CurrentStreak
	}
	e.LastQuestCompleted = &at
	return nil
}

func (f *fakeLeaderboard) Top(_ context.Context, limit int) ([]model.LeaderboardEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.LeaderboardEntry{}
	for _, e := range f.entries {
		if len(out) == limit {
			break
		}
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeLeaderboard) FindByUser(_ context.Context, userID string) (*model.LeaderboardEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

type fakeSubmissions struct {
	mu      sync.Mutex
	subs    map[string]*model.QuestSubmission
	saveErr error
}

func newFakeSubmissions(list ...*model.QuestSubmission) *fakeSubmissions {
	f := &fakeSubmissions{subs: map[string]*model.QuestSubmission{}}
	for _, s := range list {
		f.subs[s.ID] = s
	}
	return f
}

func (f *fakeSubmissions) CreateSubmission(_ context.Context, _ *sql.Tx, s *model.QuestSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[s.ID] = s
	return nil
}

func (f *fakeSubmissions) GetSubmissionByID(_ context.Context, id string) (*model.QuestSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSubmissions) SaveVerdict(_ context.Context, _ *sql.Tx, id string, result model.VerificationResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	s, ok := f.subs[id]
	if !ok {
		return common.ErrNotFound
	}
	if s.Status == model.StatusVerified {
		return common.ErrVerdictFinal
	}
	s.Status = result.Status
	s.VerificationResults = &result
	return nil
}

func (f *fakeSubmissions) ListSubmissionsByUser(_ context.Context, userID string, limit, offset int) ([]model.QuestSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.QuestSubmission{}
	for _, s := range f.subs {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSubmissions) FindVerifiedUnrewarded(context.Context, int) ([]model.QuestSubmission, error) {
	return nil, nil
}

type fakeJobs struct {
	mu      sync.Mutex
	jobs    map[string]*model.VerificationJob
	stale   []model.VerificationJob
	updates []string
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: map[string]*model.VerificationJob{}}
}

func (f *fakeJobs) CreateJob(_ context.Context, _ *sql.Tx, job *model.VerificationJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeJobs) GetJobByID(_ context.Context, id string) (*model.VerificationJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return j, nil
}

func (f *fakeJobs) UpdateJobStatus(_ context.Context, _ *sql.Tx, jobID, status string, _ *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, jobID+"="+status)
	return nil
}

func (f *fakeJobs) IncrementJobAttempts(_ context.Context, _ *sql.Tx, jobID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[jobID]
	if !ok {
		return 0, common.ErrNotFound
	}
	j.Attempts++
	return j.Attempts, nil
}

func (f *fakeJobs) FindStaleQueued(context.Context, time.Duration, int) ([]model.VerificationJob, error) {
	return f.stale, nil
}

type fakeQueue struct {
	mu     sync.Mutex
	pushed []string
	err    error
}

func (q *fakeQueue) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	q.mu.Lock()
	defer q.mu.Unlock()
	cmd := redis.NewIntCmd(ctx)
	if q.err != nil {
		cmd.SetErr(q.err)
		return cmd
	}
	for _, v := range values {
		q.pushed = append(q.pushed, v.(string))
	}
	cmd.SetVal(int64(len(q.pushed)))
	return cmd
}
