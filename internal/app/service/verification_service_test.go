package service

import (
	"context"
	"errors"
	"testing"
	"trippey_quests/internal/app/verification"
	"trippey_quests/internal/common"
	"trippey_quests/internal/domain/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExtractor struct {
	ev      verification.Evidence
	gotType model.SubmissionType
	gotURL  string
	calls   int
	during  func()
}

func (s *stubExtractor) Extract(_ context.Context, subType model.SubmissionType, fileURL string, _ model.QuestRequirements) verification.Evidence {
	s.calls++
	s.gotType = subType
	s.gotURL = fileURL
	if s.during != nil {
		s.during()
	}
	return s.ev
}

type stubQuests map[string]*model.Quest

func (q stubQuests) GetQuestByID(_ context.Context, id string) (*model.Quest, error) {
	if quest, ok := q[id]; ok {
		return quest, nil
	}
	return nil, common.ErrNotFound
}

type stubAwarder struct {
	calls int
	coins int
	err   error
}

func (a *stubAwarder) CompleteAndAward(context.Context, *model.QuestSubmission, *model.Quest) (int, error) {
	a.calls++
	return a.coins, a.err
}

func budgetQuest() *model.Quest {
	ceiling := decimal.NewFromInt(500)
	return &model.Quest{
		ID:           questA,
		Category:     model.CategoryBudget,
		RewardCoins:  10,
		BonusCoins:   5,
		Requirements: model.QuestRequirements{MaxAmount: &ceiling},
	}
}

func pendingReceipt() *model.QuestSubmission {
	return &model.QuestSubmission{
		ID:             subA,
		UserQuestID:    "att-1",
		SubmissionType: model.SubmissionReceipt,
		FileURL:        "https://cdn.example.com/r.jpg",
		Status:         model.StatusPending,
		UserID:         userA,
		QuestID:        questA,
	}
}

func amountEvidence(s string) verification.Evidence {
	amount := decimal.RequireFromString(s)
	items := 3
	return verification.Evidence{ExtractedText: "a\nb\nc\nTotal " + s, DetectedAmount: &amount, ItemCount: &items}
}

func TestVerifyReceiptWithinBudgetAwards(t *testing.T) {
	subs := newFakeSubmissions(pendingReceipt())
	awarder := &stubAwarder{coins: 15}
	svc := NewVerificationService(subs, stubQuests{questA: budgetQuest()}, &stubExtractor{ev: amountEvidence("500.00")}, awarder)

	out, err := svc.VerifySubmission(context.Background(), subA)
	require.NoError(t, err)
	assert.Equal(t, model.StatusVerified, out.Result.Status)
	assert.Equal(t, 15, out.CoinsAwarded)
	assert.Equal(t, 1, awarder.calls)

	stored, err := subs.GetSubmissionByID(context.Background(), subA)
	require.NoError(t, err)
	assert.Equal(t, stored.Status, stored.VerificationResults.Status)
}

func TestVerifyReceiptOverBudgetRejectsWithoutAward(t *testing.T) {
	subs := newFakeSubmissions(pendingReceipt())
	awarder := &stubAwarder{coins: 15}
	svc := NewVerificationService(subs, stubQuests{questA: budgetQuest()}, &stubExtractor{ev: amountEvidence("500.01")}, awarder)

	out, err := svc.VerifySubmission(context.Background(), subA)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, out.Result.Status)
	met, ok := out.Result.Details["requirementsMet"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, met["maxAmount"])
	assert.Zero(t, awarder.calls)

	stored, _ := subs.GetSubmissionByID(context.Background(), subA)
	assert.Equal(t, model.StatusRejected, stored.Status)
}

func TestVerifyExtractionFailureGoesToReview(t *testing.T) {
	subs := newFakeSubmissions(pendingReceipt())
	awarder := &stubAwarder{}
	svc := NewVerificationService(subs, stubQuests{questA: budgetQuest()},
		&stubExtractor{ev: verification.Failed("extraction timed out")}, awarder)

	out, err := svc.VerifySubmission(context.Background(), subA)
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnderReview, out.Result.Status)
	assert.Equal(t, 0.5, out.Result.Confidence)
	assert.Zero(t, awarder.calls)
}

func TestVerifyRequestOverridesStoredValues(t *testing.T) {
	subs := newFakeSubmissions(pendingReceipt())
	extractor := &stubExtractor{ev: verification.Evidence{ExtractedText: "Metro day pass"}}
	svc := NewVerificationService(subs, stubQuests{questA: budgetQuest()}, extractor, &stubAwarder{})

	out, err := svc.Verify(context.Background(), VerifyRequest{
		SubmissionID:      subA,
		FileURL:           "https://cdn.example.com/ticket.jpg",
		SubmissionType:    model.SubmissionTicket,
		QuestRequirements: &model.QuestRequirements{TransportTypes: []string{"bus", "metro"}},
		VerificationRules: map[string]interface{}{"manualFallback": true},
	})
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionTicket, extractor.gotType)
	assert.Equal(t, "https://cdn.example.com/ticket.jpg", extractor.gotURL)
	assert.Equal(t, model.StatusVerified, out.Result.Status)
	assert.Equal(t, map[string]interface{}{"manualFallback": true}, out.Result.Details["verificationRules"])
}

func TestVerifyAlreadyVerifiedReturnsStoredResult(t *testing.T) {
	sub := pendingReceipt()
	sub.Status = model.StatusVerified
	sub.VerificationResults = &model.VerificationResult{Status: model.StatusVerified, Confidence: 0.9}
	extractor := &stubExtractor{}
	awarder := &stubAwarder{}
	svc := NewVerificationService(newFakeSubmissions(sub), stubQuests{questA: budgetQuest()}, extractor, awarder)

	out, err := svc.VerifySubmission(context.Background(), subA)
	require.NoError(t, err)
	assert.Equal(t, 0.9, out.Result.Confidence)
	assert.Zero(t, extractor.calls)
	assert.Equal(t, 1, awarder.calls)
}

func TestVerifyUnknownSubmission(t *testing.T) {
	svc := NewVerificationService(newFakeSubmissions(), stubQuests{}, &stubExtractor{}, &stubAwarder{})
	_, err := svc.VerifySubmission(context.Background(), subA)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestVerifyPersistenceFailureIsHard(t *testing.T) {
	subs := newFakeSubmissions(pendingReceipt())
	subs.saveErr = errors.New("connection reset")
	awarder := &stubAwarder{}
	svc := NewVerificationService(subs, stubQuests{questA: budgetQuest()}, &stubExtractor{ev: amountEvidence("10")}, awarder)

	_, err := svc.VerifySubmission(context.Background(), subA)
	require.Error(t, err)
	assert.Zero(t, awarder.calls)
}

func TestVerifyVideoAlwaysUnderReview(t *testing.T) {
	sub := pendingReceipt()
	sub.SubmissionType = model.SubmissionVideo
	svc := NewVerificationService(newFakeSubmissions(sub), stubQuests{questA: budgetQuest()}, &stubExtractor{}, &stubAwarder{})

	out, err := svc.VerifySubmission(context.Background(), subA)
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnderReview, out.Result.Status)
	assert.Equal(t, 0.5, out.Result.Confidence)
}

func TestVerifyDoesNotOverwriteConcurrentVerifiedVerdict(t *testing.T) {
	subs := newFakeSubmissions(pendingReceipt())
	verified := model.VerificationResult{Status: model.StatusVerified, Confidence: 0.9}
	extractor := &stubExtractor{
		ev: verification.Failed("timeout"),
		during: func() {
			// The queue worker finishes first.
			require.NoError(t, subs.SaveVerdict(context.Background(), nil, subA, verified))
		},
	}
	awarder := &stubAwarder{}
	svc := NewVerificationService(subs, stubQuests{questA: budgetQuest()}, extractor, awarder)

	out, err := svc.VerifySubmission(context.Background(), subA)
	require.NoError(t, err)
	assert.Equal(t, model.StatusVerified, out.Result.Status)
	assert.Equal(t, 0.9, out.Result.Confidence)
	assert.Equal(t, 1, awarder.calls)

	stored, err := subs.GetSubmissionByID(context.Background(), subA)
	require.NoError(t, err)
	assert.Equal(t, model.StatusVerified, stored.Status)
	assert.Equal(t, 0.9, stored.VerificationResults.Confidence)
}
