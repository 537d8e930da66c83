package service

import (
	"context"
	"errors"
	"trippey_quests/internal/app/verification"
	"trippey_quests/internal/common"
	"trippey_quests/internal/domain/model"
	"trippey_quests/internal/domain/repository"
	"trippey_quests/internal/platform/logging"
	"trippey_quests/internal/platform/metrics"

	"github.com/sirupsen/logrus"
)

type EvidenceExtractor interface {
	Extract(ctx context.Context, subType model.SubmissionType, fileURL string, reqs model.QuestRequirements) verification.Evidence
}

type QuestLookup interface {
	GetQuestByID(ctx context.Context, id string) (*model.Quest, error)
}

type CompletionAwarder interface {
	CompleteAndAward(ctx context.Context, sub *model.QuestSubmission, quest *model.Quest) (int, error)
}

// VerificationService runs the extract, evaluate, record, award pipeline for
// one submission.
type VerificationService struct {
	submissionRepo repository.SubmissionRepository
	quests         QuestLookup
	extractor      EvidenceExtractor
	rewards        CompletionAwarder
}

func NewVerificationService(
	submissionRepo repository.SubmissionRepository,
	quests QuestLookup,
	extractor EvidenceExtractor,
	rewards CompletionAwarder,
) *VerificationService {
	return &VerificationService{
		submissionRepo: submissionRepo,
		quests:         quests,
		extractor:      extractor,
		rewards:        rewards,
	}
}

// VerifyRequest overrides the stored submission and quest values field by
// field; empty fields fall back to what is on record.
type VerifyRequest struct {
	SubmissionID      string                   `json:"submissionId" validate:"required,uuid"`
	FileURL           string                   `json:"fileUrl" validate:"omitempty,url"`
	SubmissionType    model.SubmissionType     `json:"submissionType"`
	QuestRequirements *model.QuestRequirements `json:"questRequirements"`
	VerificationRules map[string]interface{}   `json:"verificationRules"`
}

type VerifyOutcome struct {
	Result       model.VerificationResult `json:"verificationResults"`
	CoinsAwarded int                      `json:"coinsAwarded"`
}

// VerifySubmission is the worker path: everything comes from the records.
func (s *VerificationService) VerifySubmission(ctx context.Context, submissionID string) (*VerifyOutcome, error) {
	return s.Verify(ctx, VerifyRequest{SubmissionID: submissionID})
}

func (s *VerificationService) Verify(ctx context.Context, req VerifyRequest) (*VerifyOutcome, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.QuestRequirements != nil {
		if err := validateStruct(*req.QuestRequirements); err != nil {
			return nil, err
		}
	}

	sub, err := s.submissionRepo.GetSubmissionByID(ctx, req.SubmissionID)
	if err != nil {
		return nil, common.Errorf("submission %s: %w", req.SubmissionID, err)
	}
	quest, err := s.quests.GetQuestByID(ctx, sub.QuestID)
	if err != nil {
		return nil, common.Errorf("quest %s: %w", sub.QuestID, err)
	}
	log := logging.WithFields(logrus.Fields{"submission_id": sub.ID, "user_id": sub.UserID, "quest_id": quest.ID})

	// A verified verdict is final. Re-running only makes sure the award landed.
	if sub.Status == model.StatusVerified && sub.VerificationResults != nil {
		return s.storedOutcome(ctx, sub, quest)
	}

	subType := sub.SubmissionType
	if req.SubmissionType != "" {
		subType = req.SubmissionType
	}
	fileURL := sub.FileURL
	if req.FileURL != "" {
		fileURL = req.FileURL
	}
	reqs := quest.Requirements
	if req.QuestRequirements != nil {
		reqs = *req.QuestRequirements
	}
	rules := quest.VerificationRules
	if req.VerificationRules != nil {
		rules = req.VerificationRules
	}

	ev := s.extractor.Extract(ctx, subType, fileURL, reqs)
	result := verification.Evaluate(subType, ev, reqs)
	if len(rules) > 0 {
		if result.Details == nil {
			result.Details = map[string]interface{}{}
		}
		result.Details["verificationRules"] = rules
	}

	err = s.submissionRepo.SaveVerdict(ctx, nil, sub.ID, result)
	if errors.Is(err, common.ErrVerdictFinal) {
		// Another run verified it while this one was extracting.
		log.WithField("discarded_status", result.Status).Info("verdict already final; discarding this run")
		fresh, err := s.submissionRepo.GetSubmissionByID(ctx, sub.ID)
		if err != nil {
			return nil, common.Errorf("submission %s: %w", sub.ID, err)
		}
		return s.storedOutcome(ctx, fresh, quest)
	}
	if err != nil {
		log.WithError(err).Error("failed to record verdict")
		return nil, common.Errorf("failed to record verdict: %w", err)
	}
	metrics.RecordVerdict(string(subType), string(result.Status))
	sub.Status = result.Status
	sub.VerificationResults = &result
	log.WithFields(logrus.Fields{"status": result.Status, "confidence": result.Confidence}).Info("submission verdict recorded")

	outcome := &VerifyOutcome{Result: result}
	if result.Status != model.StatusVerified {
		return outcome, nil
	}
	coins, err := s.rewards.CompleteAndAward(ctx, sub, quest)
	if err != nil {
		// The verdict is already durable; the reconciler retries the award.
		log.WithError(err).Error("award after verification failed")
		return nil, err
	}
	outcome.CoinsAwarded = coins
	return outcome, nil
}

func (s *VerificationService) storedOutcome(ctx context.Context, sub *model.QuestSubmission, quest *model.Quest) (*VerifyOutcome, error) {
	coins, err := s.rewards.CompleteAndAward(ctx, sub, quest)
	if err != nil {
		return nil, err
	}
	out := &VerifyOutcome{CoinsAwarded: coins}
	if sub.VerificationResults != nil {
		out.Result = *sub.VerificationResults
	} else {
		out.Result = model.VerificationResult{Status: sub.Status}
	}
	return out, nil
}
