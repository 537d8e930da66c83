package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"trippey_quests/internal/common"
	"trippey_quests/internal/domain/model"
	"trippey_quests/internal/domain/repository"
	"trippey_quests/internal/platform/logging"
	"trippey_quests/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RewardService mints coins. Every award writes the reward record, the coin
// balance and the leaderboard row in one transaction. Awards are keyed on
// (user, quest) whichever entry point pays, so a quest is paid at most once.
type RewardService struct {
	ledgerRepo      repository.LedgerRepository
	leaderboardRepo repository.LeaderboardRepository
	attemptRepo     repository.UserQuestRepository
	db              *sql.DB
	defaultCoins    int
	now             func() time.Time
}

func NewRewardService(
	ledgerRepo repository.LedgerRepository,
	leaderboardRepo repository.LeaderboardRepository,
	attemptRepo repository.UserQuestRepository,
	db *sql.DB,
	defaultCoins int,
) *RewardService {
	return &RewardService{
		ledgerRepo:      ledgerRepo,
		leaderboardRepo: leaderboardRepo,
		attemptRepo:     attemptRepo,
		db:              db,
		defaultCoins:    defaultCoins,
		now:             time.Now,
	}
}

type AwardRequest struct {
	UserID       string  `json:"userId" validate:"required,uuid"`
	QuestID      string  `json:"questId" validate:"required,uuid"`
	Coins        int     `json:"coins" validate:"gte=0"`
	BonusCoins   int     `json:"bonusCoins" validate:"gte=0"`
	SubmissionID *string `json:"submissionId,omitempty" validate:"omitempty,uuid"`
}

// Award credits coins directly. The submission ID, when given, is recorded on
// the reward but does not change the key. Returns ErrAlreadyAwarded when the
// quest was already paid by either entry point.
func (s *RewardService) Award(ctx context.Context, req AwardRequest) (int, error) {
	if err := validateStruct(req); err != nil {
		return 0, err
	}
	questID := req.QuestID
	reward := s.newReward(req.UserID, &questID, req.SubmissionID, req.Coins, req.BonusCoins)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	total, err := s.applyAward(ctx, tx, reward)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, common.Errorf("failed to commit award: %w", err)
	}
	metrics.RecordAward(total)
	return total, nil
}

// CompleteAndAward finishes the attempt behind a verified submission and pays
// the quest's reward. It returns 0 without error when the attempt is no
// longer active. When the quest was already paid through Award the attempt is
// still completed, with no second payment.
func (s *RewardService) CompleteAndAward(ctx context.Context, sub *model.QuestSubmission, quest *model.Quest) (int, error) {
	log := logging.WithFields(logrus.Fields{"submission_id": sub.ID, "user_id": sub.UserID, "quest_id": quest.ID})

	coins := quest.RewardCoins
	if coins == 0 {
		coins = s.defaultCoins
	}
	questID := quest.ID
	submissionID := sub.ID
	reward := s.newReward(sub.UserID, &questID, &submissionID, coins, quest.BonusCoins)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	attempt, err := s.attemptRepo.FindAttemptByID(ctx, tx, sub.UserQuestID)
	if err != nil {
		return 0, common.Errorf("attempt %s: %w", sub.UserQuestID, err)
	}
	if !attempt.Status.CanTransition(model.AttemptCompleted) {
		log.WithField("attempt_status", attempt.Status).Warn("verified submission for an attempt that is not active; no award")
		return 0, nil
	}
	completed, err := s.attemptRepo.CompleteAttempt(ctx, tx, attempt.ID)
	if err != nil {
		return 0, err
	}
	if !completed {
		return 0, nil
	}

	total, err := s.applyAward(ctx, tx, reward)
	if errors.Is(err, common.ErrAlreadyAwarded) {
		if err := tx.Commit(); err != nil {
			return 0, common.Errorf("failed to commit completion: %w", err)
		}
		log.Info("quest already paid; attempt completed without a second award")
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, common.Errorf("failed to commit completion: %w", err)
	}

	metrics.RecordAward(total)
	log.WithField("coins", total).Info("quest completed and coins awarded")
	return total, nil
}

func (s *RewardService) newReward(userID string, questID, submissionID *string, coins, bonus int) *model.Reward {
	return &model.Reward{
		ID:           uuid.NewString(),
		UserID:       userID,
		QuestID:      questID,
		SubmissionID: submissionID,
		AwardKey:     model.QuestAwardKey(userID, *questID),
		RewardType:   model.RewardCoins,
		CoinsEarned:  coins,
		BonusCoins:   bonus,
		Description:  fmt.Sprintf("Quest completed: %d TrippEy Coins earned!", coins+bonus),
	}
}

func (s *RewardService) applyAward(ctx context.Context, tx *sql.Tx, reward *model.Reward) (int, error) {
	inserted, err := s.ledgerRepo.InsertReward(ctx, tx, reward)
	if err != nil {
		return 0, common.Errorf("failed to record reward: %w", err)
	}
	if !inserted {
		metrics.RecordDuplicateAward()
		logging.WithFields(logrus.Fields{"award_key": reward.AwardKey, "user_id": reward.UserID}).Info("duplicate award ignored")
		return 0, common.ErrAlreadyAwarded
	}
	total := reward.Total()
	if err := s.ledgerRepo.CreditCoins(ctx, tx, reward.UserID, total); err != nil {
		return 0, common.Errorf("failed to credit coins: %w", err)
	}
	if err := s.leaderboardRepo.RecordCompletion(ctx, tx, reward.UserID, total, s.now()); err != nil {
		return 0, common.Errorf("failed to update leaderboard: %w", err)
	}
	return total, nil
}

func (s *RewardService) GetCoins(ctx context.Context, userID string) (*model.CoinLedger, error) {
	return s.ledgerRepo.GetLedger(ctx, userID)
}

func (s *RewardService) ListRewards(ctx context.Context, userID string, limit, offset int) ([]model.Reward, error) {
	limit, offset = clampPage(limit, offset, 20, 100)
	return s.ledgerRepo.ListRewards(ctx, userID, limit, offset)
}
