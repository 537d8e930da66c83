package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"trippey_quests/internal/common"
	"trippey_quests/internal/domain/model"
	"trippey_quests/internal/domain/repository"
	"trippey_quests/internal/platform/logging"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
)

type QuestService struct {
	questRepo   repository.QuestRepository
	attemptRepo repository.UserQuestRepository
	// Quests are immutable once published, so cached entries never go stale.
	cache *lru.Cache
}

func NewQuestService(questRepo repository.QuestRepository, attemptRepo repository.UserQuestRepository, cacheSize int) *QuestService {
	if cacheSize <= 0 {
		cacheSize = 128
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		logging.Log.Fatalf("quest cache: %v", err)
	}
	return &QuestService{questRepo: questRepo, attemptRepo: attemptRepo, cache: cache}
}

type CreateQuestRequest struct {
	Title             string                  `json:"title" validate:"required,max=200"`
	Description       string                  `json:"description"`
	Category          model.QuestCategory     `json:"category" validate:"required,oneof=budget exploration transport cultural social_impact"`
	RewardCoins       int                     `json:"reward_coins" validate:"gte=0"`
	BonusCoins        int                     `json:"bonus_coins" validate:"gte=0"`
	Requirements      model.QuestRequirements `json:"requirements"`
	VerificationRules map[string]interface{}  `json:"verification_rules"`
	DifficultyLevel   int                     `json:"difficulty_level" validate:"required,min=1,max=5"`
	ExpiresAt         *time.Time              `json:"expires_at,omitempty"`
}

func (s *QuestService) CreateQuest(ctx context.Context, req CreateQuestRequest) (*model.Quest, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := validateStruct(req.Requirements); err != nil {
		return nil, err
	}
	reqs, err := normalizeRequirements(req.Category, req.Requirements)
	if err != nil {
		return nil, err
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now()) {
		return nil, common.Errorf("expires_at must be in the future: %w", common.ErrValidation)
	}

	quest := &model.Quest{
		ID:                uuid.NewString(),
		Title:             req.Title,
		Slug:              slug.Make(req.Title),
		Description:       req.Description,
		Category:          req.Category,
		RewardCoins:       req.RewardCoins,
		BonusCoins:        req.BonusCoins,
		Requirements:      reqs,
		VerificationRules: req.VerificationRules,
		DifficultyLevel:   req.DifficultyLevel,
		ExpiresAt:         req.ExpiresAt,
	}
	if err := s.questRepo.CreateQuest(ctx, nil, quest); err != nil {
		return nil, common.Errorf("failed to create quest: %w", err)
	}
	s.remember(quest)

	logging.WithFields(logrus.Fields{"quest_id": quest.ID, "slug": quest.Slug}).Info("quest published")
	return quest, nil
}

// normalizeRequirements applies the per-category rules on top of tag validation.
func normalizeRequirements(category model.QuestCategory, reqs model.QuestRequirements) (model.QuestRequirements, error) {
	if reqs.MaxAmount != nil && !reqs.MaxAmount.IsPositive() {
		return reqs, common.Errorf("max_amount must be positive: %w", common.ErrValidation)
	}
	types := make([]string, 0, len(reqs.TransportTypes))
	for _, t := range reqs.TransportTypes {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			types = append(types, t)
		}
	}
	reqs.TransportTypes = types
	reqs.ExpectedLocation = strings.TrimSpace(reqs.ExpectedLocation)

	switch category {
	case model.CategoryBudget:
		if reqs.MaxAmount == nil {
			return reqs, common.Errorf("budget quests need max_amount: %w", common.ErrValidation)
		}
	case model.CategoryTransport:
		if reqs.MaxAmount != nil {
			return reqs, common.Errorf("transport quests are judged on tickets, not amounts: %w", common.ErrValidation)
		}
	}
	return reqs, nil
}

func (s *QuestService) remember(q *model.Quest) {
	s.cache.Add("id:"+q.ID, q)
	s.cache.Add("slug:"+q.Slug, q)
}

func (s *QuestService) GetQuestByID(ctx context.Context, id string) (*model.Quest, error) {
	if v, ok := s.cache.Get("id:" + id); ok {
		return v.(*model.Quest), nil
	}
	q, err := s.questRepo.FindQuestByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.remember(q)
	return q, nil
}

func (s *QuestService) GetQuestBySlug(ctx context.Context, questSlug string) (*model.Quest, error) {
	if v, ok := s.cache.Get("slug:" + questSlug); ok {
		return v.(*model.Quest), nil
	}
	q, err := s.questRepo.FindQuestBySlug(ctx, questSlug)
	if err != nil {
		return nil, err
	}
	s.remember(q)
	return q, nil
}

type QuestPage struct {
	Quests []model.Quest `json:"quests"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

func (s *QuestService) ListQuests(ctx context.Context, category model.QuestCategory, limit, offset int) (*QuestPage, error) {
	if category != "" && !category.Valid() {
		return nil, common.Errorf("unknown category %q: %w", category, common.ErrBadRequest)
	}
	limit, offset = clampPage(limit, offset, 20, 100)
	quests, total, err := s.questRepo.ListQuests(ctx, category, limit, offset)
	if err != nil {
		return nil, err
	}
	return &QuestPage{Quests: quests, Total: total, Limit: limit, Offset: offset}, nil
}

// StartQuest opens an active attempt. A user holds at most one live
// (active or completed) attempt per quest.
func (s *QuestService) StartQuest(ctx context.Context, userID, questID string) (*model.UserQuest, error) {
	quest, err := s.GetQuestByID(ctx, questID)
	if err != nil {
		return nil, err
	}
	if quest.ExpiresAt != nil && quest.ExpiresAt.Before(time.Now()) {
		return nil, common.Errorf("quest %s has expired: %w", questID, common.ErrConflict)
	}

	existing, err := s.attemptRepo.FindLiveAttempt(ctx, userID, questID)
	if err == nil {
		return nil, common.Errorf("quest already %s for this user: %w", existing.Status, common.ErrConflict)
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	attempt := &model.UserQuest{
		ID:        uuid.NewString(),
		QuestID:   quest.ID,
		UserID:    userID,
		Status:    model.AttemptActive,
		Progress:  map[string]interface{}{},
		ExpiresAt: quest.ExpiresAt,
	}
	if err := s.attemptRepo.CreateAttempt(ctx, nil, attempt); err != nil {
		return nil, err
	}
	attempt.QuestTitle = &quest.Title

	logging.WithFields(logrus.Fields{"user_id": userID, "quest_id": questID, "attempt_id": attempt.ID}).Info("quest started")
	return attempt, nil
}

func (s *QuestService) ListMyQuests(ctx context.Context, userID string) ([]model.UserQuest, error) {
	return s.attemptRepo.ListAttemptsByUser(ctx, userID)
}
