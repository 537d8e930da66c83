package service

import (
	"context"
	"errors"
	"trippey_quests/internal/common"
	"trippey_quests/internal/domain/model"
	"trippey_quests/internal/domain/repository"
)

const (
	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 100
)

type LeaderboardService struct {
	leaderboardRepo repository.LeaderboardRepository
}

func NewLeaderboardService(leaderboardRepo repository.LeaderboardRepository) *LeaderboardService {
	return &LeaderboardService{leaderboardRepo: leaderboardRepo}
}

func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	limit, _ = clampPage(limit, 0, defaultLeaderboardLimit, maxLeaderboardLimit)
	return s.leaderboardRepo.Top(ctx, limit)
}

// Me returns the caller's standing. A user with no completions gets a zero
// entry with rank 0 rather than a not-found error.
func (s *LeaderboardService) Me(ctx context.Context, userID string) (*model.LeaderboardEntry, error) {
	entry, err := s.leaderboardRepo.FindByUser(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return &model.LeaderboardEntry{UserID: userID}, nil
	}
	return entry, err
}
