package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"trippey_quests/internal/common"
	"trippey_quests/internal/domain/model"
)

type LeaderboardRepository interface {
	// RecordCompletion adds one quest and coins to the user's row, bumping the streak.
	RecordCompletion(ctx context.Context, tx *sql.Tx, userID string, coins int, at time.Time) error
	Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
	FindByUser(ctx context.Context, userID string) (*model.LeaderboardEntry, error)
}

type pgLeaderboardRepository struct {
	db *sql.DB
}

func NewPgLeaderboardRepository(db *sql.DB) LeaderboardRepository {
	return &pgLeaderboardRepository{db: db}
}

func (r *pgLeaderboardRepository) RecordCompletion(ctx context.Context, tx *sql.Tx, userID string, coins int, at time.Time) error {
	query := `INSERT INTO user_leaderboard (user_id, total_quests_completed, total_coins_earned, current_streak, longest_streak, last_quest_completed)
	          VALUES ($1, 1, $2, 1, 1, $3)
	          ON CONFLICT (user_id) DO UPDATE SET
	              total_quests_completed = user_leaderboard.total_quests_completed + 1,
	              total_coins_earned = user_leaderboard.total_coins_earned + EXCLUDED.total_coins_earned,
	              current_streak = user_leaderboard.current_streak + 1,
	              longest_streak = GREATEST(user_leaderboard.longest_streak, user_leaderboard.current_streak + 1),
	              last_quest_completed = EXCLUDED.last_quest_completed,
	              updated_at = now()`
	if _, err := conn(r.db, tx).ExecContext(ctx, query, userID, coins, at); err != nil {
		return fmt.Errorf("pgLeaderboardRepository.RecordCompletion: %w", err)
	}
	return nil
}

const rankedLeaderboard = `SELECT RANK() OVER (ORDER BY total_coins_earned DESC) AS rank,
       user_id, total_quests_completed, total_coins_earned, current_streak, longest_streak, last_quest_completed
FROM user_leaderboard`

func scanEntry(row rowScanner) (*model.LeaderboardEntry, error) {
	var e model.LeaderboardEntry
	var last sql.NullTime
	if err := row.Scan(&e.Rank, &e.UserID, &e.TotalQuestsCompleted, &e.TotalCoinsEarned,
		&e.CurrentStreak, &e.LongestStreak, &last); err != nil {
		return nil, err
	}
	if last.Valid {
		e.LastQuestCompleted = &last.Time
	}
	return &e, nil
}

func (r *pgLeaderboardRepository) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	query := rankedLeaderboard + ` ORDER BY total_coins_earned DESC, user_id LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("pgLeaderboardRepository.Top: %w", err)
	}
	defer rows.Close()

	entries := []model.LeaderboardEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("pgLeaderboardRepository.Top scan: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (r *pgLeaderboardRepository) FindByUser(ctx context.Context, userID string) (*model.LeaderboardEntry, error) {
	query := `SELECT * FROM (` + rankedLeaderboard + `) ranked WHERE user_id = $1`
	e, err := scanEntry(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgLeaderboardRepository.FindByUser: %w", err)
	}
	return e, nil
}
