package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"trippey_quests/internal/common"
	"trippey_quests/internal/domain/model"
)

// LedgerRepository owns user_rewards and user_coins. Balance changes are
// single-statement increments so concurrent awards never lose an update.
type LedgerRepository interface {
	// InsertReward returns false when a reward with the same award key exists.
	InsertReward(ctx context.Context, tx *sql.Tx, reward *model.Reward) (bool, error)
	CreditCoins(ctx context.Context, tx *sql.Tx, userID string, amount int) error
	DebitCoins(ctx context.Context, tx *sql.Tx, userID string, amount int) error
	GetLedger(ctx context.Context, userID string) (*model.CoinLedger, error)
	ListRewards(ctx context.Context, userID string, limit, offset int) ([]model.Reward, error)
}

type pgLedgerRepository struct {
	db *sql.DB
}

func NewPgLedgerRepository(db *sql.DB) LedgerRepository {
	return &pgLedgerRepository{db: db}
}

func (r *pgLedgerRepository) InsertReward(ctx context.Context, tx *sql.Tx, rw *model.Reward) (bool, error) {
	query := `INSERT INTO user_rewards (id, user_id, quest_id, submission_id, award_key, reward_type, coins_earned, bonus_coins, description)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          ON CONFLICT (award_key) DO NOTHING`
	res, err := conn(r.db, tx).ExecContext(ctx, query,
		rw.ID, rw.UserID, rw.QuestID, rw.SubmissionID, rw.AwardKey, rw.RewardType, rw.CoinsEarned, rw.BonusCoins, rw.Description,
	)
	if err != nil {
		return false, fmt.Errorf("pgLedgerRepository.InsertReward: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgLedgerRepository.InsertReward rows: %w", err)
	}
	return n == 1, nil
}

func (r *pgLedgerRepository) CreditCoins(ctx context.Context, tx *sql.Tx, userID string, amount int) error {
	query := `INSERT INTO user_coins (user_id, available_coins, lifetime_earned)
	          VALUES ($1, $2, $2)
	          ON CONFLICT (user_id) DO UPDATE SET
	              available_coins = user_coins.available_coins + EXCLUDED.available_coins,
	              lifetime_earned = user_coins.lifetime_earned + EXCLUDED.lifetime_earned,
	              updated_at = now()`
	if _, err := conn(r.db, tx).ExecContext(ctx, query, userID, amount); err != nil {
		return fmt.Errorf("pgLedgerRepository.CreditCoins: %w", err)
	}
	return nil
}

func (r *pgLedgerRepository) DebitCoins(ctx context.Context, tx *sql.Tx, userID string, amount int) error {
	query := `UPDATE user_coins
	          SET available_coins = available_coins - $2, updated_at = now()
	          WHERE user_id = $1 AND available_coins >= $2`
	res, err := conn(r.db, tx).ExecContext(ctx, query, userID, amount)
	if err != nil {
		return fmt.Errorf("pgLedgerRepository.DebitCoins: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgLedgerRepository.DebitCoins rows: %w", err)
	}
	if n == 0 {
		return common.ErrInsufficientFunds
	}
	return nil
}

// GetLedger returns a zero ledger for users who never earned coins.
func (r *pgLedgerRepository) GetLedger(ctx context.Context, userID string) (*model.CoinLedger, error) {
	query := `SELECT user_id, available_coins, lifetime_earned, updated_at FROM user_coins WHERE user_id = $1`
	l := &model.CoinLedger{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&l.UserID, &l.AvailableCoins, &l.LifetimeEarned, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &model.CoinLedger{UserID: userID}, nil
		}
		return nil, fmt.Errorf("pgLedgerRepository.GetLedger: %w", err)
	}
	l.TotalCoins = l.LifetimeEarned
	return l, nil
}

func (r *pgLedgerRepository) ListRewards(ctx context.Context, userID string, limit, offset int) ([]model.Reward, error) {
	query := `SELECT id, user_id, quest_id, submission_id, reward_type, coins_earned, bonus_coins, description, created_at
	          FROM user_rewards
	          WHERE user_id = $1
	          ORDER BY created_at DESC
	          LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("pgLedgerRepository.ListRewards: %w", err)
	}
	defer rows.Close()

	rewards := []model.Reward{}
	for rows.Next() {
		var rw model.Reward
		var questID, submissionID sql.NullString
		if err := rows.Scan(&rw.ID, &rw.UserID, &questID, &submissionID, &rw.RewardType,
			&rw.CoinsEarned, &rw.BonusCoins, &rw.Description, &rw.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgLedgerRepository.ListRewards scan: %w", err)
		}
		if questID.Valid {
			rw.QuestID = &questID.String
		}
		if submissionID.Valid {
			rw.SubmissionID = &submissionID.String
		}
		rewards = append(rewards, rw)
	}
	return rewards, rows.Err()
}
