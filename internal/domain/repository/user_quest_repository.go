package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"trippey_quests/internal/common"
	"trippey_quests/internal/domain/model"
)

type UserQuestRepository interface {
	CreateAttempt(ctx context.Context, tx *sql.Tx, attempt *model.UserQuest) error
	// FindAttemptByID locks the row when called inside a transaction.
	FindAttemptByID(ctx context.Context, tx *sql.Tx, id string) (*model.UserQuest, error)
	FindLiveAttempt(ctx context.Context, userID, questID string) (*model.UserQuest, error)
	ListAttemptsByUser(ctx context.Context, userID string) ([]model.UserQuest, error)
	// CompleteAttempt moves an active attempt to completed; false if it was not active.
	CompleteAttempt(ctx context.Context, tx *sql.Tx, id string) (bool, error)
	ExpireOverdueAttempts(ctx context.Context) (int64, error)
}

type pgUserQuestRepository struct {
	db *sql.DB
}

func NewPgUserQuestRepository(db *sql.DB) UserQuestRepository {
	return &pgUserQuestRepository{db: db}
}

func (r *pgUserQuestRepository) CreateAttempt(ctx context.Context, tx *sql.Tx, a *model.UserQuest) error {
	progress, err := toJSONB(a.Progress)
	if err != nil {
		return fmt.Errorf("pgUserQuestRepository.CreateAttempt: %w", err)
	}
	query := `INSERT INTO user_quests (id, quest_id, user_id, status, progress, expires_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING started_at`
	err = conn(r.db, tx).QueryRowContext(ctx, query, a.ID, a.QuestID, a.UserID, a.Status, progress, a.ExpiresAt).Scan(&a.StartedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("quest already started: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserQuestRepository.CreateAttempt: %w", err)
	}
	return nil
}

func scanAttempt(row rowScanner, withTitle bool) (*model.UserQuest, error) {
	var a model.UserQuest
	var progress []byte
	var completedAt, expiresAt sql.NullTime
	dest := []interface{}{&a.ID, &a.QuestID, &a.UserID, &a.Status, &progress, &a.StartedAt, &completedAt, &expiresAt}
	var title sql.NullString
	if withTitle {
		dest = append(dest, &title)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if err := fromJSONB(progress, &a.Progress); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	if expiresAt.Valid {
		a.ExpiresAt = &expiresAt.Time
	}
	if title.Valid {
		a.QuestTitle = &title.String
	}
	return &a, nil
}

func (r *pgUserQuestRepository) FindAttemptByID(ctx context.Context, tx *sql.Tx, id string) (*model.UserQuest, error) {
	query := `SELECT id, quest_id, user_id, status, progress, started_at, completed_at, expires_at
	          FROM user_quests WHERE id = $1`
	if tx != nil {
		query += ` FOR UPDATE`
	}
	a, err := scanAttempt(conn(r.db, tx).QueryRowContext(ctx, query, id), false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserQuestRepository.FindAttemptByID: %w", err)
	}
	return a, nil
}

func (r *pgUserQuestRepository) FindLiveAttempt(ctx context.Context, userID, questID string) (*model.UserQuest, error) {
	query := `SELECT id, quest_id, user_id, status, progress, started_at, completed_at, expires_at
	          FROM user_quests
	          WHERE user_id = $1 AND quest_id = $2 AND status IN ('active', 'completed')`
	a, err := scanAttempt(r.db.QueryRowContext(ctx, query, userID, questID), false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserQuestRepository.FindLiveAttempt: %w", err)
	}
	return a, nil
}

func (r *pgUserQuestRepository) ListAttemptsByUser(ctx context.Context, userID string) ([]model.UserQuest, error) {
	query := `SELECT uq.id, uq.quest_id, uq.user_id, uq.status, uq.progress, uq.started_at, uq.completed_at, uq.expires_at, q.title
	          FROM user_quests uq
	          JOIN quests q ON q.id = uq.quest_id
	          WHERE uq.user_id = $1
	          ORDER BY uq.started_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgUserQuestRepository.ListAttemptsByUser: %w", err)
	}
	defer rows.Close()

	attempts := []model.UserQuest{}
	for rows.Next() {
		a, err := scanAttempt(rows, true)
		if err != nil {
			return nil, fmt.Errorf("pgUserQuestRepository.ListAttemptsByUser scan: %w", err)
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

func (r *pgUserQuestRepository) CompleteAttempt(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	query := `UPDATE user_quests
	          SET status = 'completed', completed_at = now(), updated_at = now()
	          WHERE id = $1 AND status = 'active'`
	res, err := conn(r.db, tx).ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("pgUserQuestRepository.CompleteAttempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgUserQuestRepository.CompleteAttempt rows: %w", err)
	}
	return n == 1, nil
}

func (r *pgUserQuestRepository) ExpireOverdueAttempts(ctx context.Context) (int64, error) {
	query := `UPDATE user_quests
	          SET status = 'expired', updated_at = now()
	          WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at < now()`
	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("pgUserQuestRepository.ExpireOverdueAttempts: %w", err)
	}
	return res.RowsAffected()
}
