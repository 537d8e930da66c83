package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"trippey_quests/internal/common"
	"trippey_quests/internal/domain/model"
)

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.QuestSubmission) error
	GetSubmissionByID(ctx context.Context, id string) (*model.QuestSubmission, error)
	// SaveVerdict writes status and verification_results together. A verified
	// submission is never overwritten: that case returns ErrVerdictFinal.
	SaveVerdict(ctx context.Context, tx *sql.Tx, submissionID string, result model.VerificationResult) error
	ListSubmissionsByUser(ctx context.Context, userID string, limit, offset int) ([]model.QuestSubmission, error)
	// FindVerifiedUnrewarded returns verified submissions whose attempt is still
	// active, i.e. the completion (and possibly the award) never landed.
	FindVerifiedUnrewarded(ctx context.Context, limit int) ([]model.QuestSubmission, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

const submissionColumns = `s.id, s.user_quest_id, s.submission_type, s.file_url, s.status, s.verification_results,
       s.reviewer_notes, s.metadata, s.created_at, s.updated_at, uq.user_id, uq.quest_id`

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.QuestSubmission) error {
	metadata, err := toJSONB(sub.Metadata)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	query := `INSERT INTO quest_submissions (id, user_quest_id, submission_type, file_url, status, metadata)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING created_at, updated_at`
	err = conn(r.db, tx).QueryRowContext(ctx, query,
		sub.ID, sub.UserQuestID, sub.SubmissionType, sub.FileURL, sub.Status, metadata,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

func scanSubmission(row rowScanner) (*model.QuestSubmission, error) {
	var s model.QuestSubmission
	var results, metadata []byte
	var notes sql.NullString
	if err := row.Scan(&s.ID, &s.UserQuestID, &s.SubmissionType, &s.FileURL, &s.Status, &results,
		&notes, &metadata, &s.CreatedAt, &s.UpdatedAt, &s.UserID, &s.QuestID); err != nil {
		return nil, err
	}
	if len(results) > 0 {
		s.VerificationResults = &model.VerificationResult{}
		if err := fromJSONB(results, s.VerificationResults); err != nil {
			return nil, err
		}
	}
	if err := fromJSONB(metadata, &s.Metadata); err != nil {
		return nil, err
	}
	if notes.Valid {
		s.ReviewerNotes = &notes.String
	}
	return &s, nil
}

func (r *pgSubmissionRepository) GetSubmissionByID(ctx context.Context, id string) (*model.QuestSubmission, error) {
	query := `SELECT ` + submissionColumns + `
	          FROM quest_submissions s
	          JOIN user_quests uq ON uq.id = s.user_quest_id
	          WHERE s.id = $1`
	s, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID: %w", err)
	}
	return s, nil
}

func (r *pgSubmissionRepository) SaveVerdict(ctx context.Context, tx *sql.Tx, submissionID string, result model.VerificationResult) error {
	payload, err := toJSONB(result)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.SaveVerdict: %w", err)
	}
	query := `UPDATE quest_submissions
	          SET status = $1, verification_results = $2, updated_at = now()
	          WHERE id = $3 AND status <> 'verified'`
	res, err := conn(r.db, tx).ExecContext(ctx, query, result.Status, payload, submissionID)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.SaveVerdict: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists bool
	err = conn(r.db, tx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM quest_submissions WHERE id = $1)`, submissionID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.SaveVerdict: %w", err)
	}
	if !exists {
		return fmt.Errorf("submission %s: %w", submissionID, common.ErrNotFound)
	}
	return fmt.Errorf("submission %s: %w", submissionID, common.ErrVerdictFinal)
}

func (r *pgSubmissionRepository) ListSubmissionsByUser(ctx context.Context, userID string, limit, offset int) ([]model.QuestSubmission, error) {
	query := `SELECT ` + submissionColumns + `
	          FROM quest_submissions s
	          JOIN user_quests uq ON uq.id = s.user_quest_id
	          WHERE uq.user_id = $1
	          ORDER BY s.created_at DESC
	          LIMIT $2 OFFSET $3`
	return r.list(ctx, "ListSubmissionsByUser", query, userID, limit, offset)
}

func (r *pgSubmissionRepository) FindVerifiedUnrewarded(ctx context.Context, limit int) ([]model.QuestSubmission, error) {
	query := `SELECT ` + submissionColumns + `
	          FROM quest_submissions s
	          JOIN user_quests uq ON uq.id = s.user_quest_id
	          WHERE s.status = 'verified'
	            AND uq.status = 'active'
	          ORDER BY s.updated_at
	          LIMIT $1`
	return r.list(ctx, "FindVerifiedUnrewarded", query, limit)
}

func (r *pgSubmissionRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]model.QuestSubmission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.%s: %w", op, err)
	}
	defer rows.Close()

	subs := []model.QuestSubmission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.%s scan: %w", op, err)
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}
