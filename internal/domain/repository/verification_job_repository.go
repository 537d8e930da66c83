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

type VerificationJobRepository interface {
	CreateJob(ctx context.Context, tx *sql.Tx, job *model.VerificationJob) error
	GetJobByID(ctx context.Context, id string) (*model.VerificationJob, error)
	UpdateJobStatus(ctx context.Context, tx *sql.Tx, jobID string, status string, lastError *string) error
	// IncrementJobAttempts returns the attempt count after the increment.
	IncrementJobAttempts(ctx context.Context, tx *sql.Tx, jobID string) (int, error)
	// FindStaleQueued lists jobs left Queued or stuck in Processing for longer
	// than olderThan, oldest first.
	FindStaleQueued(ctx context.Context, olderThan time.Duration, limit int) ([]model.VerificationJob, error)
}

type pgVerificationJobRepository struct {
	db *sql.DB
}

func NewPgVerificationJobRepository(db *sql.DB) VerificationJobRepository {
	return &pgVerificationJobRepository{db: db}
}

func (r *pgVerificationJobRepository) CreateJob(ctx context.Context, tx *sql.Tx, job *model.VerificationJob) error {
	query := `INSERT INTO verification_jobs (id, submission_id, status, attempts)
	          VALUES ($1, $2, $3, $4)
	          RETURNING created_at, updated_at`
	err := conn(r.db, tx).QueryRowContext(ctx, query, job.ID, job.SubmissionID, job.Status, job.Attempts).
		Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pgVerificationJobRepository.CreateJob: %w", err)
	}
	return nil
}

func (r *pgVerificationJobRepository) GetJobByID(ctx context.Context, id string) (*model.VerificationJob, error) {
	query := `SELECT id, submission_id, status, attempts, last_error, created_at, updated_at
	          FROM verification_jobs WHERE id = $1`
	job := &model.VerificationJob{}
	var lastError sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.SubmissionID, &job.Status, &job.Attempts, &lastError, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgVerificationJobRepository.GetJobByID: %w", err)
	}
	if lastError.Valid {
		job.LastError = &lastError.String
	}
	return job, nil
}

func (r *pgVerificationJobRepository) UpdateJobStatus(ctx context.Context, tx *sql.Tx, jobID string, status string, lastError *string) error {
	query := `UPDATE verification_jobs SET status = $1, last_error = $2, updated_at = now() WHERE id = $3`
	if _, err := conn(r.db, tx).ExecContext(ctx, query, status, lastError, jobID); err != nil {
		return fmt.Errorf("pgVerificationJobRepository.UpdateJobStatus: %w", err)
	}
	return nil
}

func (r *pgVerificationJobRepository) IncrementJobAttempts(ctx context.Context, tx *sql.Tx, jobID string) (int, error) {
	query := `UPDATE verification_jobs SET attempts = attempts + 1, updated_at = now() WHERE id = $1 RETURNING attempts`
	var attempts int
	if err := conn(r.db, tx).QueryRowContext(ctx, query, jobID).Scan(&attempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrNotFound
		}
		return 0, fmt.Errorf("pgVerificationJobRepository.IncrementJobAttempts: %w", err)
	}
	return attempts, nil
}

func (r *pgVerificationJobRepository) FindStaleQueued(ctx context.Context, olderThan time.Duration, limit int) ([]model.VerificationJob, error) {
	query := `SELECT id, submission_id, status, attempts, last_error, created_at, updated_at
	          FROM verification_jobs
	          WHERE status IN ($1, $2) AND updated_at < $3
	          ORDER BY updated_at
	          LIMIT $4`
	rows, err := r.db.QueryContext(ctx, query,
		model.JobStatusQueued, model.JobStatusProcessing, time.Now().Add(-olderThan), limit)
	if err != nil {
		return nil, fmt.Errorf("pgVerificationJobRepository.FindStaleQueued: %w", err)
	}
	defer rows.Close()

	jobs := []model.VerificationJob{}
	for rows.Next() {
		var job model.VerificationJob
		var lastError sql.NullString
		if err := rows.Scan(&job.ID, &job.SubmissionID, &job.Status, &job.Attempts, &lastError, &job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pgVerificationJobRepository.FindStaleQueued scan: %w", err)
		}
		if lastError.Valid {
			job.LastError = &lastError.String
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
