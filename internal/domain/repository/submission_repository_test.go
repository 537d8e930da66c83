package repository

import (
	"context"
	"regexp"
	"testing"
	"trippey_quests/internal/common"
	"trippey_quests/internal/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveVerdictSkipsVerifiedRows(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgSubmissionRepository(db)
	result := model.VerificationResult{Status: model.StatusUnderReview, Confidence: 0.5}

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $3 AND status <> 'verified'")).
		WithArgs(string(model.StatusUnderReview), sqlmock.AnyArg(), "s-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SaveVerdict(context.Background(), nil, "s-1", result))

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $3 AND status <> 'verified'")).
		WithArgs(string(model.StatusUnderReview), sqlmock.AnyArg(), "s-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	err := repo.SaveVerdict(context.Background(), nil, "s-1", result)
	assert.ErrorIs(t, err, common.ErrVerdictFinal)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $3 AND status <> 'verified'")).
		WithArgs(string(model.StatusUnderReview), sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	err = repo.SaveVerdict(context.Background(), nil, "missing", result)
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindVerifiedUnrewardedSelectsActiveAttempts(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgSubmissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("uq.status = 'active'")).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	subs, err := repo.FindVerifiedUnrewarded(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, subs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
