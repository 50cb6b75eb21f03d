package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenloop/carbon-cli/internal/model"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func TestPostgres_ApplyPointsDelta(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO balances`).
		WithArgs("u1", 10).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, st.ApplyPointsDelta(context.Background(), "u1", 10))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetBalance(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	at := time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT user_id, total_points, last_survey_at FROM balances`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "total_points", "last_survey_at"}).
			AddRow("u1", 42, at))

	b, err := st.GetBalance(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 42, b.TotalPoints)
	assert.Equal(t, at, b.LastCarbonSurveyAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetBalance_UnknownUserIsEmpty(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT user_id, total_points, last_survey_at FROM balances`).
		WithArgs("nobody").
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "total_points", "last_survey_at"}))

	b, err := st.GetBalance(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, "nobody", b.UserID)
	assert.Zero(t, b.TotalPoints)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetSubmission_NotFound(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, user_id, region`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "region", "kg", "base_points", "penalty_points",
			"provisional_points", "status", "created_at", "finalized_at",
		}))

	_, err := st.GetSubmission(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrSubmissionNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateSubmission(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	sub := testSubmission("sub-1")
	mock.ExpectExec(`INSERT INTO submissions`).
		WithArgs(sub.ID, sub.UserID, string(sub.Region), sub.Kg,
			sub.BasePoints, sub.PenaltyPoints, sub.ProvisionalPoints,
			string(sub.Status), sub.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, st.CreateSubmission(context.Background(), sub))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FinalizeSubmission_Applied(t *testing.T) {
	st, mock := newMockPostgresStore(t)
	at := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE submissions SET status`).
		WithArgs(string(model.SubmissionFinalized), at, "sub-1", string(model.SubmissionPending)).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow("u1"))
	mock.ExpectExec(`INSERT INTO balances`).
		WithArgs("u1", 80).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	applied, err := st.FinalizeSubmission(context.Background(), "sub-1", 80, at)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FinalizeSubmission_DuplicateIsNoOp(t *testing.T) {
	st, mock := newMockPostgresStore(t)
	at := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE submissions SET status`).
		WithArgs(string(model.SubmissionFinalized), at, "sub-1", string(model.SubmissionPending)).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("sub-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	applied, err := st.FinalizeSubmission(context.Background(), "sub-1", 80, at)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FinalizeSubmission_Unknown(t *testing.T) {
	st, mock := newMockPostgresStore(t)
	at := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE submissions SET status`).
		WithArgs(string(model.SubmissionFinalized), at, "missing", string(model.SubmissionPending)).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := st.FinalizeSubmission(context.Background(), "missing", 80, at)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrSubmissionNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
