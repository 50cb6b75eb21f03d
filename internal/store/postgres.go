package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/greenloop/carbon-cli/internal/model"
)

// PgxPool is the subset of pgxpool.Pool used by PostgresStore. pgxmock's
// pool satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS balances (
	user_id        TEXT PRIMARY KEY,
	total_points   INTEGER NOT NULL DEFAULT 0 CHECK (total_points >= 0),
	last_survey_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS submissions (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	region             TEXT NOT NULL,
	kg                 DOUBLE PRECISION NOT NULL,
	base_points        INTEGER NOT NULL DEFAULT 0,
	penalty_points     INTEGER NOT NULL DEFAULT 0,
	provisional_points INTEGER NOT NULL DEFAULT 0,
	status             TEXT NOT NULL DEFAULT 'pending',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	finalized_at       TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_submissions_user_id ON submissions(user_id);
CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ApplyPointsDelta(ctx context.Context, userID string, delta int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO balances (user_id, total_points) VALUES ($1, GREATEST(0, $2::int))
		 ON CONFLICT (user_id) DO UPDATE SET total_points = GREATEST(0, balances.total_points + $2::int)`,
		userID, delta,
	)
	return eris.Wrapf(err, "postgres: apply points delta for %s", userID)
}

func (s *PostgresStore) SetLastSurveyDate(ctx context.Context, userID string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO balances (user_id, total_points, last_survey_at) VALUES ($1, 0, $2)
		 ON CONFLICT (user_id) DO UPDATE SET last_survey_at = EXCLUDED.last_survey_at`,
		userID, at.UTC(),
	)
	return eris.Wrapf(err, "postgres: set last survey date for %s", userID)
}

func (s *PostgresStore) GetBalance(ctx context.Context, userID string) (*model.UserPointBalance, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT user_id, total_points, last_survey_at FROM balances WHERE user_id = $1`,
		userID,
	)

	var b model.UserPointBalance
	var lastSurvey sql.NullTime
	err := row.Scan(&b.UserID, &b.TotalPoints, &lastSurvey)
	if errors.Is(err, pgx.ErrNoRows) {
		return &model.UserPointBalance{UserID: userID}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get balance for %s", userID)
	}
	if lastSurvey.Valid {
		b.LastCarbonSurveyAt = lastSurvey.Time
	}
	return &b, nil
}

func (s *PostgresStore) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO submissions
			(id, user_id, region, kg, base_points, penalty_points, provisional_points, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sub.ID, sub.UserID, string(sub.Region), sub.Kg,
		sub.BasePoints, sub.PenaltyPoints, sub.ProvisionalPoints,
		string(sub.Status), sub.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert submission %s", sub.ID)
}

func (s *PostgresStore) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, region, kg, base_points, penalty_points, provisional_points, status, created_at, finalized_at
		 FROM submissions WHERE id = $1`,
		id,
	)

	var sub model.Submission
	var region, status string
	var finalizedAt sql.NullTime
	err := row.Scan(&sub.ID, &sub.UserID, &region, &sub.Kg,
		&sub.BasePoints, &sub.PenaltyPoints, &sub.ProvisionalPoints,
		&status, &sub.CreatedAt, &finalizedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrSubmissionNotFound, "id %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get submission %s", id)
	}
	sub.Region = model.RegionKey(region)
	sub.Status = model.SubmissionStatus(status)
	if finalizedAt.Valid {
		t := finalizedAt.Time
		sub.FinalizedAt = &t
	}
	return &sub, nil
}

func (s *PostgresStore) FinalizeSubmission(ctx context.Context, id string, delta int, at time.Time) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, eris.Wrap(err, "postgres: begin finalize")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var userID string
	err = tx.QueryRow(ctx,
		`UPDATE submissions SET status = $1, finalized_at = $2
		 WHERE id = $3 AND status = $4
		 RETURNING user_id`,
		string(model.SubmissionFinalized), at.UTC(), id, string(model.SubmissionPending),
	).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either already finalized or unknown; disambiguate.
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM submissions WHERE id = $1)`, id,
		).Scan(&exists); err != nil {
			return false, eris.Wrapf(err, "postgres: check submission %s", id)
		}
		if !exists {
			return false, eris.Wrapf(ErrSubmissionNotFound, "id %s", id)
		}
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "postgres: mark finalized %s", id)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO balances (user_id, total_points) VALUES ($1, GREATEST(0, $2::int))
		 ON CONFLICT (user_id) DO UPDATE SET total_points = GREATEST(0, balances.total_points + $2::int)`,
		userID, delta,
	); err != nil {
		return false, eris.Wrapf(err, "postgres: apply finalize delta for %s", userID)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, eris.Wrapf(err, "postgres: commit finalize %s", id)
	}
	return true, nil
}
