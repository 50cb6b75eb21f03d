package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/greenloop/carbon-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS balances (
	user_id        TEXT PRIMARY KEY,
	total_points   INTEGER NOT NULL DEFAULT 0 CHECK (total_points >= 0),
	last_survey_at DATETIME
);

CREATE TABLE IF NOT EXISTS submissions (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	region             TEXT NOT NULL,
	kg                 REAL NOT NULL,
	base_points        INTEGER NOT NULL DEFAULT 0,
	penalty_points     INTEGER NOT NULL DEFAULT 0,
	provisional_points INTEGER NOT NULL DEFAULT 0,
	status             TEXT NOT NULL DEFAULT 'pending',
	created_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	finalized_at       DATETIME
);

CREATE INDEX IF NOT EXISTS idx_submissions_user_id ON submissions(user_id);
CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ApplyPointsDelta(ctx context.Context, userID string, delta int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO balances (user_id, total_points) VALUES (?, MAX(0, ?))
		 ON CONFLICT(user_id) DO UPDATE SET total_points = MAX(0, total_points + ?)`,
		userID, delta, delta,
	)
	return eris.Wrapf(err, "sqlite: apply points delta for %s", userID)
}

func (s *SQLiteStore) SetLastSurveyDate(ctx context.Context, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO balances (user_id, total_points, last_survey_at) VALUES (?, 0, ?)
		 ON CONFLICT(user_id) DO UPDATE SET last_survey_at = excluded.last_survey_at`,
		userID, at.UTC(),
	)
	return eris.Wrapf(err, "sqlite: set last survey date for %s", userID)
}

func (s *SQLiteStore) GetBalance(ctx context.Context, userID string) (*model.UserPointBalance, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, total_points, last_survey_at FROM balances WHERE user_id = ?`,
		userID,
	)

	var b model.UserPointBalance
	var lastSurvey sql.NullTime
	err := row.Scan(&b.UserID, &b.TotalPoints, &lastSurvey)
	if err == sql.ErrNoRows {
		// A user who has never earned points has an empty balance, not an error.
		return &model.UserPointBalance{UserID: userID}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get balance for %s", userID)
	}
	if lastSurvey.Valid {
		b.LastCarbonSurveyAt = lastSurvey.Time
	}
	return &b, nil
}

func (s *SQLiteStore) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions
			(id, user_id, region, kg, base_points, penalty_points, provisional_points, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.UserID, string(sub.Region), sub.Kg,
		sub.BasePoints, sub.PenaltyPoints, sub.ProvisionalPoints,
		string(sub.Status), sub.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert submission %s", sub.ID)
}

func (s *SQLiteStore) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, region, kg, base_points, penalty_points, provisional_points, status, created_at, finalized_at
		 FROM submissions WHERE id = ?`,
		id,
	)

	var sub model.Submission
	var region, status string
	var finalizedAt sql.NullTime
	err := row.Scan(&sub.ID, &sub.UserID, &region, &sub.Kg,
		&sub.BasePoints, &sub.PenaltyPoints, &sub.ProvisionalPoints,
		&status, &sub.CreatedAt, &finalizedAt,
	)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrSubmissionNotFound, "id %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get submission %s", id)
	}
	sub.Region = model.RegionKey(region)
	sub.Status = model.SubmissionStatus(status)
	if finalizedAt.Valid {
		t := finalizedAt.Time
		sub.FinalizedAt = &t
	}
	return &sub, nil
}

func (s *SQLiteStore) FinalizeSubmission(ctx context.Context, id string, delta int, at time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: begin finalize")
	}
	defer tx.Rollback() //nolint:errcheck

	// Flip the marker first; zero rows means a duplicate finalize.
	res, err := tx.ExecContext(ctx,
		`UPDATE submissions SET status = ?, finalized_at = ? WHERE id = ? AND status = ?`,
		string(model.SubmissionFinalized), at.UTC(), id, string(model.SubmissionPending),
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: mark finalized %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM submissions WHERE id = ?`, id,
		).Scan(&exists); err != nil {
			return false, eris.Wrapf(err, "sqlite: check submission %s", id)
		}
		if exists == 0 {
			return false, eris.Wrapf(ErrSubmissionNotFound, "id %s", id)
		}
		return false, nil
	}

	var userID string
	if err := tx.QueryRowContext(ctx,
		`SELECT user_id FROM submissions WHERE id = ?`, id,
	).Scan(&userID); err != nil {
		return false, eris.Wrapf(err, "sqlite: submission owner %s", id)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO balances (user_id, total_points) VALUES (?, MAX(0, ?))
		 ON CONFLICT(user_id) DO UPDATE SET total_points = MAX(0, total_points + ?)`,
		userID, delta, delta,
	); err != nil {
		return false, eris.Wrapf(err, "sqlite: apply finalize delta for %s", userID)
	}

	if err := tx.Commit(); err != nil {
		return false, eris.Wrapf(err, "sqlite: commit finalize %s", id)
	}
	return true, nil
}
