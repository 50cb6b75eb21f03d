// Package store persists user point balances and settlement records.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/greenloop/carbon-cli/internal/model"
)

// ErrSubmissionNotFound is returned when a submission id is unknown.
var ErrSubmissionNotFound = eris.New("store: submission not found")

// Store defines the persistence interface for the settlement protocol.
//
// Balance mutations are expressed exclusively as deltas applied atomically
// server-side with a floor at zero; callers never read-modify-write a total.
type Store interface {
	// Balances
	ApplyPointsDelta(ctx context.Context, userID string, delta int) error
	SetLastSurveyDate(ctx context.Context, userID string, at time.Time) error
	GetBalance(ctx context.Context, userID string) (*model.UserPointBalance, error)

	// Submissions
	CreateSubmission(ctx context.Context, sub *model.Submission) error
	GetSubmission(ctx context.Context, id string) (*model.Submission, error)

	// FinalizeSubmission flips the submission's finalized marker and applies
	// the bonus delta to the owner's balance in one transaction. It returns
	// false with a nil error when the submission was already finalized, which
	// makes duplicate verification delivery a no-op.
	FinalizeSubmission(ctx context.Context, id string, delta int, at time.Time) (bool, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(databaseURL)
	case "postgres":
		return NewPostgres(ctx, databaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
