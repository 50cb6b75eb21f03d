package points

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/greenloop/carbon-cli/internal/model"
	"github.com/greenloop/carbon-cli/internal/resilience"
	"github.com/greenloop/carbon-cli/internal/store"
)

// Provisional is the fraction of base points granted immediately at
// submission time, pending verification: one third, floored.
func Provisional(basePoints int) int {
	if basePoints <= 0 {
		return 0
	}
	return basePoints / 3
}

// Bonus is the full award applied once a receipt or photo verification
// succeeds. It is a function of the original base points only and is always
// at least the provisional grant.
func Bonus(basePoints int) int {
	if basePoints <= 0 {
		return 0
	}
	return basePoints * 3
}

// Settler runs the two-phase settlement protocol over the balance store.
// All balance mutations go through the store as atomic floor-at-zero deltas;
// the Settler never computes a new total from a read.
type Settler struct {
	store store.Store
	retry resilience.RetryConfig
}

// NewSettler creates a Settler. Store writes are retried per cfg, treating
// balance-store unavailability as at-least-once deliverable.
func NewSettler(st store.Store, retry resilience.RetryConfig) *Settler {
	return &Settler{store: st, retry: retry}
}

// Submit performs step one of the protocol: record the submission and apply
// either the provisional grant or the penalty to the user's balance.
func (s *Settler) Submit(ctx context.Context, userID string, est model.FootprintEstimate, outcome model.PointsOutcome) (*model.Submission, error) {
	now := time.Now().UTC()
	sub := &model.Submission{
		ID:                uuid.New().String(),
		UserID:            userID,
		Region:            est.Region,
		Kg:                est.Kg,
		BasePoints:        outcome.BasePoints,
		PenaltyPoints:     outcome.PenaltyPoints,
		ProvisionalPoints: Provisional(outcome.BasePoints),
		Status:            model.SubmissionPending,
		CreatedAt:         now,
	}

	// No provisional grant on penalty days: the penalty applies directly.
	delta := sub.ProvisionalPoints
	if outcome.PenaltyPoints != 0 {
		delta = outcome.PenaltyPoints
		sub.ProvisionalPoints = 0
	}

	if err := s.store.CreateSubmission(ctx, sub); err != nil {
		return nil, eris.Wrap(err, "points: create submission")
	}

	err := resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		return s.store.ApplyPointsDelta(ctx, userID, delta)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "points: apply submission delta %d", delta)
	}

	if err := s.store.SetLastSurveyDate(ctx, userID, now); err != nil {
		// Balance already settled; the stale survey date only affects
		// once-per-day gating upstream.
		zap.L().Warn("points: set last survey date failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	zap.L().Info("points: submission settled",
		zap.String("submission_id", sub.ID),
		zap.String("user_id", userID),
		zap.Int("base_points", outcome.BasePoints),
		zap.Int("penalty_points", outcome.PenaltyPoints),
		zap.Int("delta", delta),
	)
	return sub, nil
}

// Finalize performs step two: on a verified signal, replace the provisional
// grant with the full bonus. It is idempotent per submission id; duplicate
// delivery of the verification signal is a no-op. An unverified signal
// leaves the provisional grant standing, which is a valid terminal state.
func (s *Settler) Finalize(ctx context.Context, submissionID string, verified bool) (*model.Submission, error) {
	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, eris.Wrapf(err, "points: get submission %s", submissionID)
	}

	if !verified {
		zap.L().Info("points: verification rejected, provisional stands",
			zap.String("submission_id", submissionID),
		)
		return sub, nil
	}

	delta := Bonus(sub.BasePoints) - sub.ProvisionalPoints

	var applied bool
	err = resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		var ferr error
		applied, ferr = s.store.FinalizeSubmission(ctx, submissionID, delta, time.Now().UTC())
		return ferr
	})
	if err != nil {
		return nil, eris.Wrapf(err, "points: finalize submission %s", submissionID)
	}

	if !applied {
		zap.L().Info("points: duplicate finalize ignored",
			zap.String("submission_id", submissionID),
		)
		return sub, nil
	}

	zap.L().Info("points: submission finalized",
		zap.String("submission_id", submissionID),
		zap.String("user_id", sub.UserID),
		zap.Int("bonus", Bonus(sub.BasePoints)),
		zap.Int("delta", delta),
	)
	return s.store.GetSubmission(ctx, submissionID)
}
