package points

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenloop/carbon-cli/internal/model"
	"github.com/greenloop/carbon-cli/internal/resilience"
	"github.com/greenloop/carbon-cli/internal/store"
)

func newTestSettler(t *testing.T) (*Settler, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	retry := resilience.DefaultRetryConfig("test settle")
	retry.MaxAttempts = 1
	return NewSettler(st, retry), st
}

func TestSettler_SubmitGrantsProvisional(t *testing.T) {
	settler, st := newTestSettler(t)
	ctx := context.Background()

	est := model.FootprintEstimate{Kg: 4, Region: model.RegionTurkey, Source: model.SourceDeterministic}
	sub, err := settler.Submit(ctx, "user-1", est, model.PointsOutcome{BasePoints: 30})
	require.NoError(t, err)

	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, model.SubmissionPending, sub.Status)
	assert.Equal(t, 10, sub.ProvisionalPoints)

	b, err := st.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 10, b.TotalPoints)
	assert.False(t, b.LastCarbonSurveyAt.IsZero())
}

func TestSettler_SubmitAppliesPenaltyDirectly(t *testing.T) {
	settler, st := newTestSettler(t)
	ctx := context.Background()

	est := model.FootprintEstimate{Kg: 4, Region: model.RegionTurkey}
	_, err := settler.Submit(ctx, "user-1", est, model.PointsOutcome{BasePoints: 30})
	require.NoError(t, err)

	est = model.FootprintEstimate{Kg: 80.8, Region: model.RegionUAE}
	sub, err := settler.Submit(ctx, "user-1", est, model.PointsOutcome{PenaltyPoints: -8})
	require.NoError(t, err)
	assert.Zero(t, sub.ProvisionalPoints)

	b, err := st.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, b.TotalPoints)
}

func TestSettler_PenaltyNeverDrivesBalanceNegative(t *testing.T) {
	settler, st := newTestSettler(t)
	ctx := context.Background()

	est := model.FootprintEstimate{Kg: 80.8, Region: model.RegionUAE}
	_, err := settler.Submit(ctx, "fresh-user", est, model.PointsOutcome{PenaltyPoints: -8})
	require.NoError(t, err)

	b, err := st.GetBalance(ctx, "fresh-user")
	require.NoError(t, err)
	assert.Equal(t, 0, b.TotalPoints)
}

func TestSettler_FinalizeReplacesProvisionalWithBonus(t *testing.T) {
	settler, st := newTestSettler(t)
	ctx := context.Background()

	est := model.FootprintEstimate{Kg: 4, Region: model.RegionTurkey}
	sub, err := settler.Submit(ctx, "user-1", est, model.PointsOutcome{BasePoints: 30})
	require.NoError(t, err)

	fin, err := settler.Finalize(ctx, sub.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionFinalized, fin.Status)
	require.NotNil(t, fin.FinalizedAt)

	// Provisional 10 is replaced by the full bonus of 90.
	b, err := st.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 90, b.TotalPoints)
}

func TestSettler_FinalizeIsIdempotent(t *testing.T) {
	settler, st := newTestSettler(t)
	ctx := context.Background()

	est := model.FootprintEstimate{Kg: 4, Region: model.RegionTurkey}
	sub, err := settler.Submit(ctx, "user-1", est, model.PointsOutcome{BasePoints: 30})
	require.NoError(t, err)

	_, err = settler.Finalize(ctx, sub.ID, true)
	require.NoError(t, err)

	// Redelivered verification signal must not double-credit.
	for i := 0; i < 3; i++ {
		_, err = settler.Finalize(ctx, sub.ID, true)
		require.NoError(t, err)
	}

	b, err := st.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 90, b.TotalPoints)
}

func TestSettler_UnverifiedLeavesProvisional(t *testing.T) {
	settler, st := newTestSettler(t)
	ctx := context.Background()

	est := model.FootprintEstimate{Kg: 4, Region: model.RegionTurkey}
	sub, err := settler.Submit(ctx, "user-1", est, model.PointsOutcome{BasePoints: 30})
	require.NoError(t, err)

	fin, err := settler.Finalize(ctx, sub.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionPending, fin.Status)

	b, err := st.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 10, b.TotalPoints)
}

func TestSettler_FinalizeUnknownSubmission(t *testing.T) {
	settler, _ := newTestSettler(t)

	_, err := settler.Finalize(context.Background(), "no-such-id", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrSubmissionNotFound)
}
