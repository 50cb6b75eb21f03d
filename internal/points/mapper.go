// Package points maps footprint estimates to point awards and settles them
// against the balance store in two phases.
package points

import (
	"math"

	"github.com/greenloop/carbon-cli/internal/model"
)

// Reward/penalty scale constants.
const (
	maxBasePoints = 30
	maxPenalty    = 10
	penaltyPerKg  = 2.0
)

// Calculate maps a final kilogram value and region bounds to a points
// outcome. Exactly one of the two branches applies:
//
//   - kg above the penalty threshold: penalty of round((kg-threshold)/2),
//     capped at -10, no base points.
//   - otherwise: linear scale awarding 30 at region min down to 0 at region
//     max, clamped into [0,30] and rounded.
func Calculate(kg float64, profile model.RegionProfile) model.PointsOutcome {
	if kg > profile.PenaltyThreshold {
		penalty := math.Round((kg - profile.PenaltyThreshold) / penaltyPerKg)
		if penalty < 1 {
			// A footprint in the penalty band always costs at least one point.
			penalty = 1
		}
		if penalty > maxPenalty {
			penalty = maxPenalty
		}
		return model.PointsOutcome{PenaltyPoints: -int(penalty)}
	}

	span := profile.Max - profile.Min
	if span <= 0 {
		// Degenerate profile; award the maximum rather than divide by zero.
		return model.PointsOutcome{BasePoints: maxBasePoints}
	}

	a := -maxBasePoints / span
	b := maxBasePoints - a*profile.Min
	raw := a*kg + b
	if raw < 0 {
		raw = 0
	}
	if raw > maxBasePoints {
		raw = maxBasePoints
	}
	return model.PointsOutcome{BasePoints: int(math.Round(raw))}
}
