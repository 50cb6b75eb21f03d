package footprint

import (
	"math"

	"github.com/greenloop/carbon-cli/internal/model"
)

// Calibrator blends the deterministic estimate with an untrusted AI-produced
// kilogram hint. The hint is clamped into the region band before blending and
// the blend is re-clamped after, so an adversarial or hallucinated value can
// never push the score outside the plausible regional envelope.
type Calibrator struct {
	// Enabled gates calibration entirely; when false the deterministic
	// value always passes through unchanged.
	Enabled bool

	// Weight is the share given to the clamped AI hint, in [0,1].
	Weight float64
}

// Active reports whether a given hint would actually be blended.
func (c Calibrator) Active(aiKg *float64) bool {
	return c.Enabled && aiKg != nil && !math.IsNaN(*aiKg)
}

// Calibrate returns the calibrated kilogram value. A nil or NaN hint, or a
// disabled calibrator, returns detKg unchanged.
func (c Calibrator) Calibrate(profile model.RegionProfile, detKg float64, aiKg *float64) float64 {
	if !c.Active(aiKg) {
		return detKg
	}

	aiClamped := clamp(*aiKg, profile.Min, profile.Max)
	mix := (1-c.Weight)*detKg + c.Weight*aiClamped
	mix = clamp(mix, profile.Min, profile.Max)
	return math.Round(mix*10) / 10
}
