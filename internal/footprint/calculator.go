package footprint

import (
	"github.com/rotisserie/eris"

	"github.com/greenloop/carbon-cli/internal/model"
)

// ErrUnknownOption is returned when an option value is outside its enum.
// The normalizer's skip behavior should make this unreachable in the normal
// flow; the calculator still refuses to treat unknown options as zero.
var ErrUnknownOption = eris.New("footprint: unknown option value")

// DeterministicKg sums the fixed per-dimension weights for the selected
// options. The region key is threaded through for future region-specific
// weighting; it does not affect the raw sum.
func DeterministicKg(region model.RegionKey, transport model.TransportOption, diet model.DietOption, drink model.DrinkOption, energy model.EnergyOption) (float64, error) {
	_ = region

	tw, ok := TransportKg[transport]
	if !ok {
		return 0, eris.Wrapf(ErrUnknownOption, "transport %q", transport)
	}
	dw, ok := DietKg[diet]
	if !ok {
		return 0, eris.Wrapf(ErrUnknownOption, "diet %q", diet)
	}
	drw, ok := DrinkKg[drink]
	if !ok {
		return 0, eris.Wrapf(ErrUnknownOption, "drink %q", drink)
	}
	ew, ok := EnergyKg[energy]
	if !ok {
		return 0, eris.Wrapf(ErrUnknownOption, "energy %q", energy)
	}

	return tw + dw + drw + ew, nil
}

// EnforceWorstFloor raises kg to at least 95% of the region maximum when the
// literal worst answer was selected in every dimension simultaneously, then
// clamps into the region band. Additive weights undershoot the regional
// ceiling; a user who answers worst on every question must not score below
// it. Anything short of all four worst returns kg unchanged.
func EnforceWorstFloor(kg float64, profile model.RegionProfile, transport model.TransportOption, diet model.DietOption, drink model.DrinkOption, energy model.EnergyOption) float64 {
	allWorst := transport == WorstTransport &&
		diet == WorstDiet &&
		drink == WorstDrink &&
		energy == WorstEnergy
	if !allWorst {
		return kg
	}

	floored := kg
	if floor := profile.Max * 0.95; floored < floor {
		floored = floor
	}
	return clamp(floored, profile.Min, profile.Max)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
