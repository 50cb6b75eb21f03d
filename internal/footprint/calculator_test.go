package footprint

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenloop/carbon-cli/internal/model"
)

func TestDeterministicKg(t *testing.T) {
	tests := []struct {
		name      string
		transport model.TransportOption
		diet      model.DietOption
		drink     model.DrinkOption
		energy    model.EnergyOption
		want      float64
	}{
		{
			name:      "all worst",
			transport: model.TransportCarGasoline,
			diet:      model.DietRedMeat,
			drink:     model.DrinkAlcohol,
			energy:    model.EnergyHigh,
			want:      49,
		},
		{
			name:      "all best",
			transport: model.TransportWalkBike,
			diet:      model.DietVegetarian,
			drink:     model.DrinkWaterTea,
			energy:    model.EnergyNone,
			want:      4,
		},
		{
			name:      "mixed",
			transport: model.TransportPublicTransit,
			diet:      model.DietWhiteMeatFish,
			drink:     model.DrinkCoffeeMilk,
			energy:    model.EnergyMedium,
			want:      21,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeterministicKg(model.RegionDefault, tt.transport, tt.diet, tt.drink, tt.energy)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeterministicKg_UnknownOption(t *testing.T) {
	_, err := DeterministicKg(model.RegionDefault, "hoverboard", model.DietVegetarian, model.DrinkWaterTea, model.EnergyNone)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnknownOption))

	_, err = DeterministicKg(model.RegionDefault, model.TransportEV, model.DietVegetarian, model.DrinkWaterTea, "plasma")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnknownOption))
}

func TestDeterministicKg_WorseningAnswersNeverLowerKg(t *testing.T) {
	base, err := DeterministicKg(model.RegionDefault, model.TransportEV, model.DietCarbBased, model.DrinkBottled, model.EnergyLow)
	require.NoError(t, err)

	worse, err := DeterministicKg(model.RegionDefault, model.TransportCarGasoline, model.DietCarbBased, model.DrinkBottled, model.EnergyLow)
	require.NoError(t, err)
	assert.Greater(t, worse, base)

	worse, err = DeterministicKg(model.RegionDefault, model.TransportEV, model.DietRedMeat, model.DrinkBottled, model.EnergyLow)
	require.NoError(t, err)
	assert.Greater(t, worse, base)
}

func TestEnforceWorstFloor_AllWorst(t *testing.T) {
	profile := model.RegionProfile{Min: 25, Avg: 55, Max: 85, PenaltyThreshold: 65}

	got := EnforceWorstFloor(49, profile, WorstTransport, WorstDiet, WorstDrink, WorstEnergy)
	assert.InDelta(t, 80.75, got, 1e-9)
	assert.GreaterOrEqual(t, got, profile.Max*0.95)
	assert.LessOrEqual(t, got, profile.Max)
}

func TestEnforceWorstFloor_NotAllWorstUnchanged(t *testing.T) {
	profile := model.RegionProfile{Min: 25, Avg: 55, Max: 85, PenaltyThreshold: 65}

	got := EnforceWorstFloor(39, profile, WorstTransport, WorstDiet, WorstDrink, model.EnergyNone)
	assert.Equal(t, 39.0, got)

	// A value below region min stays put when the floor does not trigger.
	got = EnforceWorstFloor(4, profile, model.TransportWalkBike, model.DietVegetarian, model.DrinkWaterTea, model.EnergyNone)
	assert.Equal(t, 4.0, got)
}

func TestEnforceWorstFloor_ClampsIntoBand(t *testing.T) {
	profile := model.RegionProfile{Min: 10, Avg: 24, Max: 40, PenaltyThreshold: 30}

	// Already above the 95% floor; clamped to Max.
	got := EnforceWorstFloor(49, profile, WorstTransport, WorstDiet, WorstDrink, WorstEnergy)
	assert.Equal(t, 40.0, got)
}
