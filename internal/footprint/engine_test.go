package footprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenloop/carbon-cli/internal/model"
	"github.com/greenloop/carbon-cli/internal/region"
)

func newTestEngine(t *testing.T, cal Calibrator) *Engine {
	t.Helper()
	regions, err := region.NewRegistry("")
	require.NoError(t, err)
	return NewEngine(regions, cal)
}

func worstSurvey() model.SurveyAnswerSet {
	return model.SurveyAnswerSet{
		Transport: []model.TransportOption{model.TransportCarGasoline},
		Diet:      []model.DietOption{model.DietRedMeat},
		Drink:     []model.DrinkOption{model.DrinkAlcohol},
		Energy:    model.EnergyHigh,
	}
}

func bestSurvey() model.SurveyAnswerSet {
	return model.SurveyAnswerSet{
		Transport: []model.TransportOption{model.TransportWalkBike},
		Diet:      []model.DietOption{model.DietVegetarian},
		Drink:     []model.DrinkOption{model.DrinkWaterTea},
		Energy:    model.EnergyNone,
	}
}

func TestEngine_Score_WorstCaseHitsRegionCeiling(t *testing.T) {
	e := newTestEngine(t, Calibrator{})

	est, err := e.Score("Dubai", worstSurvey(), nil)
	require.NoError(t, err)

	assert.Equal(t, model.RegionUAE, est.Region)
	assert.Equal(t, model.SourceDeterministic, est.Source)
	// Raw sum is 49; the all-worst floor lifts it to 95% of the UAE max.
	assert.Equal(t, 80.8, est.Kg)
}

func TestEngine_Score_BestCase(t *testing.T) {
	e := newTestEngine(t, Calibrator{})

	est, err := e.Score("tr", bestSurvey(), nil)
	require.NoError(t, err)

	assert.Equal(t, model.RegionTurkey, est.Region)
	assert.Equal(t, 4.0, est.Kg)
}

func TestEngine_Score_MultiSelectTakesWorst(t *testing.T) {
	e := newTestEngine(t, Calibrator{})

	survey := model.SurveyAnswerSet{
		Transport: []model.TransportOption{model.TransportEV, model.TransportCarGasoline},
		Diet:      []model.DietOption{model.DietVegetarian, model.DietWhiteMeatFish},
		Drink:     []model.DrinkOption{model.DrinkWaterTea},
		Energy:    model.EnergyLow,
	}

	est, err := e.Score("usa", survey, nil)
	require.NoError(t, err)
	// 15 + 10 + 1 + 3; not all-worst, so no floor.
	assert.Equal(t, 29.0, est.Kg)
}

func TestEngine_Score_CalibratedSource(t *testing.T) {
	e := newTestEngine(t, Calibrator{Enabled: true, Weight: 0.35})

	hint := 35.0
	est, err := e.Score("usa", bestSurvey(), &hint)
	require.NoError(t, err)

	assert.Equal(t, model.SourceCalibrated, est.Source)
	// det 4 is below USA min; hint 35 blends as 0.65*4 + 0.35*35 = 14.85,
	// clamped up to the USA min of 20.
	assert.Equal(t, 20.0, est.Kg)
}

func TestEngine_Score_UnknownRegionFallsBack(t *testing.T) {
	e := newTestEngine(t, Calibrator{})

	est, err := e.Score("atlantis", bestSurvey(), nil)
	require.NoError(t, err)
	assert.Equal(t, region.Fallback, est.Region)
}

func TestEngine_Score_EmptySurveyRejected(t *testing.T) {
	e := newTestEngine(t, Calibrator{})

	_, err := e.Score("tr", model.SurveyAnswerSet{}, nil)
	require.Error(t, err)
}

func TestNormalize(t *testing.T) {
	sel, err := Normalize(worstSurvey())
	require.NoError(t, err)
	assert.Equal(t, Selection{
		Transport: model.TransportCarGasoline,
		Diet:      model.DietRedMeat,
		Drink:     model.DrinkAlcohol,
		Energy:    model.EnergyHigh,
	}, sel)

	_, err = Normalize(model.SurveyAnswerSet{
		Transport: []model.TransportOption{model.TransportEV},
		Diet:      []model.DietOption{model.DietVegetarian},
		Drink:     []model.DrinkOption{model.DrinkWaterTea},
		Energy:    "fusion",
	})
	require.Error(t, err)
}
