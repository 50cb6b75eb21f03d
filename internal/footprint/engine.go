package footprint

import (
	"math"

	"go.uber.org/zap"

	"github.com/greenloop/carbon-cli/internal/model"
	"github.com/greenloop/carbon-cli/internal/region"
)

// Engine runs the full scoring pipeline: normalize answers, sum weights,
// enforce the worst-case floor, and optionally calibrate against an AI hint.
type Engine struct {
	regions    *region.Registry
	calibrator Calibrator
}

// NewEngine creates an Engine over a region registry.
func NewEngine(regions *region.Registry, calibrator Calibrator) *Engine {
	return &Engine{regions: regions, calibrator: calibrator}
}

// Selection is the normalized one-answer-per-dimension view of a survey.
type Selection struct {
	Transport model.TransportOption
	Diet      model.DietOption
	Drink     model.DrinkOption
	Energy    model.EnergyOption
}

// Normalize reduces a raw answer set to one representative answer per
// dimension under the worst-case selection policy.
func Normalize(answers model.SurveyAnswerSet) (Selection, error) {
	transport, err := PickOne(answers.Transport, TransportKg, PolicyWorst)
	if err != nil {
		return Selection{}, err
	}
	diet, err := PickOne(answers.Diet, DietKg, PolicyWorst)
	if err != nil {
		return Selection{}, err
	}
	drink, err := PickOne(answers.Drink, DrinkKg, PolicyWorst)
	if err != nil {
		return Selection{}, err
	}
	// Energy is single-select in the survey; normalize it through the same
	// path so unknown values are caught here rather than in the calculator.
	energy, err := PickOne([]model.EnergyOption{answers.Energy}, EnergyKg, PolicyWorst)
	if err != nil {
		return Selection{}, err
	}
	return Selection{Transport: transport, Diet: diet, Drink: drink, Energy: energy}, nil
}

// Score converts raw survey answers into a footprint estimate for the given
// region input. aiKg is an optional untrusted hint; it only ever moves the
// estimate within the region band.
func (e *Engine) Score(regionInput string, answers model.SurveyAnswerSet, aiKg *float64) (model.FootprintEstimate, error) {
	key := region.Resolve(regionInput)
	profile := e.regions.Profile(key)

	sel, err := Normalize(answers)
	if err != nil {
		return model.FootprintEstimate{}, err
	}

	kg, err := DeterministicKg(key, sel.Transport, sel.Diet, sel.Drink, sel.Energy)
	if err != nil {
		return model.FootprintEstimate{}, err
	}
	kg = EnforceWorstFloor(kg, profile, sel.Transport, sel.Diet, sel.Drink, sel.Energy)

	source := model.SourceDeterministic
	if e.calibrator.Active(aiKg) {
		source = model.SourceCalibrated
	}
	calibrated := e.calibrator.Calibrate(profile, kg, aiKg)
	// Reported kilograms carry one decimal place.
	calibrated = math.Round(calibrated*10) / 10

	zap.L().Debug("footprint: scored survey",
		zap.String("region", string(key)),
		zap.Float64("deterministic_kg", kg),
		zap.Float64("final_kg", calibrated),
		zap.String("source", string(source)),
	)

	return model.FootprintEstimate{Kg: calibrated, Region: key, Source: source}, nil
}

// Profile exposes the region bounds used by the engine for a resolved key.
func (e *Engine) Profile(key model.RegionKey) model.RegionProfile {
	return e.regions.Profile(key)
}
