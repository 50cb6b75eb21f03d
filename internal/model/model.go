// Package model holds the shared domain types for the carbon scoring engine.
package model

import "time"

// RegionKey is the canonical identifier for a geographic scoring profile.
type RegionKey string

// Canonical region keys. RegionDefault is the fallback for unresolvable input.
const (
	RegionTurkey  RegionKey = "turkey"
	RegionUAE     RegionKey = "uae"
	RegionUSA     RegionKey = "usa"
	RegionEurope  RegionKey = "europe"
	RegionKuwait  RegionKey = "kuwait"
	RegionJapan   RegionKey = "japan"
	RegionDefault RegionKey = "default"
)

// RegionProfile holds the CO2 kilogram bounds observed for a typical day in
// a region. Profiles are loaded once at process start and never mutated.
// Invariant: 0 <= Min <= Avg <= PenaltyThreshold <= Max.
type RegionProfile struct {
	Min              float64 `json:"min" yaml:"min"`
	Avg              float64 `json:"avg" yaml:"avg"`
	Max              float64 `json:"max" yaml:"max"`
	PenaltyThreshold float64 `json:"penalty_threshold" yaml:"penalty_threshold"`
}

// TransportOption is a survey answer for the transport dimension.
type TransportOption string

const (
	TransportCarGasoline   TransportOption = "car_gasoline"
	TransportEV            TransportOption = "ev"
	TransportPublicTransit TransportOption = "public_transit"
	TransportWalkBike      TransportOption = "walk_bike"
)

// DietOption is a survey answer for the diet dimension.
type DietOption string

const (
	DietRedMeat       DietOption = "red_meat"
	DietWhiteMeatFish DietOption = "white_meat_fish"
	DietVegetarian    DietOption = "vegetarian_vegan"
	DietCarbBased     DietOption = "carb_based"
)

// DrinkOption is a survey answer for the drink dimension.
type DrinkOption string

const (
	DrinkCoffeeMilk DrinkOption = "drink_coffee_milk"
	DrinkBottled    DrinkOption = "drink_bottled"
	DrinkAlcohol    DrinkOption = "drink_alcohol"
	DrinkWaterTea   DrinkOption = "drink_water_tea"
)

// EnergyOption is a survey answer for the household energy dimension.
type EnergyOption string

const (
	EnergyNone   EnergyOption = "none"
	EnergyLow    EnergyOption = "low"
	EnergyMedium EnergyOption = "medium"
	EnergyHigh   EnergyOption = "high"
)

// SurveyAnswerSet is one submission's raw answers. Transport, diet and drink
// are multi-select in the survey UI; energy is single-select.
type SurveyAnswerSet struct {
	Transport []TransportOption `json:"transport"`
	Diet      []DietOption      `json:"diet"`
	Drink     []DrinkOption     `json:"drink"`
	Energy    EnergyOption      `json:"energy"`
}

// EstimateSource records how a footprint estimate was produced.
type EstimateSource string

const (
	SourceDeterministic EstimateSource = "deterministic"
	SourceCalibrated    EstimateSource = "calibrated"
)

// FootprintEstimate is the computed daily CO2 estimate for a submission.
// Immutable once computed; only the resulting points are persisted.
type FootprintEstimate struct {
	Kg     float64        `json:"kg"`
	Region RegionKey      `json:"region"`
	Source EstimateSource `json:"source"`
}

// PointsOutcome is the result of mapping a footprint to points. Exactly one
// of BasePoints and PenaltyPoints is nonzero.
type PointsOutcome struct {
	BasePoints    int `json:"base_points"`
	PenaltyPoints int `json:"penalty_points"`
}

// UserPointBalance mirrors the persisted balance row for a user.
// TotalPoints never goes negative; the store enforces the floor atomically.
type UserPointBalance struct {
	UserID             string    `json:"user_id"`
	TotalPoints        int       `json:"total_points"`
	LastCarbonSurveyAt time.Time `json:"last_carbon_survey_at"`
}

// SubmissionStatus tracks a submission through the settlement protocol.
type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionFinalized SubmissionStatus = "finalized"
)

// Submission is the per-survey settlement record: what was computed at
// submission time and whether the verification bonus has been applied.
type Submission struct {
	ID                string           `json:"id"`
	UserID            string           `json:"user_id"`
	Region            RegionKey        `json:"region"`
	Kg                float64          `json:"kg"`
	BasePoints        int              `json:"base_points"`
	PenaltyPoints     int              `json:"penalty_points"`
	ProvisionalPoints int              `json:"provisional_points"`
	Status            SubmissionStatus `json:"status"`
	CreatedAt         time.Time        `json:"created_at"`
	FinalizedAt       *time.Time       `json:"finalized_at,omitempty"`
}

// AnalysisResult is the sanitized shape of an AI analysis response.
// Recommendations and RecoveryActions always hold exactly three entries.
type AnalysisResult struct {
	EstimatedFootprintKg float64  `json:"estimated_footprint_kg"`
	Analysis             string   `json:"analysis"`
	Recommendations      []string `json:"recommendations"`
	RecoveryActions      []string `json:"recovery_actions"`
}
