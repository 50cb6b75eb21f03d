package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/greenloop/carbon-cli/internal/footprint"
	"github.com/greenloop/carbon-cli/internal/model"
	"github.com/greenloop/carbon-cli/internal/points"
	"github.com/greenloop/carbon-cli/internal/region"
	"github.com/greenloop/carbon-cli/internal/resilience"
	"github.com/greenloop/carbon-cli/internal/store"
)

var (
	estimateRegion    string
	estimateTransport []string
	estimateDiet      []string
	estimateDrink     []string
	estimateEnergy    string
	estimateAIKg      float64
	estimateUser      string
)

// estimateResult is the CLI/HTTP response shape for a scored survey.
type estimateResult struct {
	Kg            float64              `json:"kg"`
	Region        model.RegionKey      `json:"region"`
	Source        model.EstimateSource `json:"source"`
	BasePoints    int                  `json:"base_points"`
	PenaltyPoints int                  `json:"penalty_points"`
	SubmissionID  string               `json:"submission_id,omitempty"`
	Provisional   int                  `json:"provisional_points,omitempty"`
}

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Score a survey into a CO2 estimate and points",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		regions, err := region.NewRegistry(cfg.Scoring.RegionsFile)
		if err != nil {
			return err
		}
		engine := footprint.NewEngine(regions, footprint.Calibrator{
			Enabled: cfg.Scoring.CalibrationEnabled,
			Weight:  cfg.Scoring.BlendWeight,
		})

		answers := surveyFromFlags()
		var aiKg *float64
		if cmd.Flags().Changed("ai-kg") {
			aiKg = &estimateAIKg
		}

		est, err := engine.Score(estimateRegion, answers, aiKg)
		if err != nil {
			return eris.Wrap(err, "estimate survey")
		}
		outcome := points.Calculate(est.Kg, engine.Profile(est.Region))

		result := estimateResult{
			Kg:            est.Kg,
			Region:        est.Region,
			Source:        est.Source,
			BasePoints:    outcome.BasePoints,
			PenaltyPoints: outcome.PenaltyPoints,
		}

		// With --user the estimate is also settled against the balance store.
		if estimateUser != "" {
			st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return err
			}

			settler := points.NewSettler(st, resilience.DefaultRetryConfig("apply points delta"))
			sub, err := settler.Submit(ctx, estimateUser, est, outcome)
			if err != nil {
				return err
			}
			result.SubmissionID = sub.ID
			result.Provisional = sub.ProvisionalPoints
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func surveyFromFlags() model.SurveyAnswerSet {
	answers := model.SurveyAnswerSet{Energy: model.EnergyOption(estimateEnergy)}
	for _, t := range estimateTransport {
		answers.Transport = append(answers.Transport, model.TransportOption(t))
	}
	for _, d := range estimateDiet {
		answers.Diet = append(answers.Diet, model.DietOption(d))
	}
	for _, d := range estimateDrink {
		answers.Drink = append(answers.Drink, model.DrinkOption(d))
	}
	return answers
}

func init() {
	estimateCmd.Flags().StringVar(&estimateRegion, "region", "", "region or locale string (e.g. 'Dubai, UAE', 'tr')")
	estimateCmd.Flags().StringSliceVar(&estimateTransport, "transport", nil, "transport answers (car_gasoline, ev, public_transit, walk_bike)")
	estimateCmd.Flags().StringSliceVar(&estimateDiet, "diet", nil, "diet answers (red_meat, white_meat_fish, vegetarian_vegan, carb_based)")
	estimateCmd.Flags().StringSliceVar(&estimateDrink, "drink", nil, "drink answers (drink_coffee_milk, drink_bottled, drink_alcohol, drink_water_tea)")
	estimateCmd.Flags().StringVar(&estimateEnergy, "energy", "", "energy answer (none, low, medium, high)")
	estimateCmd.Flags().Float64Var(&estimateAIKg, "ai-kg", 0, "optional AI kilogram hint to calibrate against")
	estimateCmd.Flags().StringVar(&estimateUser, "user", "", "settle the result against this user's balance")
	rootCmd.AddCommand(estimateCmd)
}
