package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/greenloop/carbon-cli/internal/analysis"
	"github.com/greenloop/carbon-cli/internal/footprint"
	"github.com/greenloop/carbon-cli/internal/region"
)

var (
	analyzeLanguage string
	analyzeOther    string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the AI footprint analysis for a survey",
	Long:  "Scores the survey deterministically, then asks the AI service for qualitative analysis. Falls back to general tips when the service is unavailable.",
	RunE: func(cmd *cobra.Command, args []string) error {
		regions, err := region.NewRegistry(cfg.Scoring.RegionsFile)
		if err != nil {
			return err
		}
		engine := footprint.NewEngine(regions, footprint.Calibrator{})

		answers := surveyFromFlags()
		est, err := engine.Score(estimateRegion, answers, nil)
		if err != nil {
			return err
		}

		result := analysis.Fallback(est.Kg)
		if cfg.Anthropic.Key != "" {
			client := analysis.NewClient(analysis.Config{
				APIKey:       cfg.Anthropic.Key,
				Model:        cfg.Anthropic.Model,
				MaxTokens:    cfg.Anthropic.MaxTokens,
				RequestsPerS: cfg.Anthropic.RequestsPerS,
				Timeout:      time.Duration(cfg.Anthropic.TimeoutSecs) * time.Second,
			})
			r, err := client.Analyze(cmd.Context(), analysis.Request{
				Survey:          answers,
				Region:          est.Region,
				Language:        analyzeLanguage,
				Other:           analyzeOther,
				DeterministicKg: est.Kg,
			})
			if err != nil {
				zap.L().Warn("analysis degraded to general tips", zap.Error(err))
			} else {
				result = *r
			}
		}

		out := struct {
			DeterministicKg float64 `json:"deterministic_kg"`
			analysisPayload
		}{est.Kg, analysisPayload{result.EstimatedFootprintKg, result.Analysis, result.Recommendations, result.RecoveryActions}}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

// analysisPayload flattens AnalysisResult for CLI/HTTP output.
type analysisPayload struct {
	EstimatedFootprintKg float64  `json:"estimated_footprint_kg"`
	Analysis             string   `json:"analysis"`
	Recommendations      []string `json:"recommendations"`
	RecoveryActions      []string `json:"recovery_actions"`
}

func init() {
	analyzeCmd.Flags().StringVar(&estimateRegion, "region", "", "region or locale string")
	analyzeCmd.Flags().StringSliceVar(&estimateTransport, "transport", nil, "transport answers")
	analyzeCmd.Flags().StringSliceVar(&estimateDiet, "diet", nil, "diet answers")
	analyzeCmd.Flags().StringSliceVar(&estimateDrink, "drink", nil, "drink answers")
	analyzeCmd.Flags().StringVar(&estimateEnergy, "energy", "", "energy answer")
	analyzeCmd.Flags().StringVar(&analyzeLanguage, "language", "", "language for the generated analysis")
	analyzeCmd.Flags().StringVar(&analyzeOther, "other", "", "free-text notes forwarded to the analysis")
	rootCmd.AddCommand(analyzeCmd)
}
