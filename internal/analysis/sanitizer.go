// Package analysis produces the qualitative footprint analysis via an
// external AI service and defends the rest of the system from its output.
package analysis

import (
	"encoding/json"
	"strings"

	"github.com/greenloop/carbon-cli/internal/model"
)

// The AI service is untrusted for structure, not just for the numeric
// estimate. Sanitize trades fidelity for availability: whatever comes back,
// downstream always sees a complete AnalysisResult.

const fallbackAnalysis = "Your daily footprint was estimated from your survey answers. Small changes in transport and diet have the biggest impact."

var defaultRecommendations = [3]string{
	"Choose walking, cycling or public transport for short trips.",
	"Swap one red-meat meal for a plant-based one.",
	"Switch off heating and cooling in rooms you are not using.",
}

var defaultRecoveryActions = [3]string{
	"Log a recycling drop-off to earn points back.",
	"Take the survey again tomorrow after one low-carbon day.",
	"Upload a receipt for a verified green purchase.",
}

// Sanitize coerces an arbitrary decoded AI response to the fixed result
// shape. It never fails; missing or malformed fields get defaults.
//
// Only JSON numbers are accepted for the kilogram estimate; numeric strings
// are not coerced. Negative values floor to 0.
func Sanitize(raw map[string]any) model.AnalysisResult {
	result := model.AnalysisResult{
		Analysis:        fallbackAnalysis,
		Recommendations: defaultRecommendations[:],
		RecoveryActions: defaultRecoveryActions[:],
	}
	if raw == nil {
		return result
	}

	if kg, ok := raw["estimatedFootprintKg"].(float64); ok && kg > 0 {
		result.EstimatedFootprintKg = kg
	}

	if s, ok := raw["analysis"].(string); ok && strings.TrimSpace(s) != "" {
		result.Analysis = strings.TrimSpace(s)
	}

	result.Recommendations = sanitizeList(raw["recommendations"], defaultRecommendations)
	result.RecoveryActions = sanitizeList(raw["recoveryActions"], defaultRecoveryActions)
	return result
}

// SanitizeJSON decodes a raw JSON payload and sanitizes it. Undecodable
// payloads yield the all-defaults result.
func SanitizeJSON(data []byte) model.AnalysisResult {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Sanitize(nil)
	}
	return Sanitize(raw)
}

// sanitizeList pads or truncates to exactly three non-empty strings,
// substituting positional defaults for missing or empty entries.
func sanitizeList(v any, defaults [3]string) []string {
	out := make([]string, 3)
	copy(out, defaults[:])

	items, ok := v.([]any)
	if !ok {
		return out
	}
	for i := 0; i < 3 && i < len(items); i++ {
		if s, ok := items[i].(string); ok && strings.TrimSpace(s) != "" {
			out[i] = strings.TrimSpace(s)
		}
	}
	return out
}
