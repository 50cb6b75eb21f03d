package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/greenloop/carbon-cli/internal/model"
	"github.com/greenloop/carbon-cli/internal/resilience"
)

// Request carries the survey context sent to the AI service.
type Request struct {
	Survey          model.SurveyAnswerSet
	Region          model.RegionKey
	Language        string
	Other           string
	DeterministicKg float64
}

// Analyzer produces a qualitative analysis for a survey. Implementations may
// fail; callers fall back to Fallback so scoring never depends on the AI.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*model.AnalysisResult, error)
}

// Config holds the Anthropic analyzer settings.
type Config struct {
	APIKey       string
	Model        string
	MaxTokens    int64
	RequestsPerS float64
	Timeout      time.Duration
}

// Client implements Analyzer against the Anthropic Messages API.
type Client struct {
	client    sdk.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
}

// NewClient creates an Anthropic-backed analyzer.
func NewClient(cfg Config) *Client {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	rps := cfg.RequestsPerS
	if rps <= 0 {
		rps = 2
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		client:    sdk.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     cfg.Model,
		maxTokens: maxTokens,
		timeout:   timeout,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		retry:     resilience.DefaultRetryConfig("anthropic analyze"),
	}
}

const systemPrompt = `You are a carbon footprint coach. Reply with a single JSON object and nothing else, using exactly these keys:
{"estimatedFootprintKg": <number>, "analysis": <string>, "recommendations": [<string>, <string>, <string>], "recoveryActions": [<string>, <string>, <string>]}`

// Analyze calls the AI service and sanitizes its response. The returned
// kilogram estimate is a hint only; the calibration blender clamps it.
func (c *Client) Analyze(ctx context.Context, req Request) (*model.AnalysisResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "analysis: rate limit wait")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*sdk.Message, error) {
		return c.client.Messages.New(ctx, sdk.MessageNewParams{
			Model:     sdk.Model(c.model),
			MaxTokens: c.maxTokens,
			System:    []sdk.TextBlockParam{{Text: systemPrompt}},
			Messages: []sdk.MessageParam{
				sdk.NewUserMessage(sdk.NewTextBlock(buildPrompt(req))),
			},
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "analysis: create message")
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	result := SanitizeJSON([]byte(stripFences(text.String())))
	zap.L().Debug("analysis: response sanitized",
		zap.String("region", string(req.Region)),
		zap.Float64("ai_kg", result.EstimatedFootprintKg),
	)
	return &result, nil
}

// buildPrompt renders the survey context for the model.
func buildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Region: %s\n", req.Region)
	if req.Language != "" {
		fmt.Fprintf(&b, "Answer in language: %s\n", req.Language)
	}
	fmt.Fprintf(&b, "Transport today: %v\n", req.Survey.Transport)
	fmt.Fprintf(&b, "Meals today: %v\n", req.Survey.Diet)
	fmt.Fprintf(&b, "Drinks today: %v\n", req.Survey.Drink)
	fmt.Fprintf(&b, "Home energy use: %s\n", req.Survey.Energy)
	if req.Other != "" {
		fmt.Fprintf(&b, "Additional notes: %s\n", req.Other)
	}
	fmt.Fprintf(&b, "Our deterministic estimate is %.1f kg CO2 for the day.\n", req.DeterministicKg)
	b.WriteString("Estimate the day's footprint and give practical advice.")
	return b.String()
}

// stripFences removes a markdown code fence if the model wrapped its JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Fallback is the canned general-tips result used when the AI call fails or
// no API key is configured. The deterministic estimate still flows through.
func Fallback(deterministicKg float64) model.AnalysisResult {
	result := Sanitize(nil)
	result.EstimatedFootprintKg = deterministicKg
	return result
}
