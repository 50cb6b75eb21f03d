package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/greenloop/carbon-cli/internal/analysis"
	"github.com/greenloop/carbon-cli/internal/config"
	"github.com/greenloop/carbon-cli/internal/footprint"
	"github.com/greenloop/carbon-cli/internal/model"
	"github.com/greenloop/carbon-cli/internal/points"
	"github.com/greenloop/carbon-cli/internal/region"
	"github.com/greenloop/carbon-cli/internal/resilience"
	"github.com/greenloop/carbon-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the carbon scoring API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		regions, err := region.NewRegistry(cfg.Scoring.RegionsFile)
		if err != nil {
			return err
		}
		engine := footprint.NewEngine(regions, footprint.Calibrator{
			Enabled: cfg.Scoring.CalibrationEnabled,
			Weight:  cfg.Scoring.BlendWeight,
		})

		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		settler := points.NewSettler(st, resilience.DefaultRetryConfig("apply points delta"))

		var analyzer analysis.Analyzer
		if cfg.Anthropic.Key != "" {
			analyzer = analysis.NewClient(analysis.Config{
				APIKey:       cfg.Anthropic.Key,
				Model:        cfg.Anthropic.Model,
				MaxTokens:    cfg.Anthropic.MaxTokens,
				RequestsPerS: cfg.Anthropic.RequestsPerS,
				Timeout:      time.Duration(cfg.Anthropic.TimeoutSecs) * time.Second,
			})
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(cfg.Server, engine, settler, st, analyzer),
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

// newRouter wires the HTTP surface over the scoring engine and settler.
func newRouter(serverCfg config.ServerConfig, engine *footprint.Engine, settler *points.Settler, st store.Store, analyzer analysis.Analyzer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: serverCfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/carbon/estimate", handleEstimate(engine, settler))
	r.Post("/api/carbon/analysis", handleAnalysis(engine, analyzer))
	r.Post("/api/carbon/verify", handleVerify(settler))

	r.Get("/api/carbon/balance/{userID}", func(w http.ResponseWriter, req *http.Request) {
		b, err := st.GetBalance(req.Context(), chi.URLParam(req, "userID"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "balance lookup failed")
			return
		}
		writeJSON(w, http.StatusOK, b)
	})

	return r
}

// estimateRequest is the POST /api/carbon/estimate body.
type estimateRequest struct {
	UserID string                `json:"user_id,omitempty"`
	Region string                `json:"region"`
	Survey model.SurveyAnswerSet `json:"survey"`
	AIKg   *float64              `json:"ai_kg,omitempty"`
}

func handleEstimate(engine *footprint.Engine, settler *points.Settler) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body estimateRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		est, err := engine.Score(body.Region, body.Survey, body.AIKg)
		if err != nil {
			// Empty or out-of-enum answers are a validation failure, not a 500.
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		outcome := points.Calculate(est.Kg, engine.Profile(est.Region))

		result := estimateResult{
			Kg:            est.Kg,
			Region:        est.Region,
			Source:        est.Source,
			BasePoints:    outcome.BasePoints,
			PenaltyPoints: outcome.PenaltyPoints,
		}

		if body.UserID != "" {
			sub, err := settler.Submit(req.Context(), body.UserID, est, outcome)
			if err != nil {
				zap.L().Error("estimate settlement failed",
					zap.String("user_id", body.UserID),
					zap.Error(err),
				)
				writeError(w, http.StatusServiceUnavailable, "settlement failed, retry the submission")
				return
			}
			result.SubmissionID = sub.ID
			result.Provisional = sub.ProvisionalPoints
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// analysisRequest is the POST /api/carbon/analysis body.
type analysisRequest struct {
	Region   string                `json:"region"`
	Survey   model.SurveyAnswerSet `json:"survey"`
	Language string                `json:"language,omitempty"`
	Other    string                `json:"other,omitempty"`
}

func handleAnalysis(engine *footprint.Engine, analyzer analysis.Analyzer) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body analysisRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		est, err := engine.Score(body.Region, body.Survey, nil)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		result := analysis.Fallback(est.Kg)
		if analyzer != nil {
			r, err := analyzer.Analyze(req.Context(), analysis.Request{
				Survey:          body.Survey,
				Region:          est.Region,
				Language:        body.Language,
				Other:           body.Other,
				DeterministicKg: est.Kg,
			})
			if err != nil {
				zap.L().Warn("analysis degraded to general tips", zap.Error(err))
			} else {
				result = *r
			}
		}

		writeJSON(w, http.StatusOK, struct {
			DeterministicKg float64 `json:"deterministic_kg"`
			model.AnalysisResult
		}{est.Kg, result})
	}
}

// verifyRequest is the verification webhook body. Delivery is at-least-once;
// duplicates are absorbed by the settler.
type verifyRequest struct {
	SubmissionID string `json:"submission_id"`
	Verified     bool   `json:"verified"`
	Reason       string `json:"reason,omitempty"`
}

func handleVerify(settler *points.Settler) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body verifyRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.SubmissionID == "" {
			writeError(w, http.StatusBadRequest, "submission_id is required")
			return
		}

		sub, err := settler.Finalize(req.Context(), body.SubmissionID, body.Verified)
		if err != nil {
			if eris.Is(err, store.ErrSubmissionNotFound) {
				writeError(w, http.StatusNotFound, "unknown submission")
				return
			}
			zap.L().Error("verification settlement failed",
				zap.String("submission_id", body.SubmissionID),
				zap.Error(err),
			)
			writeError(w, http.StatusServiceUnavailable, "settlement failed, redeliver the signal")
			return
		}

		writeJSON(w, http.StatusOK, sub)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
