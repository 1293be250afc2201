// Package handlers provides HTTP handlers for risk analysis operations.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/kevin12369/smart-stock-insider/internal/modules/risk"
)

// Handler handles risk analysis HTTP requests
type Handler struct {
	model *risk.Model
	log   zerolog.Logger
}

// NewHandler creates a new risk handler
func NewHandler(model *risk.Model, log zerolog.Logger) *Handler {
	return &Handler{
		model: model,
		log:   log.With().Str("handler", "risk").Logger(),
	}
}

// AnalyzeRequest represents a full risk analysis request
type AnalyzeRequest struct {
	PortfolioReturns []float64 `json:"portfolio_returns"`
	BenchmarkReturns []float64 `json:"benchmark_returns,omitempty"`
	Method           string    `json:"method"`
}

// TailRiskRequest represents a single VaR or CVaR calculation request
type TailRiskRequest struct {
	PortfolioReturns []float64 `json:"portfolio_returns"`
	ConfidenceLevel  float64   `json:"confidence_level"`
	Method           string    `json:"method"`
}

// StressTestRequest represents a scenario stress test request
type StressTestRequest struct {
	PortfolioReturns []float64                `json:"portfolio_returns"`
	Scenarios        map[string]risk.Scenario `json:"scenarios"`
}

// HandleAnalyze handles POST /api/portfolio/risk/analyze
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Method == "" {
		req.Method = string(risk.MethodHistorical)
	}

	metrics, err := h.model.Analyze(req.PortfolioReturns, req.BenchmarkReturns, risk.Method(req.Method))
	if err != nil {
		h.writeError(w, err, "Risk analysis failed")
		return
	}

	h.writeJSON(w, http.StatusOK, metrics)
}

// HandleVaR handles POST /api/portfolio/risk/var
func (h *Handler) HandleVaR(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTailRisk(w, r)
	if !ok {
		return
	}

	value, err := h.model.ValueAtRisk(req.PortfolioReturns, req.ConfidenceLevel, risk.Method(req.Method))
	if err != nil {
		h.writeError(w, err, "VaR calculation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"var":              value,
		"confidence_level": req.ConfidenceLevel,
		"method":           req.Method,
		"interpretation": fmt.Sprintf(
			"At %.0f%% confidence, the single-period loss is not expected to exceed %.2f%%",
			req.ConfidenceLevel*100, value*100),
	})
}

// HandleCVaR handles POST /api/portfolio/risk/cvar
func (h *Handler) HandleCVaR(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTailRisk(w, r)
	if !ok {
		return
	}

	value, err := h.model.ConditionalVaR(req.PortfolioReturns, req.ConfidenceLevel, risk.Method(req.Method))
	if err != nil {
		h.writeError(w, err, "CVaR calculation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"cvar":             value,
		"confidence_level": req.ConfidenceLevel,
		"method":           req.Method,
		"interpretation": fmt.Sprintf(
			"At %.0f%% confidence, the average loss beyond VaR is %.2f%%",
			req.ConfidenceLevel*100, value*100),
	})
}

// HandleStressTest handles POST /api/portfolio/risk/stress-test
func (h *Handler) HandleStressTest(w http.ResponseWriter, r *http.Request) {
	var req StressTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.model.StressTest(req.PortfolioReturns, req.Scenarios)
	if err != nil {
		h.writeError(w, err, "Stress test failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"stress_test_results": result,
		"summary": map[string]interface{}{
			"total_scenarios": len(req.Scenarios),
			"worst_scenario":  result.WorstScenario,
		},
	})
}

func (h *Handler) decodeTailRisk(w http.ResponseWriter, r *http.Request) (*TailRiskRequest, bool) {
	var req TailRiskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil, false
	}
	if req.ConfidenceLevel == 0 {
		req.ConfidenceLevel = 0.95
	}
	if req.ConfidenceLevel <= 0 || req.ConfidenceLevel >= 1 {
		http.Error(w, "confidence_level must be in (0, 1)", http.StatusBadRequest)
		return nil, false
	}
	if req.Method == "" {
		req.Method = string(risk.MethodHistorical)
	}
	return &req, true
}

// writeError maps model errors to HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	status := http.StatusInternalServerError
	if errors.Is(err, risk.ErrUnsupportedMethod) ||
		errors.Is(err, risk.ErrInsufficientHistory) ||
		errors.Is(err, risk.ErrBenchmarkMismatch) ||
		errors.Is(err, risk.ErrInvalidScenario) {
		status = http.StatusBadRequest
	}

	h.log.Error().Err(err).Int("status", status).Msg(msg)
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message":   err.Error(),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
