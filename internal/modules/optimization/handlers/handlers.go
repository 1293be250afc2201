// Package handlers provides HTTP handlers for portfolio optimization
// operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/kevin12369/smart-stock-insider/internal/modules/optimization"
)

// Handler handles optimization HTTP requests
type Handler struct {
	service *optimization.Service
	log     zerolog.Logger
}

// NewHandler creates a new optimization handler
func NewHandler(service *optimization.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "optimization").Logger(),
	}
}

// OptimizeRequest represents a portfolio optimization request
type OptimizeRequest struct {
	Assets      []optimization.Asset      `json:"assets"`
	Returns     map[string][]float64      `json:"returns_data,omitempty"`
	Method      string                    `json:"method"`
	Constraints *optimization.Constraints `json:"constraints,omitempty"`
	Views       []optimization.View       `json:"views,omitempty"`
}

// FrontierRequest represents an efficient frontier request
type FrontierRequest struct {
	Assets      []optimization.Asset      `json:"assets"`
	Returns     map[string][]float64      `json:"returns_data,omitempty"`
	Constraints *optimization.Constraints `json:"constraints,omitempty"`
	NumPoints   int                       `json:"num_portfolios"`
}

// CompareRequest represents a method comparison request
type CompareRequest struct {
	Assets      []optimization.Asset      `json:"assets"`
	Returns     map[string][]float64      `json:"returns_data,omitempty"`
	Constraints *optimization.Constraints `json:"constraints,omitempty"`
}

// HandleOptimize handles POST /api/portfolio/optimize
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Optimize(optimization.Request{
		Assets:      req.Assets,
		Historical:  req.Returns,
		Method:      optimization.Method(req.Method),
		Constraints: req.Constraints,
		Views:       req.Views,
	})
	if err != nil {
		h.writeError(w, err, "Optimization failed")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleEfficientFrontier handles POST /api/portfolio/efficient-frontier
func (h *Handler) HandleEfficientFrontier(w http.ResponseWriter, r *http.Request) {
	var req FrontierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	points, err := h.service.EfficientFrontier(r.Context(), optimization.Request{
		Assets:      req.Assets,
		Historical:  req.Returns,
		Constraints: req.Constraints,
	}, req.NumPoints)
	if err != nil {
		h.writeError(w, err, "Efficient frontier calculation failed")
		return
	}

	symbols := make([]string, len(req.Assets))
	for i, a := range req.Assets {
		symbols[i] = a.Symbol
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"efficient_frontier": points,
		"num_portfolios":     len(points),
		"asset_symbols":      symbols,
	})
}

// HandleCompare handles POST /api/portfolio/compare
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	comparison, err := h.service.CompareMethods(r.Context(), optimization.Request{
		Assets:      req.Assets,
		Historical:  req.Returns,
		Constraints: req.Constraints,
	})
	if err != nil {
		h.writeError(w, err, "Method comparison failed")
		return
	}

	h.writeJSON(w, http.StatusOK, comparison)
}

// methodDescription is the catalogue entry for one optimization method.
type methodDescription struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Objective   string `json:"objective"`
	SuitableFor string `json:"suitable_for"`
}

// HandleMethods handles GET /api/portfolio/methods
func (h *Handler) HandleMethods(w http.ResponseWriter, r *http.Request) {
	methods := map[optimization.Method]methodDescription{
		optimization.MethodMarkowitz: {
			Name:        "Markowitz mean-variance",
			Description: "Classic modern portfolio theory optimization",
			Objective:   "Minimize risk at a given level of return",
			SuitableFor: "Long-horizon, risk-averse investors",
		},
		optimization.MethodBlackLitterman: {
			Name:        "Black-Litterman",
			Description: "Equilibrium returns blended with investor views",
			Objective:   "Combine market equilibrium with subjective views",
			SuitableFor: "Investors with explicit market views",
		},
		optimization.MethodRiskParity: {
			Name:        "Risk parity",
			Description: "Equal risk contribution portfolio",
			Objective:   "Equalize each asset's contribution to risk",
			SuitableFor: "Investors prioritizing risk diversification",
		},
		optimization.MethodMinimumVariance: {
			Name:        "Minimum variance",
			Description: "Minimize portfolio variance",
			Objective:   "Achieve the lowest possible risk",
			SuitableFor: "Extremely risk-averse investors",
		},
		optimization.MethodMaximumSharpe: {
			Name:        "Maximum Sharpe ratio",
			Description: "Maximize risk-adjusted return",
			Objective:   "Best return per unit of risk",
			SuitableFor: "Investors seeking risk-adjusted performance",
		},
		optimization.MethodEqualWeight: {
			Name:        "Equal weight",
			Description: "Uniform allocation across assets",
			Objective:   "Simple diversification",
			SuitableFor: "Beginners, or as a benchmark",
		},
		optimization.MethodHRP: {
			Name:        "Hierarchical risk parity",
			Description: "Cluster-based risk parity allocation",
			Objective:   "Risk diversification aware of asset correlations",
			SuitableFor: "Complex multi-asset allocations",
		},
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"methods":        methods,
		"default_method": optimization.MethodMarkowitz,
	})
}

// writeError maps engine errors to HTTP statuses: invalid input is 400,
// infeasible constraints are 422, anything else is 500.
func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, optimization.ErrInfeasibleConstraints):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, optimization.ErrUnsupportedMethod),
		errors.Is(err, optimization.ErrEmptyAssetSet),
		errors.Is(err, optimization.ErrInsufficientData):
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
