// Package handlers provides HTTP handlers for rebalancing operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/kevin12369/smart-stock-insider/internal/modules/rebalancing"
)

// Handler handles rebalancing HTTP requests
type Handler struct {
	planner *rebalancing.Planner
	log     zerolog.Logger
}

// NewHandler creates a new rebalancing handler
func NewHandler(planner *rebalancing.Planner, log zerolog.Logger) *Handler {
	return &Handler{
		planner: planner,
		log:     log.With().Str("handler", "rebalancing").Logger(),
	}
}

// RebalanceRequest represents a rebalancing calculation request
type RebalanceRequest struct {
	CurrentWeights   map[string]float64 `json:"current_weights"`
	TargetWeights    map[string]float64 `json:"target_weights"`
	TransactionCosts map[string]float64 `json:"transaction_costs,omitempty"`
}

// HandleRebalance handles POST /api/portfolio/rebalance
func (h *Handler) HandleRebalance(w http.ResponseWriter, r *http.Request) {
	var req RebalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	plan, err := h.planner.Plan(req.CurrentWeights, req.TargetWeights, req.TransactionCosts)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, rebalancing.ErrEmptyTargetWeights) ||
			errors.Is(err, rebalancing.ErrInvalidWeights) {
			status = http.StatusBadRequest
		}
		h.log.Error().Err(err).Int("status", status).Msg("Rebalancing calculation failed")
		h.writeJSON(w, status, map[string]interface{}{
			"error": map[string]interface{}{
				"message":   err.Error(),
				"timestamp": time.Now().Format(time.RFC3339),
			},
		})
		return
	}

	recommendation := "No rebalancing needed"
	if plan.NeedsRebalancing {
		recommendation = "Rebalancing recommended"
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"weight_changes":         plan.WeightChanges,
		"turnover":               plan.Turnover,
		"total_transaction_cost": plan.TotalTransactionCost,
		"needs_rebalancing":      plan.NeedsRebalancing,
		"recommendation":         recommendation,
		"rebalancing_plan": map[string]interface{}{
			"assets_to_buy":  plan.AssetsToBuy,
			"assets_to_sell": plan.AssetsToSell,
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
