// Package rebalancing computes the trade plan that moves a portfolio from
// its current weights to a target allocation.
package rebalancing

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/kevin12369/smart-stock-insider/internal/config"
)

var (
	// ErrEmptyTargetWeights is returned when no target allocation is supplied.
	ErrEmptyTargetWeights = errors.New("target weights must not be empty")

	// ErrInvalidWeights is returned when a weight map carries negative or
	// non-finite entries, or does not sum to 1.
	ErrInvalidWeights = errors.New("invalid weight map")
)

// weightSumTolerance bounds how far a non-empty weight map may drift from a
// full allocation before the request is rejected.
const weightSumTolerance = 1e-4

// tradeThreshold filters noise trades out of the buy/sell plan. Weight
// changes below 1% are left to drift.
const tradeThreshold = 0.01

// Plan is the rebalancing outcome: per-asset weight deltas, cost and
// turnover figures, and the filtered trade lists.
type Plan struct {
	WeightChanges        map[string]float64 `json:"weight_changes"`
	Turnover             float64            `json:"turnover"`
	TotalTransactionCost float64            `json:"total_transaction_cost"`
	NeedsRebalancing     bool               `json:"needs_rebalancing"`
	AssetsToBuy          map[string]float64 `json:"assets_to_buy"`
	AssetsToSell         map[string]float64 `json:"assets_to_sell"`
}

// Planner builds rebalancing plans.
type Planner struct {
	cfg config.EngineConfig
	log zerolog.Logger
}

// NewPlanner creates a new rebalancing planner.
func NewPlanner(cfg config.EngineConfig, log zerolog.Logger) *Planner {
	return &Planner{
		cfg: cfg,
		log: log.With().Str("component", "rebalancing").Logger(),
	}
}

// Plan computes the trade plan from current to target weights. Assets
// present only in target are treated as new positions (current weight 0);
// assets present only in current are sold to zero. costRates gives per-asset
// transaction cost rates; missing entries fall back to the configured
// default rate. Turnover is one-sided: sum of absolute changes over 2.
func (p *Planner) Plan(current, target, costRates map[string]float64) (*Plan, error) {
	if len(target) == 0 {
		return nil, ErrEmptyTargetWeights
	}
	if err := validateWeights("target", target); err != nil {
		return nil, err
	}
	if err := validateWeights("current", current); err != nil {
		return nil, err
	}

	changes := make(map[string]float64, len(target))
	for symbol, targetWeight := range target {
		changes[symbol] = targetWeight - current[symbol]
	}
	for symbol, currentWeight := range current {
		if _, ok := target[symbol]; !ok {
			changes[symbol] = -currentWeight
		}
	}

	plan := &Plan{
		WeightChanges: changes,
		AssetsToBuy:   make(map[string]float64),
		AssetsToSell:  make(map[string]float64),
	}

	totalAbs := 0.0
	for symbol, change := range changes {
		abs := math.Abs(change)
		totalAbs += abs

		rate := p.cfg.DefaultCostRate
		if r, ok := costRates[symbol]; ok {
			rate = r
		}
		plan.TotalTransactionCost += abs * rate

		if abs > p.cfg.DriftThreshold {
			plan.NeedsRebalancing = true
		}
		switch {
		case change > tradeThreshold:
			plan.AssetsToBuy[symbol] = change
		case change < -tradeThreshold:
			plan.AssetsToSell[symbol] = change
		}
	}
	plan.Turnover = totalAbs / 2

	p.log.Info().
		Int("num_assets", len(changes)).
		Float64("turnover", plan.Turnover).
		Bool("needs_rebalancing", plan.NeedsRebalancing).
		Msg("Rebalancing plan computed")

	return plan, nil
}

// validateWeights rejects negative or non-finite weights and maps that do not
// allocate the full portfolio. An empty map is valid (no positions held).
func validateWeights(name string, weights map[string]float64) error {
	if len(weights) == 0 {
		return nil
	}
	sum := 0.0
	for symbol, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: %s weight for %s is not finite", ErrInvalidWeights, name, symbol)
		}
		if w < 0 {
			return fmt.Errorf("%w: negative %s weight %v for %s", ErrInvalidWeights, name, w, symbol)
		}
		sum += w
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("%w: %s weights sum to %v, expected 1", ErrInvalidWeights, name, sum)
	}
	return nil
}
