// Package optimization provides portfolio optimization functionality:
// statistics estimation, allocation solvers, and the efficient frontier.
package optimization

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for input validation. Numerical non-convergence is never an
// error: it degrades to a best-effort result with ConstraintsMet=false.
var (
	// ErrEmptyAssetSet is returned when fewer than 2 assets are supplied.
	// A single asset has no risk-return trade-off to optimize.
	ErrEmptyAssetSet = errors.New("portfolio optimization requires at least 2 assets")

	// ErrInsufficientData is returned when historical mode is requested
	// with fewer than 2 return observations.
	ErrInsufficientData = errors.New("insufficient return observations")

	// ErrUnsupportedMethod is returned for an unrecognized optimization
	// method. The engine never silently substitutes a default method.
	ErrUnsupportedMethod = errors.New("unsupported optimization method")

	// ErrInfeasibleConstraints is returned when the constraint set admits
	// no valid weight vector. Infeasible constraints fail the request,
	// they are never silently relaxed.
	ErrInfeasibleConstraints = errors.New("infeasible constraint set")
)

// Method selects an optimization strategy. Closed set: adding a method means
// adding a constant and a handler in the dispatch table, not touching call
// sites.
type Method string

const (
	MethodEqualWeight     Method = "equal_weight"
	MethodMinimumVariance Method = "minimum_variance"
	MethodMaximumSharpe   Method = "maximum_sharpe"
	MethodMarkowitz       Method = "markowitz"
	MethodRiskParity      Method = "risk_parity"
	MethodBlackLitterman  Method = "black_litterman"
	MethodHRP             Method = "hrp"
)

// Methods lists all supported optimization methods in a stable order.
func Methods() []Method {
	return []Method{
		MethodEqualWeight,
		MethodMinimumVariance,
		MethodMaximumSharpe,
		MethodMarkowitz,
		MethodRiskParity,
		MethodBlackLitterman,
		MethodHRP,
	}
}

// ParseMethod validates a method string.
func ParseMethod(s string) (Method, error) {
	m := Method(s)
	for _, known := range Methods() {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, s)
}

// Asset describes a single investable asset. Immutable once passed into an
// optimization call; the engine never mutates caller-owned data.
type Asset struct {
	Symbol         string   `json:"symbol"`
	Name           string   `json:"name"`
	ExpectedReturn float64  `json:"expected_return"` // annualized
	Volatility     float64  `json:"volatility"`      // annualized std dev, >= 0
	Category       string   `json:"category"`
	MarketCap      *float64 `json:"market_cap,omitempty"`
}

// StatisticsBundle holds the per-request derived statistics. The symbol order
// fixes the index mapping for all vector and matrix work; nothing in the
// engine relies on map iteration order.
type StatisticsBundle struct {
	Symbols         []string
	ExpectedReturns []float64   // aligned to Symbols
	CovMatrix       [][]float64 // square, symmetric, PSD
}

// Constraints bounds the optimizer's weight vector. The zero value means
// long-only with no caps (min 0, max 1).
type Constraints struct {
	MinWeight    float64  `json:"min_weight"`
	MaxWeight    float64  `json:"max_weight"`
	TargetReturn *float64 `json:"target_return,omitempty"`

	// TargetVolatility is validated (must be positive when set) but not
	// enforced by any solver; it is carried for wire compatibility.
	TargetVolatility *float64 `json:"target_volatility,omitempty"`

	SectorLimits map[string]float64 `json:"sector_limits,omitempty"` // category -> max aggregate weight
}

// DefaultConstraints returns the long-only unconstrained bounds.
func DefaultConstraints() *Constraints {
	return &Constraints{MinWeight: 0.0, MaxWeight: 1.0}
}

// View is a Black-Litterman investor view: a per-asset expected-return
// override with a confidence in (0, 1].
type View struct {
	Symbol         string  `json:"symbol"`
	ExpectedReturn float64 `json:"expected_return"`
	Confidence     float64 `json:"confidence"`
}

// Request bundles everything a single optimization call needs. Statistics
// may be pre-computed by the caller; when nil they are estimated from
// Historical (if present) or from the per-asset return/volatility fields.
type Request struct {
	Assets      []Asset
	Statistics  *StatisticsBundle
	Historical  map[string][]float64 // per-period returns keyed by symbol
	Method      Method
	Constraints *Constraints
	Views       []View // black_litterman only
}

// Result is an optimization outcome. Created fresh per request, never
// mutated after construction.
type Result struct {
	Weights            map[string]float64 `json:"weights"` // sums to 1 within 1e-6
	ExpectedReturn     float64            `json:"expected_return"`
	ExpectedVolatility float64            `json:"expected_volatility"`
	SharpeRatio        float64            `json:"sharpe_ratio"`
	Method             Method             `json:"method"`
	RiskContributions  map[string]float64 `json:"risk_contributions"` // sums to portfolio variance
	ConstraintsMet     bool               `json:"constraints_met"`
	OptimizationTime   float64            `json:"optimization_time"` // seconds
	Timestamp          time.Time          `json:"timestamp"`
}

// FrontierPoint is one portfolio on the risk-return curve. Points below the
// global minimum-variance knee are flagged Efficient=false (lower branch).
type FrontierPoint struct {
	Return      float64 `json:"return"`
	Volatility  float64 `json:"volatility"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	Efficient   bool    `json:"efficient"`
}

// WeightTolerance is the budget-constraint tolerance: valid results have
// weights summing to 1 within this bound.
const WeightTolerance = 1e-6
