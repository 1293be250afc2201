package optimization

import (
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/kevin12369/smart-stock-insider/internal/config"
)

// StatisticsEstimator derives annualized expected returns and a covariance
// matrix from historical return series, or synthesizes them from per-asset
// estimates when no history is available.
type StatisticsEstimator struct {
	cfg config.EngineConfig
	log zerolog.Logger
}

// NewStatisticsEstimator creates a new statistics estimator.
func NewStatisticsEstimator(cfg config.EngineConfig, log zerolog.Logger) *StatisticsEstimator {
	return &StatisticsEstimator{
		cfg: cfg,
		log: log.With().Str("component", "statistics").Logger(),
	}
}

// Estimate builds a StatisticsBundle for the given assets. When historical
// is non-nil it must contain one return series per asset symbol, all of the
// same length with at least 2 observations; expected returns and covariance
// are annualized sample estimates. When historical is nil, the per-asset
// ExpectedReturn/Volatility fields are used with a constant default
// inter-asset correlation, which keeps the synthetic covariance matrix
// positive semi-definite by construction.
func (e *StatisticsEstimator) Estimate(assets []Asset, historical map[string][]float64) (*StatisticsBundle, error) {
	if len(assets) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrEmptyAssetSet, len(assets))
	}

	symbols := make([]string, len(assets))
	for i, a := range assets {
		if a.Volatility < 0 {
			return nil, fmt.Errorf("%w: asset %s has negative volatility %v", ErrInsufficientData, a.Symbol, a.Volatility)
		}
		symbols[i] = a.Symbol
	}

	if historical != nil {
		return e.estimateFromHistory(assets, symbols, historical)
	}
	return e.estimateFromAssets(assets, symbols), nil
}

func (e *StatisticsEstimator) estimateFromHistory(assets []Asset, symbols []string, historical map[string][]float64) (*StatisticsBundle, error) {
	n := len(symbols)

	// Validate alignment: every asset needs a series, all the same length.
	length := -1
	series := make([][]float64, n)
	for i, symbol := range symbols {
		returns, ok := historical[symbol]
		if !ok {
			return nil, fmt.Errorf("%w: missing return series for %s", ErrInsufficientData, symbol)
		}
		if length == -1 {
			length = len(returns)
		} else if len(returns) != length {
			return nil, fmt.Errorf("%w: inconsistent series lengths (%d vs %d for %s)",
				ErrInsufficientData, length, len(returns), symbol)
		}
		series[i] = returns
	}
	if length < 2 {
		return nil, fmt.Errorf("%w: need at least 2 observations, got %d", ErrInsufficientData, length)
	}

	ppy := e.cfg.PeriodsPerYear
	mu := make([]float64, n)
	for i := range series {
		mu[i] = stat.Mean(series[i], nil) * ppy
	}

	cov := make([][]float64, n)
	for i := range cov {
		cov[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			c := stat.Covariance(series[i], series[j], nil) * ppy
			cov[i][j] = c
			cov[j][i] = c
		}
	}

	e.log.Debug().
		Int("num_assets", n).
		Int("observations", length).
		Msg("Estimated statistics from historical returns")

	return &StatisticsBundle{Symbols: symbols, ExpectedReturns: mu, CovMatrix: cov}, nil
}

func (e *StatisticsEstimator) estimateFromAssets(assets []Asset, symbols []string) *StatisticsBundle {
	n := len(assets)
	rho := e.cfg.DefaultCorrelation

	mu := make([]float64, n)
	cov := make([][]float64, n)
	for i := range cov {
		cov[i] = make([]float64, n)
	}
	for i, a := range assets {
		mu[i] = a.ExpectedReturn
		cov[i][i] = a.Volatility * a.Volatility
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := rho * assets[i].Volatility * assets[j].Volatility
			cov[i][j] = c
			cov[j][i] = c
		}
	}

	e.log.Debug().
		Int("num_assets", n).
		Float64("default_correlation", rho).
		Msg("Synthesized statistics from asset estimates")

	return &StatisticsBundle{Symbols: symbols, ExpectedReturns: mu, CovMatrix: cov}
}
