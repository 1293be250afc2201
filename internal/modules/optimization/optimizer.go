package optimization

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/kevin12369/smart-stock-insider/internal/config"
	"github.com/kevin12369/smart-stock-insider/pkg/formulas"
)

// Service is the portfolio optimization engine. Stateless across requests;
// safe for concurrent use.
type Service struct {
	cfg       config.EngineConfig
	estimator *StatisticsEstimator
	mv        *meanVarianceSolver
	rp        *riskParitySolver
	hrp       *hrpSolver
	log       zerolog.Logger
}

// NewService creates a new optimization service.
func NewService(cfg config.EngineConfig, log zerolog.Logger) *Service {
	component := log.With().Str("component", "optimization").Logger()
	return &Service{
		cfg:       cfg,
		estimator: NewStatisticsEstimator(cfg, log),
		mv:        &meanVarianceSolver{log: component},
		rp: &riskParitySolver{
			tolerance: cfg.RiskParityTolerance,
			maxIter:   cfg.MaxIterations,
			log:       component,
		},
		hrp: &hrpSolver{},
		log: component,
	}
}

// Statistics exposes the service's estimator for callers that want the
// derived bundle without running an optimization.
func (s *Service) Statistics(assets []Asset, historical map[string][]float64) (*StatisticsBundle, error) {
	return s.estimator.Estimate(assets, historical)
}

// Optimize runs one optimization request end to end: estimate statistics,
// validate constraints, solve with the requested method, apply the uniform
// constraint pass, and compute portfolio metrics. Numerical non-convergence
// degrades to a best-effort result with ConstraintsMet=false; only invalid
// input fails the call.
func (s *Service) Optimize(req Request) (*Result, error) {
	start := time.Now()

	method, err := ParseMethod(string(req.Method))
	if err != nil {
		return nil, err
	}

	stats := req.Statistics
	if stats == nil {
		stats, err = s.estimator.Estimate(req.Assets, req.Historical)
		if err != nil {
			return nil, err
		}
	} else if len(req.Assets) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrEmptyAssetSet, len(req.Assets))
	}

	constraints := req.Constraints
	if constraints == nil {
		constraints = DefaultConstraints()
	}
	if err := validateConstraints(constraints, req.Assets, stats); err != nil {
		return nil, err
	}

	weights, converged, err := s.solve(method, stats, req.Assets, constraints, req.Views)
	if err != nil {
		return nil, err
	}

	adjusted, met := applyConstraints(weights, req.Assets, constraints)
	result := s.buildResult(method, stats, adjusted, converged && met, start)
	s.checkTailRisk(stats, result)

	s.log.Info().
		Str("method", string(method)).
		Int("num_assets", len(req.Assets)).
		Bool("constraints_met", result.ConstraintsMet).
		Float64("sharpe_ratio", result.SharpeRatio).
		Dur("elapsed", time.Since(start)).
		Msg("Optimization complete")

	return result, nil
}

// solve dispatches to the per-method solver. Returned weights are aligned to
// stats.Symbols; converged=false marks a degraded numerical outcome.
func (s *Service) solve(method Method, stats *StatisticsBundle, assets []Asset, c *Constraints, views []View) ([]float64, bool, error) {
	switch method {
	case MethodEqualWeight:
		return equalInitial(len(stats.Symbols)), true, nil

	case MethodMinimumVariance:
		w, converged := s.mv.solveMinVariance(stats, assets, c)
		return w, converged, nil

	case MethodMaximumSharpe:
		w, converged := s.mv.solveMaxSharpe(stats, assets, c, s.cfg.RiskFreeRate)
		return w, converged, nil

	case MethodMarkowitz:
		target, converged := s.markowitzTarget(stats, assets, c)
		w, ok := s.mv.solveTargetReturn(stats, assets, c, target)
		return w, converged && ok, nil

	case MethodRiskParity:
		w, converged := s.rp.solve(stats.CovMatrix)
		return w, converged, nil

	case MethodBlackLitterman:
		posterior, err := s.posteriorStatistics(stats, assets, views)
		if err != nil {
			return nil, false, err
		}
		w, converged := s.mv.solveMaxSharpe(posterior, assets, c, s.cfg.RiskFreeRate)
		return w, converged, nil

	case MethodHRP:
		w, err := s.hrp.solve(stats.CovMatrix)
		if err != nil {
			return nil, false, err
		}
		return w, true, nil
	}
	return nil, false, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
}

// markowitzTarget resolves the efficient-return target: the caller's
// target_return when given, otherwise the maximum-Sharpe portfolio's return,
// which lands the default on the efficient frontier's tangency point.
func (s *Service) markowitzTarget(stats *StatisticsBundle, assets []Asset, c *Constraints) (float64, bool) {
	if c.TargetReturn != nil {
		return *c.TargetReturn, true
	}
	w, converged := s.mv.solveMaxSharpe(stats, assets, c, s.cfg.RiskFreeRate)
	return dot(stats.ExpectedReturns, w), converged
}

// posteriorStatistics replaces the expected returns with the
// Black-Litterman posterior blend of the market equilibrium prior and the
// supplied views. The covariance matrix is unchanged.
func (s *Service) posteriorStatistics(stats *StatisticsBundle, assets []Asset, views []View) (*StatisticsBundle, error) {
	pi := marketEquilibriumReturns(assets, stats.CovMatrix)
	posterior, err := blendViewsWithEquilibrium(pi, stats.CovMatrix, stats.Symbols, views)
	if err != nil {
		return nil, err
	}
	return &StatisticsBundle{
		Symbols:         stats.Symbols,
		ExpectedReturns: posterior,
		CovMatrix:       stats.CovMatrix,
	}, nil
}

// buildResult computes the portfolio metrics for the final weight vector.
func (s *Service) buildResult(method Method, stats *StatisticsBundle, weights []float64, constraintsMet bool, start time.Time) *Result {
	ret := formulas.PortfolioReturn(weights, stats.ExpectedReturns)
	variance := math.Max(formulas.PortfolioVariance(weights, stats.CovMatrix), 0)
	vol := math.Sqrt(variance)

	weightMap := make(map[string]float64, len(weights))
	contributions := make(map[string]float64, len(weights))
	rc := riskContributionVector(weights, stats.CovMatrix)
	for i, symbol := range stats.Symbols {
		weightMap[symbol] = weights[i]
		contributions[symbol] = math.Max(rc[i], 0)
	}

	return &Result{
		Weights:            weightMap,
		ExpectedReturn:     ret,
		ExpectedVolatility: vol,
		SharpeRatio:        formulas.SharpeRatio(ret, vol, s.cfg.RiskFreeRate),
		Method:             method,
		RiskContributions:  contributions,
		ConstraintsMet:     constraintsMet,
		OptimizationTime:   time.Since(start).Seconds(),
		Timestamp:          time.Now().UTC(),
	}
}

// checkTailRisk estimates the optimized portfolio's CVaR at 95% confidence
// by Monte Carlo simulation and logs a warning when it breaches the
// configured cap. Advisory only: tail-risk breaches never reject a result.
func (s *Service) checkTailRisk(stats *StatisticsBundle, result *Result) {
	if s.cfg.MonteCarloSimulations <= 0 {
		return
	}

	expectedReturns := make(map[string]float64, len(stats.Symbols))
	for i, symbol := range stats.Symbols {
		expectedReturns[symbol] = stats.ExpectedReturns[i]
	}

	cvar := formulas.MonteCarloCVaR(
		stats.CovMatrix,
		expectedReturns,
		result.Weights,
		stats.Symbols,
		s.cfg.MonteCarloSimulations,
		0.95,
	)
	if cvar < s.cfg.MaxCVaR95 {
		s.log.Warn().
			Str("method", string(result.Method)).
			Float64("cvar_95", cvar).
			Float64("max_cvar_95", s.cfg.MaxCVaR95).
			Msg("Optimized portfolio breaches tail-risk threshold")
	}
}
