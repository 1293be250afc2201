// Package risk provides portfolio risk analytics: VaR and CVaR under
// historical, parametric, and Monte Carlo estimation, drawdown and
// benchmark-relative metrics, and scenario stress testing.
package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/kevin12369/smart-stock-insider/internal/config"
	"github.com/kevin12369/smart-stock-insider/pkg/formulas"
)

var (
	// ErrInsufficientHistory is returned when the return series is too
	// short for reliable tail estimates.
	ErrInsufficientHistory = errors.New("insufficient return history for risk analysis")

	// ErrUnsupportedMethod is returned for an unrecognized risk estimation
	// method.
	ErrUnsupportedMethod = errors.New("unsupported risk estimation method")

	// ErrBenchmarkMismatch is returned when the benchmark series length
	// differs from the portfolio series length.
	ErrBenchmarkMismatch = errors.New("benchmark series length does not match portfolio series")
)

// Method selects the VaR/CVaR estimation technique.
type Method string

const (
	MethodHistorical Method = "historical"
	MethodParametric Method = "parametric"
	MethodMonteCarlo Method = "monte_carlo"
)

// ParseMethod validates a risk method string.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodHistorical, MethodParametric, MethodMonteCarlo:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, s)
}

// Metrics is the full risk profile of a return series. VaR and CVaR are
// reported as non-negative loss magnitudes; MaxDrawdown is <= 0.
type Metrics struct {
	VaR95            float64 `json:"var_95"`
	VaR99            float64 `json:"var_99"`
	CVaR95           float64 `json:"cvar_95"`
	CVaR99           float64 `json:"cvar_99"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	Volatility       float64 `json:"volatility"` // annualized
	SharpeRatio      float64 `json:"sharpe_ratio"`
	Beta             float64 `json:"beta"`
	TrackingError    float64 `json:"tracking_error"`
	InformationRatio float64 `json:"information_ratio"`
}

// Model computes risk metrics over realized return series.
type Model struct {
	cfg config.EngineConfig
	log zerolog.Logger
}

// NewModel creates a new risk model.
func NewModel(cfg config.EngineConfig, log zerolog.Logger) *Model {
	return &Model{
		cfg: cfg,
		log: log.With().Str("component", "risk").Logger(),
	}
}

// Analyze computes the full metric set for a portfolio return series.
// benchmark may be nil; the benchmark-relative metrics (beta, tracking
// error, information ratio) are zero in that case.
func (m *Model) Analyze(portfolio, benchmark []float64, method Method) (*Metrics, error) {
	if _, err := ParseMethod(string(method)); err != nil {
		return nil, err
	}
	if len(portfolio) < m.cfg.MinHistoryObservations {
		return nil, fmt.Errorf("%w: need %d observations, got %d",
			ErrInsufficientHistory, m.cfg.MinHistoryObservations, len(portfolio))
	}
	if benchmark != nil && len(benchmark) != len(portfolio) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrBenchmarkMismatch, len(benchmark), len(portfolio))
	}

	// Monte Carlo draws one shared sample so VaR and CVaR come from the
	// same simulated distribution and keep their ordering exactly.
	tailSeries := portfolio
	tailMethod := method
	if method == MethodMonteCarlo {
		tailSeries = m.simulate(portfolio)
		tailMethod = MethodHistorical
	}

	var95 := m.valueAtRisk(tailSeries, 0.95, tailMethod)
	var99 := m.valueAtRisk(tailSeries, 0.99, tailMethod)
	cvar95 := m.conditionalVaR(tailSeries, 0.95, tailMethod)
	cvar99 := m.conditionalVaR(tailSeries, 0.99, tailMethod)

	annualReturn := formulas.AnnualizedReturn(portfolio, m.cfg.PeriodsPerYear)
	annualVol := formulas.AnnualizedVolatility(portfolio, m.cfg.PeriodsPerYear)

	metrics := &Metrics{
		VaR95:       lossMagnitude(var95),
		VaR99:       lossMagnitude(var99),
		CVaR95:      lossMagnitude(cvar95),
		CVaR99:      lossMagnitude(cvar99),
		MaxDrawdown: formulas.MaxDrawdown(portfolio),
		Volatility:  annualVol,
		SharpeRatio: formulas.SharpeRatio(annualReturn, annualVol, m.cfg.RiskFreeRate),
	}

	if benchmark != nil {
		metrics.Beta = beta(portfolio, benchmark)
		metrics.TrackingError = trackingError(portfolio, benchmark, m.cfg.PeriodsPerYear)
		metrics.InformationRatio = informationRatio(portfolio, benchmark, m.cfg.PeriodsPerYear, metrics.TrackingError)
	}

	m.log.Debug().
		Str("method", string(method)).
		Int("observations", len(portfolio)).
		Float64("var_95", metrics.VaR95).
		Float64("cvar_95", metrics.CVaR95).
		Msg("Risk analysis complete")

	return metrics, nil
}

// ValueAtRisk computes VaR at one confidence level, returned as a
// non-negative loss magnitude.
func (m *Model) ValueAtRisk(portfolio []float64, confidence float64, method Method) (float64, error) {
	if _, err := ParseMethod(string(method)); err != nil {
		return 0, err
	}
	if len(portfolio) < m.cfg.MinHistoryObservations {
		return 0, fmt.Errorf("%w: need %d observations, got %d",
			ErrInsufficientHistory, m.cfg.MinHistoryObservations, len(portfolio))
	}
	return lossMagnitude(m.valueAtRisk(portfolio, confidence, method)), nil
}

// ConditionalVaR computes expected shortfall at one confidence level,
// returned as a non-negative loss magnitude. Always >= the VaR at the same
// confidence.
func (m *Model) ConditionalVaR(portfolio []float64, confidence float64, method Method) (float64, error) {
	if _, err := ParseMethod(string(method)); err != nil {
		return 0, err
	}
	if len(portfolio) < m.cfg.MinHistoryObservations {
		return 0, fmt.Errorf("%w: need %d observations, got %d",
			ErrInsufficientHistory, m.cfg.MinHistoryObservations, len(portfolio))
	}
	return lossMagnitude(m.conditionalVaR(portfolio, confidence, method)), nil
}

func (m *Model) valueAtRisk(returns []float64, confidence float64, method Method) float64 {
	switch method {
	case MethodParametric:
		return formulas.ParametricVaR(formulas.Mean(returns), formulas.StdDev(returns), confidence)
	case MethodMonteCarlo:
		return formulas.HistoricalVaR(m.simulate(returns), confidence)
	default:
		return formulas.HistoricalVaR(returns, confidence)
	}
}

func (m *Model) conditionalVaR(returns []float64, confidence float64, method Method) float64 {
	switch method {
	case MethodParametric:
		return formulas.ParametricCVaR(formulas.Mean(returns), formulas.StdDev(returns), confidence)
	case MethodMonteCarlo:
		return formulas.HistoricalCVaR(m.simulate(returns), confidence)
	default:
		return formulas.HistoricalCVaR(returns, confidence)
	}
}

// simulate draws Monte Carlo return samples from a normal fit of the
// observed series.
func (m *Model) simulate(returns []float64) []float64 {
	return formulas.SimulateNormalReturns(
		formulas.Mean(returns),
		formulas.StdDev(returns),
		m.cfg.MonteCarloSimulations,
	)
}

// lossMagnitude converts a signed tail return into a non-negative loss
// figure. A positive tail return (no loss at that confidence) reports zero.
func lossMagnitude(signedReturn float64) float64 {
	return math.Max(0, -signedReturn)
}

// beta is the regression slope of portfolio returns on benchmark returns.
func beta(portfolio, benchmark []float64) float64 {
	benchVar := formulas.Variance(benchmark)
	if benchVar <= 0 {
		return 0
	}
	return formulas.Covariance(portfolio, benchmark) / benchVar
}

// trackingError is the annualized standard deviation of the active return.
func trackingError(portfolio, benchmark []float64, periodsPerYear float64) float64 {
	active := make([]float64, len(portfolio))
	for i := range portfolio {
		active[i] = portfolio[i] - benchmark[i]
	}
	return formulas.AnnualizedVolatility(active, periodsPerYear)
}

// informationRatio is the annualized active return over the tracking error.
func informationRatio(portfolio, benchmark []float64, periodsPerYear, te float64) float64 {
	if te <= 0 {
		return 0
	}
	active := make([]float64, len(portfolio))
	for i := range portfolio {
		active[i] = portfolio[i] - benchmark[i]
	}
	return formulas.AnnualizedReturn(active, periodsPerYear) / te
}
