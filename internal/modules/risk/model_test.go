package risk

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevin12369/smart-stock-insider/internal/config"
)

func testModel() *Model {
	return NewModel(config.DefaultEngineConfig(), zerolog.Nop())
}

// sampleReturns is a 24-observation daily series with a few pronounced
// losses, enough history for the default minimum.
func sampleReturns() []float64 {
	return []float64{
		0.012, -0.008, 0.021, -0.034, 0.007, -0.019, 0.015, 0.003,
		-0.027, 0.011, -0.002, 0.018, -0.041, 0.009, -0.013, 0.025,
		0.004, -0.006, 0.017, -0.022, 0.008, 0.001, -0.015, 0.010,
	}
}

func TestAnalyze_HistoricalMetrics(t *testing.T) {
	m := testModel()

	metrics, err := m.Analyze(sampleReturns(), nil, MethodHistorical)
	require.NoError(t, err)

	// Loss magnitudes are non-negative and ordered by severity.
	assert.GreaterOrEqual(t, metrics.VaR95, 0.0)
	assert.GreaterOrEqual(t, metrics.CVaR95, metrics.VaR95)
	assert.GreaterOrEqual(t, metrics.CVaR99, metrics.VaR99)
	assert.GreaterOrEqual(t, metrics.VaR99, metrics.VaR95)

	assert.LessOrEqual(t, metrics.MaxDrawdown, 0.0)
	assert.Greater(t, metrics.Volatility, 0.0)

	// No benchmark: relative metrics stay zero.
	assert.Zero(t, metrics.Beta)
	assert.Zero(t, metrics.TrackingError)
	assert.Zero(t, metrics.InformationRatio)
}

func TestAnalyze_WithBenchmark(t *testing.T) {
	m := testModel()

	portfolio := sampleReturns()
	benchmark := make([]float64, len(portfolio))
	for i, r := range portfolio {
		benchmark[i] = r * 0.5
	}

	metrics, err := m.Analyze(portfolio, benchmark, MethodHistorical)
	require.NoError(t, err)

	// The portfolio is exactly 2x the benchmark.
	assert.InDelta(t, 2.0, metrics.Beta, 1e-9)
	assert.Greater(t, metrics.TrackingError, 0.0)
}

func TestAnalyze_BenchmarkLengthMismatch(t *testing.T) {
	m := testModel()

	_, err := m.Analyze(sampleReturns(), []float64{0.01, 0.02}, MethodHistorical)
	assert.ErrorIs(t, err, ErrBenchmarkMismatch)
}

func TestAnalyze_InsufficientHistory(t *testing.T) {
	m := testModel()

	_, err := m.Analyze([]float64{0.01, -0.02, 0.005}, nil, MethodHistorical)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestAnalyze_UnsupportedMethod(t *testing.T) {
	m := testModel()

	_, err := m.Analyze(sampleReturns(), nil, Method("bayesian"))
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
}

func TestAnalyze_ParametricAndMonteCarlo(t *testing.T) {
	m := testModel()

	for _, method := range []Method{MethodParametric, MethodMonteCarlo} {
		metrics, err := m.Analyze(sampleReturns(), nil, method)
		require.NoError(t, err, "method %s", method)
		assert.GreaterOrEqual(t, metrics.CVaR95, metrics.VaR95, "method %s", method)
		assert.Greater(t, metrics.VaR95, 0.0, "method %s", method)
	}
}

func TestValueAtRisk_LossMagnitude(t *testing.T) {
	m := testModel()

	v, err := m.ValueAtRisk(sampleReturns(), 0.95, MethodHistorical)
	require.NoError(t, err)
	assert.Greater(t, v, 0.0)

	cv, err := m.ConditionalVaR(sampleReturns(), 0.95, MethodHistorical)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cv, v)
}

func TestValueAtRisk_AllGainsReportsZero(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	cfg.MinHistoryObservations = 5
	m := NewModel(cfg, zerolog.Nop())

	gains := []float64{0.01, 0.02, 0.015, 0.008, 0.012, 0.009}
	v, err := m.ValueAtRisk(gains, 0.5, MethodHistorical)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v, "a series with no losses has zero VaR magnitude")
}
