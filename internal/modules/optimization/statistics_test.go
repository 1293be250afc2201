package optimization

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevin12369/smart-stock-insider/internal/config"
)

func testEstimator() *StatisticsEstimator {
	return NewStatisticsEstimator(config.DefaultEngineConfig(), zerolog.Nop())
}

func TestEstimate_FromAssets(t *testing.T) {
	e := testEstimator()

	bundle, err := e.Estimate(twoAssets(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, bundle.Symbols)
	assert.Equal(t, []float64{0.12, 0.08}, bundle.ExpectedReturns)

	// Diagonal is sigma squared; off-diagonal uses the default correlation.
	assert.InDelta(t, 0.04, bundle.CovMatrix[0][0], 1e-12)
	assert.InDelta(t, 0.04, bundle.CovMatrix[1][1], 1e-12)
	assert.InDelta(t, 0.3*0.20*0.20, bundle.CovMatrix[0][1], 1e-12)
	assert.Equal(t, bundle.CovMatrix[0][1], bundle.CovMatrix[1][0])
}

func TestEstimate_FromHistory(t *testing.T) {
	e := testEstimator()

	historical := map[string][]float64{
		"A": {0.01, -0.02, 0.015, 0.005, -0.01},
		"B": {0.005, 0.01, -0.005, 0.0, 0.002},
	}

	bundle, err := e.Estimate(twoAssets(), historical)
	require.NoError(t, err)

	// Annualized mean: sample mean times periods per year.
	mean := (0.01 - 0.02 + 0.015 + 0.005 - 0.01) / 5
	assert.InDelta(t, mean*252, bundle.ExpectedReturns[0], 1e-9)

	// Covariance matrix is symmetric with positive diagonal.
	assert.Greater(t, bundle.CovMatrix[0][0], 0.0)
	assert.Greater(t, bundle.CovMatrix[1][1], 0.0)
	assert.InDelta(t, bundle.CovMatrix[0][1], bundle.CovMatrix[1][0], 1e-15)
}

func TestEstimate_MissingSeries(t *testing.T) {
	e := testEstimator()

	_, err := e.Estimate(twoAssets(), map[string][]float64{
		"A": {0.01, 0.02},
	})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestEstimate_MismatchedSeriesLengths(t *testing.T) {
	e := testEstimator()

	_, err := e.Estimate(twoAssets(), map[string][]float64{
		"A": {0.01, 0.02, 0.03},
		"B": {0.01, 0.02},
	})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestEstimate_TooFewObservations(t *testing.T) {
	e := testEstimator()

	_, err := e.Estimate(twoAssets(), map[string][]float64{
		"A": {0.01},
		"B": {0.02},
	})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestEstimate_SingleAsset(t *testing.T) {
	e := testEstimator()

	_, err := e.Estimate([]Asset{{Symbol: "A", Volatility: 0.2}}, nil)
	assert.ErrorIs(t, err, ErrEmptyAssetSet)
}

func TestEstimate_NegativeVolatility(t *testing.T) {
	e := testEstimator()

	assets := twoAssets()
	assets[1].Volatility = -0.1
	_, err := e.Estimate(assets, nil)
	assert.ErrorIs(t, err, ErrInsufficientData)
}
