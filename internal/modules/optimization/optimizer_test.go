package optimization

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevin12369/smart-stock-insider/internal/config"
)

func testService() *Service {
	cfg := config.DefaultEngineConfig()
	// Keep unit tests fast; tail-risk checks are exercised separately.
	cfg.MonteCarloSimulations = 0
	return NewService(cfg, zerolog.Nop())
}

func twoAssetStats(vol1, vol2, cov float64) *StatisticsBundle {
	return &StatisticsBundle{
		Symbols:         []string{"A", "B"},
		ExpectedReturns: []float64{0.12, 0.08},
		CovMatrix: [][]float64{
			{vol1 * vol1, cov},
			{cov, vol2 * vol2},
		},
	}
}

func twoAssets() []Asset {
	return []Asset{
		{Symbol: "A", Name: "Asset A", ExpectedReturn: 0.12, Volatility: 0.20, Category: "equity"},
		{Symbol: "B", Name: "Asset B", ExpectedReturn: 0.08, Volatility: 0.20, Category: "bond"},
	}
}

func assertWeightsSumToOne(t *testing.T, weights map[string]float64) {
	t.Helper()
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, WeightTolerance, "weights should sum to 1")
}

func TestOptimize_EqualWeightTwoAssets(t *testing.T) {
	svc := testService()

	result, err := svc.Optimize(Request{
		Assets:     twoAssets(),
		Statistics: twoAssetStats(0.20, 0.20, 0.0),
		Method:     MethodEqualWeight,
	})
	require.NoError(t, err)

	assertWeightsSumToOne(t, result.Weights)
	assert.InDelta(t, 0.5, result.Weights["A"], 1e-9)
	assert.InDelta(t, 0.5, result.Weights["B"], 1e-9)

	// Two uncorrelated 20%-vol assets at half weight each: sqrt(0.02).
	assert.InDelta(t, 0.1414, result.ExpectedVolatility, 1e-3)
	assert.True(t, result.ConstraintsMet)
}

func TestOptimize_MinimumVariancePerfectHedge(t *testing.T) {
	svc := testService()

	// Perfectly negatively correlated equal-vol pair: a 50/50 split hedges
	// all risk away.
	result, err := svc.Optimize(Request{
		Assets:     twoAssets(),
		Statistics: twoAssetStats(0.20, 0.20, -0.04),
		Method:     MethodMinimumVariance,
	})
	require.NoError(t, err)

	assertWeightsSumToOne(t, result.Weights)
	assert.InDelta(t, 0.0, result.ExpectedVolatility, 1e-2)
}

func TestOptimize_MinimumVarianceFavorsLowVolAsset(t *testing.T) {
	svc := testService()

	result, err := svc.Optimize(Request{
		Assets:     twoAssets(),
		Statistics: twoAssetStats(0.30, 0.10, 0.0),
		Method:     MethodMinimumVariance,
	})
	require.NoError(t, err)

	assertWeightsSumToOne(t, result.Weights)
	assert.Greater(t, result.Weights["B"], result.Weights["A"],
		"the lower-volatility asset should carry more weight")
}

func TestOptimize_MaximumSharpe(t *testing.T) {
	svc := testService()

	result, err := svc.Optimize(Request{
		Assets:     twoAssets(),
		Statistics: twoAssetStats(0.20, 0.20, 0.01),
		Method:     MethodMaximumSharpe,
	})
	require.NoError(t, err)

	assertWeightsSumToOne(t, result.Weights)
	assert.Greater(t, result.SharpeRatio, 0.0)
	// Equal vol, equal correlation exposure, higher return: A dominates.
	assert.Greater(t, result.Weights["A"], result.Weights["B"])
}

func TestOptimize_RiskParityEqualizesContributions(t *testing.T) {
	svc := testService()

	stats := &StatisticsBundle{
		Symbols:         []string{"A", "B", "C"},
		ExpectedReturns: []float64{0.10, 0.08, 0.06},
		CovMatrix: [][]float64{
			{0.09, 0.006, 0.003},
			{0.006, 0.04, 0.002},
			{0.003, 0.002, 0.01},
		},
	}
	assets := []Asset{
		{Symbol: "A", Volatility: 0.30},
		{Symbol: "B", Volatility: 0.20},
		{Symbol: "C", Volatility: 0.10},
	}

	result, err := svc.Optimize(Request{
		Assets:     assets,
		Statistics: stats,
		Method:     MethodRiskParity,
	})
	require.NoError(t, err)
	require.True(t, result.ConstraintsMet)

	assertWeightsSumToOne(t, result.Weights)

	total := 0.0
	for _, rc := range result.RiskContributions {
		total += rc
	}
	require.Greater(t, total, 0.0)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, rc := range result.RiskContributions {
		share := rc / total
		lo = math.Min(lo, share)
		hi = math.Max(hi, share)
	}
	cfg := config.DefaultEngineConfig()
	assert.LessOrEqual(t, hi-lo, cfg.RiskParityTolerance*10,
		"risk contribution shares should be nearly equal")
}

func TestOptimize_MarkowitzHitsTargetReturn(t *testing.T) {
	svc := testService()

	target := 0.10
	result, err := svc.Optimize(Request{
		Assets:      twoAssets(),
		Statistics:  twoAssetStats(0.20, 0.15, 0.01),
		Method:      MethodMarkowitz,
		Constraints: &Constraints{MinWeight: 0, MaxWeight: 1, TargetReturn: &target},
	})
	require.NoError(t, err)

	assertWeightsSumToOne(t, result.Weights)
	assert.InDelta(t, target, result.ExpectedReturn, 0.01)
}

func TestOptimize_BlackLittermanTiltsTowardView(t *testing.T) {
	svc := testService()

	baseline, err := svc.Optimize(Request{
		Assets:     twoAssets(),
		Statistics: twoAssetStats(0.20, 0.20, 0.01),
		Method:     MethodBlackLitterman,
	})
	require.NoError(t, err)

	tilted, err := svc.Optimize(Request{
		Assets:     twoAssets(),
		Statistics: twoAssetStats(0.20, 0.20, 0.01),
		Method:     MethodBlackLitterman,
		Views:      []View{{Symbol: "B", ExpectedReturn: 0.25, Confidence: 0.9}},
	})
	require.NoError(t, err)

	assertWeightsSumToOne(t, tilted.Weights)
	assert.Greater(t, tilted.Weights["B"], baseline.Weights["B"],
		"a bullish view on B should raise its weight")
}

func TestOptimize_BlackLittermanRejectsBadView(t *testing.T) {
	svc := testService()

	_, err := svc.Optimize(Request{
		Assets:     twoAssets(),
		Statistics: twoAssetStats(0.20, 0.20, 0.01),
		Method:     MethodBlackLitterman,
		Views:      []View{{Symbol: "Z", ExpectedReturn: 0.25, Confidence: 0.9}},
	})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestOptimize_HRP(t *testing.T) {
	svc := testService()

	stats := &StatisticsBundle{
		Symbols:         []string{"A", "B", "C", "D"},
		ExpectedReturns: []float64{0.10, 0.09, 0.08, 0.07},
		CovMatrix: [][]float64{
			{0.040, 0.030, 0.002, 0.001},
			{0.030, 0.045, 0.001, 0.002},
			{0.002, 0.001, 0.010, 0.007},
			{0.001, 0.002, 0.007, 0.012},
		},
	}
	assets := []Asset{
		{Symbol: "A"}, {Symbol: "B"}, {Symbol: "C"}, {Symbol: "D"},
	}

	result, err := svc.Optimize(Request{
		Assets:     assets,
		Statistics: stats,
		Method:     MethodHRP,
	})
	require.NoError(t, err)

	assertWeightsSumToOne(t, result.Weights)
	for symbol, w := range result.Weights {
		assert.Greater(t, w, 0.0, "HRP weight for %s should be positive", symbol)
	}
	// The low-variance cluster (C, D) should carry more weight overall.
	assert.Greater(t, result.Weights["C"]+result.Weights["D"],
		result.Weights["A"]+result.Weights["B"])
}

func TestOptimize_Idempotent(t *testing.T) {
	svc := testService()

	req := Request{
		Assets:     twoAssets(),
		Statistics: twoAssetStats(0.20, 0.15, 0.01),
		Method:     MethodMaximumSharpe,
	}

	first, err := svc.Optimize(req)
	require.NoError(t, err)
	second, err := svc.Optimize(req)
	require.NoError(t, err)

	for symbol, w := range first.Weights {
		assert.InDelta(t, w, second.Weights[symbol], 1e-12,
			"repeated optimization should produce identical weights")
	}
}

func TestOptimize_RespectsMaxWeightCap(t *testing.T) {
	svc := testService()

	result, err := svc.Optimize(Request{
		Assets:      twoAssets(),
		Statistics:  twoAssetStats(0.20, 0.20, 0.01),
		Method:      MethodMaximumSharpe,
		Constraints: &Constraints{MinWeight: 0.0, MaxWeight: 0.6},
	})
	require.NoError(t, err)

	assertWeightsSumToOne(t, result.Weights)
	for symbol, w := range result.Weights {
		assert.LessOrEqual(t, w, 0.6+1e-6, "weight for %s should respect the cap", symbol)
	}
	assert.True(t, result.ConstraintsMet)
}

func TestOptimize_SectorLimit(t *testing.T) {
	svc := testService()

	assets := []Asset{
		{Symbol: "A", ExpectedReturn: 0.15, Volatility: 0.20, Category: "tech"},
		{Symbol: "B", ExpectedReturn: 0.14, Volatility: 0.20, Category: "tech"},
		{Symbol: "C", ExpectedReturn: 0.05, Volatility: 0.15, Category: "utilities"},
	}

	result, err := svc.Optimize(Request{
		Assets: assets,
		Method: MethodMaximumSharpe,
		Constraints: &Constraints{
			MinWeight:    0.0,
			MaxWeight:    1.0,
			SectorLimits: map[string]float64{"tech": 0.5},
		},
	})
	require.NoError(t, err)

	assertWeightsSumToOne(t, result.Weights)
	assert.LessOrEqual(t, result.Weights["A"]+result.Weights["B"], 0.5+1e-6,
		"tech sector should respect its cap")
}

func TestOptimize_InfeasibleConstraints(t *testing.T) {
	svc := testService()

	_, err := svc.Optimize(Request{
		Assets:      twoAssets(),
		Statistics:  twoAssetStats(0.20, 0.20, 0.01),
		Method:      MethodEqualWeight,
		Constraints: &Constraints{MinWeight: 0.6, MaxWeight: 1.0},
	})
	assert.ErrorIs(t, err, ErrInfeasibleConstraints)
}

func TestOptimize_UnsupportedMethod(t *testing.T) {
	svc := testService()

	_, err := svc.Optimize(Request{
		Assets: twoAssets(),
		Method: Method("genetic_algorithm"),
	})
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
}

func TestOptimize_SingleAssetRejected(t *testing.T) {
	svc := testService()

	_, err := svc.Optimize(Request{
		Assets: []Asset{{Symbol: "A", ExpectedReturn: 0.1, Volatility: 0.2}},
		Method: MethodEqualWeight,
	})
	assert.ErrorIs(t, err, ErrEmptyAssetSet)
}

func TestOptimize_RiskContributionsSumToVariance(t *testing.T) {
	svc := testService()

	result, err := svc.Optimize(Request{
		Assets:     twoAssets(),
		Statistics: twoAssetStats(0.20, 0.15, 0.01),
		Method:     MethodMaximumSharpe,
	})
	require.NoError(t, err)

	total := 0.0
	for _, rc := range result.RiskContributions {
		total += rc
	}
	variance := result.ExpectedVolatility * result.ExpectedVolatility
	assert.InDelta(t, variance, total, 1e-9,
		"risk contributions should decompose the portfolio variance")
}
