package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// HistoricalVaR calculates Value at Risk at the specified confidence level
// from a return series. The returned value is the signed return at the
// (1-confidence) quantile (negative for losses).
func HistoricalVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := tailIndex(len(sorted), confidence)
	return sorted[idx]
}

// HistoricalCVaR calculates Conditional Value at Risk (expected shortfall)
// at the specified confidence level: the mean of all returns at or beyond
// the VaR quantile. Always <= HistoricalVaR for the same inputs.
func HistoricalCVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}
	if len(returns) == 1 {
		return returns[0]
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := tailIndex(len(sorted), confidence)
	tail := sorted[:idx+1]
	sum := 0.0
	for _, r := range tail {
		sum += r
	}
	return sum / float64(len(tail))
}

// tailIndex returns the index of the VaR observation in an ascending-sorted
// series: the floor of n*(1-confidence), clamped to a valid index.
func tailIndex(n int, confidence float64) int {
	idx := int(float64(n) * (1.0 - confidence))
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// ParametricVaR calculates Value at Risk under a normality assumption:
// VaR_c = mu - z_c * sigma (signed return, negative for losses).
func ParametricVaR(mean, stdDev, confidence float64) float64 {
	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(confidence)
	return mean - z*stdDev
}

// ParametricCVaR calculates expected shortfall under a normality assumption:
// ES_c = mu - sigma * phi(z_c) / (1 - c), where phi is the standard normal
// density. Always <= ParametricVaR for the same inputs.
func ParametricCVaR(mean, stdDev, confidence float64) float64 {
	std := distuv.Normal{Mu: 0, Sigma: 1}
	z := std.Quantile(confidence)
	pdf := math.Exp(-z*z/2) / math.Sqrt(2*math.Pi)
	return mean - stdDev*pdf/(1-confidence)
}

// SimulateNormalReturns draws numSamples returns from a normal distribution
// with the given moments. Used for Monte Carlo tail-risk estimation when the
// observed sample is short.
func SimulateNormalReturns(mean, stdDev float64, numSamples int) []float64 {
	if numSamples <= 0 {
		return nil
	}
	normal := distuv.Normal{Mu: mean, Sigma: math.Max(stdDev, 1e-10)}
	samples := make([]float64, numSamples)
	for i := range samples {
		samples[i] = normal.Rand()
	}
	return samples
}

// MonteCarloCVaR calculates CVaR by sampling portfolio returns from a normal
// distribution parameterized by the portfolio's expected return and variance
// under the supplied weights and covariance matrix. More robust than
// historical CVaR when the observed sample is short.
func MonteCarloCVaR(
	covMatrix [][]float64,
	expectedReturns map[string]float64,
	weights map[string]float64,
	symbols []string,
	numSimulations int,
	confidence float64,
) float64 {
	n := len(symbols)
	if n == 0 || len(covMatrix) != n || numSimulations <= 0 {
		return 0.0
	}

	mu := make([]float64, n)
	w := make([]float64, n)
	for i, symbol := range symbols {
		mu[i] = expectedReturns[symbol]
		w[i] = weights[symbol]
	}

	portfolioMu := PortfolioReturn(w, mu)
	portfolioStdDev := math.Sqrt(math.Max(PortfolioVariance(w, covMatrix), 1e-10))

	normal := distuv.Normal{Mu: portfolioMu, Sigma: portfolioStdDev}
	simulated := make([]float64, numSimulations)
	for i := 0; i < numSimulations; i++ {
		simulated[i] = normal.Rand()
	}

	return HistoricalCVaR(simulated, confidence)
}
