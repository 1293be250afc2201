package formulas

import (
	"fmt"
	"math"
)

// CorrelationMatrixFromCovariance converts a covariance matrix into a
// correlation matrix. Zero-variance assets get zero correlation with
// everything and unit self-correlation.
func CorrelationMatrixFromCovariance(cov [][]float64) ([][]float64, error) {
	n := len(cov)
	if n == 0 {
		return nil, fmt.Errorf("empty covariance matrix")
	}
	for i := range cov {
		if len(cov[i]) != n {
			return nil, fmt.Errorf("covariance matrix is not square")
		}
	}

	corr := make([][]float64, n)
	for i := range corr {
		corr[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				corr[i][j] = 1.0
				continue
			}
			denom := math.Sqrt(cov[i][i] * cov[j][j])
			if denom <= 0 {
				corr[i][j] = 0
				continue
			}
			// Clamp to [-1, 1] against numerical noise.
			c := cov[i][j] / denom
			corr[i][j] = math.Max(-1.0, math.Min(1.0, c))
		}
	}
	return corr, nil
}

// CorrelationToDistance converts a correlation matrix into the distance
// metric used for hierarchical clustering: d_ij = sqrt(2 * (1 - rho_ij)).
func CorrelationToDistance(corr [][]float64) [][]float64 {
	n := len(corr)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			dist[i][j] = math.Sqrt(math.Max(0, 2*(1-corr[i][j])))
		}
	}
	return dist
}

// PortfolioReturn calculates w' * mu for aligned weight and return vectors.
func PortfolioReturn(weights, expectedReturns []float64) float64 {
	ret := 0.0
	for i := range weights {
		ret += weights[i] * expectedReturns[i]
	}
	return ret
}

// PortfolioVariance calculates w' * Sigma * w.
func PortfolioVariance(weights []float64, cov [][]float64) float64 {
	variance := 0.0
	for i := range weights {
		for j := range weights {
			variance += weights[i] * weights[j] * cov[i][j]
		}
	}
	return variance
}
