package optimization

import (
	"math"

	"github.com/rs/zerolog"
)

// riskParitySolver finds weights equalizing risk contributions: each asset
// contributes RC_i = w_i * (Σw)_i and the target is RC_i = σ²_p / n for all i.
type riskParitySolver struct {
	tolerance float64
	maxIter   int
	log       zerolog.Logger
}

// solve runs a multiplicative update from inverse-volatility starting
// weights: w_i <- w_i * (target / RC_i)^η. Converges on any positive
// definite covariance matrix; exhausting the iteration budget degrades to
// the best iterate with converged=false.
func (s *riskParitySolver) solve(cov [][]float64) ([]float64, bool) {
	n := len(cov)
	const eta = 0.5

	// Inverse-volatility start: already close to equal risk contributions
	// when correlations are mild.
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		vol := math.Sqrt(math.Max(cov[i][i], 1e-12))
		w[i] = 1.0 / vol
	}
	normalize(w)

	for iter := 0; iter < s.maxIter; iter++ {
		rc := riskContributionVector(w, cov)
		total := 0.0
		for _, c := range rc {
			total += c
		}
		if total <= 0 {
			break
		}
		target := total / float64(n)

		if riskContributionSpread(rc, total) <= s.tolerance {
			s.log.Debug().Int("iterations", iter).Msg("Risk parity converged")
			return w, true
		}

		for i := 0; i < n; i++ {
			if rc[i] <= 0 {
				continue
			}
			w[i] *= math.Pow(target/rc[i], eta)
		}
		normalize(w)
	}

	rc := riskContributionVector(w, cov)
	total := 0.0
	for _, c := range rc {
		total += c
	}
	if total > 0 && riskContributionSpread(rc, total) <= s.tolerance {
		return w, true
	}

	s.log.Warn().
		Int("max_iterations", s.maxIter).
		Float64("tolerance", s.tolerance).
		Msg("Risk parity did not converge, returning best iterate")
	return w, false
}

// riskContributionVector computes RC_i = w_i * (Σw)_i for each asset. The
// contributions sum to the portfolio variance.
func riskContributionVector(w []float64, cov [][]float64) []float64 {
	n := len(w)
	rc := make([]float64, n)
	for i := 0; i < n; i++ {
		sigmaW := 0.0
		for j := 0; j < n; j++ {
			sigmaW += cov[i][j] * w[j]
		}
		rc[i] = w[i] * sigmaW
	}
	return rc
}

// riskContributionSpread is the normalized max-min gap of the contribution
// shares, the convergence measure for the equal-risk-contribution iteration.
func riskContributionSpread(rc []float64, total float64) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range rc {
		share := c / total
		lo = math.Min(lo, share)
		hi = math.Max(hi, share)
	}
	return hi - lo
}
