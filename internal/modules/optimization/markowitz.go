package optimization

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// meanVarianceSolver solves the quadratic allocation problems (minimum
// variance, maximum Sharpe, Markowitz target-return) with a penalty-method
// formulation: bounds are enforced by projecting inside the objective, the
// budget and target constraints by quadratic penalties. Non-convergence is
// not an error; the best iterate is returned with converged=false.
type meanVarianceSolver struct {
	log zerolog.Logger
}

const penaltyWeight = 1000.0

// solverAccepted reports whether an optimize run ended in a usable state.
func solverAccepted(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence:
		return true
	}
	return false
}

// minimize runs BFGS first and falls back to NelderMead when BFGS errors or
// stalls. Gradient-based methods are fast on these smooth penalty objectives
// but can fail near the projection boundary; the derivative-free fallback is
// slower and sturdier.
func (s *meanVarianceSolver) minimize(problem optimize.Problem, initial []float64) ([]float64, bool) {
	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	if err == nil && solverAccepted(result.Status) {
		return result.X, true
	}

	fallback, fbErr := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
	if fbErr == nil && solverAccepted(fallback.Status) {
		return fallback.X, true
	}

	s.log.Warn().
		AnErr("bfgs_error", err).
		AnErr("neldermead_error", fbErr).
		Msg("Solver did not converge, returning best iterate")

	// Prefer whichever run produced an iterate at all.
	if fbErr == nil && fallback != nil {
		return fallback.X, false
	}
	if err == nil && result != nil {
		return result.X, false
	}
	return initial, false
}

// projectToBounds clamps every coordinate into [min, max] bounds. Called
// inside the objective so the solver only ever evaluates feasible points.
func projectToBounds(x []float64, c *Constraints) []float64 {
	projected := make([]float64, len(x))
	for i, v := range x {
		projected[i] = math.Max(c.MinWeight, math.Min(c.MaxWeight, v))
	}
	return projected
}

func sumPenalty(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return penaltyWeight * (sum - 1.0) * (sum - 1.0)
}

func addSumPenaltyGradient(grad, x []float64) {
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	for i := range grad {
		grad[i] += 2 * penaltyWeight * (sum - 1.0)
	}
}

func sectorPenalty(x []float64, assets []Asset, c *Constraints) float64 {
	if len(c.SectorLimits) == 0 {
		return 0
	}
	penalty := 0.0
	for sector, limit := range c.SectorLimits {
		total := 0.0
		for i, a := range assets {
			if a.Category == sector {
				total += x[i]
			}
		}
		if excess := total - limit; excess > 0 {
			penalty += penaltyWeight * excess * excess
		}
	}
	return penalty
}

func addSectorPenaltyGradient(grad, x []float64, assets []Asset, c *Constraints) {
	if len(c.SectorLimits) == 0 {
		return
	}
	for sector, limit := range c.SectorLimits {
		total := 0.0
		for i, a := range assets {
			if a.Category == sector {
				total += x[i]
			}
		}
		excess := total - limit
		if excess <= 0 {
			continue
		}
		for i, a := range assets {
			if a.Category == sector {
				grad[i] += 2 * penaltyWeight * excess
			}
		}
	}
}

func equalInitial(n int) []float64 {
	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}
	return initial
}

func toDense(cov [][]float64) *mat.Dense {
	n := len(cov)
	sigma := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sigma.Set(i, j, cov[i][j])
		}
	}
	return sigma
}

// solveMinVariance minimizes w'Σw over the constrained simplex. With default
// bounds and no sector caps the closed-form solution w ∝ Σ⁻¹1 is tried
// first; the penalty solve handles everything else.
func (s *meanVarianceSolver) solveMinVariance(stats *StatisticsBundle, assets []Asset, c *Constraints) ([]float64, bool) {
	n := len(stats.Symbols)
	sigma := toDense(stats.CovMatrix)

	if isDefaultBounds(c) {
		ones := make([]float64, n)
		for i := range ones {
			ones[i] = 1.0
		}
		if w, ok := solveLinearSystem(sigma, ones); ok && allNonNegative(w) {
			normalize(w)
			return w, true
		}
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xp := projectToBounds(x, c)
			obj := quadraticForm(xp, sigma)
			obj += sumPenalty(xp)
			obj += sectorPenalty(xp, assets, c)
			return obj
		},
		Grad: func(grad, x []float64) {
			xp := projectToBounds(x, c)
			for i := 0; i < n; i++ {
				grad[i] = 0
				for j := 0; j < n; j++ {
					grad[i] += 2 * sigma.At(i, j) * xp[j]
				}
			}
			addSumPenaltyGradient(grad, xp)
			addSectorPenaltyGradient(grad, xp, assets, c)
		},
	}

	x, converged := s.minimize(problem, equalInitial(n))
	w := projectToBounds(x, c)
	normalize(w)
	return w, converged
}

// solveMaxSharpe maximizes (μ'w - r_f) / sqrt(w'Σw). The unconstrained
// tangency portfolio w ∝ Σ⁻¹(μ - r_f·1) is tried first when bounds are at
// their defaults and every excess return is positive.
func (s *meanVarianceSolver) solveMaxSharpe(stats *StatisticsBundle, assets []Asset, c *Constraints, riskFreeRate float64) ([]float64, bool) {
	n := len(stats.Symbols)
	mu := stats.ExpectedReturns
	sigma := toDense(stats.CovMatrix)

	if isDefaultBounds(c) {
		excess := make([]float64, n)
		for i := range excess {
			excess[i] = mu[i] - riskFreeRate
		}
		if w, ok := solveLinearSystem(sigma, excess); ok && allNonNegative(w) {
			normalize(w)
			return w, true
		}
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xp := projectToBounds(x, c)
			ret := dot(mu, xp)
			stdDev := math.Sqrt(math.Max(quadraticForm(xp, sigma), 1e-10))

			obj := -(ret - riskFreeRate) / stdDev
			obj += sumPenalty(xp)
			obj += sectorPenalty(xp, assets, c)
			return obj
		},
		Grad: func(grad, x []float64) {
			xp := projectToBounds(x, c)
			ret := dot(mu, xp)
			variance := math.Max(quadraticForm(xp, sigma), 1e-10)
			stdDev := math.Sqrt(variance)

			// d/dw_i of -(μ'w - rf)/σ = -μ_i/σ + (μ'w - rf)(Σw)_i/σ³
			for i := 0; i < n; i++ {
				sigmaW := 0.0
				for j := 0; j < n; j++ {
					sigmaW += sigma.At(i, j) * xp[j]
				}
				grad[i] = -mu[i]/stdDev + (ret-riskFreeRate)*sigmaW/(variance*stdDev)
			}
			addSumPenaltyGradient(grad, xp)
			addSectorPenaltyGradient(grad, xp, assets, c)
		},
	}

	x, converged := s.minimize(problem, equalInitial(n))
	w := projectToBounds(x, c)
	normalize(w)
	return w, converged
}

// solveTargetReturn minimizes w'Σw subject to μ'w = target, the classic
// Markowitz formulation with the return constraint as a quadratic penalty.
func (s *meanVarianceSolver) solveTargetReturn(stats *StatisticsBundle, assets []Asset, c *Constraints, target float64) ([]float64, bool) {
	n := len(stats.Symbols)
	mu := stats.ExpectedReturns
	sigma := toDense(stats.CovMatrix)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xp := projectToBounds(x, c)
			ret := dot(mu, xp)

			obj := quadraticForm(xp, sigma)
			obj += sumPenalty(xp)
			obj += penaltyWeight * (ret - target) * (ret - target)
			obj += sectorPenalty(xp, assets, c)
			return obj
		},
		Grad: func(grad, x []float64) {
			xp := projectToBounds(x, c)
			ret := dot(mu, xp)

			for i := 0; i < n; i++ {
				grad[i] = 0
				for j := 0; j < n; j++ {
					grad[i] += 2 * sigma.At(i, j) * xp[j]
				}
				grad[i] += 2 * penaltyWeight * (ret - target) * mu[i]
			}
			addSumPenaltyGradient(grad, xp)
			addSectorPenaltyGradient(grad, xp, assets, c)
		},
	}

	x, converged := s.minimize(problem, equalInitial(n))
	w := projectToBounds(x, c)
	normalize(w)
	return w, converged
}

func isDefaultBounds(c *Constraints) bool {
	return c.MinWeight <= 0 && c.MaxWeight >= 1 && len(c.SectorLimits) == 0
}

// solveLinearSystem solves Σx = b. A singular or near-singular covariance
// matrix (perfectly correlated assets) reports failure so callers fall back
// to the numerical solve.
func solveLinearSystem(sigma *mat.Dense, b []float64) ([]float64, bool) {
	n := len(b)
	var x mat.VecDense
	if err := x.SolveVec(sigma, mat.NewVecDense(n, b)); err != nil {
		return nil, false
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := x.AtVec(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func allNonNegative(w []float64) bool {
	for _, v := range w {
		if v < 0 {
			return false
		}
	}
	return true
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func quadraticForm(x []float64, sigma *mat.Dense) float64 {
	v := 0.0
	for i := range x {
		for j := range x {
			v += x[i] * x[j] * sigma.At(i, j)
		}
	}
	return v
}
