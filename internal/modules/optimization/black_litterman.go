package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Black-Litterman parameters. Lambda is the market risk-aversion coefficient,
// tau scales the uncertainty of the equilibrium prior.
const (
	blLambda = 2.5
	blTau    = 0.05
)

// marketEquilibriumReturns computes the implied equilibrium return vector
// Π = λ Σ w_mkt from market-capitalization weights. Assets without a market
// cap fall back to equal weight within the uncapped remainder.
func marketEquilibriumReturns(assets []Asset, cov [][]float64) []float64 {
	n := len(assets)
	wMkt := make([]float64, n)

	totalCap := 0.0
	missing := 0
	for _, a := range assets {
		if a.MarketCap != nil && *a.MarketCap > 0 {
			totalCap += *a.MarketCap
		} else {
			missing++
		}
	}

	if totalCap <= 0 {
		for i := range wMkt {
			wMkt[i] = 1.0 / float64(n)
		}
	} else {
		// Reserve an equal-weight share of the portfolio for assets without
		// a market cap.
		missingShare := float64(missing) / float64(n)
		for i, a := range assets {
			if a.MarketCap != nil && *a.MarketCap > 0 {
				wMkt[i] = (1 - missingShare) * *a.MarketCap / totalCap
			} else {
				wMkt[i] = missingShare / float64(missing)
			}
		}
	}

	pi := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			pi[i] += blLambda * cov[i][j] * wMkt[j]
		}
	}
	return pi
}

// blendViewsWithEquilibrium computes the Black-Litterman posterior expected
// returns:
//
//	E[R] = [(τΣ)⁻¹ + P'Ω⁻¹P]⁻¹ [(τΣ)⁻¹Π + P'Ω⁻¹Q]
//
// Views are absolute per-asset return statements; P is the picking matrix
// (one row per view, a single 1 in the viewed asset's column) and Ω is
// diagonal with variance shrinking as confidence approaches 1.
func blendViewsWithEquilibrium(
	pi []float64,
	cov [][]float64,
	symbols []string,
	views []View,
) ([]float64, error) {
	n := len(symbols)
	k := len(views)
	if k == 0 {
		out := make([]float64, n)
		copy(out, pi)
		return out, nil
	}

	index := make(map[string]int, n)
	for i, s := range symbols {
		index[s] = i
	}

	p := mat.NewDense(k, n, nil)
	q := mat.NewVecDense(k, nil)
	omegaInv := mat.NewDense(k, k, nil)
	for v, view := range views {
		i, ok := index[view.Symbol]
		if !ok {
			return nil, fmt.Errorf("%w: view references unknown symbol %s", ErrInsufficientData, view.Symbol)
		}
		if view.Confidence <= 0 || view.Confidence > 1 {
			return nil, fmt.Errorf("%w: view confidence %v for %s outside (0, 1]", ErrInsufficientData, view.Confidence, view.Symbol)
		}
		p.Set(v, i, 1.0)
		q.SetVec(v, view.ExpectedReturn)

		// Ω_vv = ((1 - confidence) / confidence) * τ * Σ_ii, so full
		// confidence pins the view and low confidence defers to the prior.
		omega := (1 - view.Confidence) / view.Confidence * blTau * math.Max(cov[i][i], 1e-10)
		omegaInv.Set(v, v, 1.0/math.Max(omega, 1e-10))
	}

	tauSigma := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			tauSigma.Set(i, j, blTau*cov[i][j])
		}
	}

	var tauSigmaInv mat.Dense
	if err := tauSigmaInv.Inverse(tauSigma); err != nil {
		return nil, fmt.Errorf("singular scaled covariance matrix: %w", err)
	}

	// P'Ω⁻¹P and P'Ω⁻¹Q
	var ptOmegaInv mat.Dense
	ptOmegaInv.Mul(p.T(), omegaInv)
	var ptOmegaInvP mat.Dense
	ptOmegaInvP.Mul(&ptOmegaInv, p)
	var ptOmegaInvQ mat.VecDense
	ptOmegaInvQ.MulVec(&ptOmegaInv, q)

	var posteriorPrecision mat.Dense
	posteriorPrecision.Add(&tauSigmaInv, &ptOmegaInvP)

	var priorTerm mat.VecDense
	priorTerm.MulVec(&tauSigmaInv, mat.NewVecDense(n, pi))

	rhs := mat.NewVecDense(n, nil)
	rhs.AddVec(&priorTerm, &ptOmegaInvQ)

	var posterior mat.VecDense
	if err := posterior.SolveVec(&posteriorPrecision, rhs); err != nil {
		return nil, fmt.Errorf("posterior solve failed: %w", err)
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = posterior.AtVec(i)
	}
	return out, nil
}
