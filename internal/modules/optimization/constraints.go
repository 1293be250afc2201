package optimization

import (
	"fmt"
	"math"
	"sort"
)

// validateConstraints checks feasibility before any solve. Infeasible
// constraint sets fail the request; they are never silently relaxed.
func validateConstraints(c *Constraints, assets []Asset, stats *StatisticsBundle) error {
	n := len(assets)

	if c.MinWeight < 0 || c.MaxWeight > 1 || c.MinWeight > c.MaxWeight {
		return fmt.Errorf("%w: bounds must satisfy 0 <= min (%v) <= max (%v) <= 1",
			ErrInfeasibleConstraints, c.MinWeight, c.MaxWeight)
	}
	if float64(n)*c.MinWeight > 1+WeightTolerance {
		return fmt.Errorf("%w: %d assets at min_weight %v cannot sum to 1",
			ErrInfeasibleConstraints, n, c.MinWeight)
	}
	if float64(n)*c.MaxWeight < 1-WeightTolerance {
		return fmt.Errorf("%w: %d assets at max_weight %v cannot reach 1",
			ErrInfeasibleConstraints, n, c.MaxWeight)
	}

	for sector, limit := range c.SectorLimits {
		if limit <= 0 || limit > 1 {
			return fmt.Errorf("%w: sector %q limit %v outside (0, 1]",
				ErrInfeasibleConstraints, sector, limit)
		}
	}

	// If every asset sits in a capped sector, the caps must leave room for a
	// full allocation.
	if len(c.SectorLimits) > 0 {
		uncapped := false
		capSum := 0.0
		seen := map[string]bool{}
		for _, a := range assets {
			limit, capped := c.SectorLimits[a.Category]
			if !capped {
				uncapped = true
				continue
			}
			if !seen[a.Category] {
				seen[a.Category] = true
				capSum += limit
			}
		}
		if !uncapped && capSum < 1-WeightTolerance {
			return fmt.Errorf("%w: sector limits sum to %.4f with no uncapped assets",
				ErrInfeasibleConstraints, capSum)
		}
	}

	if c.TargetVolatility != nil && *c.TargetVolatility <= 0 {
		return fmt.Errorf("%w: target_volatility %v must be positive",
			ErrInfeasibleConstraints, *c.TargetVolatility)
	}

	if c.TargetReturn != nil && stats != nil {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, r := range stats.ExpectedReturns {
			lo = math.Min(lo, r)
			hi = math.Max(hi, r)
		}
		if *c.TargetReturn < lo-WeightTolerance || *c.TargetReturn > hi+WeightTolerance {
			return fmt.Errorf("%w: target_return %v outside achievable range [%v, %v]",
				ErrInfeasibleConstraints, *c.TargetReturn, lo, hi)
		}
	}

	return nil
}

// applyConstraints runs the uniform post-solve constraint pass: clip to the
// per-asset bounds, renormalize to sum 1, enforce sector caps by scaling the
// offending sector down and redistributing the excess proportionally, then
// verify. Returns the adjusted weights and whether all constraints hold
// within tolerance after adjustment. Conflicting bound and sector
// constraints can leave residual violations; the result is still returned so
// callers can inspect ConstraintsMet.
func applyConstraints(weights []float64, assets []Asset, c *Constraints) ([]float64, bool) {
	const adjustTol = 1e-6
	n := len(weights)
	adjusted := make([]float64, n)
	copy(adjusted, weights)

	// Clip-and-renormalize can reintroduce violations; a few passes settle it
	// for anything short of genuinely conflicting constraints.
	for pass := 0; pass < 3; pass++ {
		for i := range adjusted {
			adjusted[i] = math.Max(c.MinWeight, math.Min(c.MaxWeight, adjusted[i]))
		}
		normalize(adjusted)
	}

	if len(c.SectorLimits) > 0 {
		enforceSectorLimits(adjusted, assets, c)
		// Redistribution may have pushed individual weights past their
		// bounds; settle once more.
		for i := range adjusted {
			adjusted[i] = math.Max(c.MinWeight, math.Min(c.MaxWeight, adjusted[i]))
		}
		normalize(adjusted)
	}

	met := true
	for i := range adjusted {
		if adjusted[i] < c.MinWeight-adjustTol || adjusted[i] > c.MaxWeight+adjustTol {
			met = false
			break
		}
	}
	if met && len(c.SectorLimits) > 0 {
		for sector, limit := range c.SectorLimits {
			if sectorWeight(adjusted, assets, sector) > limit+adjustTol {
				met = false
				break
			}
		}
	}

	return adjusted, met
}

// enforceSectorLimits scales each over-cap sector down to its limit and
// redistributes the removed mass proportionally across assets in sectors
// that still have headroom. Sectors are processed in sorted name order and
// swept repeatedly: redistribution can push a previously settled sector back
// over its cap, and the weights must not depend on map iteration order.
func enforceSectorLimits(weights []float64, assets []Asset, c *Constraints) {
	sectors := make([]string, 0, len(c.SectorLimits))
	for sector := range c.SectorLimits {
		sectors = append(sectors, sector)
	}
	sort.Strings(sectors)

	for pass := 0; pass <= len(sectors); pass++ {
		adjusted := false
		for _, sector := range sectors {
			limit := c.SectorLimits[sector]
			total := sectorWeight(weights, assets, sector)
			if total <= limit+1e-12 {
				continue
			}

			excess := total - limit
			scale := limit / total
			receiverTotal := 0.0
			for i, a := range assets {
				if a.Category == sector {
					weights[i] *= scale
				} else if !sectorAtCap(weights, assets, c, a.Category) {
					receiverTotal += weights[i]
				}
			}
			adjusted = true

			if receiverTotal <= 0 {
				// Nowhere to put the excess; normalization below absorbs it
				// and the verification step reports the conflict.
				continue
			}
			for i, a := range assets {
				if a.Category != sector && !sectorAtCap(weights, assets, c, a.Category) {
					weights[i] += excess * weights[i] / receiverTotal
				}
			}
		}
		if !adjusted {
			break
		}
	}
	normalize(weights)
}

func sectorAtCap(weights []float64, assets []Asset, c *Constraints, sector string) bool {
	limit, capped := c.SectorLimits[sector]
	if !capped {
		return false
	}
	return sectorWeight(weights, assets, sector) >= limit-1e-9
}

func sectorWeight(weights []float64, assets []Asset, sector string) float64 {
	total := 0.0
	for i, a := range assets {
		if a.Category == sector {
			total += weights[i]
		}
	}
	return total
}

// normalize scales weights to sum to 1 in place. A degenerate (non-positive)
// sum falls back to equal weights rather than producing NaNs.
func normalize(weights []float64) {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		for i := range weights {
			weights[i] = 1.0 / float64(len(weights))
		}
		return
	}
	for i := range weights {
		weights[i] /= sum
	}
}
