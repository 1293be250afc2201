package optimization

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultFrontierPoints is the number of frontier portfolios generated when
// the caller does not specify a count.
const DefaultFrontierPoints = 50

// EfficientFrontier sweeps target returns from the lowest to the highest
// single-asset expected return and solves a minimum-variance portfolio for
// each, producing the risk-return curve. Points below the global
// minimum-variance return sit on the frontier's lower branch and are flagged
// Efficient=false rather than dropped. Solves run concurrently; the sweep is
// embarrassingly parallel.
func (s *Service) EfficientFrontier(ctx context.Context, req Request, numPoints int) ([]FrontierPoint, error) {
	if numPoints <= 0 {
		numPoints = DefaultFrontierPoints
	}

	stats := req.Statistics
	if stats == nil {
		var err error
		stats, err = s.estimator.Estimate(req.Assets, req.Historical)
		if err != nil {
			return nil, err
		}
	}

	constraints := req.Constraints
	if constraints == nil {
		constraints = DefaultConstraints()
	}
	if err := validateConstraints(constraints, req.Assets, stats); err != nil {
		return nil, err
	}

	lo, hi := stats.ExpectedReturns[0], stats.ExpectedReturns[0]
	for _, r := range stats.ExpectedReturns {
		if r < lo {
			lo = r
		}
		if r > hi {
			hi = r
		}
	}

	// The knee of the curve: returns below this belong to the lower branch.
	minVarWeights, _ := s.mv.solveMinVariance(stats, req.Assets, constraints)
	kneeReturn := dot(stats.ExpectedReturns, minVarWeights)

	points := make([]FrontierPoint, numPoints)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < numPoints; i++ {
		i := i
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			target := lo
			if numPoints > 1 {
				target = lo + (hi-lo)*float64(i)/float64(numPoints-1)
			}
			w, _ := s.mv.solveTargetReturn(stats, req.Assets, constraints, target)
			w, _ = applyConstraints(w, req.Assets, constraints)

			result := s.buildResult(MethodMarkowitz, stats, w, true, time.Now())
			points[i] = FrontierPoint{
				Return:      result.ExpectedReturn,
				Volatility:  result.ExpectedVolatility,
				SharpeRatio: result.SharpeRatio,
				Efficient:   result.ExpectedReturn >= kneeReturn-WeightTolerance,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Return < points[j].Return })

	s.log.Info().
		Int("num_points", numPoints).
		Float64("knee_return", kneeReturn).
		Msg("Efficient frontier generated")

	return points, nil
}
