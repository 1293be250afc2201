package optimization

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// MethodComparison holds the outcome of running every optimization method
// over the same asset universe. Methods that fail land in Errors instead of
// aborting the rest of the run.
type MethodComparison struct {
	RunID   string             `json:"run_id"`
	Results map[Method]*Result `json:"results"`
	Errors  map[Method]string  `json:"errors,omitempty"`
}

// CompareMethods runs all supported methods concurrently on a shared
// statistics bundle so every method sees identical inputs. The Service is
// stateless, so the per-method solves need no coordination beyond the result
// maps.
func (s *Service) CompareMethods(ctx context.Context, req Request) (*MethodComparison, error) {
	stats := req.Statistics
	if stats == nil {
		var err error
		stats, err = s.estimator.Estimate(req.Assets, req.Historical)
		if err != nil {
			return nil, err
		}
	}

	comparison := &MethodComparison{
		RunID:   uuid.NewString(),
		Results: make(map[Method]*Result, len(Methods())),
		Errors:  make(map[Method]string),
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for _, method := range Methods() {
		method := method
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			methodReq := req
			methodReq.Method = method
			methodReq.Statistics = stats

			result, err := s.Optimize(methodReq)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				comparison.Errors[method] = err.Error()
				return nil
			}
			comparison.Results[method] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(comparison.Errors) == 0 {
		comparison.Errors = nil
	}

	s.log.Info().
		Str("run_id", comparison.RunID).
		Int("succeeded", len(comparison.Results)).
		Int("failed", len(comparison.Errors)).
		Msg("Method comparison complete")

	return comparison, nil
}
