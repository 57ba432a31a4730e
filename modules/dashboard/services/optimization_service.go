package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/syurii10/cloud-optimization-project/modules/dashboard/domain/optimization"
	"github.com/syurii10/cloud-optimization-project/pkg/composables"
	"github.com/syurii10/cloud-optimization-project/pkg/eventbus"
)

type OptimizationOption func(*OptimizationService)

func WithOptimizationClock(now func() time.Time) OptimizationOption {
	return func(s *OptimizationService) {
		if now != nil {
			s.now = now
		}
	}
}

// OptimizationService ranks alternatives with TOPSIS and stores the result
// where GET /api/results reads it.
type OptimizationService struct {
	results   optimization.ResultWriter
	publisher eventbus.EventBus
	now       func() time.Time

	// Serializes writers; a later request always wins.
	mu sync.Mutex
}

func NewOptimizationService(results optimization.ResultWriter, publisher eventbus.EventBus, opts ...OptimizationOption) *OptimizationService {
	s := &OptimizationService{
		results:   results,
		publisher: publisher,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Optimize ranks alts with the default criteria weights.
func (s *OptimizationService) Optimize(ctx context.Context, alts optimization.Alternatives) (optimization.Result, error) {
	return s.run(ctx, alts, optimization.DefaultWeights(), false)
}

// OptimizeWithWeights ranks alts with caller-supplied weights, which are
// recorded on the result as custom_weights.
func (s *OptimizationService) OptimizeWithWeights(ctx context.Context, alts optimization.Alternatives, weights optimization.Weights) (optimization.Result, error) {
	if err := weights.Validate(); err != nil {
		return optimization.Result{}, err
	}
	return s.run(ctx, alts, weights, true)
}

func (s *OptimizationService) run(ctx context.Context, alts optimization.Alternatives, weights optimization.Weights, custom bool) (optimization.Result, error) {
	if err := alts.Validate(); err != nil {
		return optimization.Result{}, err
	}
	result, err := optimization.Rank(alts, weights)
	if err != nil {
		return optimization.Result{}, err
	}
	if custom {
		result.CustomWeights = result.CriteriaWeights
	}
	result.Timestamp = s.now().UTC()

	s.mu.Lock()
	err = s.results.WriteJSON(optimization.ResultsFile, result)
	s.mu.Unlock()
	if err != nil {
		return optimization.Result{}, fmt.Errorf("%w: %w", optimization.ErrSaveFailed, err)
	}

	composables.UseLogger(ctx).WithFields(logrus.Fields{
		"winner":       result.BestAlternative,
		"alternatives": len(result.Results),
		"custom":       custom,
	}).Info("optimization complete")
	s.publisher.Publish(&optimization.CompletedEvent{Result: result, Custom: custom})
	return result, nil
}
