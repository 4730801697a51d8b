package results

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/abo-offspring-analyzer/internal/domain"
)

// BreakerStore guards a remote store with a circuit breaker. Once the
// breaker opens, calls fail fast with gobreaker.ErrOpenState until the
// timeout elapses.
type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker
	log  *logrus.Logger
}

// NewBreakerStore wraps next using the given breaker settings.
func NewBreakerStore(name string, next Store, cfg domain.BreakerConfig, logger *logrus.Logger) *BreakerStore {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s := &BreakerStore{next: next, log: logger}
	s.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Result store circuit breaker changed state")
		},
	})
	return s
}

// State returns the current breaker state.
func (s *BreakerStore) State() gobreaker.State {
	return s.cb.State()
}

// Append forwards to the wrapped store through the breaker.
func (s *BreakerStore) Append(ctx context.Context, results []*domain.AnalysisResult) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.Append(ctx, results)
	})
	if err != nil {
		return fmt.Errorf("%s append: %w", s.cb.Name(), err)
	}
	return nil
}

// List forwards to the wrapped store through the breaker.
func (s *BreakerStore) List(ctx context.Context, limit, offset int) ([]*domain.AnalysisResult, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.next.List(ctx, limit, offset)
	})
	if err != nil {
		return nil, fmt.Errorf("%s list: %w", s.cb.Name(), err)
	}
	return out.([]*domain.AnalysisResult), nil
}

// Count forwards to the wrapped store through the breaker.
func (s *BreakerStore) Count(ctx context.Context) (int64, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.next.Count(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("%s count: %w", s.cb.Name(), err)
	}
	return out.(int64), nil
}

// Close closes the wrapped store.
func (s *BreakerStore) Close() error {
	return s.next.Close()
}
