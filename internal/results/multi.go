package results

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/abo-offspring-analyzer/internal/domain"
)

// ErrSecondaryStore marks append failures of a mirror store. The primary
// store already holds the results when it is returned.
var ErrSecondaryStore = errors.New("secondary store failed")

// MultiStore writes to a primary store and mirrors every append to the
// secondaries. Reads are served by the primary only.
type MultiStore struct {
	primary     Store
	secondaries []Store
	log         *logrus.Logger
}

// NewMultiStore creates a store fanning appends out to secondaries.
func NewMultiStore(primary Store, logger *logrus.Logger, secondaries ...Store) *MultiStore {
	return &MultiStore{primary: primary, secondaries: secondaries, log: logger}
}

// Append writes to the primary first and stops if it fails. Secondary
// failures are logged, then returned joined and wrapped in ErrSecondaryStore.
func (m *MultiStore) Append(ctx context.Context, results []*domain.AnalysisResult) error {
	if err := m.primary.Append(ctx, results); err != nil {
		return err
	}
	var errs []error
	for i, s := range m.secondaries {
		if err := s.Append(ctx, results); err != nil {
			if m.log != nil {
				m.log.WithError(err).WithFields(logrus.Fields{
					"secondary": i,
					"results":   len(results),
				}).Warn("Failed to mirror results to secondary store")
			}
			errs = append(errs, fmt.Errorf("%w: secondary %d: %w", ErrSecondaryStore, i, err))
		}
	}
	return errors.Join(errs...)
}

// List reads from the primary store.
func (m *MultiStore) List(ctx context.Context, limit, offset int) ([]*domain.AnalysisResult, error) {
	return m.primary.List(ctx, limit, offset)
}

// Count reads from the primary store.
func (m *MultiStore) Count(ctx context.Context) (int64, error) {
	return m.primary.Count(ctx)
}

// Close closes every store and joins their errors.
func (m *MultiStore) Close() error {
	errs := []error{}
	if err := m.primary.Close(); err != nil {
		errs = append(errs, fmt.Errorf("primary: %w", err))
	}
	for i, s := range m.secondaries {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("secondary %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
