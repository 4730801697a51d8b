package service

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/abo-offspring-analyzer/internal/domain"
)

// DefaultCacheSize covers every ordered parent pair.
const DefaultCacheSize = 16

// CachedEngine memoizes distributions per parent pair in an LRU cache.
// Callers receive copies, so cached entries are never mutated.
type CachedEngine struct {
	next   Crosser
	cache  *lru.Cache[domain.ParentPair, domain.Distribution]
	logger *logrus.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats reports cache effectiveness
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// NewCachedEngine wraps next with an LRU cache of the given size.
func NewCachedEngine(next Crosser, size int, logger *logrus.Logger) (*CachedEngine, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[domain.ParentPair, domain.Distribution](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create distribution cache: %w", err)
	}
	return &CachedEngine{next: next, cache: cache, logger: logger}, nil
}

// Cross returns the cached distribution for pair, computing it on a miss.
func (c *CachedEngine) Cross(pair domain.ParentPair) (domain.Distribution, error) {
	if dist, ok := c.cache.Get(pair); ok {
		c.hits.Add(1)
		return dist.Clone(), nil
	}
	c.misses.Add(1)

	dist, err := c.next.Cross(pair)
	if err != nil {
		return nil, err
	}
	c.cache.Add(pair, dist.Clone())

	if c.logger != nil {
		c.logger.WithField("pair", pair.String()).Debug("Cached offspring distribution")
	}
	return dist, nil
}

// Stats returns the current cache statistics.
func (c *CachedEngine) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.cache.Len(),
	}
}
