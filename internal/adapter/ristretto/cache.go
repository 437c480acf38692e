// Package ristretto caches risk-lookup results in process so repeated
// missions against the same project skip the analytics query.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/Strob0t/MissionForge/internal/port/risk"
)

// RiskCache decorates a risk.Lookup with a TTL'd in-process cache.
// Lookup errors are not cached, so a transient database failure does not
// pin an empty result for the TTL.
type RiskCache struct {
	next risk.Lookup
	c    *ristretto.Cache[string, []string]
	ttl  time.Duration
}

// NewRiskCache wraps next with a ristretto cache. maxCostBytes bounds the
// total size of cached item lists.
func NewRiskCache(next risk.Lookup, maxCostBytes int64, ttl time.Duration) (*RiskCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []string]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &RiskCache{next: next, c: c, ttl: ttl}, nil
}

// RiskyItems implements risk.Lookup.
func (r *RiskCache) RiskyItems(ctx context.Context, project string) ([]string, error) {
	if items, found := r.c.Get(project); found {
		return items, nil
	}
	items, err := r.next.RiskyItems(ctx, project)
	if err != nil {
		return nil, err
	}
	r.c.SetWithTTL(project, items, cost(items), r.ttl)
	return items, nil
}

// Close shuts down the cache and releases resources.
func (r *RiskCache) Close() {
	r.c.Close()
}

func cost(items []string) int64 {
	var n int64 = 1
	for _, it := range items {
		n += int64(len(it))
	}
	return n
}
