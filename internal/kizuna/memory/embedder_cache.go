package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/dgraph-io/ristretto"
)

// CachedEmbedder memoises another Embedder in a ristretto cache keyed by the
// exact input text. Cost is accounted in bytes of vector data.
type CachedEmbedder struct {
	next  Embedder
	cache *ristretto.Cache
}

// NewCachedEmbedder wraps next with a cache bounded to maxCost bytes.
func NewCachedEmbedder(next Embedder, maxCost int64) (*CachedEmbedder, error) {
	if maxCost <= 0 {
		return nil, fmt.Errorf("embedder cache: max cost must be positive, got %d", maxCost)
	}
	// ~1 KiB per cached vector; ristretto wants 10x counters per item.
	counters := max(maxCost/100, 1000)

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: counters,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("embedder cache: %w", err)
	}
	return &CachedEmbedder{next: next, cache: cache}, nil
}

// Embed returns the cached vector for text or computes and caches it.
// Errors are not cached.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return slices.Clone(vec), nil
		}
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if vec != nil {
		c.cache.Set(text, slices.Clone(vec), int64(len(vec)*4))
	}
	return vec, nil
}

// Close stops the cache's background goroutines.
func (c *CachedEmbedder) Close() {
	c.cache.Close()
}

var _ Embedder = (*CachedEmbedder)(nil)
