package embedding

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"shopbot/internal/domain"
)

// Cached memoizes an embedder by input text. Embeddings are deterministic for
// a fixed model, so a cached vector never goes stale.
type Cached struct {
	inner domain.Embedder
	cache *ristretto.Cache
}

// NewCached wraps inner with a cache holding up to maxItems vectors.
func NewCached(inner domain.Embedder, maxItems int64) (*Cached, error) {
	if maxItems <= 0 {
		maxItems = 1024
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,

		// Cost counts vectors, not bytes.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Name returns the wrapped embedder's name.
func (c *Cached) Name() string { return c.inner.Name() }

// Dimension returns the wrapped embedder's dimension.
func (c *Cached) Dimension() int { return c.inner.Dimension() }

// Embed returns the cached vector for text, computing it on a miss.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return clone(v.([]float32)), nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, clone(vec), 1)
	return vec, nil
}

// Close releases the cache's background goroutines.
func (c *Cached) Close() { c.cache.Close() }

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
