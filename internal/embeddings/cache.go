package embeddings

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedEmbedder memoizes vectors per text. Repeated questions skip the
// model round trip.
type CachedEmbedder struct {
	Embedder
	cache   *gocache.Cache
	maxSize int
}

// WithCache wraps e with a TTL cache holding at most maxSize vectors.
func WithCache(e Embedder, maxSize int, ttl time.Duration) *CachedEmbedder {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CachedEmbedder{
		Embedder: e,
		cache:    gocache.New(ttl, 2*ttl),
		maxSize:  maxSize,
	}
}

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if v, ok := c.cache.Get(text); ok {
			out[i] = v.([]float32)
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := c.Embedder.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("%s returned %d embeddings, expected %d", c.Embedder.Name(), len(vecs), len(missing))
	}
	for j, vec := range vecs {
		out[missingIdx[j]] = vec
		if c.maxSize <= 0 || c.cache.ItemCount() < c.maxSize {
			c.cache.SetDefault(missing[j], vec)
		}
	}
	return out, nil
}

// Len returns the number of cached vectors.
func (c *CachedEmbedder) Len() int {
	return c.cache.ItemCount()
}
