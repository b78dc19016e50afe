package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultEmbeddingCacheSize is the default number of cached vectors.
// At 384 dimensions * 4 bytes * 2000 entries the cache holds about 3MB.
const DefaultEmbeddingCacheSize = 2000

// VectorStore is a second cache tier shared between processes.
type VectorStore interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, vec []float32)
}

// CachedEmbedder wraps an Embedder with an in-process LRU, an optional
// shared VectorStore, and a singleflight group so concurrent requests for
// the same uncached text trigger a single inference. Returned vectors are
// shared and must not be modified.
type CachedEmbedder struct {
	inner  Embedder
	cache  *lru.Cache[string, []float32]
	shared VectorStore
	group  singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

var _ Embedder = (*CachedEmbedder)(nil)

// CacheOption configures a CachedEmbedder.
type CacheOption func(*CachedEmbedder)

// WithSharedStore adds a second cache tier consulted after the LRU.
func WithSharedStore(s VectorStore) CacheOption {
	return func(c *CachedEmbedder) { c.shared = s }
}

// NewCachedEmbedder wraps inner. A non-positive size uses the default.
func NewCachedEmbedder(inner Embedder, size int, opts ...CacheOption) *CachedEmbedder {
	if size <= 0 {
		size = DefaultEmbeddingCacheSize
	}
	cache, _ := lru.New[string, []float32](size)
	c := &CachedEmbedder{inner: inner, cache: cache}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// cacheKey hashes the model name with the text so vectors from different
// models never collide in the shared tier.
func (c *CachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(c.inner.ModelName() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	if vec, ok := c.cache.Get(key); ok {
		return vec, true
	}
	if c.shared != nil {
		if vec, ok := c.shared.Get(ctx, key); ok {
			c.cache.Add(key, vec)
			return vec, true
		}
	}
	return nil, false
}

func (c *CachedEmbedder) store(ctx context.Context, key string, vec []float32) {
	c.cache.Add(key, vec)
	if c.shared != nil {
		c.shared.Set(ctx, key, vec)
	}
}

// Embed implements Embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)
	if vec, ok := c.lookup(ctx, key); ok {
		c.hits.Add(1)
		return vec, nil
	}
	c.misses.Add(1)

	v, err, _ := c.group.Do(key, func() (any, error) {
		if vec, ok := c.cache.Get(key); ok {
			return vec, nil
		}
		vec, err := c.inner.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, vec)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// EmbedBatch implements Embedder. Cached texts are served from the cache
// and the rest go to the inner embedder in one call.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		if vec, ok := c.lookup(ctx, c.cacheKey(text)); ok {
			c.hits.Add(1)
			results[i] = vec
			continue
		}
		c.misses.Add(1)
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return results, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedder %s returned %d vectors for %d texts",
			c.inner.ModelName(), len(vecs), len(missTexts))
	}
	for j, i := range missIdx {
		results[i] = vecs[j]
		c.store(ctx, c.cacheKey(texts[i]), vecs[j])
	}
	return results, nil
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// Stats returns hit and miss counters.
func (c *CachedEmbedder) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load(), Size: c.cache.Len()}
}

// Dimensions implements Embedder.
func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

// ModelName implements Embedder.
func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

// Available implements Embedder.
func (c *CachedEmbedder) Available(ctx context.Context) bool { return c.inner.Available(ctx) }

// Close implements Embedder. A shared store that is an io.Closer is
// closed too.
func (c *CachedEmbedder) Close() error {
	if closer, ok := c.shared.(io.Closer); ok {
		_ = closer.Close()
	}
	return c.inner.Close()
}

// Inner returns the wrapped embedder.
func (c *CachedEmbedder) Inner() Embedder { return c.inner }
