package embed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedEmbedder_HitsSkipInner(t *testing.T) {
	inner := newCountingEmbedder()
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	first, err := c.Embed(ctx, "data analyst")
	require.NoError(t, err)
	second, err := c.Embed(ctx, "data analyst")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), inner.embedCalls.Load())
	assert.Equal(t, CacheStats{Hits: 1, Misses: 1, Size: 1}, c.Stats())
}

func TestCachedEmbedder_ErrorsAreNotCached(t *testing.T) {
	inner := newCountingEmbedder()
	inner.fail = errBoom
	c := NewCachedEmbedder(inner, 10)

	_, err := c.Embed(context.Background(), "nurse")
	require.ErrorIs(t, err, errBoom)

	inner.fail = nil
	_, err = c.Embed(context.Background(), "nurse")
	require.NoError(t, err)
	assert.Equal(t, int64(2), inner.embedCalls.Load())
}

func TestCachedEmbedder_ConcurrentMissesCollapse(t *testing.T) {
	inner := newCountingEmbedder()
	inner.delay = 50 * time.Millisecond
	c := NewCachedEmbedder(inner, 10)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Embed(context.Background(), "welder")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), inner.embedCalls.Load())
}

func TestCachedEmbedder_BatchOnlyEmbedsMisses(t *testing.T) {
	inner := newCountingEmbedder()
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	_, err := c.Embed(ctx, "nurse")
	require.NoError(t, err)

	vecs, err := c.EmbedBatch(ctx, []string{"nurse", "teacher", "welder"})
	require.NoError(t, err)

	require.Len(t, vecs, 3)
	assert.Equal(t, inner.vector("teacher"), vecs[1])
	assert.Equal(t, int64(1), inner.batchCalls.Load())
	assert.Equal(t, int64(2), inner.batchTexts.Load())
}

// shortBatchEmbedder drops the last vector of every batch.
type shortBatchEmbedder struct {
	*countingEmbedder
}

func (m shortBatchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := m.countingEmbedder.EmbedBatch(ctx, texts)
	if err != nil || len(vecs) == 0 {
		return vecs, err
	}
	return vecs[:len(vecs)-1], nil
}

func TestCachedEmbedder_BatchLengthMismatch(t *testing.T) {
	c := NewCachedEmbedder(shortBatchEmbedder{newCountingEmbedder()}, 10)

	var (
		vecs [][]float32
		err  error
	)
	require.NotPanics(t, func() {
		vecs, err = c.EmbedBatch(context.Background(), []string{"nurse", "teacher"})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 vectors for 2 texts")
	assert.Nil(t, vecs)
	assert.Equal(t, 0, c.Stats().Size)
}

func TestCachedEmbedder_SharedStore(t *testing.T) {
	store := &mapStore{data: map[string][]float32{}}
	warm := NewCachedEmbedder(newCountingEmbedder(), 10, WithSharedStore(store))
	_, err := warm.Embed(context.Background(), "cashier")
	require.NoError(t, err)

	inner := newCountingEmbedder()
	cold := NewCachedEmbedder(inner, 10, WithSharedStore(store))
	vec, err := cold.Embed(context.Background(), "cashier")

	require.NoError(t, err)
	assert.Equal(t, inner.vector("cashier"), vec)
	assert.Equal(t, int64(0), inner.embedCalls.Load())
}

func TestCachedEmbedder_KeyIncludesModel(t *testing.T) {
	a := newCountingEmbedder()
	b := newCountingEmbedder()
	b.model = "other"

	assert.NotEqual(t, NewCachedEmbedder(a, 1).cacheKey("x"), NewCachedEmbedder(b, 1).cacheKey("x"))
}

func TestVectorCodecRoundTrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}

	out, ok := decodeVector(encodeVector(in))

	require.True(t, ok)
	assert.Equal(t, in, out)
	_, ok = decodeVector([]byte{1, 2, 3})
	assert.False(t, ok)
}
