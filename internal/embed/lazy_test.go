package embed

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tserrors "github.com/Aman-CERP/titlesearch/internal/errors"
	"github.com/Aman-CERP/titlesearch/internal/logging"
)

func TestLazy_ConstructsOnceUnderConcurrency(t *testing.T) {
	var built atomic.Int32
	l := NewLazy("counting", 4, func(context.Context) (Embedder, error) {
		built.Add(1)
		time.Sleep(20 * time.Millisecond)
		return newCountingEmbedder(), nil
	}, WithLazyLogger(logging.Discard()))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Embed(context.Background(), "nurse")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), built.Load())
	assert.Equal(t, 1, l.InitCalls())
	assert.True(t, l.Initialized())
}

func TestLazy_IdentityWithoutConstruction(t *testing.T) {
	l := NewLazy("all-minilm", 384, func(context.Context) (Embedder, error) {
		t.Fatal("factory must not run")
		return nil, nil
	})

	assert.Equal(t, "all-minilm", l.ModelName())
	assert.Equal(t, 384, l.Dimensions())
	assert.False(t, l.Initialized())
	assert.NoError(t, l.Close())
}

func TestLazy_FailureIsSticky(t *testing.T) {
	var built atomic.Int32
	l := NewLazy("broken", 0, func(context.Context) (Embedder, error) {
		built.Add(1)
		return nil, errBoom
	}, WithLazyLogger(logging.Discard()))

	_, err1 := l.Embed(context.Background(), "a")
	_, err2 := l.EmbedBatch(context.Background(), []string{"b"})

	require.Error(t, err1)
	require.Error(t, err2)
	assert.True(t, tserrors.HasCode(err1, tserrors.ErrCodeEmbedderUnavailable))
	assert.ErrorIs(t, err1, errBoom)
	assert.Equal(t, int32(1), built.Load())
	assert.False(t, l.Available(context.Background()))
	assert.Equal(t, 0, l.Dimensions())
}

func TestLazy_CancelledCallerDoesNotPoisonInit(t *testing.T) {
	l := NewLazy("counting", 0, func(ctx context.Context) (Embedder, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return newCountingEmbedder(), nil
	}, WithLazyLogger(logging.Discard()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Get(ctx)

	require.NoError(t, err)
	assert.Equal(t, 4, l.Dimensions())
}
