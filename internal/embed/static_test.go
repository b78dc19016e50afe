package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestStaticEmbedder_DeterministicUnitVectors(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	a, err := e.Embed(ctx, "Software Engineer")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "Software Engineer")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, StaticDimensions)
	assert.InDelta(t, 1.0, cosine(a, a), 1e-5)
}

func TestStaticEmbedder_RelatedTitlesAreCloser(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	q, _ := e.Embed(ctx, "software engineering")
	near, _ := e.Embed(ctx, "Software Engineer")
	far, _ := e.Embed(ctx, "Registered Nurse")

	assert.Greater(t, cosine(q, near), cosine(q, far))
}

func TestStaticEmbedder_BlankTextIsZero(t *testing.T) {
	v, err := NewStaticEmbedder().Embed(context.Background(), "  -- ")
	require.NoError(t, err)

	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestStaticEmbedder_BatchMatchesSingle(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	batch, err := e.EmbedBatch(ctx, []string{"Nurse", "Teacher"})
	require.NoError(t, err)
	single, _ := e.Embed(ctx, "Teacher")

	require.Len(t, batch, 2)
	assert.Equal(t, single, batch[1])
}

func TestStaticEmbedder_Closed(t *testing.T) {
	e := NewStaticEmbedder()
	require.NoError(t, e.Close())

	_, err := e.Embed(context.Background(), "Nurse")
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, e.Available(context.Background()))
}
