package semantic

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/titlesearch/internal/embed"
	tserrors "github.com/Aman-CERP/titlesearch/internal/errors"
	"github.com/Aman-CERP/titlesearch/internal/logging"
)

// tableEmbedder returns fixed vectors per query and counts calls.
type tableEmbedder struct {
	vectors map[string][]float32
	dims    int
	err     error
	calls   atomic.Int64
}

func (e *tableEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return e.vectors[text], nil
}

func (e *tableEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *tableEmbedder) Dimensions() int                 { return e.dims }
func (e *tableEmbedder) ModelName() string               { return "table" }
func (e *tableEmbedder) Available(context.Context) bool { return true }
func (e *tableEmbedder) Close() error                    { return nil }

var (
	titles  = []string{"Software Developer", "Nurse", "Software Engineer", "Zero Row", "Welder"}
	vectors = [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{1, 0, 0},
		{0, 0, 0},
		{-1, 0, 0},
	}
)

// newTestIndex builds the fixture index. Pass an untyped nil for no model.
func newTestIndex(model embed.Embedder) *Index {
	return New(titles, vectors, model, WithLogger(logging.Discard()))
}

func TestRankVector_SortedStableSkipsZeroRows(t *testing.T) {
	ix := newTestIndex(nil)

	got := ix.RankVector([]float32{2, 0, 0}, 10)

	require.Len(t, got, 4)
	assert.Equal(t, "Software Developer", got[0].Title)
	assert.Equal(t, "Software Engineer", got[1].Title)
	assert.Equal(t, "Nurse", got[2].Title)
	assert.Equal(t, "Welder", got[3].Title)
	assert.InDelta(t, 1.0, got[0].Similarity, 1e-6)
	assert.InDelta(t, -1.0, got[3].Similarity, 1e-6)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Similarity, got[i].Similarity)
	}
}

func TestRankVector_ObliqueCosine(t *testing.T) {
	ix := New([]string{"Baker", "Chef", "Butcher"},
		[][]float32{{1, 1, 0}, {3, 4, 0}, {0, 0, 2}}, nil, WithLogger(logging.Discard()))

	got := ix.RankVector([]float32{0.5, 0, 0}, 3)

	require.Len(t, got, 3)
	assert.Equal(t, "Baker", got[0].Title)
	assert.InDelta(t, 1/math.Sqrt2, got[0].Similarity, 1e-6)
	assert.Equal(t, "Chef", got[1].Title)
	assert.InDelta(t, 0.6, got[1].Similarity, 1e-6)
	assert.Equal(t, "Butcher", got[2].Title)
	assert.InDelta(t, 0.0, got[2].Similarity, 1e-6)
}

func TestRankVector_ZeroQuery(t *testing.T) {
	assert.Empty(t, newTestIndex(nil).RankVector([]float32{0, 0, 0}, 5))
}

func TestRankVector_TopK(t *testing.T) {
	assert.Len(t, newTestIndex(nil).RankVector([]float32{0, 1, 0}, 2), 2)
}

func TestConfidence_Clamp(t *testing.T) {
	m := Match{Similarity: -0.4}

	assert.Equal(t, 0.0, m.Confidence(true))
	assert.InDelta(t, -40.0, m.Confidence(false), 1e-9)
	assert.InDelta(t, 87.5, Match{Similarity: 0.875}.Confidence(true), 1e-9)
}

func TestNew_DisabledStates(t *testing.T) {
	tests := []struct {
		name    string
		titles  []string
		vectors [][]float32
		model   *tableEmbedder
	}{
		{"no embeddings", titles, nil, nil},
		{"row count mismatch", titles, vectors[:2], nil},
		{"ragged rows", []string{"a", "b"}, [][]float32{{1, 0}, {1}}, nil},
		{"empty rows", []string{"a"}, [][]float32{{}}, nil},
		{"model dimension mismatch", titles, vectors, &tableEmbedder{dims: 384}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ix *Index
			if tt.model != nil {
				ix = New(tt.titles, tt.vectors, tt.model, WithLogger(logging.Discard()))
			} else {
				ix = New(tt.titles, tt.vectors, nil, WithLogger(logging.Discard()))
			}

			assert.False(t, ix.Available())
			assert.NotEmpty(t, ix.Reason())
			assert.Empty(t, ix.RankVector([]float32{1, 0, 0}, 5))

			got, err := ix.Rank(context.Background(), "anything", 5)
			assert.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestRank_UsesModel(t *testing.T) {
	model := &tableEmbedder{dims: 3, vectors: map[string][]float32{"caregiver": {0, 1, 0.1}}}
	ix := newTestIndex(model)

	got, err := ix.Rank(context.Background(), "caregiver", 1)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Nurse", got[0].Title)
	assert.Equal(t, int64(1), model.calls.Load())
}

func TestRank_EncoderFailureReturned(t *testing.T) {
	boom := errors.New("model offline")
	ix := newTestIndex(&tableEmbedder{dims: 3, err: boom})

	_, err := ix.Rank(context.Background(), "nurse", 3)

	assert.ErrorIs(t, err, boom)
}

func TestRank_QueryDimensionMismatch(t *testing.T) {
	model := &tableEmbedder{vectors: map[string][]float32{"nurse": {1, 0}}}
	ix := newTestIndex(model)

	_, err := ix.Rank(context.Background(), "nurse", 3)

	require.Error(t, err)
	assert.True(t, tserrors.HasCode(err, tserrors.ErrCodeDimensionMismatch))
}

func TestNilIndex(t *testing.T) {
	var ix *Index

	assert.False(t, ix.Available())
	assert.Equal(t, 0, ix.Len())
	got, err := ix.Rank(context.Background(), "nurse", 3)
	assert.NoError(t, err)
	assert.Empty(t, got)
}
