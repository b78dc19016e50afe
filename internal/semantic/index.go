// Package semantic ranks job titles by cosine similarity between their
// embeddings and a query embedding.
package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/viant/vec/search"

	"github.com/Aman-CERP/titlesearch/internal/embed"
	tserrors "github.com/Aman-CERP/titlesearch/internal/errors"
)

// Match is one ranked title. Similarity is the raw cosine similarity.
type Match struct {
	Title      string
	Similarity float64
	Index      int
}

// Confidence scales Similarity to the 0..100 range shared with lexical
// scores. With clamp set, negative similarity reports as 0.
func (m Match) Confidence(clamp bool) float64 {
	c := m.Similarity * 100
	if clamp {
		c = math.Max(0, math.Min(100, c))
	}
	return c
}

// Index holds one embedding row per title. An Index whose inputs do not
// line up is built in a disabled state: it reports why through Reason and
// ranks nothing. It is immutable after New and safe for concurrent use.
type Index struct {
	titles  []string
	vectors [][]float32
	mags    []float32
	dim     int
	model   embed.Embedder
	reason  string
	logger  *slog.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger used to report a disabled index.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Index) { ix.logger = logger }
}

// New builds an index over titles and their embedding rows. Row i must
// belong to titles[i]. model encodes queries and may be nil, which
// disables ranking by text but still allows RankVector.
func New(titles []string, vectors [][]float32, model embed.Embedder, opts ...Option) *Index {
	ix := &Index{
		titles:  titles,
		vectors: vectors,
		model:   model,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(ix)
	}

	ix.reason = ix.validate()
	if ix.reason != "" {
		ix.vectors = nil
		if len(vectors) > 0 {
			ix.logger.Warn("semantic index disabled", slog.String("reason", ix.reason))
		} else {
			ix.logger.Info("semantic index disabled", slog.String("reason", ix.reason))
		}
		return ix
	}

	ix.mags = make([]float32, len(vectors))
	for i, row := range vectors {
		ix.mags[i] = search.Float32s(row).Magnitude()
	}
	return ix
}

func (ix *Index) validate() string {
	if len(ix.vectors) == 0 {
		return "no embeddings loaded"
	}
	if len(ix.vectors) != len(ix.titles) {
		return fmt.Sprintf("%d embedding rows for %d titles", len(ix.vectors), len(ix.titles))
	}
	ix.dim = len(ix.vectors[0])
	if ix.dim == 0 {
		return "embedding rows are empty"
	}
	for i, row := range ix.vectors {
		if len(row) != ix.dim {
			return fmt.Sprintf("embedding row %d has %d dimensions, expected %d", i, len(row), ix.dim)
		}
	}
	if ix.model != nil {
		if d := ix.model.Dimensions(); d > 0 && d != ix.dim {
			return fmt.Sprintf("model %s produces %d dimensions, index has %d", ix.model.ModelName(), d, ix.dim)
		}
	}
	return ""
}

// Available reports whether the index can rank.
func (ix *Index) Available() bool {
	return ix != nil && ix.reason == ""
}

// Reason explains why the index is disabled, or is empty.
func (ix *Index) Reason() string {
	if ix == nil {
		return "no semantic index"
	}
	return ix.reason
}

// Dimensions returns the embedding dimension, or 0 when disabled.
func (ix *Index) Dimensions() int {
	if !ix.Available() {
		return 0
	}
	return ix.dim
}

// Len returns the number of rows.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.vectors)
}

// Model returns the query encoder.
func (ix *Index) Model() embed.Embedder {
	if ix == nil {
		return nil
	}
	return ix.model
}

// Rank encodes query and returns the topK most similar titles. A disabled
// index returns nothing and no error; an encoder failure is returned so
// the caller can decide how to degrade.
func (ix *Index) Rank(ctx context.Context, query string, topK int) ([]Match, error) {
	if !ix.Available() || ix.model == nil || topK <= 0 {
		return nil, nil
	}

	vec, err := ix.model.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(vec) != ix.dim {
		return nil, tserrors.New(tserrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("query embedding has %d dimensions, index has %d", len(vec), ix.dim), nil)
	}
	return ix.RankVector(vec, topK), nil
}

// RankVector ranks rows against vec by cosine similarity, highest first.
// Equal similarities keep corpus order. Zero-norm rows are skipped and a
// zero-norm query matches nothing.
func (ix *Index) RankVector(vec []float32, topK int) []Match {
	if !ix.Available() || topK <= 0 || len(vec) != ix.dim {
		return []Match{}
	}
	qmag := search.Float32s(vec).Magnitude()
	if qmag == 0 || isBad(float64(qmag)) {
		return []Match{}
	}

	matches := make([]Match, 0, len(ix.vectors))
	for i, row := range ix.vectors {
		if ix.mags[i] == 0 {
			continue
		}
		sim := dot(row, vec) / (float64(ix.mags[i]) * float64(qmag))
		if isBad(sim) {
			continue
		}
		matches = append(matches, Match{
			Title:      ix.titles[i],
			Similarity: math.Max(-1, math.Min(1, sim)),
			Index:      i,
		})
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Similarity > matches[b].Similarity
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// dot accumulates in float64. The magnitude-aware cosine in viant/vec only
// ships on arm64, so rows are scored here against the cached magnitudes.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func isBad(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}
