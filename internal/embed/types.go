// Package embed turns text into embedding vectors. Providers range from a
// deterministic offline hash embedder to remote Ollama, OpenAI-compatible
// and Bedrock endpoints, all behind the Embedder interface.
package embed

import (
	"context"
	"errors"
	"math"
	"time"
)

const (
	// DefaultBatchSize is the number of texts sent per remote request.
	DefaultBatchSize = 32

	// DefaultTimeout bounds a single remote embedding request.
	DefaultTimeout = 60 * time.Second

	// DefaultInitTimeout bounds one-time model construction.
	DefaultInitTimeout = 2 * time.Minute

	// StaticDimensions is the dimension of StaticEmbedder vectors.
	StaticDimensions = 384

	// StaticModelName identifies StaticEmbedder in index metadata.
	StaticModelName = "static-v1"
)

// ErrClosed is returned by embedders used after Close.
var ErrClosed = errors.New("embedder is closed")

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for texts, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension, or 0 if not yet known.
	Dimensions() int

	// ModelName returns the model identifier recorded in index metadata.
	ModelName() string

	// Available reports whether the embedder can serve requests.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector scales v to unit length in place. Zero vectors are
// returned unchanged.
func normalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	mag := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= mag
	}
	return v
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
