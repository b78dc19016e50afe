package embed

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// StaticEmbedder hashes words and character trigrams into a fixed-size
// vector. It needs no network or model download and is deterministic, so
// it serves offline builds and tests; its notion of similarity is
// spelling-based rather than semantic.
type StaticEmbedder struct {
	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*StaticEmbedder)(nil)

var titleStopWords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "of": true,
	"for": true, "in": true, "to": true, "with": true, "or": true,
}

const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// NewStaticEmbedder creates a new static embedder.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{}
}

// Embed implements Embedder. Blank text yields a zero vector.
func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrClosed
	}
	return staticVector(text), nil
}

// EmbedBatch implements Embedder.
func (e *StaticEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrClosed
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = staticVector(t)
	}
	return out, nil
}

func staticVector(text string) []float32 {
	v := make([]float32, StaticDimensions)
	for _, tok := range tokenize(text) {
		if titleStopWords[tok] {
			continue
		}
		v[hashToIndex(tok)] += tokenWeight
		padded := "^" + tok + "$"
		runes := []rune(padded)
		for i := 0; i+ngramSize <= len(runes); i++ {
			v[hashToIndex(string(runes[i:i+ngramSize]))] += ngramWeight
		}
	}
	return normalizeVector(v)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func hashToIndex(s string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(StaticDimensions))
}

// Dimensions implements Embedder.
func (e *StaticEmbedder) Dimensions() int { return StaticDimensions }

// ModelName implements Embedder.
func (e *StaticEmbedder) ModelName() string { return StaticModelName }

// Available implements Embedder.
func (e *StaticEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close implements Embedder.
func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
