package embed

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// countingEmbedder is a deterministic test embedder that counts calls.
type countingEmbedder struct {
	dims       int
	model      string
	delay      time.Duration
	fail       error
	embedCalls atomic.Int64
	batchCalls atomic.Int64
	batchTexts atomic.Int64
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{dims: 4, model: "counting"}
}

func (m *countingEmbedder) vector(text string) []float32 {
	v := make([]float32, m.dims)
	for i, r := range text {
		v[i%m.dims] += float32(r)
	}
	return v
}

func (m *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.embedCalls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.fail != nil {
		return nil, m.fail
	}
	return m.vector(text), nil
}

func (m *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batchCalls.Add(1)
	m.batchTexts.Add(int64(len(texts)))
	if m.fail != nil {
		return nil, m.fail
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *countingEmbedder) Dimensions() int                { return m.dims }
func (m *countingEmbedder) ModelName() string              { return m.model }
func (m *countingEmbedder) Available(context.Context) bool { return m.fail == nil }
func (m *countingEmbedder) Close() error                   { return nil }

var errBoom = errors.New("boom")

// mapStore is an in-memory VectorStore.
type mapStore struct {
	data map[string][]float32
	gets atomic.Int64
}

func (s *mapStore) Get(_ context.Context, key string) ([]float32, bool) {
	s.gets.Add(1)
	v, ok := s.data[key]
	return v, ok
}

func (s *mapStore) Set(_ context.Context, key string, vec []float32) {
	s.data[key] = vec
}
