package embed

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIConfig configures OpenAIEmbedder. BaseURL may point at any
// OpenAI-compatible server; an empty Token falls back to OPENAI_API_KEY.
type OpenAIConfig struct {
	BaseURL    string
	Token      string
	Model      string
	Dimensions int
	BatchSize  int
}

// OpenAIEmbedder uses langchaingo's OpenAI client for embeddings.
type OpenAIEmbedder struct {
	embedder embeddings.Embedder
	model    string
	dims     int
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder builds the client and probes the dimension when
// cfg.Dimensions is 0.
func NewOpenAIEmbedder(ctx context.Context, cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	opts := []openai.Option{openai.WithEmbeddingModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Token != "" {
		opts = append(opts, openai.WithToken(cfg.Token))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	emb, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(cfg.BatchSize))
	if err != nil {
		return nil, fmt.Errorf("create openai embedder: %w", err)
	}

	e := &OpenAIEmbedder{embedder: emb, model: cfg.Model, dims: cfg.Dimensions}
	if e.dims == 0 {
		probe, err := emb.EmbedQuery(ctx, "dimension probe")
		if err != nil {
			return nil, fmt.Errorf("probe openai model %s: %w", cfg.Model, err)
		}
		e.dims = len(probe)
	}
	return e, nil
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.embedder.EmbedQuery(ctx, text)
}

// EmbedBatch implements Embedder.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(vecs), len(texts))
	}
	return vecs, nil
}

// Dimensions implements Embedder.
func (e *OpenAIEmbedder) Dimensions() int { return e.dims }

// ModelName implements Embedder.
func (e *OpenAIEmbedder) ModelName() string { return e.model }

// Available implements Embedder.
func (e *OpenAIEmbedder) Available(context.Context) bool { return true }

// Close implements Embedder.
func (e *OpenAIEmbedder) Close() error { return nil }
