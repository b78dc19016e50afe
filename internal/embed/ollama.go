package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	tserrors "github.com/Aman-CERP/titlesearch/internal/errors"
)

// Ollama defaults.
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "all-minilm"
)

// OllamaConfig configures OllamaEmbedder.
type OllamaConfig struct {
	Host       string
	Model      string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
	Retry      tserrors.RetryConfig
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

// OllamaEmbedder calls Ollama's /api/embed endpoint.
type OllamaEmbedder struct {
	client *http.Client
	cfg    OllamaConfig
	dims   int

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder connects to Ollama and, when cfg.Dimensions is 0,
// detects the dimension with a probe request.
func NewOllamaEmbedder(ctx context.Context, cfg OllamaConfig) (*OllamaEmbedder, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry = tserrors.DefaultRetryConfig()
	}

	e := &OllamaEmbedder{
		client: &http.Client{Transport: &http.Transport{IdleConnTimeout: 30 * time.Second}},
		cfg:    cfg,
		dims:   cfg.Dimensions,
	}

	probe, err := e.embed(ctx, []string{"dimension probe"})
	if err != nil {
		return nil, fmt.Errorf("ollama at %s with model %s: %w", cfg.Host, cfg.Model, err)
	}
	if e.dims == 0 {
		e.dims = len(probe[0])
	} else if len(probe[0]) != e.dims {
		return nil, tserrors.New(tserrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("ollama model %s returns %d dimensions, configured %d", cfg.Model, len(probe[0]), e.dims), nil)
	}
	return e, nil
}

// Embed implements Embedder.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements Embedder. Texts are sent in chunks of BatchSize.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(texts))
		vecs, err := e.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *OllamaEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.cfg.Model, Input: texts})
	if err != nil {
		return nil, err
	}

	return tserrors.RetryWithResult(ctx, e.cfg.Retry, func() ([][]float32, error) {
		reqCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.cfg.Host+"/api/embed", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.client.Do(req)
		if err != nil {
			return nil, tserrors.New(tserrors.ErrCodeEmbedderTimeout, "ollama request failed", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("ollama returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		}

		var parsed ollamaEmbedResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return nil, fmt.Errorf("decode ollama response: %w", err)
		}
		if len(parsed.Embeddings) != len(texts) {
			return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(parsed.Embeddings), len(texts))
		}

		vecs := make([][]float32, len(parsed.Embeddings))
		for i, v := range parsed.Embeddings {
			vecs[i] = toFloat32(v)
		}
		return vecs, nil
	})
}

// Dimensions implements Embedder.
func (e *OllamaEmbedder) Dimensions() int { return e.dims }

// ModelName implements Embedder.
func (e *OllamaEmbedder) ModelName() string { return e.cfg.Model }

// Available implements Embedder.
func (e *OllamaEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close implements Embedder.
func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		e.client.CloseIdleConnections()
	}
	return nil
}
