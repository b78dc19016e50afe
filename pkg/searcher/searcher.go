package searcher

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Aman-CERP/titlesearch/internal/corpus"
	"github.com/Aman-CERP/titlesearch/internal/embed"
	"github.com/Aman-CERP/titlesearch/internal/index"
	"github.com/Aman-CERP/titlesearch/internal/logging"
	"github.com/Aman-CERP/titlesearch/internal/search"
	"github.com/Aman-CERP/titlesearch/internal/semantic"
)

// IndexSearcher serves queries from an index artifact.
//
// Thread-safe for concurrent use.
type IndexSearcher struct {
	engine *search.Engine
	model  embed.Embedder

	mu     sync.RWMutex
	closed bool
}

var _ Searcher = (*IndexSearcher)(nil)

type options struct {
	embed     embed.Config
	threshold float64
	logger    *slog.Logger
}

// Option configures Open.
type Option func(*options)

// WithProvider selects the query embedding provider and model. Provider is
// one of static, ollama, openai, bedrock or none; an empty model uses the
// provider's default. The default is the offline static model.
func WithProvider(provider, model string) Option {
	return func(o *options) {
		o.embed.Provider = provider
		o.embed.Model = model
	}
}

// WithEndpoint sets the Ollama host or OpenAI-compatible base URL.
func WithEndpoint(url string) Option {
	return func(o *options) {
		o.embed.OllamaHost = url
		o.embed.OpenAIBaseURL = url
	}
}

// WithThreshold sets the lexical score at or above which embedding search
// is skipped (default 85).
func WithThreshold(t float64) Option {
	return func(o *options) { o.threshold = t }
}

// WithLogger sets the logger. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open loads the artifact at path. The embedding model is constructed on
// the first query that needs it.
func Open(path string, opts ...Option) (*IndexSearcher, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	o := options{
		embed:     embed.Config{Provider: string(embed.ProviderStatic)},
		threshold: search.DefaultConfig().FuzzyThreshold,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	model, err := embed.NewFromConfig(context.Background(), o.embed, o.logger)
	if err != nil {
		return nil, err
	}

	lo := index.LoadOptions{Logger: o.logger}
	if model != nil {
		lo.ExpectedModel = model.ModelName()
	}
	loaded, err := index.Load(path, lo)
	if err != nil {
		if model != nil {
			_ = model.Close()
		}
		return nil, err
	}

	cfg := search.DefaultConfig()
	cfg.FuzzyThreshold = o.threshold
	snap := search.SnapshotFromLoaded(loaded, model, semantic.WithLogger(o.logger))

	return &IndexSearcher{
		engine: search.New(snap, cfg, search.WithLogger(o.logger)),
		model:  model,
	}, nil
}

// Search implements Searcher.
func (s *IndexSearcher) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	ranked, err := s.engine.Search(ctx, query, search.Options{Limit: limit})
	if err != nil {
		return nil, err
	}

	out := make([]Result, len(ranked))
	for i, r := range ranked {
		out[i] = Result{
			Title:            r.Title,
			Confidence:       r.Confidence,
			Method:           string(r.Method),
			Industry:         r.Industry,
			Location:         r.Location,
			AutomationRisk:   r.AutomationRisk,
			GrowthProjection: r.GrowthProjection,
		}
	}
	return out, nil
}

// Lookup resolves a title to its record, falling back to the first record
// of industry and then to a default record.
func (s *IndexSearcher) Lookup(title, industry string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Record{}, ErrClosed
	}

	m := s.engine.Lookup(title, industry)
	return Record{
		Title:            m.Title,
		Industry:         m.Industry,
		Location:         m.Location,
		AutomationRisk:   m.AutomationRisk,
		GrowthProjection: m.GrowthProjection,
		Found:            m.Confidence == corpus.ConfidenceHigh,
		Source:           string(m.Source),
	}, nil
}

// Status describes the loaded artifact.
func (s *IndexSearcher) Status() Status {
	st := s.engine.Status()
	return Status{
		Jobs:          st.Jobs,
		Semantic:      st.SemanticAvailable,
		Reason:        st.Reason,
		Model:         st.Model,
		Dimensions:    st.Dimensions,
		CachedQueries: st.CachedQueries,
	}
}

// Close releases the embedding model. It is safe to call more than once.
func (s *IndexSearcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.model != nil {
		return s.model.Close()
	}
	return nil
}
