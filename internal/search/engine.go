// Package search implements hybrid job-title search: lexical ranking
// first, embedding ranking when the lexical match is weak, and lexical
// results again when embeddings cannot answer.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/Aman-CERP/titlesearch/internal/corpus"
	tserrors "github.com/Aman-CERP/titlesearch/internal/errors"
	"github.com/Aman-CERP/titlesearch/internal/index"
	"github.com/Aman-CERP/titlesearch/internal/lexical"
	"github.com/Aman-CERP/titlesearch/internal/telemetry"
)

// Engine serves searches over an atomically swappable Snapshot. It is
// safe for concurrent use.
type Engine struct {
	snap     atomic.Pointer[Snapshot]
	config   Config
	logger   *slog.Logger
	metrics  *telemetry.QueryMetrics
	observer Observer
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics sets an optional query metrics collector.
func WithMetrics(m *telemetry.QueryMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithObserver registers a callback that sees every routing decision.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// New creates an engine serving snap.
func New(snap *Snapshot, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		config: applyConfigDefaults(cfg),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.snap.Store(snap)
	return e
}

func applyConfigDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = def.MaxLimit
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = cfg.MaxLimit
	}
	if cfg.SemanticTimeout <= 0 {
		cfg.SemanticTimeout = def.SemanticTimeout
	}
	return cfg
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.config }

// Snapshot returns the snapshot currently served.
func (e *Engine) Snapshot() *Snapshot { return e.snap.Load() }

// Swap replaces the served snapshot and returns the previous one. Calls
// already running finish on the snapshot they started with.
func (e *Engine) Swap(snap *Snapshot) *Snapshot {
	old := e.snap.Swap(snap)
	st := snap.Status()
	e.logger.Info("search snapshot swapped",
		slog.Int("jobs", st.Jobs),
		slog.Bool("semantic", st.SemanticAvailable))
	return old
}

// Status summarizes the served snapshot.
func (e *Engine) Status() Status { return e.snap.Load().Status() }

// Lookup resolves a title to its record. See corpus.Corpus.Lookup.
func (e *Engine) Lookup(title, industry string) corpus.Match {
	return e.snap.Load().Corpus().Lookup(title, industry)
}

// Search ranks corpus titles against query.
//
// A query shorter than two characters after trimming, or an empty corpus,
// yields no results. When the best lexical score reaches the threshold
// the lexical ranking is returned and embeddings are never consulted.
// Otherwise the embedding ranking is returned when it has results, and
// the lexical ranking when it does not. Queries longer than
// lexical.MaxQueryLength runes are truncated. Faults below the engine degrade
// to lexical results; the returned error is reserved for internal
// failures.
func (e *Engine) Search(ctx context.Context, query string, opts Options) (results []*Result, err error) {
	start := time.Now()
	trimmed := clip(strings.TrimSpace(query), lexical.MaxQueryLength)

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("search panicked",
				slog.String("query", trimmed),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			results = nil
			err = tserrors.InternalError(fmt.Sprintf("search failed: %v", r), nil)
		}
	}()

	snap := e.snap.Load()
	if utf8.RuneCountInString(trimmed) < lexical.MinQueryLength || snap == nil || snap.corpus.Len() == 0 {
		return []*Result{}, nil
	}

	limit := e.limit(opts)
	threshold := e.config.FuzzyThreshold
	if opts.FuzzyThreshold != nil {
		threshold = *opts.FuzzyThreshold
	}

	d := Decision{Query: trimmed}
	ranked := e.rank(ctx, snap, trimmed, limit, threshold, &d)

	results = make([]*Result, 0, len(ranked))
	for _, r := range ranked {
		m := snap.corpus.Lookup(r.Title, "")
		results = append(results, &Result{
			Title:            r.Title,
			Confidence:       r.Confidence,
			Method:           r.Method,
			Industry:         m.Industry,
			Location:         m.Location,
			AutomationRisk:   m.AutomationRisk,
			GrowthProjection: m.GrowthProjection,
		})
	}

	d.Results = len(results)
	d.Latency = time.Since(start)
	e.record(d)
	return results, nil
}

// ThresholdInRange reports whether t is a usable fuzzy threshold: a number
// in [0, 100]. NaN is out of range.
func ThresholdInRange(t float64) bool {
	return t >= 0 && t <= 100
}

// clip cuts s to at most n runes.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func (e *Engine) limit(opts Options) int {
	limit := opts.Limit
	if limit <= 0 {
		limit = e.config.DefaultLimit
	}
	if limit > e.config.MaxLimit {
		limit = e.config.MaxLimit
	}
	return limit
}

// rank runs the lexical-then-semantic routing and fills d.
func (e *Engine) rank(ctx context.Context, snap *Snapshot, query string, limit int, threshold float64, d *Decision) []index.CachedResult {
	need := min(limit, snap.corpus.Len())

	var cached index.CacheEntry
	var haveCache bool
	if e.config.UseQueryCache {
		cached, haveCache = snap.cache[strings.ToLower(query)]
	}

	var lex []index.CachedResult
	if haveCache && len(cached.Fuzzy) >= need {
		lex = truncate(cached.Fuzzy, limit)
		d.CacheHit = true
	} else {
		for _, m := range snap.lexical.Rank(query, limit) {
			lex = append(lex, index.CachedResult{Title: m.Title, Confidence: m.Score, Method: MethodLexical})
		}
	}
	if len(lex) > 0 {
		d.BestLexical = lex[0].Confidence
	}

	if d.BestLexical >= threshold {
		d.Method = MethodLexical
		return lex
	}

	if snap.SemanticAvailable() {
		if haveCache && len(cached.Vector) >= need {
			d.CacheHit = true
			d.Method = MethodSemantic
			return e.clampCached(truncate(cached.Vector, limit))
		}

		d.SemanticInvoked = true
		if sem := e.semantic(ctx, snap, query, limit); len(sem) > 0 {
			d.Method = MethodSemantic
			return sem
		}
	}

	d.Fallback = true
	d.Method = MethodLexical
	return lex
}

func (e *Engine) semantic(ctx context.Context, snap *Snapshot, query string, limit int) []index.CachedResult {
	ctx, cancel := context.WithTimeout(ctx, e.config.SemanticTimeout)
	defer cancel()

	matches, err := snap.semantic.Rank(ctx, query, limit)
	if err != nil {
		e.logger.Warn("semantic ranking failed, using lexical results",
			append([]any{slog.String("query", query)}, tserrors.LogAttrs(err)...)...)
		return nil
	}

	out := make([]index.CachedResult, 0, len(matches))
	for _, m := range matches {
		out = append(out, index.CachedResult{
			Title:      m.Title,
			Confidence: m.Confidence(e.config.ClampSemanticConfidence),
			Method:     MethodSemantic,
		})
	}
	return out
}

func (e *Engine) clampCached(in []index.CachedResult) []index.CachedResult {
	if !e.config.ClampSemanticConfidence {
		return in
	}
	out := make([]index.CachedResult, len(in))
	for i, r := range in {
		r.Confidence = math.Max(0, math.Min(100, r.Confidence))
		out[i] = r
	}
	return out
}

func (e *Engine) record(d Decision) {
	e.logger.Debug("search",
		slog.String("query", d.Query),
		slog.String("method", string(d.Method)),
		slog.Float64("best_lexical", d.BestLexical),
		slog.Bool("semantic_invoked", d.SemanticInvoked),
		slog.Bool("cache_hit", d.CacheHit),
		slog.Bool("fallback", d.Fallback),
		slog.Int("results", d.Results),
		slog.Duration("latency", d.Latency))

	if e.metrics != nil {
		e.metrics.Record(telemetry.QueryEvent{
			Query:           d.Query,
			Method:          string(d.Method),
			ResultCount:     d.Results,
			Latency:         d.Latency,
			Timestamp:       time.Now(),
			CacheHit:        d.CacheHit,
			SemanticInvoked: d.SemanticInvoked,
			Fallback:        d.Fallback,
		})
	}
	if e.observer != nil {
		e.observer(d)
	}
}

func truncate(in []index.CachedResult, n int) []index.CachedResult {
	if len(in) > n {
		in = in[:n]
	}
	out := make([]index.CachedResult, len(in))
	copy(out, in)
	return out
}
