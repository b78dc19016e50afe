package index

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/titlesearch/internal/corpus"
	"github.com/Aman-CERP/titlesearch/internal/embed"
	tserrors "github.com/Aman-CERP/titlesearch/internal/errors"
	"github.com/Aman-CERP/titlesearch/internal/lexical"
	"github.com/Aman-CERP/titlesearch/internal/semantic"
)

// DefaultDepth is the number of results cached per probe and per method.
const DefaultDepth = 15

var defaultProbes = []string{
	// Tech roles
	"software", "developer", "engineer", "programmer", "data", "analyst",
	"scientist", "web", "mobile", "frontend", "backend", "fullstack",
	"devops", "cloud", "security", "network", "database", "qa", "test",
	// Business roles
	"manager", "director", "executive", "consultant", "analyst", "accountant",
	"sales", "marketing", "hr", "finance", "legal", "admin",
	// Other roles
	"teacher", "nurse", "doctor", "designer", "writer", "architect",
	"engineer", "technician", "specialist", "coordinator", "assistant",
}

// DefaultProbes returns the built-in probe queries. Repeats in the list
// collapse when the builder normalizes probes.
func DefaultProbes() []string {
	out := make([]string, len(defaultProbes))
	copy(out, defaultProbes)
	return out
}

// Builder produces an artifact from job records.
type Builder struct {
	model       embed.Embedder
	probes      []string
	depth       int
	concurrency int
	logger      *slog.Logger
	progress    func(done, total int)
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithProbes replaces the probe queries.
func WithProbes(probes []string) BuilderOption {
	return func(b *Builder) { b.probes = probes }
}

// WithDepth sets how many results are cached per probe.
func WithDepth(depth int) BuilderOption {
	return func(b *Builder) {
		if depth > 0 {
			b.depth = depth
		}
	}
}

// WithConcurrency bounds the number of probes ranked at once.
func WithConcurrency(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithLogger sets the builder logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = logger }
}

// WithProgress registers a callback invoked after each probe completes.
// It may be called from several goroutines.
func WithProgress(fn func(done, total int)) BuilderOption {
	return func(b *Builder) { b.progress = fn }
}

// NewBuilder creates a builder. A nil model produces an artifact without
// embeddings or cached vector rankings.
func NewBuilder(model embed.Embedder, opts ...BuilderOption) *Builder {
	b := &Builder{
		model:       model,
		probes:      DefaultProbes(),
		depth:       DefaultDepth,
		concurrency: runtime.NumCPU(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build embeds every title once and precomputes both rankings for each
// probe. Results land in the probe's own slot, so the artifact does not
// depend on goroutine scheduling.
func (b *Builder) Build(ctx context.Context, records []corpus.Record) (*File, error) {
	start := time.Now()

	c, err := corpus.New(records)
	if err != nil {
		return nil, err
	}
	if c.Len() == 0 {
		return nil, tserrors.CorpusError("no job records to index", nil)
	}
	titles := c.Titles()

	f := &File{
		Titles:     titles,
		Data:       make(map[string]corpus.Record, len(titles)),
		QueryCache: make(map[string]CacheEntry),
		Metadata:   Metadata{TotalJobs: len(titles)},
	}
	for _, r := range c.Records() {
		f.Data[r.Title] = r
	}

	var sem *semantic.Index
	if b.model != nil {
		b.logger.Info("embedding job titles",
			slog.Int("titles", len(titles)),
			slog.String("model", b.model.ModelName()))

		vectors, err := b.model.EmbedBatch(ctx, titles)
		if err != nil {
			return nil, tserrors.New(tserrors.ErrCodeEmbeddingFailed, "failed to embed job titles", err)
		}
		if len(vectors) != len(titles) {
			return nil, tserrors.New(tserrors.ErrCodeEmbeddingFailed,
				fmt.Sprintf("embedder returned %d vectors for %d titles", len(vectors), len(titles)), nil)
		}
		sem = semantic.New(titles, vectors, b.model, semantic.WithLogger(b.logger))
		if !sem.Available() {
			return nil, tserrors.New(tserrors.ErrCodeEmbeddingFailed, sem.Reason(), nil)
		}
		f.Embeddings = vectors
		f.Metadata.EmbeddingDim = sem.Dimensions()
		f.Metadata.Model = b.model.ModelName()
	}

	probes := normalizeProbes(b.probes)
	entries, err := b.rankProbes(ctx, probes, lexical.New(titles), sem)
	if err != nil {
		return nil, err
	}
	for i, p := range probes {
		f.QueryCache[p] = entries[i]
	}

	b.logger.Info("index built",
		slog.Int("titles", len(titles)),
		slog.Int("probes", len(probes)),
		slog.Int("dimensions", f.Metadata.EmbeddingDim),
		slog.Duration("duration", time.Since(start)))
	return f, nil
}

func (b *Builder) rankProbes(ctx context.Context, probes []string, lex *lexical.Matcher, sem *semantic.Index) ([]CacheEntry, error) {
	entries := make([]CacheEntry, len(probes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	var done atomic.Int64
	for i, probe := range probes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			entry := CacheEntry{Fuzzy: []CachedResult{}}
			for _, m := range lex.Rank(probe, b.depth) {
				entry.Fuzzy = append(entry.Fuzzy, CachedResult{
					Title:      m.Title,
					Confidence: m.Score,
					Method:     MethodLexical,
				})
			}

			if sem.Available() {
				matches, err := sem.Rank(gctx, probe, b.depth)
				if err != nil {
					return fmt.Errorf("probe %q: %w", probe, err)
				}
				entry.Vector = make([]CachedResult, 0, len(matches))
				for _, m := range matches {
					entry.Vector = append(entry.Vector, CachedResult{
						Title:      m.Title,
						Confidence: m.Confidence(false),
						Method:     MethodSemantic,
					})
				}
			}

			entries[i] = entry
			if b.progress != nil {
				b.progress(int(done.Add(1)), len(probes))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// normalizeProbes lowercases and trims probes, dropping blanks and repeats
// while keeping first-seen order.
func normalizeProbes(probes []string) []string {
	seen := make(map[string]struct{}, len(probes))
	out := make([]string, 0, len(probes))
	for _, p := range probes {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
