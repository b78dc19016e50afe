package search

import (
	"time"

	"github.com/Aman-CERP/titlesearch/internal/corpus"
	"github.com/Aman-CERP/titlesearch/internal/embed"
	"github.com/Aman-CERP/titlesearch/internal/index"
	"github.com/Aman-CERP/titlesearch/internal/lexical"
	"github.com/Aman-CERP/titlesearch/internal/semantic"
)

// Snapshot is the immutable serving state: corpus, both matchers and the
// precomputed query cache. The engine swaps whole snapshots on reload.
type Snapshot struct {
	corpus   *corpus.Corpus
	lexical  *lexical.Matcher
	semantic *semantic.Index
	cache    map[string]index.CacheEntry
	semErr   error
	loadedAt time.Time
}

// NewSnapshot assembles a snapshot. sem and cache may be nil.
func NewSnapshot(c *corpus.Corpus, sem *semantic.Index, cache map[string]index.CacheEntry) *Snapshot {
	return &Snapshot{
		corpus:   c,
		lexical:  lexical.New(c.Titles()),
		semantic: sem,
		cache:    cache,
		loadedAt: time.Now(),
	}
}

// SnapshotFromLoaded builds a snapshot from a loaded artifact. model
// encodes queries and may be nil for lexical-only serving.
func SnapshotFromLoaded(l *index.Loaded, model embed.Embedder, opts ...semantic.Option) *Snapshot {
	sem := semantic.New(l.Corpus.Titles(), l.Embeddings, model, opts...)
	s := NewSnapshot(l.Corpus, sem, l.File.QueryCache)
	s.semErr = l.SemanticErr
	return s
}

// Corpus returns the snapshot corpus.
func (s *Snapshot) Corpus() *corpus.Corpus { return s.corpus }

// Semantic returns the semantic index, possibly nil.
func (s *Snapshot) Semantic() *semantic.Index { return s.semantic }

// SemanticAvailable reports whether queries can be ranked by embedding.
func (s *Snapshot) SemanticAvailable() bool {
	return s.semantic.Available() && s.semantic.Model() != nil
}

// SemanticReason explains why semantic ranking is off, or is empty.
func (s *Snapshot) SemanticReason() string {
	switch {
	case s.semErr != nil:
		return s.semErr.Error()
	case !s.semantic.Available():
		return s.semantic.Reason()
	case s.semantic.Model() == nil:
		return "no embedding model configured"
	}
	return ""
}

// Status summarizes the snapshot.
func (s *Snapshot) Status() Status {
	st := Status{
		Jobs:              s.corpus.Len(),
		SemanticAvailable: s.SemanticAvailable(),
		Reason:            s.SemanticReason(),
		Dimensions:        s.semantic.Dimensions(),
		CachedQueries:     len(s.cache),
		LoadedAt:          s.loadedAt,
	}
	if m := s.semantic.Model(); m != nil {
		st.Model = m.ModelName()
	}
	return st
}
