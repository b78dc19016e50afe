package index

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/Aman-CERP/titlesearch/internal/corpus"
	tserrors "github.com/Aman-CERP/titlesearch/internal/errors"
)

// LoadOptions controls artifact validation.
type LoadOptions struct {
	// ExpectedModel is the model that will encode queries. When set, an
	// artifact embedded by a different model loads lexical-only.
	ExpectedModel string

	// Logger receives degradation warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// Loaded is a validated artifact.
type Loaded struct {
	File       *File
	Corpus     *corpus.Corpus
	Embeddings [][]float32

	// SemanticErr is set when the embeddings could not be used. The
	// artifact still serves lexical search.
	SemanticErr error
}

// Load reads and validates the artifact at path under a shared lock.
// A missing, undecodable or inconsistent corpus is an error. Embeddings
// that do not line up with the corpus or the expected model are dropped
// together with the cached vector rankings, and reported on SemanticErr.
func Load(path string, opts LoadOptions) (*Loaded, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, tserrors.New(tserrors.ErrCodeFileNotFound, "index file not found", err).
				WithDetail("path", path).
				WithSuggestion("Run 'titlesearch build' to create the index")
		}
		return nil, tserrors.New(tserrors.ErrCodeFilePermission, "cannot access index file", err).
			WithDetail("path", path)
	}

	lock := NewFileLock(path)
	if err := lock.RLock(); err != nil {
		return nil, tserrors.New(tserrors.ErrCodeLockHeld, "cannot lock index for reading", err).
			WithDetail("path", lock.Path())
	}
	data, err := os.ReadFile(path)
	_ = lock.Unlock()
	if err != nil {
		return nil, tserrors.New(tserrors.ErrCodeFilePermission, "cannot read index file", err).
			WithDetail("path", path)
	}

	return Decode(data, opts, logger)
}

// Decode validates an artifact already in memory.
func Decode(data []byte, opts LoadOptions, logger *slog.Logger) (*Loaded, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, tserrors.New(tserrors.ErrCodeCorruptIndex, "index file is not valid JSON", err).
			WithSuggestion("Rebuild the index with 'titlesearch build'")
	}

	c, err := corpusFromFile(&f)
	if err != nil {
		return nil, err
	}

	out := &Loaded{File: &f, Corpus: c}
	if len(f.Embeddings) == 0 {
		return out, nil
	}
	if err := checkEmbeddings(&f, opts.ExpectedModel); err != nil {
		logger.Warn("index embeddings unusable, serving lexical results only",
			slog.String("reason", err.Message),
			slog.String("code", err.Code))
		out.SemanticErr = err
		f.Embeddings = nil
		f.QueryCache = withoutVectors(f.QueryCache)
		return out, nil
	}
	out.Embeddings = f.Embeddings
	return out, nil
}

func corpusFromFile(f *File) (*corpus.Corpus, error) {
	seen := make(map[string]struct{}, len(f.Titles))
	records := make([]corpus.Record, 0, len(f.Titles))
	for _, title := range f.Titles {
		if _, dup := seen[title]; dup {
			return nil, tserrors.CorpusError("index lists a job title twice", nil).
				WithDetail("title", title)
		}
		seen[title] = struct{}{}

		r, ok := f.Data[title]
		if !ok {
			return nil, tserrors.CorpusError("index has no job data for a listed title", nil).
				WithDetail("title", title)
		}
		r.Title = title
		records = append(records, r)
	}

	c, err := corpus.New(records)
	if err != nil {
		return nil, err
	}
	if c.Len() != len(f.Titles) {
		return nil, tserrors.CorpusError("index titles collapse after trimming whitespace", nil)
	}
	return c, nil
}

func checkEmbeddings(f *File, expectedModel string) *tserrors.Error {
	if len(f.Embeddings) != len(f.Titles) {
		return tserrors.SchemaError(
			fmt.Sprintf("index has %d embedding rows for %d titles", len(f.Embeddings), len(f.Titles)), nil)
	}
	dim := f.Metadata.EmbeddingDim
	if dim <= 0 {
		dim = len(f.Embeddings[0])
	}
	for i, row := range f.Embeddings {
		if len(row) != dim {
			return tserrors.SchemaError(
				fmt.Sprintf("embedding row %d has %d dimensions, expected %d", i, len(row), dim), nil)
		}
	}
	if expectedModel != "" && f.Metadata.Model != expectedModel {
		return tserrors.SchemaError(
			fmt.Sprintf("index was embedded with %q, queries use %q", f.Metadata.Model, expectedModel), nil).
			WithSuggestion("Rebuild the index with the configured embedding model")
	}
	return nil
}

func withoutVectors(cache map[string]CacheEntry) map[string]CacheEntry {
	out := make(map[string]CacheEntry, len(cache))
	for q, e := range cache {
		out[q] = CacheEntry{Fuzzy: e.Fuzzy}
	}
	return out
}
