package index

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/titlesearch/internal/corpus"
	"github.com/Aman-CERP/titlesearch/internal/embed"
	tserrors "github.com/Aman-CERP/titlesearch/internal/errors"
	"github.com/Aman-CERP/titlesearch/internal/logging"
)

// batchCounter wraps an embedder and counts batch calls.
type batchCounter struct {
	embed.Embedder
	batches atomic.Int64
}

func (b *batchCounter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	b.batches.Add(1)
	return b.Embedder.EmbedBatch(ctx, texts)
}

func testRecords() []corpus.Record {
	return []corpus.Record{
		{Title: "Software Developer", Industry: "Technology", AutomationRisk: 20, GrowthProjection: 25},
		{Title: "Registered Nurse", Industry: "Healthcare", AutomationRisk: 10, GrowthProjection: 12},
		{Title: "Data Analyst", Industry: "Technology", AutomationRisk: 35, GrowthProjection: 20},
		{Title: "Software Developer", Industry: "Duplicate"},
		{Title: "Sales Manager", Industry: "Retail", AutomationRisk: 40, GrowthProjection: 5},
	}
}

func buildTestFile(t *testing.T, model embed.Embedder, opts ...BuilderOption) *File {
	t.Helper()
	opts = append([]BuilderOption{WithLogger(logging.Discard())}, opts...)
	f, err := NewBuilder(model, opts...).Build(context.Background(), testRecords())
	require.NoError(t, err)
	return f
}

func TestBuild_WithModel(t *testing.T) {
	model := &batchCounter{Embedder: embed.NewStaticEmbedder()}

	f := buildTestFile(t, model, WithProbes([]string{" Software ", "nurse", "software", ""}), WithDepth(3))

	assert.Equal(t, []string{"Software Developer", "Registered Nurse", "Data Analyst", "Sales Manager"}, f.Titles)
	assert.Equal(t, "Technology", f.Data["Software Developer"].Industry)
	assert.Equal(t, Metadata{TotalJobs: 4, EmbeddingDim: embed.StaticDimensions, Model: embed.StaticModelName}, f.Metadata)
	assert.Len(t, f.Embeddings, 4)
	assert.Equal(t, int64(1), model.batches.Load())

	require.Len(t, f.QueryCache, 2)
	sw := f.QueryCache["software"]
	require.Len(t, sw.Fuzzy, 3)
	assert.Equal(t, "Software Developer", sw.Fuzzy[0].Title)
	assert.Equal(t, MethodLexical, sw.Fuzzy[0].Method)
	require.Len(t, sw.Vector, 3)
	assert.Equal(t, MethodSemantic, sw.Vector[0].Method)
	for i := 1; i < len(sw.Vector); i++ {
		assert.GreaterOrEqual(t, sw.Vector[i-1].Confidence, sw.Vector[i].Confidence)
	}
}

func TestBuild_NilModelIsLexicalOnly(t *testing.T) {
	f := buildTestFile(t, nil)

	assert.Empty(t, f.Embeddings)
	assert.Equal(t, 0, f.Metadata.EmbeddingDim)
	assert.Empty(t, f.Metadata.Model)
	require.Contains(t, f.QueryCache, "software")
	assert.Nil(t, f.QueryCache["software"].Vector)
}

func TestBuild_DefaultProbesDeduplicated(t *testing.T) {
	f := buildTestFile(t, nil)

	// 42 listed probes; "analyst" and "engineer" appear twice.
	assert.Len(t, DefaultProbes(), 42)
	assert.Len(t, f.QueryCache, 40)
	assert.Contains(t, f.QueryCache, "qa")
	assert.Contains(t, f.QueryCache, "assistant")
}

func TestBuild_Errors(t *testing.T) {
	_, err := NewBuilder(nil, WithLogger(logging.Discard())).Build(context.Background(), nil)
	assert.True(t, tserrors.HasCode(err, tserrors.ErrCodeCorpusUnavailable))

	failing := &failingEmbedder{Embedder: embed.NewStaticEmbedder()}
	_, err = NewBuilder(failing, WithLogger(logging.Discard())).Build(context.Background(), testRecords())
	assert.True(t, tserrors.HasCode(err, tserrors.ErrCodeEmbeddingFailed))
}

type failingEmbedder struct{ embed.Embedder }

func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, assert.AnError
}

func TestBuild_Progress(t *testing.T) {
	var calls atomic.Int64
	buildTestFile(t, nil,
		WithProbes([]string{"a1", "b2", "c3"}),
		WithConcurrency(2),
		WithProgress(func(done, total int) {
			calls.Add(1)
			assert.Equal(t, 3, total)
		}))

	assert.Equal(t, int64(3), calls.Load())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "search_index.json")
	f := buildTestFile(t, embed.NewStaticEmbedder(), WithProbes([]string{"software", "nurse"}))

	require.NoError(t, Save(path, f))

	loaded, err := Load(path, LoadOptions{ExpectedModel: embed.StaticModelName, Logger: logging.Discard()})
	require.NoError(t, err)
	assert.NoError(t, loaded.SemanticErr)
	assert.Equal(t, f.Titles, loaded.Corpus.Titles())
	assert.Equal(t, f.Embeddings, loaded.Embeddings)
	assert.Equal(t, f.QueryCache, loaded.File.QueryCache)
	assert.FileExists(t, path+".lock")
}

func TestSave_Deterministic(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json")

	require.NoError(t, Save(a, buildTestFile(t, embed.NewStaticEmbedder())))
	require.NoError(t, Save(b, buildTestFile(t, embed.NewStaticEmbedder())))

	da, err := os.ReadFile(a)
	require.NoError(t, err)
	db, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestSave_NilCollectionsEncodeEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, Save(path, &File{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"job_titles":[],"job_data":{},"metadata":{"total_jobs":0,"embedding_dim":0,"model":""},"query_cache":{},"embeddings":[]}`,
		string(data))
}

func writeArtifact(t *testing.T, v any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "search_index.json")
	var data []byte
	switch raw := v.(type) {
	case string:
		data = []byte(raw)
	default:
		var err error
		data, err = json.Marshal(v)
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		code string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.json") }, tserrors.ErrCodeFileNotFound},
		{"bad json", func(t *testing.T) string { return writeArtifact(t, "{not json") }, tserrors.ErrCodeCorruptIndex},
		{"duplicate titles", func(t *testing.T) string {
			return writeArtifact(t, &File{
				Titles: []string{"Nurse", "Nurse"},
				Data:   map[string]corpus.Record{"Nurse": {Title: "Nurse"}},
			})
		}, tserrors.ErrCodeCorpusUnavailable},
		{"missing job data", func(t *testing.T) string {
			return writeArtifact(t, &File{
				Titles: []string{"Nurse", "Welder"},
				Data:   map[string]corpus.Record{"Nurse": {Title: "Nurse"}},
			})
		}, tserrors.ErrCodeCorpusUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path(t), LoadOptions{Logger: logging.Discard()})
			require.Error(t, err)
			assert.Equal(t, tt.code, tserrors.GetCode(err))
		})
	}
}

func TestLoad_SemanticDegradation(t *testing.T) {
	good := func() *File {
		return &File{
			Titles: []string{"Nurse", "Welder"},
			Data: map[string]corpus.Record{
				"Nurse":  {Industry: "Healthcare"},
				"Welder": {Industry: "Manufacturing"},
			},
			Metadata:   Metadata{TotalJobs: 2, EmbeddingDim: 2, Model: "m1"},
			Embeddings: [][]float32{{1, 0}, {0, 1}},
			QueryCache: map[string]CacheEntry{
				"nurse": {
					Fuzzy:  []CachedResult{{Title: "Nurse", Confidence: 100, Method: MethodLexical}},
					Vector: []CachedResult{{Title: "Nurse", Confidence: 99, Method: MethodSemantic}},
				},
			},
		}
	}

	tests := []struct {
		name     string
		mutate   func(f *File)
		expected string
	}{
		{"row count", func(f *File) { f.Embeddings = f.Embeddings[:1] }, "m1"},
		{"row dimension", func(f *File) { f.Embeddings[1] = []float32{1, 2, 3} }, "m1"},
		{"model", func(f *File) {}, "other-model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := good()
			tt.mutate(f)

			loaded, err := Load(writeArtifact(t, f), LoadOptions{ExpectedModel: tt.expected, Logger: logging.Discard()})

			require.NoError(t, err)
			assert.True(t, tserrors.HasCode(loaded.SemanticErr, tserrors.ErrCodeIndexSchemaMismatch))
			assert.Nil(t, loaded.Embeddings)
			assert.Equal(t, 2, loaded.Corpus.Len())
			assert.Nil(t, loaded.File.QueryCache["nurse"].Vector)
			assert.Len(t, loaded.File.QueryCache["nurse"].Fuzzy, 1)
		})
	}

	t.Run("consistent", func(t *testing.T) {
		loaded, err := Load(writeArtifact(t, good()), LoadOptions{ExpectedModel: "m1", Logger: logging.Discard()})
		require.NoError(t, err)
		assert.NoError(t, loaded.SemanticErr)
		assert.Len(t, loaded.Embeddings, 2)
		assert.Equal(t, "Nurse", loaded.Corpus.Records()[0].Title)
	})
}

func TestFileLock_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx.json")
	first := NewFileLock(path)
	require.NoError(t, first.Lock())

	second := NewFileLock(path)
	ok, err := second.TryLock()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, first.Unlock())
	ok, err = second.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Unlock())
	assert.NoError(t, second.Unlock())
}
