package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/titlesearch/internal/api"
	"github.com/Aman-CERP/titlesearch/internal/corpus"
	"github.com/Aman-CERP/titlesearch/internal/embed"
	"github.com/Aman-CERP/titlesearch/internal/index"
	"github.com/Aman-CERP/titlesearch/internal/logging"
	"github.com/Aman-CERP/titlesearch/internal/mcp"
	"github.com/Aman-CERP/titlesearch/internal/search"
	"github.com/Aman-CERP/titlesearch/internal/semantic"
	"github.com/Aman-CERP/titlesearch/internal/telemetry"
)

// Integration Tests - These run the full flow from a dataset file through
// the artifact on disk to the HTTP and MCP boundaries.

const datasetCSV = `Job Title,Industry,Location,AI Automation Risk,Job Openings (2024),Projected Openings (2030)
Software Developer,Technology,London,15,1000,1250
Data Scientist,Technology,Berlin,20,800,1200
Accountant,Finance,New York,75,1200,1020
Registered Nurse,Healthcare,Toronto,10,3000,3900
Electrician,Construction,Sydney,12,900,1000
Plumber,Construction,Sydney,8,700,770
`

// buildFromCSV writes datasetCSV, builds and saves an artifact, and
// returns its path.
func buildFromCSV(t *testing.T, model embed.Embedder, probes ...string) string {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "jobs.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(datasetCSV), 0o644))

	p, err := corpus.NewProvider(csvPath, "")
	require.NoError(t, err)
	records, err := p.Load(context.Background())
	require.NoError(t, err)

	opts := []index.BuilderOption{index.WithLogger(logging.Discard())}
	if len(probes) > 0 {
		opts = append(opts, index.WithProbes(probes))
	}
	f, err := index.NewBuilder(model, opts...).Build(context.Background(), records)
	require.NoError(t, err)

	path := filepath.Join(dir, "search_index.json")
	require.NoError(t, index.Save(path, f))
	return path
}

// openEngine loads path the way serve does.
func openEngine(t *testing.T, path string, model embed.Embedder, opts ...search.Option) *search.Engine {
	t.Helper()
	lo := index.LoadOptions{Logger: logging.Discard()}
	if model != nil {
		lo.ExpectedModel = model.ModelName()
	}
	loaded, err := index.Load(path, lo)
	require.NoError(t, err)

	snap := search.SnapshotFromLoaded(loaded, model, semantic.WithLogger(logging.Discard()))
	opts = append([]search.Option{search.WithLogger(logging.Discard())}, opts...)
	return search.New(snap, search.DefaultConfig(), opts...)
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestCSVToHTTP_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	model := embed.NewStaticEmbedder()
	path := buildFromCSV(t, model, "nurse")

	metrics := telemetry.NewQueryMetrics(nil)
	t.Cleanup(func() { _ = metrics.Close() })
	engine := openEngine(t, path, model, search.WithMetrics(metrics))

	srv := httptest.NewServer(api.NewServer(engine, metrics, api.Options{Logger: logging.Discard()}).Handler())
	defer srv.Close()

	t.Run("typo resolves lexically with enrichment", func(t *testing.T) {
		var resp api.SearchResponse
		code := postJSON(t, srv.URL+"/api/job-search", api.SearchRequest{Query: "acountant", Limit: 3}, &resp)
		require.Equal(t, http.StatusOK, code)
		require.NotEmpty(t, resp.Suggestions)

		top := resp.Suggestions[0]
		assert.Equal(t, "Accountant", top.Title)
		assert.Equal(t, search.MethodLexical, top.Method)
		assert.Equal(t, "Finance", top.Industry)
		assert.Equal(t, "New York", top.Location)
		// Growth is derived from the openings columns: 1200 -> 1020.
		assert.InDelta(t, -15.0, top.GrowthProjection, 0.01)
	})

	t.Run("weak lexical match goes semantic", func(t *testing.T) {
		var resp api.SearchResponse
		code := postJSON(t, srv.URL+"/api/job-search", api.SearchRequest{Query: "senior software developer"}, &resp)
		require.Equal(t, http.StatusOK, code)
		require.NotEmpty(t, resp.Suggestions)
		assert.Equal(t, search.MethodSemantic, resp.Suggestions[0].Method)
		assert.Equal(t, "Software Developer", resp.Suggestions[0].Title)
	})

	t.Run("cached probe", func(t *testing.T) {
		var resp api.SearchResponse
		code := postJSON(t, srv.URL+"/api/job-search", api.SearchRequest{Query: "Nurse"}, &resp)
		require.Equal(t, http.StatusOK, code)
		require.NotEmpty(t, resp.Suggestions)
		assert.Equal(t, "Registered Nurse", resp.Suggestions[0].Title)
	})

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/health")
		require.NoError(t, err)
		defer resp.Body.Close()

		var health api.HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
		assert.Equal(t, 6, health.Jobs)
		assert.True(t, health.Semantic)
		assert.Equal(t, embed.StaticModelName, health.Model)
	})

	snap := metrics.Snapshot()
	assert.GreaterOrEqual(t, snap.TotalQueries, int64(3))
}

func TestHTTPAndMCP_SameRanking(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	model := embed.NewStaticEmbedder()
	engine := openEngine(t, buildFromCSV(t, model), model)

	srv := httptest.NewServer(api.NewServer(engine, nil, api.Options{Logger: logging.Discard()}).Handler())
	defer srv.Close()
	tools, err := mcp.NewServer(engine, logging.Discard())
	require.NoError(t, err)

	for _, q := range []string{"electrican", "data scientist", "plumbing engineer", "nurse practitioner"} {
		t.Run(q, func(t *testing.T) {
			var httpResp api.SearchResponse
			require.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/api/job-search", api.SearchRequest{Query: q, Limit: 4}, &httpResp))

			out, err := tools.CallTool(context.Background(), mcp.ToolSearch, map[string]any{"query": q, "limit": float64(4)})
			require.NoError(t, err)
			mcpResp := out.(mcp.SearchOutput)

			require.Len(t, mcpResp.Suggestions, len(httpResp.Suggestions))
			for i := range httpResp.Suggestions {
				assert.Equal(t, httpResp.Suggestions[i].Title, mcpResp.Suggestions[i].Title)
				assert.Equal(t, string(httpResp.Suggestions[i].Method), mcpResp.Suggestions[i].Method)
				assert.InDelta(t, httpResp.Suggestions[i].Confidence, mcpResp.Suggestions[i].Confidence, 1e-9)
			}
		})
	}
}

func TestModelMismatch_ServesLexical(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	path := buildFromCSV(t, embed.NewStaticEmbedder())

	// A different query model invalidates the stored embeddings.
	other := &renamedModel{Embedder: embed.NewStaticEmbedder(), name: "other-model"}
	engine := openEngine(t, path, other)

	st := engine.Status()
	assert.False(t, st.SemanticAvailable)
	assert.Contains(t, st.Reason, "other-model")

	results, err := engine.Search(context.Background(), "senior software developer", search.Options{Limit: 3})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, search.MethodLexical, results[0].Method)
	assert.Equal(t, "Software Developer", results[0].Title)
}

type renamedModel struct {
	embed.Embedder
	name string
}

func (m *renamedModel) ModelName() string { return m.name }
