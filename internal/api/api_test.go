package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/titlesearch/internal/api"
	"github.com/Aman-CERP/titlesearch/internal/corpus"
	"github.com/Aman-CERP/titlesearch/internal/embed"
	"github.com/Aman-CERP/titlesearch/internal/lexical"
	"github.com/Aman-CERP/titlesearch/internal/logging"
	"github.com/Aman-CERP/titlesearch/internal/search"
	"github.com/Aman-CERP/titlesearch/internal/semantic"
	"github.com/Aman-CERP/titlesearch/internal/telemetry"
)

type fixture struct {
	server  *api.Server
	engine  *search.Engine
	metrics *telemetry.QueryMetrics
}

func setup(t *testing.T, semanticOn bool, opts ...search.Option) fixture {
	t.Helper()

	c, err := corpus.New(corpus.SampleRecords())
	require.NoError(t, err)

	var sem *semantic.Index
	if semanticOn {
		model := embed.NewStaticEmbedder()
		vectors, err := model.EmbedBatch(context.Background(), c.Titles())
		require.NoError(t, err)
		sem = semantic.New(c.Titles(), vectors, model, semantic.WithLogger(logging.Discard()))
	}

	metrics := telemetry.NewQueryMetrics(nil)
	t.Cleanup(func() { _ = metrics.Close() })

	opts = append([]search.Option{search.WithLogger(logging.Discard()), search.WithMetrics(metrics)}, opts...)
	engine := search.New(search.NewSnapshot(c, sem, nil), search.DefaultConfig(), opts...)

	return fixture{
		server:  api.NewServer(engine, metrics, api.Options{Logger: logging.Discard()}),
		engine:  engine,
		metrics: metrics,
	}
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestJobSearch_Post(t *testing.T) {
	f := setup(t, true)

	rec := do(t, f.server.Handler(), http.MethodPost, "/api/job-search", api.SearchRequest{Query: "software"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Suggestions)
	require.NotNil(t, resp.TotalMatches)
	assert.Equal(t, len(resp.Suggestions), *resp.TotalMatches)
	assert.Equal(t, "Software Developer", resp.Suggestions[0].Title)
	assert.Equal(t, search.MethodLexical, resp.Suggestions[0].Method)
	assert.Equal(t, "Technology", resp.Suggestions[0].Industry)
}

func TestJobSearch_ShortQueryShape(t *testing.T) {
	f := setup(t, true)

	for _, q := range []string{"", " ", "a", "  b  "} {
		rec := do(t, f.server.Handler(), http.MethodPost, "/api/job-search", api.SearchRequest{Query: q})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"suggestions": []}`, rec.Body.String(), "query %q", q)
	}
}

func TestJobSearch_LimitAndThreshold(t *testing.T) {
	f := setup(t, false)

	threshold := 0.0
	rec := do(t, f.server.Handler(), http.MethodPost, "/api/job-search",
		api.SearchRequest{Query: "teach", Limit: 2, FuzzyThreshold: &threshold})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Suggestions, 2)
	assert.Equal(t, "Teacher", resp.Suggestions[0].Title)
}

func TestJobSearch_Get(t *testing.T) {
	f := setup(t, false)

	rec := do(t, f.server.Handler(), http.MethodGet, "/api/job-search?q=nurse&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Suggestions, 1)
	assert.Equal(t, "Nurse", resp.Suggestions[0].Title)

	rec = do(t, f.server.Handler(), http.MethodGet, "/api/job-search?q=nurse&limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobSearch_InvalidBody(t *testing.T) {
	f := setup(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/job-search", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
}

func TestJobSearch_ThresholdOutOfRange(t *testing.T) {
	f := setup(t, false)

	for _, th := range []float64{-5, 100.5} {
		threshold := th
		rec := do(t, f.server.Handler(), http.MethodPost, "/api/job-search",
			api.SearchRequest{Query: "nurse", FuzzyThreshold: &threshold})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "threshold %v", th)
	}

	// NaN cannot be sent as JSON but parses from a query string.
	rec := do(t, f.server.Handler(), http.MethodGet, "/api/job-search?q=nurse&fuzzy_threshold=NaN", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, f.server.Handler(), http.MethodGet, "/api/job-search?q=nurse&fuzzy_threshold=100", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJobSearch_OversizedInput(t *testing.T) {
	f := setup(t, false)

	t.Run("query over the rune limit", func(t *testing.T) {
		rec := do(t, f.server.Handler(), http.MethodPost, "/api/job-search",
			api.SearchRequest{Query: strings.Repeat("a", lexical.MaxQueryLength+1)})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp api.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Error, "at most")

		rec = do(t, f.server.Handler(), http.MethodPost, "/api/job-search",
			api.SearchRequest{Query: strings.Repeat("é", lexical.MaxQueryLength)})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("body over the byte limit", func(t *testing.T) {
		body := `{"query":"` + strings.Repeat("x", api.MaxBodyBytes) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/api/job-search", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		start := time.Now()
		f.server.Handler().ServeHTTP(rec, req)

		assert.GreaterOrEqual(t, rec.Code, 400)
		assert.Less(t, rec.Code, 500)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}

func TestJobSearch_EngineFailureIs500(t *testing.T) {
	f := setup(t, false, search.WithObserver(func(search.Decision) { panic("observer exploded") }))

	rec := do(t, f.server.Handler(), http.MethodPost, "/api/job-search", api.SearchRequest{Query: "nurse"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "observer exploded")
	assert.Equal(t, "ERR_501_INTERNAL", resp.Code)
}

func TestJobLookup(t *testing.T) {
	f := setup(t, false)

	tests := []struct {
		name       string
		req        api.LookupRequest
		wantTitle  string
		wantSource corpus.Source
		wantConf   corpus.Confidence
	}{
		{"exact", api.LookupRequest{JobTitle: "Nurse"}, "Nurse", corpus.SourceExact, corpus.ConfidenceHigh},
		{"substring", api.LookupRequest{JobTitle: "graphic"}, "Graphic Designer", corpus.SourceSubstring, corpus.ConfidenceHigh},
		{"industry", api.LookupRequest{JobTitle: "Pilot", Industry: "Finance"}, "Accountant", corpus.SourceIndustry, corpus.ConfidenceHigh},
		{"default", api.LookupRequest{JobTitle: "Astronaut"}, "Astronaut", corpus.SourceDefault, corpus.ConfidenceLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, f.server.Handler(), http.MethodPost, "/api/job-lookup", tt.req)
			require.Equal(t, http.StatusOK, rec.Code)

			var m corpus.Match
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
			assert.Equal(t, tt.wantTitle, m.Title)
			assert.Equal(t, tt.wantSource, m.Source)
			assert.Equal(t, tt.wantConf, m.Confidence)
		})
	}

	rec := do(t, f.server.Handler(), http.MethodPost, "/api/job-lookup", api.LookupRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	t.Run("semantic", func(t *testing.T) {
		f := setup(t, true)
		rec := do(t, f.server.Handler(), http.MethodGet, "/api/health", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var h api.HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
		assert.Equal(t, "ok", h.Status)
		assert.Equal(t, 6, h.Jobs)
		assert.True(t, h.Semantic)
		assert.Equal(t, embed.StaticModelName, h.Model)
	})

	t.Run("lexical only", func(t *testing.T) {
		f := setup(t, false)
		rec := do(t, f.server.Handler(), http.MethodGet, "/api/health", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var h api.HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
		assert.Equal(t, "degraded", h.Status)
		assert.False(t, h.Semantic)
		assert.NotEmpty(t, h.Reason)
	})
}

func TestStats(t *testing.T) {
	f := setup(t, false)
	do(t, f.server.Handler(), http.MethodPost, "/api/job-search", api.SearchRequest{Query: "nurse"})
	do(t, f.server.Handler(), http.MethodPost, "/api/job-search", api.SearchRequest{Query: "zzzzqqq"})

	rec := do(t, f.server.Handler(), http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var s api.StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	require.NotNil(t, s.Queries)
	assert.Equal(t, int64(2), s.Queries.TotalQueries)
	assert.Equal(t, 6, s.Corpus.TotalJobs)
	assert.Equal(t, 6, s.Index.Jobs)
	require.NotEmpty(t, s.Corpus.HighestRisk)
	assert.Equal(t, "Accountant", s.Corpus.HighestRisk[0].Title)
}

func TestOpenAPI(t *testing.T) {
	f := setup(t, false)

	rec := do(t, f.server.Handler(), http.MethodGet, api.OpenAPIPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/api/job-search")
	assert.Contains(t, paths, "/api/job-lookup")
	assert.Contains(t, paths, "/api/health")
}

func TestCORS_Preflight(t *testing.T) {
	f := setup(t, false)

	req := httptest.NewRequest(http.MethodOptions, "/api/job-search", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	f := setup(t, false)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
