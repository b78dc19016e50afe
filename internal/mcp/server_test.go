package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/titlesearch/internal/corpus"
	"github.com/Aman-CERP/titlesearch/internal/embed"
	tserrors "github.com/Aman-CERP/titlesearch/internal/errors"
	"github.com/Aman-CERP/titlesearch/internal/lexical"
	"github.com/Aman-CERP/titlesearch/internal/logging"
	"github.com/Aman-CERP/titlesearch/internal/search"
	"github.com/Aman-CERP/titlesearch/internal/semantic"
	"github.com/Aman-CERP/titlesearch/internal/telemetry"
)

func newTestServer(t *testing.T) (*Server, *telemetry.QueryMetrics) {
	t.Helper()

	c, err := corpus.New(corpus.SampleRecords())
	require.NoError(t, err)

	model := embed.NewStaticEmbedder()
	vectors, err := model.EmbedBatch(context.Background(), c.Titles())
	require.NoError(t, err)
	sem := semantic.New(c.Titles(), vectors, model, semantic.WithLogger(logging.Discard()))

	metrics := telemetry.NewQueryMetrics(nil)
	t.Cleanup(func() { _ = metrics.Close() })

	engine := search.New(search.NewSnapshot(c, sem, nil), search.DefaultConfig(),
		search.WithLogger(logging.Discard()), search.WithMetrics(metrics))

	s, err := NewServer(engine, logging.Discard())
	require.NoError(t, err)
	s.SetMetrics(metrics)
	return s, metrics
}

func TestNewServer_RequiresEngine(t *testing.T) {
	_, err := NewServer(nil, nil)
	assert.Error(t, err)
}

func TestListTools(t *testing.T) {
	s, _ := newTestServer(t)

	var names []string
	for _, tool := range s.ListTools() {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
	}
	assert.Equal(t, []string{ToolSearch, ToolLookup, ToolIndexStatus}, names)
}

func TestCallTool_Search(t *testing.T) {
	s, metrics := newTestServer(t)

	got, err := s.CallTool(context.Background(), ToolSearch, map[string]any{"query": "electrician", "limit": float64(3)})
	require.NoError(t, err)

	out, ok := got.(SearchOutput)
	require.True(t, ok)
	require.Len(t, out.Suggestions, 3)
	assert.Equal(t, 3, out.TotalMatches)
	assert.Equal(t, "Electrician", out.Suggestions[0].Title)
	assert.Equal(t, "fuzzy", out.Suggestions[0].Method)
	assert.Equal(t, "Construction", out.Suggestions[0].Industry)
	assert.Equal(t, corpus.Unknown, out.Suggestions[0].Location)
	assert.Equal(t, int64(1), metrics.Snapshot().TotalQueries)
}

func TestSuggestionOutput_JSONKeepsEmptyFields(t *testing.T) {
	data, err := json.Marshal(SuggestionOutput{Title: "Plumber", Method: "fuzzy"})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Contains(t, fields, "industry")
	assert.Contains(t, fields, "location")
}

func TestCallTool_SearchShortQuery(t *testing.T) {
	s, metrics := newTestServer(t)

	got, err := s.CallTool(context.Background(), ToolSearch, map[string]any{"query": " x "})
	require.NoError(t, err)

	out := got.(SearchOutput)
	assert.Empty(t, out.Suggestions)
	assert.NotNil(t, out.Suggestions)
	assert.Equal(t, int64(0), metrics.Snapshot().TotalQueries)
}

func TestCallTool_SearchInvalidThreshold(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.CallTool(context.Background(), ToolSearch, map[string]any{"query": "nurse", "fuzzy_threshold": float64(150)})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestCallTool_SearchQueryTooLong(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.CallTool(context.Background(), ToolSearch,
		map[string]any{"query": strings.Repeat("nurse ", 1000)})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
	assert.Contains(t, mcpErr.Error(), "at most")

	got, err := s.CallTool(context.Background(), ToolSearch,
		map[string]any{"query": strings.Repeat("n", lexical.MaxQueryLength)})
	require.NoError(t, err)
	assert.NotNil(t, got.(SearchOutput).Suggestions)
}

func TestCallTool_Lookup(t *testing.T) {
	s, _ := newTestServer(t)

	got, err := s.CallTool(context.Background(), ToolLookup, map[string]any{"job_title": "nurse"})
	require.NoError(t, err)
	out := got.(LookupOutput)
	assert.Equal(t, "Nurse", out.Title)
	assert.Equal(t, "high", out.Confidence)
	assert.Equal(t, "exact", out.Source)

	got, err = s.CallTool(context.Background(), ToolLookup, map[string]any{"job_title": "Astronaut", "industry": "Space"})
	require.NoError(t, err)
	out = got.(LookupOutput)
	assert.Equal(t, "Space", out.Industry)
	assert.Equal(t, "low", out.Confidence)
	assert.Equal(t, "default", out.Source)
	assert.InDelta(t, corpus.DefaultAutomationRisk, out.AutomationRisk, 1e-9)

	_, err = s.CallTool(context.Background(), ToolLookup, map[string]any{})
	assert.Error(t, err)
}

func TestCallTool_IndexStatus(t *testing.T) {
	s, _ := newTestServer(t)
	_, err := s.CallTool(context.Background(), ToolSearch, map[string]any{"query": "teacher"})
	require.NoError(t, err)

	got, err := s.CallTool(context.Background(), ToolIndexStatus, nil)
	require.NoError(t, err)

	out := got.(IndexStatusOutput)
	assert.Equal(t, 6, out.Jobs)
	assert.True(t, out.Semantic)
	assert.Equal(t, embed.StaticModelName, out.Model)
	assert.Equal(t, embed.StaticDimensions, out.Dimensions)
	require.NotNil(t, out.Queries)
	assert.Equal(t, int64(1), out.Queries.Total)
	assert.Equal(t, int64(1), out.Queries.ByMethod["fuzzy"])
}

func TestCallTool_Unknown(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.CallTool(context.Background(), "nope", nil)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeMethodNotFound, mcpErr.Code)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"nil", nil, 0},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeTimeout},
		{"tool", ErrToolNotFound, ErrCodeMethodNotFound},
		{"corrupt index", tserrors.New(tserrors.ErrCodeCorruptIndex, "bad", nil), ErrCodeIndexNotFound},
		{"embedder timeout", tserrors.New(tserrors.ErrCodeEmbedderTimeout, "slow", nil), ErrCodeTimeout},
		{"embedder", tserrors.New(tserrors.ErrCodeEmbedderUnavailable, "down", nil), ErrCodeEmbeddingFailed},
		{"validation", tserrors.New(tserrors.ErrCodeInvalidQuery, "bad query", nil), ErrCodeInvalidParams},
		{"internal", tserrors.InternalError("boom", nil), ErrCodeInternalError},
		{"plain", errors.New("x"), ErrCodeInternalError},
		{"passthrough", NewInvalidParamsError("y"), ErrCodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if tt.err == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.code, got.Code)
		})
	}
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	err := tserrors.New(tserrors.ErrCodeFileNotFound, "index missing", nil).WithSuggestion("Run 'titlesearch build'.")
	got := MapError(err)
	assert.Equal(t, ErrCodeIndexNotFound, got.Code)
	assert.Contains(t, got.Message, "titlesearch build")
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 15, clampLimit(0, 15, 1, 50))
	assert.Equal(t, 50, clampLimit(500, 15, 1, 50))
	assert.Equal(t, 7, clampLimit(7, 15, 1, 50))
}

// connect runs s on an in-memory transport and returns a client session.
func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	clientT, serverT := mcp.NewInMemoryTransports()
	go func() { _ = s.Run(ctx, serverT) }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func TestProtocol_ToolsOverTransport(t *testing.T) {
	s, _ := newTestServer(t)
	cs := connect(t, s)
	ctx := context.Background()

	listed, err := cs.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)
	var names []string
	for _, tool := range listed.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{ToolSearch, ToolLookup, ToolIndexStatus}, names)

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolSearch,
		Arguments: map[string]any{"query": "graphic designer", "limit": 2},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	data, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out SearchOutput
	require.NoError(t, json.Unmarshal(data, &out))
	require.NotEmpty(t, out.Suggestions)
	assert.Equal(t, "Graphic Designer", out.Suggestions[0].Title)

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolLookup,
		Arguments: map[string]any{"job_title": ""},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestProtocol_Resources(t *testing.T) {
	s, _ := newTestServer(t)
	cs := connect(t, s)

	res, err := cs.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: SummaryURI})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)

	var summary corpus.Summary
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &summary))
	assert.Equal(t, 6, summary.TotalJobs)
	assert.Equal(t, 6, summary.Industries)

	res, err = cs.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: QueryMetricsURI})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Contains(t, res.Contents[0].Text, "total_queries")
}
