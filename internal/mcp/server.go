package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/titlesearch/internal/lexical"
	"github.com/Aman-CERP/titlesearch/internal/search"
	"github.com/Aman-CERP/titlesearch/internal/telemetry"
	"github.com/Aman-CERP/titlesearch/pkg/version"
)

// ServerName is the implementation name reported to MCP clients.
const ServerName = "titlesearch"

// Tool names.
const (
	ToolSearch      = "search_job_titles"
	ToolLookup      = "lookup_job"
	ToolIndexStatus = "index_status"
)

// maxLimit caps suggestions per tool call.
const maxLimit = 50

// Server bridges MCP clients with the search engine.
type Server struct {
	mcp     *mcp.Server
	engine  *search.Engine
	logger  *slog.Logger
	metrics *telemetry.QueryMetrics

	mu sync.RWMutex
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        ToolSearch,
		Description: "Suggest canonical job titles for a free-text title. Close spellings are matched lexically; weak matches fall back to embedding similarity. Each suggestion reports match_method (fuzzy or vector) and a 0-100 confidence.",
	},
	{
		Name:        ToolLookup,
		Description: "Resolve a job title to its record (industry, location, automation risk, growth projection). Unknown titles return a low-confidence default record.",
	},
	{
		Name:        ToolIndexStatus,
		Description: "Report the number of indexed jobs, whether embedding search is available and why not, and query statistics.",
	},
}

// NewServer creates an MCP server over engine.
func NewServer(engine *search.Engine, logger *slog.Logger) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		engine: engine,
		logger: logger,
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	s.registerSummaryResource()
	return s, nil
}

// SetMetrics attaches query telemetry and registers the query_metrics resource.
func (s *Server) SetMetrics(m *telemetry.QueryMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
	if m != nil {
		s.registerQueryMetricsResource()
	}
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns the registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpLookupHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpIndexStatusHandler)
	s.logger.Debug("MCP tools registered", slog.Int("count", len(tools)))
}

// CallTool invokes a tool in process. It backs the SDK handlers and tests.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolSearch:
		in := SearchInput{}
		in.Query, _ = args["query"].(string)
		if l, ok := args["limit"].(float64); ok {
			in.Limit = int(l)
		}
		if t, ok := args["fuzzy_threshold"].(float64); ok {
			in.FuzzyThreshold = &t
		}
		return s.search(ctx, in)
	case ToolLookup:
		in := LookupInput{}
		in.JobTitle, _ = args["job_title"].(string)
		in.Industry, _ = args["industry"].(string)
		return s.lookup(in)
	case ToolIndexStatus:
		return s.indexStatus(), nil
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func (s *Server) search(ctx context.Context, in SearchInput) (SearchOutput, error) {
	if in.FuzzyThreshold != nil && !search.ThresholdInRange(*in.FuzzyThreshold) {
		return SearchOutput{}, NewInvalidParamsError("fuzzy_threshold must be between 0 and 100")
	}
	if utf8.RuneCountInString(in.Query) > lexical.MaxQueryLength {
		return SearchOutput{}, NewInvalidParamsError(fmt.Sprintf("query must be at most %d characters", lexical.MaxQueryLength))
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.Query)) < lexical.MinQueryLength {
		return SearchOutput{Suggestions: []SuggestionOutput{}}, nil
	}

	start := time.Now()
	requestID := generateRequestID()
	limit := clampLimit(in.Limit, s.engine.Config().DefaultLimit, 1, maxLimit)

	results, err := s.engine.Search(ctx, in.Query, search.Options{
		Limit:          limit,
		FuzzyThreshold: in.FuzzyThreshold,
	})
	if err != nil {
		s.logger.Error("search_job_titles failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return SearchOutput{}, MapError(err)
	}

	s.logger.Info("search_job_titles completed",
		slog.String("request_id", requestID),
		slog.String("query", in.Query),
		slog.Int("result_count", len(results)),
		slog.Duration("duration", time.Since(start)))
	return toSearchOutput(results), nil
}

func (s *Server) lookup(in LookupInput) (LookupOutput, error) {
	if strings.TrimSpace(in.JobTitle) == "" {
		return LookupOutput{}, NewInvalidParamsError("job_title is required")
	}
	return toLookupOutput(s.engine.Lookup(in.JobTitle, in.Industry)), nil
}

func (s *Server) indexStatus() IndexStatusOutput {
	s.mu.RLock()
	metrics := s.metrics
	s.mu.RUnlock()

	var snap *telemetry.Snapshot
	if metrics != nil {
		snap = metrics.Snapshot()
	}
	return toIndexStatusOutput(s.engine.Status(), snap)
}

func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	out, err := s.search(ctx, input)
	return nil, out, err
}

func (s *Server) mcpLookupHandler(_ context.Context, _ *mcp.CallToolRequest, input LookupInput) (
	*mcp.CallToolResult,
	LookupOutput,
	error,
) {
	out, err := s.lookup(input)
	return nil, out, err
}

func (s *Server) mcpIndexStatusHandler(_ context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	IndexStatusOutput,
	error,
) {
	return nil, s.indexStatus(), nil
}

// Serve runs the server over stdio until ctx is cancelled or stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

// Run serves on an arbitrary transport.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	s.logger.Info("starting MCP server", slog.Int("tools", len(tools)))

	err := s.mcp.Run(ctx, t)
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, io.EOF):
		s.logger.Info("MCP server stopped")
		return nil
	default:
		s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		return fmt.Errorf("mcp server: %w", err)
	}
}

// generateRequestID creates a short request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
