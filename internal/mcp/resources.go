package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Resource URIs.
const (
	SummaryURI      = "titlesearch://corpus_summary"
	QueryMetricsURI = "titlesearch://query_metrics"
)

// summaryJobs is how many highest- and lowest-risk jobs the summary lists.
const summaryJobs = 10

func (s *Server) registerSummaryResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "corpus_summary",
			URI:         SummaryURI,
			Description: "Job count, industries, average automation risk and the highest- and lowest-risk jobs",
			MIMEType:    "application/json",
		},
		func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			summary := s.engine.Snapshot().Corpus().Summary(summaryJobs)
			return jsonResource(SummaryURI, summary)
		},
	)
}

func (s *Server) registerQueryMetricsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "query_metrics",
			URI:         QueryMetricsURI,
			Description: "Search telemetry: method counts, cache hits, fallbacks, latency and zero-result queries",
			MIMEType:    "application/json",
		},
		func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			s.mu.RLock()
			metrics := s.metrics
			s.mu.RUnlock()
			if metrics == nil {
				return nil, NewInvalidParamsError("query metrics not available")
			}
			return jsonResource(QueryMetricsURI, metrics.Snapshot())
		},
	)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
