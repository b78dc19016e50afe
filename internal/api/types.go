package api

import (
	"github.com/Aman-CERP/titlesearch/internal/corpus"
	"github.com/Aman-CERP/titlesearch/internal/search"
	"github.com/Aman-CERP/titlesearch/internal/telemetry"
)

// SearchRequest is the body of POST /api/job-search.
type SearchRequest struct {
	Query          string   `json:"query" description:"free-text job title query"`
	Limit          int      `json:"limit,omitempty" description:"maximum number of suggestions"`
	FuzzyThreshold *float64 `json:"fuzzy_threshold,omitempty" description:"lexical score (0-100) that skips embedding search"`
}

// SearchResponse carries ranked suggestions. TotalMatches is omitted when
// the query was too short to search.
type SearchResponse struct {
	Suggestions  []*search.Result `json:"suggestions"`
	TotalMatches *int             `json:"total_matches,omitempty"`
}

// LookupRequest is the body of POST /api/job-lookup.
type LookupRequest struct {
	JobTitle string `json:"job_title"`
	Industry string `json:"industry,omitempty"`
}

// HealthResponse reports serving state.
type HealthResponse struct {
	Status   string `json:"status"`
	Jobs     int    `json:"jobs"`
	Semantic bool   `json:"semantic"`
	Model    string `json:"model,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// StatsResponse combines query telemetry with a corpus summary.
type StatsResponse struct {
	Queries *telemetry.Snapshot `json:"queries,omitempty"`
	Corpus  corpus.Summary      `json:"corpus"`
	Index   search.Status       `json:"index"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
