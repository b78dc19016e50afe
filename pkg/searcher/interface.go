package searcher

import (
	"context"
	"errors"
)

// ErrClosed is returned by a searcher used after Close.
var ErrClosed = errors.New("searcher is closed")

// ErrEmptyPath is returned when Open is called without an artifact path.
var ErrEmptyPath = errors.New("index path is required")

// Method names the ranking that produced a result.
const (
	MethodFuzzy  = "fuzzy"
	MethodVector = "vector"
)

// Searcher performs job-title searches and returns ranked results.
//
// Implementations must be thread-safe for concurrent use.
type Searcher interface {
	// Search ranks titles against query and returns at most limit results.
	// A limit of zero uses the default. Queries shorter than two
	// characters return an empty slice (not nil).
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Result is one ranked job title with its record.
type Result struct {
	// Title is the canonical job title.
	Title string `json:"job_title"`

	// Confidence is the match score, 0-100.
	Confidence float64 `json:"confidence"`

	// Method is MethodFuzzy or MethodVector.
	Method string `json:"match_method"`

	Industry         string  `json:"industry"`
	Location         string  `json:"location"`
	AutomationRisk   float64 `json:"automation_risk"`
	GrowthProjection float64 `json:"growth_projection"`
}

// Record is a resolved job record from Lookup.
type Record struct {
	Title            string  `json:"job_title"`
	Industry         string  `json:"industry"`
	Location         string  `json:"location"`
	AutomationRisk   float64 `json:"automation_risk"`
	GrowthProjection float64 `json:"growth_projection"`

	// Found is false when no title or industry matched and the default
	// record was returned.
	Found bool `json:"found"`

	// Source is the rule that resolved the title: exact, substring,
	// industry or default.
	Source string `json:"source"`
}

// Status describes the loaded artifact.
type Status struct {
	Jobs          int    `json:"jobs"`
	Semantic      bool   `json:"semantic"`
	Reason        string `json:"reason,omitempty"`
	Model         string `json:"model,omitempty"`
	Dimensions    int    `json:"dimensions"`
	CachedQueries int    `json:"cached_queries"`
}
