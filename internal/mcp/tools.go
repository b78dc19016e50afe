package mcp

// SearchInput is the input schema of search_job_titles.
type SearchInput struct {
	Query          string   `json:"query" jsonschema:"free-text job title to match, at least two characters"`
	Limit          int      `json:"limit,omitempty" jsonschema:"maximum number of suggestions, default 15"`
	FuzzyThreshold *float64 `json:"fuzzy_threshold,omitempty" jsonschema:"lexical score 0-100 at or above which embedding search is skipped, default 85"`
}

// SearchOutput is the output schema of search_job_titles.
type SearchOutput struct {
	Suggestions  []SuggestionOutput `json:"suggestions" jsonschema:"ranked job titles"`
	TotalMatches int                `json:"total_matches" jsonschema:"number of suggestions returned"`
}

// SuggestionOutput is one ranked title.
type SuggestionOutput struct {
	Title            string  `json:"job_title" jsonschema:"canonical job title"`
	Confidence       float64 `json:"confidence" jsonschema:"match confidence 0-100"`
	Method           string  `json:"match_method" jsonschema:"fuzzy for lexical matches, vector for embedding matches"`
	Industry         string  `json:"industry"`
	Location         string  `json:"location"`
	AutomationRisk   float64 `json:"automation_risk"`
	GrowthProjection float64 `json:"growth_projection"`
}

// LookupInput is the input schema of lookup_job.
type LookupInput struct {
	JobTitle string `json:"job_title" jsonschema:"job title to resolve"`
	Industry string `json:"industry,omitempty" jsonschema:"industry used when the title is unknown"`
}

// LookupOutput is the output schema of lookup_job.
type LookupOutput struct {
	Title            string  `json:"job_title"`
	Industry         string  `json:"industry"`
	Location         string  `json:"location"`
	AutomationRisk   float64 `json:"automation_risk"`
	GrowthProjection float64 `json:"growth_projection"`
	Confidence       string  `json:"confidence" jsonschema:"high when the record was found, low for the default record"`
	Source           string  `json:"source" jsonschema:"rule that resolved the title: exact, substring, industry or default"`
}

// IndexStatusInput is the input schema of index_status (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput is the output schema of index_status.
type IndexStatusOutput struct {
	Jobs          int         `json:"jobs"`
	Semantic      bool        `json:"semantic" jsonschema:"true when weak lexical matches fall back to embedding search"`
	Reason        string      `json:"reason,omitempty" jsonschema:"why embedding search is off"`
	Model         string      `json:"model,omitempty"`
	Dimensions    int         `json:"dimensions"`
	CachedQueries int         `json:"cached_queries"`
	LoadedAt      string      `json:"loaded_at"`
	Queries       *QueryStats `json:"queries,omitempty"`
}

// QueryStats summarizes query telemetry since start.
type QueryStats struct {
	Total           int64            `json:"total"`
	ByMethod        map[string]int64 `json:"by_method"`
	CacheHitRate    float64          `json:"cache_hit_rate"`
	Fallbacks       int64            `json:"fallbacks"`
	ZeroResultPct   float64          `json:"zero_result_pct"`
	LatencyP50Milli float64          `json:"latency_p50_ms"`
	LatencyP95Milli float64          `json:"latency_p95_ms"`
}
