package search

import (
	"time"

	"github.com/Aman-CERP/titlesearch/internal/index"
)

// Method names the ranking behind a result list.
type Method = index.Method

const (
	MethodLexical  = index.MethodLexical
	MethodSemantic = index.MethodSemantic
)

// Result is one ranked title enriched with its record.
type Result struct {
	Title            string  `json:"job_title"`
	Confidence       float64 `json:"confidence"`
	Method           Method  `json:"match_method"`
	Industry         string  `json:"industry"`
	Location         string  `json:"location"`
	AutomationRisk   float64 `json:"automation_risk"`
	GrowthProjection float64 `json:"growth_projection"`
}

// Options are per-call overrides. Zero values use the engine config.
type Options struct {
	// Limit caps the number of results (default: Config.DefaultLimit).
	Limit int

	// FuzzyThreshold overrides Config.FuzzyThreshold when set.
	FuzzyThreshold *float64
}

// Threshold returns a pointer to t for use in Options.
func Threshold(t float64) *float64 { return &t }

// Config configures the engine.
type Config struct {
	// FuzzyThreshold is the lexical score at or above which lexical
	// results are returned without consulting embeddings (default: 85).
	FuzzyThreshold float64

	// DefaultLimit is the default number of results (default: 15).
	DefaultLimit int

	// MaxLimit is the maximum allowed results (default: 100).
	MaxLimit int

	// ClampSemanticConfidence reports negative similarity as 0.
	ClampSemanticConfidence bool

	// UseQueryCache consults precomputed rankings before live ranking.
	UseQueryCache bool

	// SemanticTimeout bounds query encoding (default: 10s). On timeout
	// the lexical results are returned.
	SemanticTimeout time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		FuzzyThreshold:          85,
		DefaultLimit:            15,
		MaxLimit:                100,
		ClampSemanticConfidence: true,
		UseQueryCache:           true,
		SemanticTimeout:         10 * time.Second,
	}
}

// Decision describes how one Search call produced its results.
type Decision struct {
	Query           string
	Method          Method
	BestLexical     float64
	SemanticInvoked bool
	CacheHit        bool
	Fallback        bool
	Results         int
	Latency         time.Duration
}

// Observer receives a Decision after every Search call. It runs on the
// caller's goroutine and must not block.
type Observer func(Decision)

// Status summarizes the serving snapshot.
type Status struct {
	Jobs              int       `json:"jobs"`
	SemanticAvailable bool      `json:"semantic"`
	Reason            string    `json:"reason,omitempty"`
	Model             string    `json:"model,omitempty"`
	Dimensions        int       `json:"dimensions"`
	CachedQueries     int       `json:"cached_queries"`
	LoadedAt          time.Time `json:"loaded_at"`
}
