// Package validation runs relevance queries against a loaded index through
// the MCP tool surface, the same path an MCP client takes.
//
// Queries are data-driven: the built-in set in queries.yaml targets the
// sample dataset, and LoadQueries reads the same format from any file so
// a deployment can check its own corpus without a rebuild.
package validation

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/titlesearch/internal/mcp"
)

// DefaultWithin is the rank cutoff used when a query sets none.
const DefaultWithin = 3

//go:embed queries.yaml
var defaultQueries []byte

// Tier groups queries by what they exercise.
type Tier string

const (
	TierLexical  Tier = "tier1"
	TierSemantic Tier = "tier2"
	TierNegative Tier = "negative"
)

// QuerySpec defines a query with its expected results.
type QuerySpec struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Query       string   `yaml:"query" json:"query"`
	Expected    []string `yaml:"expected" json:"expected,omitempty"`
	Within      int      `yaml:"within" json:"within,omitempty"`
	Method      string   `yaml:"method" json:"method,omitempty"`
	Threshold   *float64 `yaml:"threshold" json:"threshold,omitempty"`
	ExpectEmpty bool     `yaml:"expect_empty" json:"expect_empty,omitempty"`
	Notes       string   `yaml:"notes" json:"notes,omitempty"`
	Tier        Tier     `yaml:"-" json:"tier"`
}

// QueryConfig holds all validation queries.
type QueryConfig struct {
	Tier1    []QuerySpec `yaml:"tier1"`
	Tier2    []QuerySpec `yaml:"tier2"`
	Negative []QuerySpec `yaml:"negative"`
}

// DefaultQueries returns the built-in queries for the sample dataset.
func DefaultQueries() (*QueryConfig, error) {
	return ParseQueries(defaultQueries)
}

// LoadQueries reads queries from a YAML file.
func LoadQueries(path string) (*QueryConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read queries file %s: %w", path, err)
	}
	return ParseQueries(data)
}

// ParseQueries decodes and checks a query file.
func ParseQueries(data []byte) (*QueryConfig, error) {
	var cfg QueryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse queries YAML: %w", err)
	}

	for i := range cfg.Tier1 {
		cfg.Tier1[i].Tier = TierLexical
	}
	for i := range cfg.Tier2 {
		cfg.Tier2[i].Tier = TierSemantic
	}
	for i := range cfg.Negative {
		cfg.Negative[i].Tier = TierNegative
	}

	for _, q := range cfg.All() {
		if q.ID == "" {
			return nil, fmt.Errorf("query %q has no id", q.Query)
		}
		if q.Tier != TierNegative && len(q.Expected) == 0 {
			return nil, fmt.Errorf("query %s has no expected titles", q.ID)
		}
		switch q.Method {
		case "", "fuzzy", "vector":
		default:
			return nil, fmt.Errorf("query %s: unknown method %q (want fuzzy or vector)", q.ID, q.Method)
		}
	}
	return &cfg, nil
}

// All returns every query in tier order.
func (c *QueryConfig) All() []QuerySpec {
	out := make([]QuerySpec, 0, len(c.Tier1)+len(c.Tier2)+len(c.Negative))
	out = append(out, c.Tier1...)
	out = append(out, c.Tier2...)
	return append(out, c.Negative...)
}

// TestResult captures the outcome of a single query.
type TestResult struct {
	Spec       QuerySpec     `json:"spec"`
	Passed     bool          `json:"passed"`
	Duration   time.Duration `json:"duration_ns"`
	TopResults []string      `json:"top_results"`
	TopMethod  string        `json:"top_method,omitempty"`
	MatchedAt  int           `json:"matched_at"`
	Reason     string        `json:"reason,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// TierSummary counts passes in one tier.
type TierSummary struct {
	Passed int `json:"passed"`
	Total  int `json:"total"`
}

// Rate returns the pass percentage, or 100 for an empty tier.
func (s TierSummary) Rate() float64 {
	if s.Total == 0 {
		return 100
	}
	return float64(s.Passed) / float64(s.Total) * 100
}

// Report captures a full validation run.
type Report struct {
	Timestamp time.Time            `json:"timestamp"`
	Jobs      int                  `json:"jobs"`
	Semantic  bool                 `json:"semantic"`
	Model     string               `json:"model,omitempty"`
	Results   []TestResult         `json:"results"`
	Tiers     map[Tier]TierSummary `json:"tiers"`
}

// Validator runs queries against an MCP server.
type Validator struct {
	server *mcp.Server
	limit  int
}

// Option configures a Validator.
type Option func(*Validator)

// WithLimit sets how many suggestions each query requests (default 10).
func WithLimit(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.limit = n
		}
	}
}

// New creates a validator over server.
func New(server *mcp.Server, opts ...Option) *Validator {
	v := &Validator{server: server, limit: 10}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// RunQuery executes a single query and grades it.
func (v *Validator) RunQuery(ctx context.Context, spec QuerySpec) TestResult {
	result := TestResult{Spec: spec, MatchedAt: -1}

	args := map[string]any{
		"query": spec.Query,
		"limit": float64(v.limit),
	}
	if spec.Threshold != nil {
		args["fuzzy_threshold"] = *spec.Threshold
	}

	start := time.Now()
	resp, err := v.server.CallTool(ctx, mcp.ToolSearch, args)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	out, ok := resp.(mcp.SearchOutput)
	if !ok {
		result.Error = fmt.Sprintf("unexpected %s response %T", mcp.ToolSearch, resp)
		return result
	}
	for _, s := range out.Suggestions {
		result.TopResults = append(result.TopResults, s.Title)
	}
	if len(out.Suggestions) > 0 {
		result.TopMethod = out.Suggestions[0].Method
	}

	result.Passed, result.MatchedAt, result.Reason = grade(spec, result.TopResults, result.TopMethod)
	return result
}

func grade(spec QuerySpec, titles []string, method string) (bool, int, string) {
	if spec.Tier == TierNegative {
		if spec.ExpectEmpty && len(titles) > 0 {
			return false, -1, fmt.Sprintf("expected no suggestions, got %d", len(titles))
		}
		return true, -1, ""
	}

	within := spec.Within
	if within <= 0 {
		within = DefaultWithin
	}
	at := findExpected(titles, spec.Expected)
	switch {
	case at < 0:
		return false, -1, "no expected title returned"
	case at >= within:
		return false, at, fmt.Sprintf("expected title ranked %d, cutoff %d", at+1, within)
	case spec.Method != "" && method != spec.Method:
		return false, at, fmt.Sprintf("top result method %q, want %q", method, spec.Method)
	}
	return true, at, ""
}

// findExpected returns the first rank holding an expected title.
func findExpected(titles, expected []string) int {
	for i, title := range titles {
		for _, exp := range expected {
			if strings.EqualFold(strings.TrimSpace(title), strings.TrimSpace(exp)) {
				return i
			}
		}
	}
	return -1
}

// RunAll executes every query in cfg.
func (v *Validator) RunAll(ctx context.Context, cfg *QueryConfig) (*Report, error) {
	report := &Report{
		Timestamp: time.Now(),
		Tiers:     make(map[Tier]TierSummary, 3),
	}

	if st, err := v.server.CallTool(ctx, mcp.ToolIndexStatus, nil); err == nil {
		if out, ok := st.(mcp.IndexStatusOutput); ok {
			report.Jobs = out.Jobs
			report.Semantic = out.Semantic
			report.Model = out.Model
		}
	}

	for _, spec := range cfg.All() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		tr := v.RunQuery(ctx, spec)
		report.Results = append(report.Results, tr)

		sum := report.Tiers[spec.Tier]
		sum.Total++
		if tr.Passed {
			sum.Passed++
		}
		report.Tiers[spec.Tier] = sum
	}
	return report, nil
}

// Failures returns the results that did not pass.
func (r *Report) Failures() []TestResult {
	var out []TestResult
	for _, tr := range r.Results {
		if !tr.Passed {
			out = append(out, tr)
		}
	}
	return out
}
