package preflight

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Aman-CERP/titlesearch/internal/corpus"
	"github.com/Aman-CERP/titlesearch/internal/embed"
	"github.com/Aman-CERP/titlesearch/internal/index"
	"github.com/Aman-CERP/titlesearch/internal/logging"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the status by name.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// UnmarshalText decodes a status name written by MarshalText.
func (s *CheckStatus) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "pass":
		*s = StatusPass
	case "warn":
		*s = StatusWarn
	case "fail":
		*s = StatusFail
	default:
		return fmt.Errorf("unknown check status %q", text)
	}
	return nil
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Target is what the checks inspect.
type Target struct {
	IndexPath string
	Dataset   string
	Table     string

	// Model encodes queries. Nil means semantic search is disabled.
	Model embed.Embedder

	// TelemetryPath is the metrics database. Empty means disabled.
	TelemetryPath string
}

// Checker performs preflight validation checks.
type Checker struct {
	target       Target
	verbose      bool
	output       io.Writer
	embedTimeout time.Duration
	logger       *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithVerbose enables verbose output.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) {
		c.verbose = verbose
	}
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) {
		c.output = w
	}
}

// WithEmbedTimeout bounds the embedder probe (default: 15s).
func WithEmbedTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.embedTimeout = d
		}
	}
}

// WithLogger sets the logger passed to the index loader.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) { c.logger = logger }
}

// New creates a new Checker for target.
func New(target Target, opts ...Option) *Checker {
	c := &Checker{
		target:       target,
		output:       os.Stdout,
		embedTimeout: 15 * time.Second,
		logger:       logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs all preflight checks and returns the results.
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	dir := filepath.Dir(c.target.IndexPath)
	return []CheckResult{
		c.CheckWritePermissions(dir),
		c.CheckDiskSpace(dir),
		c.CheckIndex(),
		c.CheckDataset(),
		c.CheckEmbedder(ctx),
		c.CheckTelemetry(),
	}
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns a summary status string for the results.
func (c *Checker) SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	hasCriticalFailure := false

	for _, r := range results {
		if r.IsCritical() {
			hasCriticalFailure = true
		}
		if r.Status == StatusWarn || (r.Status == StatusFail && !r.Required) {
			hasWarnings = true
		}
	}

	if hasCriticalFailure {
		return "failed"
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults prints check results to the configured output.
func (c *Checker) PrintResults(results []CheckResult) {
	_, _ = fmt.Fprintln(c.output, "titlesearch doctor")
	_, _ = fmt.Fprintln(c.output, "==================")
	_, _ = fmt.Fprintln(c.output)

	for _, r := range results {
		_, _ = fmt.Fprintf(c.output, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(c.output, "      %s\n", r.Details)
		}
	}

	_, _ = fmt.Fprintln(c.output)
	_, _ = fmt.Fprintf(c.output, "Status: %s\n", strings.ToUpper(c.SummaryStatus(results)))

	var failures []string
	for _, r := range results {
		if r.IsCritical() {
			failures = append(failures, r.Name+": "+r.Message)
		}
	}
	if len(failures) > 0 {
		_, _ = fmt.Fprintln(c.output)
		_, _ = fmt.Fprintf(c.output, "%d error(s):\n", len(failures))
		for _, f := range failures {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", f)
		}
	}
}

// CheckWritePermissions checks that the index directory accepts new files.
func (c *Checker) CheckWritePermissions(dir string) CheckResult {
	result := CheckResult{
		Name:     "write_permissions",
		Required: true,
	}

	f, err := os.CreateTemp(dir, ".titlesearch-preflight-*")
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot write to %s: %v", dir, err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(f.Name())

	result.Status = StatusPass
	result.Message = "OK"
	return result
}

// CheckIndex loads the artifact the way serve does. A degraded semantic
// tier is a warning; a missing or corrupt artifact is a failure.
func (c *Checker) CheckIndex() CheckResult {
	result := CheckResult{
		Name:     "index",
		Required: true,
		Details:  c.target.IndexPath,
	}

	opts := index.LoadOptions{Logger: c.logger}
	if c.target.Model != nil {
		opts.ExpectedModel = c.target.Model.ModelName()
	}
	loaded, err := index.Load(c.target.IndexPath, opts)
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}

	md := loaded.File.Metadata
	result.Message = fmt.Sprintf("%d jobs, %d cached queries", loaded.Corpus.Len(), len(loaded.File.QueryCache))
	switch {
	case loaded.SemanticErr != nil:
		result.Status = StatusWarn
		result.Message += "; lexical only: " + loaded.SemanticErr.Error()
	case len(loaded.Embeddings) == 0:
		result.Status = StatusWarn
		result.Message += "; lexical only: no embeddings"
	default:
		result.Status = StatusPass
		result.Message += fmt.Sprintf("; %s (%d dims)", md.Model, md.EmbeddingDim)
	}
	return result
}

// CheckDataset checks that the dataset reference resolves. Database
// datasets are not contacted.
func (c *Checker) CheckDataset() CheckResult {
	result := CheckResult{Name: "dataset"}

	p, err := corpus.NewProvider(c.target.Dataset, c.target.Table)
	if err != nil {
		result.Status = StatusWarn
		result.Message = err.Error()
		return result
	}
	result.Details = p.Name()

	var file string
	switch prov := p.(type) {
	case *corpus.CSVProvider:
		file = prov.Path
	case *corpus.SQLiteProvider:
		file = prov.Path
	}
	if file != "" {
		if _, err := os.Stat(file); err != nil {
			result.Status = StatusWarn
			result.Message = fmt.Sprintf("dataset not readable: %v", err)
			return result
		}
	}

	result.Status = StatusPass
	result.Message = p.Name()
	return result
}

// CheckEmbedder asks the model whether it can encode queries. Semantic
// search is optional, so a failure here only warns.
func (c *Checker) CheckEmbedder(ctx context.Context) CheckResult {
	result := CheckResult{Name: "embedder"}

	if c.target.Model == nil {
		result.Status = StatusWarn
		result.Message = "disabled (provider none), searches are lexical only"
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, c.embedTimeout)
	defer cancel()

	name := c.target.Model.ModelName()
	if !c.target.Model.Available(ctx) {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s unavailable, searches fall back to lexical", name)
		return result
	}

	start := time.Now()
	vec, err := c.target.Model.Embed(ctx, "software engineer")
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s failed to embed: %v", name, err)
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s (%d dims)", name, len(vec))
	result.Details = fmt.Sprintf("probe embed took %s", time.Since(start).Round(time.Millisecond))
	return result
}

// CheckTelemetry checks that the metrics database directory is writable.
func (c *Checker) CheckTelemetry() CheckResult {
	result := CheckResult{Name: "telemetry"}

	if c.target.TelemetryPath == "" {
		result.Status = StatusPass
		result.Message = "disabled"
		return result
	}

	dir := filepath.Dir(c.target.TelemetryPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot create %s, metrics stay in memory: %v", dir, err)
		return result
	}
	if wr := c.CheckWritePermissions(dir); wr.Status != StatusPass {
		result.Status = StatusWarn
		result.Message = wr.Message + ", metrics stay in memory"
		return result
	}

	result.Status = StatusPass
	result.Message = c.target.TelemetryPath
	return result
}
