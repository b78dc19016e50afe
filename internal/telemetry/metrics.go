// Package telemetry collects local search telemetry: which ranking
// answered, how often the cache and the embedding fallback were used,
// latency, popular query terms and queries that found nothing. Nothing
// is reported externally.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// =============================================================================
// Latency Buckets
// =============================================================================

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP1    LatencyBucket = "p1"    // <1ms
	BucketP10   LatencyBucket = "p10"   // 1-10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP500  LatencyBucket = "p500"  // 50-500ms
	BucketP5000 LatencyBucket = "p5000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch {
	case d < time.Millisecond:
		return BucketP1
	case d < 10*time.Millisecond:
		return BucketP10
	case d < 50*time.Millisecond:
		return BucketP50
	case d < 500*time.Millisecond:
		return BucketP500
	default:
		return BucketP5000
	}
}

// =============================================================================
// Query Event
// =============================================================================

// QueryEvent is one search call.
type QueryEvent struct {
	Query           string
	Method          string
	ResultCount     int
	Latency         time.Duration
	Timestamp       time.Time
	CacheHit        bool
	SemanticInvoked bool
	Fallback        bool
}

// IsZeroResult reports whether the query returned nothing.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// ExtractTerms lowercases query and returns its words of three or more
// bytes.
func ExtractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount is a term and how often it was searched.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// =============================================================================
// Snapshot
// =============================================================================

// Snapshot is a point-in-time copy of the collected metrics.
type Snapshot struct {
	TotalQueries        int64                   `json:"total_queries"`
	MethodCounts        map[string]int64        `json:"method_counts"`
	CacheHits           int64                   `json:"cache_hits"`
	SemanticInvocations int64                   `json:"semantic_invocations"`
	FallbackCount       int64                   `json:"fallback_count"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	TopTerms            []TermCount             `json:"top_terms"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	LatencyP50          time.Duration           `json:"latency_p50"`
	LatencyP95          time.Duration           `json:"latency_p95"`
	ExactRepeatCount    int64                   `json:"exact_repeat_count"`
	UniqueQueryCount    int64                   `json:"unique_query_count"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of queries that found nothing.
func (s *Snapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// CacheHitRate returns the share of queries answered from the query cache.
func (s *Snapshot) CacheHitRate() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(s.TotalQueries)
}

// =============================================================================
// Store
// =============================================================================

// Store persists metric deltas.
type Store interface {
	// SaveMethodCounts adds daily per-method counts.
	SaveMethodCounts(date string, counts map[string]int64) error

	// GetMethodCounts sums per-method counts over a date range.
	GetMethodCounts(from, to string) (map[string]int64, error)

	// UpsertTermCounts adds term frequencies.
	UpsertTermCounts(terms map[string]int64) error

	// GetTopTerms returns the most searched terms.
	GetTopTerms(limit int) ([]TermCount, error)

	// AddZeroResultQuery records a query that found nothing.
	AddZeroResultQuery(query string, timestamp time.Time) error

	// GetZeroResultQueries returns recent zero-result queries, newest first.
	GetZeroResultQueries(limit int) ([]string, error)

	// SaveLatencyCounts adds daily latency histogram counts.
	SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error

	// GetLatencyCounts sums the latency histogram over a date range.
	GetLatencyCounts(from, to string) (map[LatencyBucket]int64, error)

	Close() error
}

// =============================================================================
// Query Metrics
// =============================================================================

// Config configures a QueryMetrics collector.
type Config struct {
	TopTermsCapacity      int           // terms tracked (default: 100)
	ZeroResultsCapacity   int           // zero-result queries kept (default: 100)
	LatencySamples        int           // samples for percentiles (default: 1000)
	RecentQueriesCapacity int           // queries tracked for repeats (default: 500)
	FlushInterval         time.Duration // store flush period (default: 60s, 0 = manual)
	Logger                *slog.Logger
}

// DefaultConfig returns the default collector configuration.
func DefaultConfig() Config {
	return Config{
		TopTermsCapacity:      100,
		ZeroResultsCapacity:   100,
		LatencySamples:        1000,
		RecentQueriesCapacity: 500,
		FlushInterval:         60 * time.Second,
	}
}

// pending holds counts recorded since the last flush.
type pending struct {
	methods   map[string]int64
	terms     map[string]int64
	latencies map[LatencyBucket]int64
	zero      []QueryEvent
}

func newPending() pending {
	return pending{
		methods:   make(map[string]int64),
		terms:     make(map[string]int64),
		latencies: make(map[LatencyBucket]int64),
	}
}

// QueryMetrics aggregates QueryEvents in memory and optionally flushes
// deltas to a Store. Safe for concurrent use.
type QueryMetrics struct {
	mu sync.RWMutex

	methods       map[string]int64
	topTerms      *lru.Cache[string, int64]
	zeroResults   *CircularBuffer[string]
	latencies     map[LatencyBucket]int64
	samples       *CircularBuffer[time.Duration]
	recentQueries *lru.Cache[string, struct{}]
	total         int64
	zeroCount     int64
	cacheHits     int64
	semanticCalls int64
	fallbacks     int64
	exactRepeats  int64
	startTime     time.Time
	unflushed     pending

	store       Store
	config      Config
	logger      *slog.Logger
	flushTicker *time.Ticker
	stopCh      chan struct{}
	closed      bool
}

// NewQueryMetrics creates a collector with the default configuration.
// A nil store keeps metrics in memory only.
func NewQueryMetrics(store Store) *QueryMetrics {
	return NewQueryMetricsWithConfig(store, DefaultConfig())
}

// NewQueryMetricsWithConfig creates a collector with cfg.
func NewQueryMetricsWithConfig(store Store, cfg Config) *QueryMetrics {
	def := DefaultConfig()
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = def.TopTermsCapacity
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = def.ZeroResultsCapacity
	}
	if cfg.LatencySamples <= 0 {
		cfg.LatencySamples = def.LatencySamples
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = def.RecentQueriesCapacity
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recent, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)

	m := &QueryMetrics{
		methods:       make(map[string]int64),
		topTerms:      topTerms,
		zeroResults:   NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		latencies:     make(map[LatencyBucket]int64),
		samples:       NewCircularBuffer[time.Duration](cfg.LatencySamples),
		recentQueries: recent,
		startTime:     time.Now(),
		unflushed:     newPending(),
		store:         store,
		config:        cfg,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}

	if cfg.FlushInterval > 0 && store != nil {
		m.flushTicker = time.NewTicker(cfg.FlushInterval)
		go m.flushLoop()
	}
	return m
}

func (m *QueryMetrics) flushLoop() {
	for {
		select {
		case <-m.flushTicker.C:
			if err := m.Flush(); err != nil {
				m.logger.Warn("telemetry flush failed", slog.String("error", err.Error()))
			}
		case <-m.stopCh:
			return
		}
	}
}

// Record adds one search call.
func (m *QueryMetrics) Record(event QueryEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.total++
	m.methods[event.Method]++
	m.unflushed.methods[event.Method]++
	if event.CacheHit {
		m.cacheHits++
	}
	if event.SemanticInvoked {
		m.semanticCalls++
	}
	if event.Fallback {
		m.fallbacks++
	}

	for _, term := range ExtractTerms(event.Query) {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
		m.unflushed.terms[term]++
	}

	if event.IsZeroResult() {
		m.zeroResults.Add(event.Query)
		m.zeroCount++
		m.unflushed.zero = append(m.unflushed.zero, event)
	}

	bucket := LatencyToBucket(event.Latency)
	m.latencies[bucket]++
	m.unflushed.latencies[bucket]++
	m.samples.Add(event.Latency)

	key := hashQuery(event.Query)
	if _, seen := m.recentQueries.Get(key); seen {
		m.exactRepeats++
	}
	m.recentQueries.Add(key, struct{}{})
}

// hashQuery normalizes and hashes a query for repeat detection.
func hashQuery(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return hex.EncodeToString(sum[:16])
}

// Snapshot returns the current metrics.
func (m *QueryMetrics) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	methods := make(map[string]int64, len(m.methods))
	for k, v := range m.methods {
		methods[k] = v
	}
	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	var topTerms []TermCount
	for _, key := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(key); ok {
			topTerms = append(topTerms, TermCount{Term: key, Count: count})
		}
	}
	sort.SliceStable(topTerms, func(i, j int) bool {
		return topTerms[i].Count > topTerms[j].Count
	})

	p50, p95 := percentiles(m.samples.Items())

	return &Snapshot{
		TotalQueries:        m.total,
		MethodCounts:        methods,
		CacheHits:           m.cacheHits,
		SemanticInvocations: m.semanticCalls,
		FallbackCount:       m.fallbacks,
		ZeroResultCount:     m.zeroCount,
		ZeroResultQueries:   m.zeroResults.Items(),
		TopTerms:            topTerms,
		LatencyDistribution: latencies,
		LatencyP50:          p50,
		LatencyP95:          p95,
		ExactRepeatCount:    m.exactRepeats,
		UniqueQueryCount:    int64(m.recentQueries.Len()),
		Since:               m.startTime,
	}
}

func percentiles(samples []time.Duration) (p50, p95 time.Duration) {
	if len(samples) == 0 {
		return 0, 0
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	at := func(q float64) time.Duration {
		return samples[int(q*float64(len(samples)-1))]
	}
	return at(0.50), at(0.95)
}

// Flush writes the counts recorded since the previous flush to the store.
// Safe to call without a store.
func (m *QueryMetrics) Flush() error {
	if m.store == nil {
		return nil
	}

	m.mu.Lock()
	batch := m.unflushed
	m.unflushed = newPending()
	m.mu.Unlock()

	today := time.Now().Format("2006-01-02")
	if err := m.store.SaveMethodCounts(today, batch.methods); err != nil {
		return err
	}
	if err := m.store.UpsertTermCounts(batch.terms); err != nil {
		return err
	}
	if err := m.store.SaveLatencyCounts(today, batch.latencies); err != nil {
		return err
	}
	for _, ev := range batch.zero {
		if err := m.store.AddZeroResultQuery(ev.Query, ev.Timestamp); err != nil {
			return err
		}
	}
	return nil
}

// Close stops the flush loop, flushes and closes the store.
func (m *QueryMetrics) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	if m.flushTicker != nil {
		m.flushTicker.Stop()
		close(m.stopCh)
	}
	if err := m.Flush(); err != nil {
		return err
	}
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}
