package ui

import (
	"sync"
	"time"
)

// ProgressTracker keeps build progress across stages. It is safe for
// concurrent use.
type ProgressTracker struct {
	mu         sync.RWMutex
	stage      Stage
	current    int
	total      int
	message    string
	startTime  time.Time
	stageStart time.Time
	warnings   []string

	// lastETA smooths the estimate between updates
	lastETA time.Duration
}

// ProgressStats is a snapshot of a tracker.
type ProgressStats struct {
	Stage     Stage
	Current   int
	Total     int
	Progress  float64
	ETA       time.Duration
	Message   string
	WarnCount int
}

// NewProgressTracker creates a tracker in StageLoading.
func NewProgressTracker() *ProgressTracker {
	now := time.Now()
	return &ProgressTracker{
		stage:      StageLoading,
		startTime:  now,
		stageStart: now,
	}
}

// SetStage moves to stage with a new total.
func (p *ProgressTracker) SetStage(stage Stage, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stage = stage
	p.total = total
	p.current = 0
	p.message = ""
	p.stageStart = time.Now()
	p.lastETA = 0
}

// Update records progress within the current stage.
func (p *ProgressTracker) Update(current int, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = current
	if message != "" {
		p.message = message
	}
}

// Warn records a warning.
func (p *ProgressTracker) Warn(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.warnings = append(p.warnings, msg)
}

// Warnings returns the recorded warnings.
func (p *ProgressTracker) Warnings() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.warnings))
	copy(out, p.warnings)
	return out
}

// Progress returns the fraction of the current stage done, in [0, 1].
func (p *ProgressTracker) Progress() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.progress()
}

func (p *ProgressTracker) progress() float64 {
	if p.total <= 0 {
		return 0
	}
	f := float64(p.current) / float64(p.total)
	if f > 1 {
		return 1
	}
	return f
}

// Elapsed returns the time since the tracker was created.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return time.Since(p.startTime)
}

// Stats returns a snapshot.
func (p *ProgressTracker) Stats() ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return ProgressStats{
		Stage:     p.stage,
		Current:   p.current,
		Total:     p.total,
		Progress:  p.progress(),
		ETA:       p.eta(),
		Message:   p.message,
		WarnCount: len(p.warnings),
	}
}

// eta linearly extrapolates the current stage, smoothed exponentially.
// Callers hold the write lock.
func (p *ProgressTracker) eta() time.Duration {
	if p.current <= 0 || p.total <= 0 || p.current >= p.total {
		return 0
	}
	elapsed := time.Since(p.stageStart)
	raw := time.Duration(float64(elapsed) / float64(p.current) * float64(p.total-p.current))
	if p.lastETA == 0 {
		p.lastETA = raw
	} else {
		p.lastETA = time.Duration(0.3*float64(raw) + 0.7*float64(p.lastETA))
	}
	return p.lastETA
}
