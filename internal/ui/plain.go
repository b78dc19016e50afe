package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainRenderer prints one line per progress step, for CI and pipes.
type PlainRenderer struct {
	mu       sync.Mutex
	out      io.Writer
	lastPct  map[Stage]int
	warnings int
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{
		out:     cfg.Output,
		lastPct: make(map[Stage]int),
	}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(context.Context) error { return nil }

// UpdateProgress implements Renderer. Counted stages print at most once per
// ten percent.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Total > 0 {
		pct := event.Current * 100 / event.Total
		last, seen := r.lastPct[event.Stage]
		if seen && pct/10 == last/10 && event.Current != event.Total {
			return
		}
		r.lastPct[event.Stage] = pct
		_, _ = fmt.Fprintf(r.out, "[%s] %d/%d", event.Stage.Icon(), event.Current, event.Total)
		if event.Message != "" {
			_, _ = fmt.Fprintf(r.out, " - %s", event.Message)
		}
		_, _ = fmt.Fprintln(r.out)
		return
	}
	if event.Message != "" {
		_, _ = fmt.Fprintf(r.out, "[%s] %s\n", event.Stage.Icon(), event.Message)
	}
}

// Warn implements Renderer.
func (r *PlainRenderer) Warn(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings++
	_, _ = fmt.Fprintf(r.out, "WARN: %s\n", msg)
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.out, "Complete: %d jobs, %d cached queries in %s",
		stats.Jobs, stats.Probes, stats.Duration.Round(100*time.Millisecond))
	if stats.Warnings > 0 {
		_, _ = fmt.Fprintf(r.out, " (%d warnings)", stats.Warnings)
	}
	_, _ = fmt.Fprintln(r.out)

	if stats.Model != "" {
		_, _ = fmt.Fprintf(r.out, "Model: %s (%d dims)\n", stats.Model, stats.Dimensions)
	}
	if stats.Path != "" {
		_, _ = fmt.Fprintf(r.out, "Index: %s\n", stats.Path)
	}
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error { return nil }
