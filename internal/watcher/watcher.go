package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Operation is a file system operation.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
	OpRename
)

// String returns the operation name.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is a change to the watched file.
type FileEvent struct {
	Path      string
	Operation Operation
	Timestamp time.Time
}

// Handler is called once per debounced change. An error is logged and
// watching continues.
type Handler func(ctx context.Context, ev FileEvent) error

// Options configures the watcher.
type Options struct {
	// DebounceWindow is the quiet period before a change is reported.
	// Default: 200ms
	DebounceWindow time.Duration

	// PollInterval is the polling period when fsnotify is unavailable.
	// Default: 5s
	PollInterval time.Duration

	// ForcePolling skips fsnotify.
	ForcePolling bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow: 200 * time.Millisecond,
		PollInterval:   5 * time.Second,
	}
}

// WithDefaults fills zero values from DefaultOptions.
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = def.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = def.PollInterval
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// FileWatcher watches one file.
type FileWatcher struct {
	path string
	opts Options
}

// New creates a watcher for path.
func New(path string, opts Options) *FileWatcher {
	return &FileWatcher{path: path, opts: opts.WithDefaults()}
}

// Run watches until ctx is cancelled and calls fn for every debounced
// change that leaves the file in place. Deletions are logged and skipped.
func (w *FileWatcher) Run(ctx context.Context, fn Handler) error {
	abs, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("resolve watch path: %w", err)
	}
	logger := w.opts.Logger

	deb := NewDebouncer(w.opts.DebounceWindow)
	deb.logger = logger
	defer deb.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	if w.opts.ForcePolling {
		go func() { errCh <- w.poll(ctx, abs, deb) }()
	} else {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			err = fsw.Add(filepath.Dir(abs))
		}
		if err != nil {
			logger.Warn("fsnotify unavailable, polling index file",
				slog.String("path", abs),
				slog.String("error", err.Error()),
				slog.Duration("interval", w.opts.PollInterval))
			if fsw != nil {
				_ = fsw.Close()
			}
			go func() { errCh <- w.poll(ctx, abs, deb) }()
		} else {
			go func() { errCh <- w.notify(ctx, fsw, abs, deb) }()
		}
	}

	logger.Info("watching file", slog.String("path", abs))
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			return err
		case batch := <-deb.Output():
			for _, ev := range batch {
				if ev.Operation == OpDelete {
					logger.Warn("watched file removed, keeping current state", slog.String("path", ev.Path))
					continue
				}
				if err := fn(ctx, ev); err != nil {
					logger.Error("file change handler failed",
						slog.String("path", ev.Path),
						slog.String("op", ev.Operation.String()),
						slog.String("error", err.Error()))
				}
			}
		}
	}
}

func (w *FileWatcher) notify(ctx context.Context, fsw *fsnotify.Watcher, abs string, deb *Debouncer) error {
	defer func() { _ = fsw.Close() }()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if op, ok := convertOp(event.Op); ok {
				deb.Add(FileEvent{Path: abs, Operation: op, Timestamp: time.Now()})
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.opts.Logger.Warn("file watcher error", slog.String("error", err.Error()))
		}
	}
}

// convertOp maps fsnotify operations. Renames away from the path and
// chmod-only events are ignored; a rename onto the path arrives as Create.
func convertOp(op fsnotify.Op) (Operation, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate, true
	case op.Has(fsnotify.Write):
		return OpModify, true
	case op.Has(fsnotify.Remove):
		return OpDelete, true
	case op.Has(fsnotify.Rename):
		return OpDelete, true
	}
	return 0, false
}

type fileState struct {
	exists  bool
	size    int64
	modTime time.Time
}

func stat(path string) fileState {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}
	}
	return fileState{exists: true, size: info.Size(), modTime: info.ModTime()}
}

func (w *FileWatcher) poll(ctx context.Context, abs string, deb *Debouncer) error {
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	last := stat(abs)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cur := stat(abs)
			ev := FileEvent{Path: abs, Timestamp: time.Now()}
			switch {
			case cur == last:
				continue
			case !last.exists:
				ev.Operation = OpCreate
			case !cur.exists:
				ev.Operation = OpDelete
			default:
				ev.Operation = OpModify
			}
			last = cur
			deb.Add(ev)
		}
	}
}
