package embed

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	tserrors "github.com/Aman-CERP/titlesearch/internal/errors"
)

// Factory constructs an embedder. It is called at most once per Lazy.
type Factory func(ctx context.Context) (Embedder, error)

// Lazy defers construction of an expensive embedder until first use.
// Concurrent first callers wait on the same construction; a failure is
// remembered and every later call reports the model as unavailable.
// ModelName and, when configured, Dimensions are answered without
// constructing the model.
type Lazy struct {
	factory Factory
	model   string
	dims    int
	timeout time.Duration
	logger  *slog.Logger

	once  sync.Once
	done  atomic.Bool
	inner Embedder
	err   error
	calls atomic.Int32
}

var _ Embedder = (*Lazy)(nil)

// LazyOption configures a Lazy.
type LazyOption func(*Lazy)

// WithInitTimeout bounds construction time.
func WithInitTimeout(d time.Duration) LazyOption {
	return func(l *Lazy) { l.timeout = d }
}

// WithLazyLogger sets the logger.
func WithLazyLogger(logger *slog.Logger) LazyOption {
	return func(l *Lazy) { l.logger = logger }
}

// NewLazy returns a Lazy for model. dims may be 0 when the dimension is
// only known once the model is up.
func NewLazy(model string, dims int, factory Factory, opts ...LazyOption) *Lazy {
	l := &Lazy{
		factory: factory,
		model:   model,
		dims:    dims,
		timeout: DefaultInitTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Get returns the constructed embedder, building it on first call.
// Construction runs detached from ctx's cancellation so one impatient
// caller cannot poison the shared instance.
func (l *Lazy) Get(ctx context.Context) (Embedder, error) {
	l.once.Do(func() {
		l.calls.Add(1)
		initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()

		start := time.Now()
		inner, err := l.factory(initCtx)
		if err != nil {
			l.err = tserrors.New(tserrors.ErrCodeEmbedderUnavailable,
				"embedding model "+l.model+" unavailable", err).
				WithSuggestion("semantic search is disabled; lexical matching continues")
			l.logger.Warn("embedding model init failed",
				slog.String("model", l.model),
				slog.String("error", err.Error()))
		} else {
			l.inner = inner
			l.logger.Info("embedding model ready",
				slog.String("model", inner.ModelName()),
				slog.Int("dimensions", inner.Dimensions()),
				slog.Duration("took", time.Since(start)))
		}
		l.done.Store(true)
	})
	return l.inner, l.err
}

// Initialized reports whether construction has run, successfully or not.
func (l *Lazy) Initialized() bool { return l.done.Load() }

// InitCalls returns how many times the factory ran (0 or 1).
func (l *Lazy) InitCalls() int { return int(l.calls.Load()) }

// Embed implements Embedder.
func (l *Lazy) Embed(ctx context.Context, text string) ([]float32, error) {
	inner, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return inner.Embed(ctx, text)
}

// EmbedBatch implements Embedder.
func (l *Lazy) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	inner, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return inner.EmbedBatch(ctx, texts)
}

// Dimensions implements Embedder.
func (l *Lazy) Dimensions() int {
	if l.dims > 0 {
		return l.dims
	}
	if l.done.Load() && l.inner != nil {
		return l.inner.Dimensions()
	}
	return 0
}

// ModelName implements Embedder.
func (l *Lazy) ModelName() string {
	if l.model != "" {
		return l.model
	}
	if l.done.Load() && l.inner != nil {
		return l.inner.ModelName()
	}
	return ""
}

// Available implements Embedder. It triggers construction.
func (l *Lazy) Available(ctx context.Context) bool {
	inner, err := l.Get(ctx)
	return err == nil && inner.Available(ctx)
}

// Close implements Embedder.
func (l *Lazy) Close() error {
	if l.done.Load() && l.inner != nil {
		return l.inner.Close()
	}
	return nil
}
