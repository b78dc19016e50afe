package cmd

import (
	"context"
	"log/slog"

	"github.com/Aman-CERP/titlesearch/internal/config"
	"github.com/Aman-CERP/titlesearch/internal/embed"
	"github.com/Aman-CERP/titlesearch/internal/index"
	"github.com/Aman-CERP/titlesearch/internal/search"
	"github.com/Aman-CERP/titlesearch/internal/semantic"
	"github.com/Aman-CERP/titlesearch/internal/telemetry"
)

// runtimeDeps is everything a serving command needs. close releases the
// embedder and flushes telemetry.
type runtimeDeps struct {
	engine  *search.Engine
	model   embed.Embedder
	metrics *telemetry.QueryMetrics
	path    string
}

func (d *runtimeDeps) close(logger *slog.Logger) {
	if d.metrics != nil {
		if err := d.metrics.Close(); err != nil {
			logger.Warn("failed to flush telemetry", slog.String("error", err.Error()))
		}
	}
	if d.model != nil {
		_ = d.model.Close()
	}
}

func embedConfig(c config.EmbeddingsConfig) embed.Config {
	return embed.Config{
		Provider:      c.Provider,
		Model:         c.Model,
		Dimensions:    c.Dimensions,
		OllamaHost:    c.OllamaHost,
		OpenAIBaseURL: c.OpenAIBaseURL,
		OpenAIToken:   c.OpenAIToken,
		BedrockRegion: c.BedrockRegion,
		InitTimeout:   c.InitTimeout,
		CacheSize:     c.CacheSize,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisTTL:      c.RedisTTL,
	}
}

func searchConfig(c config.SearchConfig) search.Config {
	return search.Config{
		FuzzyThreshold:          c.FuzzyThreshold,
		DefaultLimit:            c.DefaultLimit,
		MaxLimit:                c.MaxLimit,
		ClampSemanticConfidence: c.ClampSemanticConfidence,
		UseQueryCache:           c.UseQueryCache,
		SemanticTimeout:         c.SemanticTimeout,
	}
}

// openMetrics opens the telemetry store. Failure degrades to in-memory
// metrics.
func openMetrics(cfg *config.Config, logger *slog.Logger) *telemetry.QueryMetrics {
	if !cfg.Telemetry.Enabled {
		return nil
	}
	path := cfg.Telemetry.Path
	if path == "" {
		path = config.DefaultTelemetryPath()
	}
	store, err := telemetry.OpenSQLiteMetricsStore(path)
	if err != nil {
		logger.Warn("telemetry store unavailable, keeping metrics in memory",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return telemetry.NewQueryMetrics(nil)
	}
	return telemetry.NewQueryMetrics(store)
}

// loadSnapshot reads the artifact and pairs it with the query encoder.
func loadSnapshot(path string, model embed.Embedder, logger *slog.Logger) (*search.Snapshot, error) {
	opts := index.LoadOptions{Logger: logger}
	if model != nil {
		opts.ExpectedModel = model.ModelName()
	}
	loaded, err := index.Load(path, opts)
	if err != nil {
		return nil, err
	}
	return search.SnapshotFromLoaded(loaded, model, semantic.WithLogger(logger)), nil
}

// openEngine loads the configured artifact into a new engine. The model is
// constructed lazily, so a lexical-only request never contacts it.
func (a *app) openEngine(ctx context.Context, withMetrics bool) (*runtimeDeps, error) {
	model, err := embed.NewFromConfig(ctx, embedConfig(a.cfg.Embeddings), a.logger)
	if err != nil {
		return nil, err
	}

	path := a.cfg.Index.Path
	snap, err := loadSnapshot(path, model, a.logger)
	if err != nil {
		if model != nil {
			_ = model.Close()
		}
		return nil, err
	}

	deps := &runtimeDeps{model: model, path: path}
	opts := []search.Option{search.WithLogger(a.logger)}
	if withMetrics {
		deps.metrics = openMetrics(a.cfg, a.logger)
		if deps.metrics != nil {
			opts = append(opts, search.WithMetrics(deps.metrics))
		}
	}
	deps.engine = search.New(snap, searchConfig(a.cfg.Search), opts...)

	st := deps.engine.Status()
	a.logger.Info("index loaded",
		slog.String("path", path),
		slog.Int("jobs", st.Jobs),
		slog.Bool("semantic", st.SemanticAvailable),
		slog.String("reason", st.Reason))
	return deps, nil
}
