package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/titlesearch/internal/corpus"
	"github.com/Aman-CERP/titlesearch/internal/embed"
	"github.com/Aman-CERP/titlesearch/internal/index"
	"github.com/Aman-CERP/titlesearch/internal/ui"
)

type buildOptions struct {
	dataset      string
	table        string
	output       string
	probesFile   string
	depth        int
	noEmbeddings bool
	plain        bool
}

// buildResult is the --json output of build.
type buildResult struct {
	Path       string  `json:"path"`
	Jobs       int     `json:"jobs"`
	Probes     int     `json:"cached_queries"`
	Model      string  `json:"model,omitempty"`
	Dimensions int     `json:"dimensions"`
	Seconds    float64 `json:"seconds"`
}

func newBuildCmd(a *app) *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the search index from a dataset",
		Long: `Build reads job records, embeds every title once, precomputes rankings
for common probe queries and writes the search index artifact.

Datasets:
  sample                      built-in records
  jobs.csv                    CSV with a header row
  jobs.db, sqlite:///jobs.db  SQLite table
  postgres://user@host/db     PostgreSQL table

Examples:
  titlesearch build --dataset jobs.csv
  titlesearch build --dataset postgres://localhost/hr --table roles -o hr.json
  titlesearch build --no-embeddings`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd.Context(), cmd, a, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.dataset, "dataset", "d", "", "Dataset to index (default: index.dataset)")
	cmd.Flags().StringVar(&opts.table, "table", "", "Table for SQL datasets (default: index.table)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Artifact path (default: index.path)")
	cmd.Flags().StringVar(&opts.probesFile, "probes", "", "File with one probe query per line")
	cmd.Flags().IntVar(&opts.depth, "depth", 0, "Results cached per probe (default: index.depth)")
	cmd.Flags().BoolVar(&opts.noEmbeddings, "no-embeddings", false, "Build a lexical-only index")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "Plain progress output (no TUI)")

	return cmd
}

func runBuild(ctx context.Context, cmd *cobra.Command, a *app, opts buildOptions) error {
	start := time.Now()
	cfg := a.cfg.Index
	if opts.dataset != "" {
		cfg.Dataset = opts.dataset
	}
	if opts.table != "" {
		cfg.Table = opts.table
	}
	if opts.output != "" {
		cfg.Path = opts.output
	}
	if opts.depth > 0 {
		cfg.Depth = opts.depth
	}

	probes := cfg.Probes
	if opts.probesFile != "" {
		p, err := readProbes(opts.probesFile)
		if err != nil {
			return err
		}
		probes = p
	}

	var model embed.Embedder
	if !opts.noEmbeddings {
		m, err := embed.NewFromConfig(ctx, embedConfig(a.cfg.Embeddings), a.logger)
		if err != nil {
			return err
		}
		model = m
	}
	if model != nil {
		defer func() { _ = model.Close() }()
	}

	// JSON output keeps stdout clean, so progress goes to stderr.
	renderer := ui.NewRenderer(ui.NewConfig(cmd.ErrOrStderr(),
		ui.WithForcePlain(opts.plain || a.jsonOut),
		ui.WithNoColor(a.noColor)))
	if err := renderer.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = renderer.Stop() }()

	provider, err := corpus.NewProvider(cfg.Dataset, cfg.Table)
	if err != nil {
		return err
	}
	renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageLoading, Message: provider.Name()})
	records, err := provider.Load(ctx)
	if err != nil {
		return err
	}

	if model != nil {
		renderer.UpdateProgress(ui.ProgressEvent{
			Stage:   ui.StageEmbedding,
			Message: fmt.Sprintf("%d titles with %s", len(records), model.ModelName()),
		})
	} else {
		renderer.Warn("embeddings disabled, the index serves lexical search only")
	}

	builderOpts := []index.BuilderOption{
		index.WithDepth(cfg.Depth),
		index.WithConcurrency(cfg.Concurrency),
		index.WithLogger(a.logger),
		index.WithProgress(func(done, total int) {
			renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageRanking, Current: done, Total: total})
		}),
	}
	if len(probes) > 0 {
		builderOpts = append(builderOpts, index.WithProbes(probes))
	}

	f, err := index.NewBuilder(model, builderOpts...).Build(ctx, records)
	if err != nil {
		return err
	}

	renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageSaving, Message: cfg.Path})
	if err := index.Save(cfg.Path, f); err != nil {
		return err
	}

	res := buildResult{
		Path:       cfg.Path,
		Jobs:       f.Metadata.TotalJobs,
		Probes:     len(f.QueryCache),
		Model:      f.Metadata.Model,
		Dimensions: f.Metadata.EmbeddingDim,
		Seconds:    time.Since(start).Seconds(),
	}
	renderer.Complete(ui.CompletionStats{
		Jobs:       res.Jobs,
		Probes:     res.Probes,
		Model:      res.Model,
		Dimensions: res.Dimensions,
		Path:       res.Path,
		Duration:   time.Since(start),
	})
	a.logger.Info("build complete",
		slog.String("path", res.Path),
		slog.Int("jobs", res.Jobs),
		slog.Int("probes", res.Probes))

	if a.jsonOut {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	return nil
}

// readProbes reads one probe per line, skipping blanks and # comments.
func readProbes(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open probes file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var probes []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		probes = append(probes, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read probes file: %w", err)
	}
	return probes, nil
}
