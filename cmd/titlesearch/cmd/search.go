package cmd

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/titlesearch/internal/api"
	"github.com/Aman-CERP/titlesearch/internal/search"
	"github.com/Aman-CERP/titlesearch/internal/ui"
)

type searchOptions struct {
	limit     int
	threshold float64
}

func newSearchCmd(a *app) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search job titles",
		Long: `Search ranks job titles by fuzzy similarity. When no title scores at
least the fuzzy threshold, titles are ranked by embedding similarity instead.

Examples:
  titlesearch search "software engneer"
  titlesearch search nurse --limit 5
  titlesearch search "ml ops" --threshold 95 --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			var threshold *float64
			if cmd.Flags().Changed("threshold") {
				threshold = search.Threshold(opts.threshold)
			}
			return runSearch(cmd.Context(), cmd, a, query, opts.limit, threshold)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default: search.default_limit)")
	cmd.Flags().Float64VarP(&opts.threshold, "threshold", "t", 0, "Fuzzy score that skips semantic search (0-100)")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, a *app, query string, limit int, threshold *float64) error {
	deps, err := a.openEngine(ctx, true)
	if err != nil {
		return err
	}
	defer deps.close(a.logger)

	start := time.Now()
	results, err := deps.engine.Search(ctx, query, search.Options{Limit: limit, FuzzyThreshold: threshold})
	if err != nil {
		return err
	}
	a.logger.Info("search complete",
		slog.String("query", query),
		slog.Int("results", len(results)),
		slog.Duration("latency", time.Since(start)))

	if a.jsonOut {
		total := len(results)
		return writeJSON(cmd.OutOrStdout(), api.SearchResponse{Suggestions: results, TotalMatches: &total})
	}
	ui.NewPrinter(cmd.OutOrStdout()).Results(query, results)
	return nil
}
