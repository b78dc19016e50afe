package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	tserrors "github.com/Aman-CERP/titlesearch/internal/errors"
	"github.com/Aman-CERP/titlesearch/internal/mcp"
	"github.com/Aman-CERP/titlesearch/internal/ui"
	"github.com/Aman-CERP/titlesearch/internal/validation"
)

type validateOptions struct {
	queries string
	limit   int
	minPass float64
	verbose bool
}

func newValidateCmd(a *app) *cobra.Command {
	var opts validateOptions

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run relevance queries against the index",
		Long: `Validate runs a set of queries through the MCP search tool and checks
that the expected titles come back near the top, with the expected match
method.

Without --queries the built-in set for the sample dataset is used. The
command fails when the lexical tier passes less than --min-pass percent.`,
		Example: `  titlesearch validate
  titlesearch validate --queries ./relevance.yaml --min-pass 90`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, a, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.queries, "queries", "q", "", "YAML query file (default: built-in sample queries)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Suggestions requested per query")
	cmd.Flags().Float64Var(&opts.minPass, "min-pass", 100, "Minimum lexical tier pass rate (percent)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "List passing queries too")

	return cmd
}

func runValidate(cmd *cobra.Command, a *app, opts validateOptions) error {
	var (
		cfg *validation.QueryConfig
		err error
	)
	if opts.queries != "" {
		cfg, err = validation.LoadQueries(opts.queries)
	} else {
		cfg, err = validation.DefaultQueries()
	}
	if err != nil {
		return tserrors.ConfigError("invalid validation queries", err)
	}

	deps, err := a.openEngine(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer deps.close(a.logger)

	server, err := mcp.NewServer(deps.engine, a.logger)
	if err != nil {
		return err
	}

	report, err := validation.New(server, validation.WithLimit(opts.limit)).RunAll(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	if a.jsonOut {
		if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	} else {
		printReport(cmd, report, opts.verbose)
	}

	if rate := report.Tiers[validation.TierLexical].Rate(); rate < opts.minPass {
		return fmt.Errorf("lexical tier pass rate %.0f%% is below minimum %.0f%%", rate, opts.minPass)
	}
	return nil
}

func printReport(cmd *cobra.Command, report *validation.Report, verbose bool) {
	out := cmd.OutOrStdout()
	p := ui.NewPrinter(out)
	s := p.Styles()

	model := report.Model
	if !report.Semantic {
		model = "lexical only"
	}
	_, _ = fmt.Fprintf(out, "%s  %d jobs, %s\n\n", s.Header.Render("Validation"), report.Jobs, model)

	for _, tr := range report.Results {
		if tr.Passed && !verbose {
			continue
		}
		status := s.Success.Render("PASS")
		if !tr.Passed {
			status = s.Error.Render("FAIL")
		}
		_, _ = fmt.Fprintf(out, "[%s] %-6s %q", status, tr.Spec.ID, tr.Spec.Query)
		switch {
		case tr.Error != "":
			_, _ = fmt.Fprintf(out, "  %s", tr.Error)
		case !tr.Passed:
			_, _ = fmt.Fprintf(out, "  %s, got %v", tr.Reason, tr.TopResults)
		}
		_, _ = fmt.Fprintln(out)
	}

	for _, tier := range []validation.Tier{validation.TierLexical, validation.TierSemantic, validation.TierNegative} {
		sum := report.Tiers[tier]
		_, _ = fmt.Fprintf(out, "%-9s %d/%d (%.0f%%)\n", tier, sum.Passed, sum.Total, sum.Rate())
	}
}
