package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/titlesearch/internal/corpus"
	"github.com/Aman-CERP/titlesearch/internal/profiling"
	"github.com/Aman-CERP/titlesearch/internal/search"
	"github.com/Aman-CERP/titlesearch/internal/ui"
)

// infoResult is the --json output of info.
type infoResult struct {
	Path   string         `json:"path"`
	Index  search.Status  `json:"index"`
	Corpus corpus.Summary `json:"corpus"`
	Heap   string         `json:"heap_in_use"`
}

func newInfoCmd(a *app) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show index status and corpus summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := a.openEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer deps.close(a.logger)

			res := infoResult{
				Path:   deps.path,
				Index:  deps.engine.Status(),
				Corpus: deps.engine.Snapshot().Corpus().Summary(top),
				Heap:   profiling.FormatBytes(profiling.HeapInUse()),
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), res)
			}

			out := cmd.OutOrStdout()
			p := ui.NewPrinter(out)
			p.Status(res.Index, res.Path)
			_, _ = fmt.Fprintf(out, "\nIndustries: %d   Avg automation risk: %.1f%%   Heap: %s\n",
				res.Corpus.Industries, res.Corpus.AvgAutomationRisk, res.Heap)
			printRiskList(out, p.Styles(), "Highest automation risk", res.Corpus.HighestRisk)
			printRiskList(out, p.Styles(), "Lowest automation risk", res.Corpus.LowestRisk)
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 5, "Jobs listed per risk ranking")

	return cmd
}

func printRiskList(out io.Writer, s ui.Styles, title string, records []corpus.Record) {
	if len(records) == 0 {
		return
	}
	_, _ = fmt.Fprintf(out, "\n%s\n", s.Header.Render(title))
	for _, r := range records {
		_, _ = fmt.Fprintf(out, "  %5.1f%%  %s %s\n", r.AutomationRisk, r.Title, s.Dim.Render("("+r.Industry+")"))
	}
}
