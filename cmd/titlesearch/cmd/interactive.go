package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/titlesearch/internal/search"
	"github.com/Aman-CERP/titlesearch/internal/ui"
)

func newInteractiveCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"i"},
		Short:   "Search job titles as you type",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			deps, err := a.openEngine(ctx, true)
			if err != nil {
				return err
			}
			defer deps.close(a.logger)

			st := deps.engine.Status()
			status := fmt.Sprintf("%d jobs", st.Jobs)
			if st.SemanticAvailable {
				status += " • " + st.Model
			} else {
				status += " • lexical only"
			}

			fn := func(ctx context.Context, query string) ([]*search.Result, error) {
				return deps.engine.Search(ctx, query, search.Options{Limit: limit})
			}
			return ui.RunInteractive(ctx, fn, cmd.InOrStdin(), cmd.OutOrStdout(), status)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")

	return cmd
}
