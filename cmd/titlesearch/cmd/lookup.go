package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/titlesearch/internal/ui"
)

func newLookupCmd(a *app) *cobra.Command {
	var industry string

	cmd := &cobra.Command{
		Use:   "lookup <job title>",
		Short: "Show the record for a job title",
		Long: `Lookup resolves a title to its record: an exact match first, then a
title containing the input, then the first job in --industry. When nothing
matches a default record is returned with low confidence.

Examples:
  titlesearch lookup "Registered Nurse"
  titlesearch lookup pilot --industry Transportation`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := a.openEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer deps.close(a.logger)

			m := deps.engine.Lookup(strings.Join(args, " "), industry)
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), m)
			}
			ui.NewPrinter(cmd.OutOrStdout()).Lookup(m)
			return nil
		},
	}

	cmd.Flags().StringVarP(&industry, "industry", "i", "", "Industry hint used when no title matches")

	return cmd
}
