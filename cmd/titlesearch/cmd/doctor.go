package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/titlesearch/internal/config"
	"github.com/Aman-CERP/titlesearch/internal/embed"
	"github.com/Aman-CERP/titlesearch/internal/preflight"
)

// errDoctorFailed is returned when a required check fails.
var errDoctorFailed = errors.New("system check failed")

// doctorReport is the --json output of doctor.
type doctorReport struct {
	Status   string                  `json:"status"`
	Checks   []preflight.CheckResult `json:"checks"`
	Warnings []string                `json:"warnings,omitempty"`
	Errors   []string                `json:"errors,omitempty"`
}

func newDoctorCmd(a *app) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the index, dataset and embedder",
		Long: `Doctor runs the checks a serving process depends on:

  - index directory is writable and has free space
  - the index artifact loads, with or without its embeddings
  - the configured dataset resolves
  - the embedding model answers a probe query
  - the telemetry database directory is writable

Only index failures are fatal. Without a model, or with embeddings that
do not match it, searches are served lexically and doctor warns.`,
		Example: `  titlesearch doctor
  titlesearch doctor --verbose
  titlesearch doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, a, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show details for each check")

	return cmd
}

func runDoctor(cmd *cobra.Command, a *app, verbose bool) error {
	ctx := cmd.Context()

	model, err := embed.NewFromConfig(ctx, embedConfig(a.cfg.Embeddings), a.logger)
	if err != nil {
		return err
	}
	if model != nil {
		defer func() { _ = model.Close() }()
	}

	target := preflight.Target{
		IndexPath: a.cfg.Index.Path,
		Dataset:   a.cfg.Index.Dataset,
		Table:     a.cfg.Index.Table,
		Model:     model,
	}
	if a.cfg.Telemetry.Enabled {
		target.TelemetryPath = a.cfg.Telemetry.Path
		if target.TelemetryPath == "" {
			target.TelemetryPath = config.DefaultTelemetryPath()
		}
	}

	checker := preflight.New(target,
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
		preflight.WithLogger(a.logger),
	)
	results := checker.RunAll(ctx)

	if a.jsonOut {
		report := doctorReport{Status: checker.SummaryStatus(results), Checks: results}
		for _, r := range results {
			switch {
			case r.IsCritical():
				report.Errors = append(report.Errors, r.Name+": "+r.Message)
			case r.Status != preflight.StatusPass:
				report.Warnings = append(report.Warnings, r.Name+": "+r.Message)
			}
		}
		if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return errDoctorFailed
	}
	return nil
}
