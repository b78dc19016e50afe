// Package cmd provides the CLI commands for titlesearch.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/titlesearch/internal/config"
	tserrors "github.com/Aman-CERP/titlesearch/internal/errors"
	"github.com/Aman-CERP/titlesearch/internal/logging"
	"github.com/Aman-CERP/titlesearch/internal/profiling"
	"github.com/Aman-CERP/titlesearch/pkg/version"
)

// skipConfigAnnotation marks commands that run without loading config.
const skipConfigAnnotation = "titlesearch/skip-config"

// app is the state shared by every subcommand of one invocation.
type app struct {
	configPath string
	jsonOut    bool
	debug      bool
	noColor    bool
	profile    profiling.Options

	cfg           *config.Config
	logger        *slog.Logger
	cleanupLogger func()
	session       *profiling.Session
}

// NewRootCmd creates the root command for the titlesearch CLI.
func NewRootCmd() *cobra.Command {
	a := &app{logger: logging.Discard()}

	cmd := &cobra.Command{
		Use:   "titlesearch",
		Short: "Hybrid job-title search",
		Long: `titlesearch finds job titles by fuzzy string similarity and, when no
title matches closely, by embedding similarity.

Build an index once, then search it from the command line, the HTTP API
or an MCP client:

  titlesearch build --dataset jobs.csv
  titlesearch search "software engneer"
  titlesearch serve`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("titlesearch version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default: ./"+config.ProjectConfigName+")")
	cmd.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Write JSON instead of tables")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging to stderr and the log file")
	cmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable coloured output")
	cmd.PersistentFlags().StringVar(&a.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&a.profile.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&a.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = a.setup
	cmd.PersistentPostRunE = func(*cobra.Command, []string) error { return a.teardown() }

	cmd.AddCommand(newBuildCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newLookupCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newInfoCmd(a))
	cmd.AddCommand(newDoctorCmd(a))
	cmd.AddCommand(newValidateCmd(a))
	cmd.AddCommand(newLogsCmd(a))
	cmd.AddCommand(newInteractiveCmd(a))
	cmd.AddCommand(newInitCmd(a))
	cmd.AddCommand(newVersionCmd(a))

	return cmd
}

// Execute runs the root command and prints a failure in CLI form.
func Execute() error {
	cmd := NewRootCmd()
	err := cmd.Execute()
	if err != nil {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), tserrors.FormatForCLI(err))
	}
	return err
}

// setup loads configuration, starts logging and profiling.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.noColor {
		_ = os.Setenv("NO_COLOR", "1")
	}

	if cmd.Annotations[skipConfigAnnotation] != "true" {
		cfg, err := config.Load(config.LoadOptions{ConfigPath: a.configPath})
		if err != nil {
			return err
		}
		a.cfg = cfg

		if err := a.setupLogging(cmd); err != nil {
			return err
		}
	}

	if a.profile.Enabled() {
		s, err := profiling.Start(a.profile)
		if err != nil {
			return err
		}
		a.session = s
	}
	return nil
}

// setupLogging writes JSON logs to the rotating log file. The stdio
// transport owns stdout, so logs never go there.
func (a *app) setupLogging(cmd *cobra.Command) error {
	logCfg := logging.DefaultConfig()
	logCfg.Level = a.cfg.Server.LogLevel
	if a.cfg.Server.LogFile != "" {
		logCfg.FilePath = a.cfg.Server.LogFile
	}
	if a.debug {
		logCfg.Level = "debug"
		logCfg.WriteToStderr = true
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	a.logger = logger.With(slog.String("command", cmd.Name()))
	a.cleanupLogger = cleanup
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) teardown() error {
	err := a.session.Stop()
	a.session = nil
	if a.cleanupLogger != nil {
		a.cleanupLogger()
		a.cleanupLogger = nil
	}
	return err
}

// writeJSON writes v indented.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
