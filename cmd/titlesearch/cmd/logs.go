package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	tserrors "github.com/Aman-CERP/titlesearch/internal/errors"
	"github.com/Aman-CERP/titlesearch/internal/logging"
)

type logsOptions struct {
	follow  bool
	lines   int
	level   string
	filter  string
	file    string
	rotated bool
}

// newLogsCmd creates the logs command.
func newLogsCmd(a *app) *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View server logs",
		Long: `Show the last lines of the titlesearch log file, optionally following
new entries as they are written.

The log file is server.log_file from the config, or
~/.titlesearch/logs/server.log.

Examples:
  titlesearch logs                  # Last 50 entries
  titlesearch logs -f               # Follow in real time
  titlesearch logs --level warn     # Warnings and errors only
  titlesearch logs --filter reload  # Entries matching a regex
  titlesearch logs --rotated -n 500 # Include rotated files`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, a, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow log output (like tail -f)")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Only show lines matching this regex")
	cmd.Flags().StringVar(&opts.file, "file", "", "Log file path (default: configured log file)")
	cmd.Flags().BoolVar(&opts.rotated, "rotated", false, "Merge rotated log files into the output")

	return cmd
}

func runLogs(cmd *cobra.Command, a *app, opts logsOptions) error {
	path := opts.file
	if path == "" && a.cfg != nil {
		path = a.cfg.Server.LogFile
	}
	if path == "" {
		path = logging.DefaultLogPath()
	}
	if _, err := os.Stat(path); err != nil {
		return tserrors.New(tserrors.ErrCodeFileNotFound, "log file not found: "+path, err).
			WithSuggestion("Run 'titlesearch serve' to start writing logs, or pass --file")
	}

	var pattern *regexp.Regexp
	if opts.filter != "" {
		p, err := regexp.Compile(opts.filter)
		if err != nil {
			return tserrors.ConfigError("invalid --filter pattern", err)
		}
		pattern = p
	}

	out := cmd.OutOrStdout()
	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   opts.level,
		Pattern: pattern,
		NoColor: a.noColor || os.Getenv("NO_COLOR") != "",
	}, out)

	files := []string{path}
	if opts.rotated {
		files = logging.LogFiles(path)
	}
	entries, err := viewer.TailFiles(files, opts.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)

	if !opts.follow {
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Following %s (Ctrl+C to stop)\n", path)

	ch := make(chan logging.LogEntry, 100)
	errCh := make(chan error, 1)
	go func() {
		errCh <- viewer.Follow(ctx, path, ch)
		close(ch)
	}()

	for e := range ch {
		_, _ = fmt.Fprintln(out, viewer.FormatEntry(e))
	}
	return <-errCh
}
