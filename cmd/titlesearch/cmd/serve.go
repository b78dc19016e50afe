package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/titlesearch/internal/api"
	"github.com/Aman-CERP/titlesearch/internal/mcp"
	"github.com/Aman-CERP/titlesearch/internal/watcher"
)

type serveOptions struct {
	transport string
	addr      string
	watch     bool
}

func newServeCmd(a *app) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve search over HTTP or MCP stdio",
		Long: `Serve loads the index and answers queries until interrupted.

Transports:
  http   JSON API under /api (job-search, job-lookup, health, stats) with
         an OpenAPI document at /api/openapi.json
  stdio  MCP server exposing search_job_titles, lookup_job and index_status

With --watch the index file is reloaded whenever it is rebuilt, without
dropping in-flight requests.

Examples:
  titlesearch serve --addr :9000
  titlesearch serve --transport stdio --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("transport") {
				opts.transport = a.cfg.Server.Transport
			}
			if !cmd.Flags().Changed("addr") {
				opts.addr = a.cfg.Server.Addr
			}
			if !cmd.Flags().Changed("watch") {
				opts.watch = a.cfg.Server.Watch
			}
			return runServe(cmd.Context(), a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "http", "Transport: http or stdio")
	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Reload the index when the file changes")

	return cmd
}

func runServe(ctx context.Context, a *app, opts serveOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport := strings.ToLower(opts.transport)
	if transport != "http" && transport != "stdio" {
		return fmt.Errorf("unknown transport %q (use http or stdio)", opts.transport)
	}

	deps, err := a.openEngine(ctx, true)
	if err != nil {
		return err
	}
	defer deps.close(a.logger)

	g, gctx := errgroup.WithContext(ctx)

	if opts.watch {
		w := watcher.New(deps.path, watcher.Options{Logger: a.logger})
		g.Go(func() error {
			return w.Run(gctx, reloadHandler(deps, a.logger))
		})
	}

	switch transport {
	case "stdio":
		srv, err := mcp.NewServer(deps.engine, a.logger)
		if err != nil {
			return err
		}
		srv.SetMetrics(deps.metrics)
		a.logger.Info("serving MCP over stdio", slog.String("index", deps.path))
		g.Go(func() error {
			err := srv.Serve(gctx)
			stop()
			return err
		})
	default:
		srv := api.NewServer(deps.engine, deps.metrics, api.Options{
			Addr:           opts.addr,
			AllowedOrigins: a.cfg.Server.AllowedOrigins,
			Logger:         a.logger,
		})
		a.logger.Info("serving HTTP", slog.String("addr", srv.Addr()), slog.String("index", deps.path))
		g.Go(func() error {
			err := srv.ListenAndServe(gctx)
			stop()
			return err
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// reloadHandler rebuilds the snapshot from the changed artifact and swaps
// it into the engine. A failed load keeps the current snapshot.
func reloadHandler(deps *runtimeDeps, logger *slog.Logger) watcher.Handler {
	return func(_ context.Context, ev watcher.FileEvent) error {
		snap, err := loadSnapshot(deps.path, deps.model, logger)
		if err != nil {
			logger.Warn("index reload failed, keeping current index",
				slog.String("path", ev.Path),
				slog.String("error", err.Error()))
			return err
		}
		deps.engine.Swap(snap)
		st := snap.Status()
		logger.Info("index reloaded",
			slog.String("path", ev.Path),
			slog.String("op", ev.Operation.String()),
			slog.Int("jobs", st.Jobs),
			slog.Bool("semantic", st.SemanticAvailable))
		return nil
	}
}
