// Package api exposes the search engine over HTTP as a go-restful web
// service with CORS and a generated OpenAPI document.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/rs/cors"

	"github.com/Aman-CERP/titlesearch/internal/search"
	"github.com/Aman-CERP/titlesearch/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// Options configures the HTTP server.
type Options struct {
	// Addr is the listen address (default: ":8080").
	Addr string

	// AllowedOrigins for CORS (default: all).
	AllowedOrigins []string

	Logger *slog.Logger
}

// Server is the HTTP front end of an Engine.
type Server struct {
	handler http.Handler
	addr    string
	logger  *slog.Logger
}

// NewServer wires routes, filters, OpenAPI and CORS around engine.
// metrics may be nil.
func NewServer(engine *search.Engine, metrics *telemetry.QueryMetrics, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	container := restful.NewContainer()
	container.Filter(LoggingFilter(logger))
	container.Filter(RecoverFilter(logger))
	container.Filter(BodyLimitFilter(MaxBodyBytes))

	RegisterRoutes(container, NewHandler(engine, metrics, logger))
	RegisterOpenAPI(container)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	return &Server{
		handler: corsHandler.Handler(container),
		addr:    opts.Addr,
		logger:  logger,
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.addr }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
