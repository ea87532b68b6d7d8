// Package api exposes the reduction pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz     liveness probe
//	POST /v1/reduce   reduce a TOML system definition to a flattened block
//	POST /v1/graph    render a definition's dependency graph (dot, svg, png)
//
// The reduce endpoint accepts the definition file as the request body and
// pipeline toggles as query parameters (prune, inline, derivatives, simplify,
// refresh), mirroring the CLI flags 1:1. Responses are JSON; errors carry the
// structured code taxonomy of pkg/errors.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/eqflat/eqflat/pkg/pipeline"
)

// Server wires the HTTP routes to a pipeline runner.
type Server struct {
	runner *pipeline.Runner
	logger *log.Logger
}

// NewServer creates a server around the given runner.
// If logger is nil, the default logger is used.
func NewServer(runner *pipeline.Runner, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, logger: logger}
}

// Router builds the chi router with middleware and all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealthz)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/reduce", s.handleReduce)
		r.Post("/graph", s.handleGraph)
	})
	return r
}

// ListenAndServe runs the server on addr until the listener fails or ctx is
// cancelled, in which case in-flight requests get a grace period to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("api listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
