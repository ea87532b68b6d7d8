package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eqflat/eqflat/internal/api"
	"github.com/eqflat/eqflat/pkg/cache"
	"github.com/eqflat/eqflat/pkg/pipeline"
)

// serveCommand creates the serve command for running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr     string
		redisURL string
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the HTTP API server.

The server exposes the reduction pipeline over HTTP: POST a TOML system
definition to /v1/reduce for the flattened block, or to /v1/graph for a
rendered dependency graph. Pass toggles travel as query parameters and
mirror the reduce command's flags.

By default results are cached on disk; point --redis at a Redis instance
to share the cache between replicas.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, redisURL, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&redisURL, "redis", "", "redis URL for a shared result cache (e.g. redis://localhost:6379/0)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable result caching")

	return cmd
}

// runServe builds the cache backend and runs the API until ctx is cancelled.
func (c *CLI) runServe(ctx context.Context, addr, redisURL string, noCache bool) error {
	store, err := c.serveCache(ctx, redisURL, noCache)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}

	runner := pipeline.NewRunner(store, nil, c.Logger)
	defer runner.Close()

	srv := api.NewServer(runner, c.Logger)
	err = srv.ListenAndServe(ctx, addr)
	if errors.Is(err, context.Canceled) {
		c.Logger.Info("server stopped")
		return nil
	}
	return err
}

// serveCache picks the cache backend: redis when a URL is given, the local
// file cache otherwise, and the null cache when caching is disabled.
func (c *CLI) serveCache(ctx context.Context, redisURL string, noCache bool) (cache.Cache, error) {
	switch {
	case noCache:
		return cache.NewNullCache(), nil
	case redisURL != "":
		store, err := cache.NewRedisCacheFromURL(ctx, redisURL)
		if err != nil {
			return nil, err
		}
		c.Logger.Info("using redis cache")
		return store, nil
	default:
		dir, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	}
}
