// Package cli implements the eqflat command-line interface.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/eqflat/eqflat/pkg/buildinfo"
	"github.com/eqflat/eqflat/pkg/cache"
	"github.com/eqflat/eqflat/pkg/pipeline"
)

// appName is the application name used for directories and display.
const appName = "eqflat"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "eqflat",
		Short:        "Eqflat flattens hierarchical equation systems",
		Long:         `Eqflat composes a hierarchy of named equation blocks into a single flattened block, pruning unreachable equations, inlining algebraic definitions, and resolving derivative terms along the way.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.reduceCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	cache, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, nil, c.Logger), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/eqflat/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// passFlags is the set of pass-toggle flags shared by reduce and graph.
type passFlags struct {
	prune         bool
	noInline      bool
	noDerivatives bool
	noSimplify    bool
	refresh       bool
}

func (f *passFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.prune, "prune", false, "remove equations that feed no declared output")
	cmd.Flags().BoolVar(&f.noInline, "no-inline", false, "skip algebraic substitution")
	cmd.Flags().BoolVar(&f.noDerivatives, "no-derivatives", false, "skip derivative resolution")
	cmd.Flags().BoolVar(&f.noSimplify, "no-simplify", false, "skip the final simplification pass")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "recompute even if a cached result exists")
}

// options maps the flags onto pipeline options. Verbose tracing follows the
// logger's level, so --verbose turns on intermediate equation dumps too.
func (f *passFlags) options(c *CLI) pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.PruneUnreachable = f.prune
	opts.InlineAlgebraic = !f.noInline
	opts.ResolveDerivatives = !f.noDerivatives
	opts.Simplify = !f.noSimplify
	opts.Refresh = f.refresh
	opts.Verbose = c.Logger.GetLevel() <= log.DebugLevel
	opts.Logger = c.Logger
	return opts
}
