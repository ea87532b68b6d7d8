package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/eqflat/eqflat/pkg/cache"
	"github.com/eqflat/eqflat/pkg/eqn"
	"github.com/eqflat/eqflat/pkg/observability"
	"github.com/eqflat/eqflat/pkg/sysdef"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't store
// pipeline results. Multiple goroutines can safely use the same Runner with
// different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Block is the flattened, reduced block.
	Block eqn.Block

	// RunID identifies this run in logs, hooks, and API responses.
	RunID string

	// DefHash is the content hash of the canonical definition.
	DefHash string

	// Stats contains timing and size information.
	Stats Stats

	// CacheHit reports whether the result was replayed from the cache.
	CacheHit bool
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Equations   int
	Removed     int
	Depth       int
	ConnectTime time.Duration
}

// Execute flattens and reduces the definition's root node, replaying a cached
// result when one exists for the same definition and options.
func (r *Runner) Execute(ctx context.Context, def *sysdef.Definition, opts Options) (*Result, error) {
	// Apply the runner's logger before validation fills the discard default.
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	runID := uuid.NewString()
	ctx = WithRunID(ctx, runID)

	canonical, err := def.Canonical()
	if err != nil {
		return nil, err
	}
	defHash := cache.Hash(canonical)
	cacheKey := r.Keyer.ResultKey(defHash, opts.ResultKeyOpts())

	result := &Result{RunID: runID, DefHash: defHash}

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if b, err := sysdef.DecodeBlock(data); err == nil {
				observability.Cache().OnCacheHit(ctx, "result")
				result.Block = b
				result.CacheHit = true
				result.Stats = blockStats(b, 0, 0)
				r.Logger.Debug("reduction replayed from cache",
					"run", runID, "definition", def.Name, "hash", defHash)
				return result, nil
			}
			// Undecodable entry: recompute and overwrite.
			_ = r.Cache.Delete(ctx, cacheKey)
		}
		observability.Cache().OnCacheMiss(ctx, "result")
	}

	node, err := def.Node()
	if err != nil {
		return nil, err
	}

	hooks := observability.Pipeline()
	hooks.OnConnectStart(ctx, runID, def.Name)
	start := time.Now()

	block, depth, err := r.reduceNode(ctx, node, opts)
	elapsed := time.Since(start)
	if err != nil {
		hooks.OnConnectComplete(ctx, runID, def.Name, 0, 0, elapsed, err)
		return nil, err
	}
	hooks.OnConnectComplete(ctx, runID, def.Name,
		len(block.Equations), len(block.Removed), elapsed, nil)

	result.Block = block
	result.Stats = blockStats(block, depth, elapsed)

	r.Logger.Info("reduced system",
		"run", runID, "definition", def.Name,
		"equations", len(block.Equations), "removed", len(block.Removed),
		"duration", elapsed)

	// Cache the result
	if data, err := sysdef.EncodeBlock(block); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLResult); err == nil {
			observability.Cache().OnCacheSet(ctx, "result", len(data))
		}
	}

	return result, nil
}

// reduceNode dispatches on the root node shape: systems are connected,
// standalone blocks skip flattening and go straight through the passes.
func (r *Runner) reduceNode(ctx context.Context, node eqn.Node, opts Options) (eqn.Block, int, error) {
	switch n := node.(type) {
	case *eqn.System:
		b, err := Connect(ctx, n, opts)
		return b, n.Depth(), err
	case eqn.Block:
		return Reduce(ctx, n, opts), 0, nil
	default:
		return eqn.Block{}, 0, fmt.Errorf("unsupported root node type %T", node)
	}
}

// Reduce runs the reduction passes on a single already-flattened block.
func Reduce(ctx context.Context, b eqn.Block, opts Options) eqn.Block {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return b
	}
	return runPasses(ctx, b, opts)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func blockStats(b eqn.Block, depth int, elapsed time.Duration) Stats {
	return Stats{
		Equations:   len(b.Equations),
		Removed:     len(b.Removed),
		Depth:       depth,
		ConnectTime: elapsed,
	}
}

// runIDKey is the context key carrying the pipeline run identifier.
type runIDKey struct{}

// WithRunID attaches a run identifier to the context; pass hooks report it.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run identifier attached by [WithRunID], or ""
// when the context carries none.
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok {
		return id
	}
	return ""
}
