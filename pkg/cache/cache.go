// Package cache provides content-addressed caching of reduction results.
//
// Reducing a large system is deterministic: the flattened block depends only
// on the system definition and the pipeline options. The pipeline therefore
// caches encoded results keyed by a hash of both, and replays them on
// repeated runs. Backends:
//
//   - [FileCache]: directory-backed, for CLI usage
//   - [RedisCache]: Redis-backed, for the HTTP server
//   - [NullCache]: disabled caching
//
// Keys are produced by a [Keyer] so multi-tenant deployments can prefix them
// (see [ScopedKeyer]).
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key-value store with per-entry TTL.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves the value for key. The second result reports whether
	// the key was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A non-positive ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key if present. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default TTLs per key type.
const (
	// TTLResult is how long encoded reduction results are kept. Results are
	// content-addressed, so a long TTL is safe: a changed definition changes
	// the key.
	TTLResult = 7 * 24 * time.Hour

	// TTLArtifact is how long rendered graph artifacts (SVG, PNG) are kept.
	TTLArtifact = 24 * time.Hour
)

// ResultKeyOpts are the pipeline options that shape a reduction result and
// therefore participate in its cache key.
type ResultKeyOpts struct {
	PruneUnreachable   bool
	InlineAlgebraic    bool
	ResolveDerivatives bool
	Simplify           bool
}

// Keyer generates cache keys for the different cached value types.
type Keyer interface {
	// ResultKey generates a key for an encoded reduction result, from the
	// hash of the system definition and the options that shaped the run.
	ResultKey(defHash string, opts ResultKeyOpts) string

	// ArtifactKey generates a key for a rendered graph artifact.
	ArtifactKey(defHash, format string) string
}

// DefaultKeyer is the standard key generator.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard key generator.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// ResultKey implements [Keyer].
func (DefaultKeyer) ResultKey(defHash string, opts ResultKeyOpts) string {
	return hashKey("result", defHash, opts)
}

// ArtifactKey implements [Keyer].
func (DefaultKeyer) ArtifactKey(defHash, format string) string {
	return hashKey("artifact", defHash, format)
}
