package cache

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation.
// This is useful when a shared cache backend (e.g. one Redis instance)
// serves multiple users or projects that need separate namespaces.
//
// Example usage:
//
//	// User-specific keys for private system definitions
//	userKeyer := NewScopedKeyer(NewDefaultKeyer(), "user:abc123:")
//
//	// Global keys for shared model libraries
//	globalKeyer := NewDefaultKeyer()
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ResultKey generates a prefixed key for an encoded reduction result.
func (k *ScopedKeyer) ResultKey(defHash string, opts ResultKeyOpts) string {
	return k.prefix + k.inner.ResultKey(defHash, opts)
}

// ArtifactKey generates a prefixed key for a rendered graph artifact.
func (k *ScopedKeyer) ArtifactKey(defHash, format string) string {
	return k.prefix + k.inner.ArtifactKey(defHash, format)
}
