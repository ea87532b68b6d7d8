package pipeline

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/eqflat/eqflat/pkg/cache"
)

// Pass names as reported to observability hooks and logs.
const (
	PassPrune       = "prune"
	PassInline      = "inline"
	PassDerivatives = "derivatives"
	PassSimplify    = "simplify"
)

// Options contains all configuration for the reduction pipeline.
// This struct supports JSON serialization for API requests.
//
// The zero value disables every pass; start from [DefaultOptions] to get the
// standard pipeline (inline, resolve derivatives, simplify) and toggle from
// there.
type Options struct {
	// Pass toggles. Each stage is independently skippable; skipping is always
	// safe because every pass no-ops on blocks it does not apply to.
	PruneUnreachable   bool `json:"prune_unreachable,omitempty"`
	InlineAlgebraic    bool `json:"inline_algebraic,omitempty"`
	ResolveDerivatives bool `json:"resolve_derivatives,omitempty"`
	Simplify           bool `json:"simplify,omitempty"`

	// WarnOnInconsistency logs structural oddities found while flattening,
	// such as subsystems disagreeing on the independent variable.
	WarnOnInconsistency bool `json:"warn_on_inconsistency,omitempty"`

	// Verbose traces the intermediate equation set after each pass.
	Verbose bool `json:"verbose,omitempty"`

	// Refresh bypasses the cache read (the result is still written back).
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// DefaultOptions returns the standard pipeline configuration: algebraic
// inlining, derivative resolution, and simplification on; unreachable-state
// pruning off; inconsistency warnings on.
func DefaultOptions() Options {
	return Options{
		InlineAlgebraic:     true,
		ResolveDerivatives:  true,
		Simplify:            true,
		WarnOnInconsistency: true,
	}
}

// ValidateAndSetDefaults applies runtime defaults.
// This method is idempotent - calling it multiple times has the same effect
// as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// ResultKeyOpts returns the cache key options for a reduction result. Only
// the toggles that shape the result participate; Verbose and Refresh do not.
func (o *Options) ResultKeyOpts() cache.ResultKeyOpts {
	return cache.ResultKeyOpts{
		PruneUnreachable:   o.PruneUnreachable,
		InlineAlgebraic:    o.InlineAlgebraic,
		ResolveDerivatives: o.ResolveDerivatives,
		Simplify:           o.Simplify,
	}
}
