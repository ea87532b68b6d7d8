package reduce

import (
	"github.com/charmbracelet/log"

	"github.com/eqflat/eqflat/pkg/depgraph"
	"github.com/eqflat/eqflat/pkg/eqn"
)

// Prune removes equations that feed no declared output.
//
// An equation is necessary when a directed path in the equation dependency
// graph leads from it to an equation that explicitly defines an output; all
// other equations are superfluous state and move to the block's removed list,
// preserving their relative order. Inputs and outputs are never altered.
//
// The pass is a best-effort optimization: if any output lacks an explicit
// defining equation, or the block declares no outputs at all, pruning is
// skipped with a warning and the block is returned unchanged.
func Prune(b eqn.Block, logger *log.Logger) eqn.Block {
	logger = ensureLogger(logger)

	if len(b.Outputs) == 0 {
		logger.Debug("prune skipped: block declares no outputs", "block", b.Name)
		return b
	}
	definers, missing := b.OutputDefiners()
	if len(missing) > 0 {
		logger.Warn("prune skipped: outputs lack explicit defining equations",
			"block", b.Name, "outputs", missing)
		return b
	}

	g := depgraph.FromEquations(b.Equations)
	targets := make([]int, 0, len(definers))
	for _, out := range b.Outputs {
		targets = append(targets, definers[out])
	}
	necessary := g.ReachableTo(targets)

	var kept, removed []eqn.Equation
	for i, e := range b.Equations {
		if necessary[i] {
			kept = append(kept, e)
		} else {
			removed = append(removed, e)
		}
	}
	if len(removed) == 0 {
		return b
	}

	logger.Debug("pruned unreachable equations",
		"block", b.Name, "removed", len(removed), "kept", len(kept))
	allRemoved := append(append([]eqn.Equation{}, b.Removed...), removed...)
	return b.WithEquations(kept, allRemoved)
}
