// Package reduce implements the three reduction passes applied to a
// flattened equation block:
//
//   - [Prune]: reachability-based elimination of equations that feed no
//     declared output
//   - [Inline]: selection of a cycle-free set of explicit algebraic
//     equations and their elimination by recursive substitution
//   - [ResolveDerivatives]: rewriting of right-hand-side derivative terms
//     against known derivative definitions, algebraic inlining, and
//     chain/product-rule expansion
//
// Every pass takes an immutable [eqn.Block] snapshot and returns a new one;
// the input is never modified. Passes are best-effort: when a precondition is
// missing (an output without an explicit defining equation, an empty
// candidate set) the pass logs and returns its input unchanged rather than
// failing. Equation order is preserved throughout — it fixes dependency-graph
// vertex indices and the determinism of the cycle-breaking tie-break.
package reduce

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/eqflat/eqflat/pkg/eqn"
	"github.com/eqflat/eqflat/pkg/sym"
)

// ensureLogger substitutes a silent logger for nil so passes can log
// unconditionally.
func ensureLogger(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.New(io.Discard)
	}
	return logger
}

// Simplify returns a copy of the block with every equation and removed
// equation normalized by the symbolic engine. It contains no logic of its
// own; it exists so the pipeline can run simplification as a stage like any
// other pass.
func Simplify(b eqn.Block) eqn.Block {
	return b.WithEquations(simplifyEquations(b.Equations), simplifyEquations(b.Removed))
}

func simplifyEquations(eqs []eqn.Equation) []eqn.Equation {
	if len(eqs) == 0 {
		return nil
	}
	out := make([]eqn.Equation, len(eqs))
	for i, e := range eqs {
		out[i] = eqn.Equation{LHS: sym.Simplify(e.LHS), RHS: sym.Simplify(e.RHS)}
	}
	return out
}
