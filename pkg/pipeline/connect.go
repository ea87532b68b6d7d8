// Package pipeline flattens a hierarchical equation system into a single
// reduced block.
//
// This package implements the complete flatten → reduce pipeline shared by
// the CLI and the API. [Connect] folds a system tree into one [eqn.Block] —
// recursing into nested systems bottom-up, promoting each subsystem's symbols
// into its namespace, wiring declared connections, and applying the system's
// own renames — and then runs the reduction passes of pkg/reduce in a fixed
// order, each one toggleable through [Options].
//
// # Usage
//
// Create a Runner and execute the pipeline against a loaded definition:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.DefaultOptions()
//	result, err := runner.Execute(ctx, def, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Block)
//
// Or flatten an in-memory system directly, without caching:
//
//	block, err := pipeline.Connect(ctx, sys, opts)
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/eqflat/eqflat/pkg/eqn"
	"github.com/eqflat/eqflat/pkg/observability"
	"github.com/eqflat/eqflat/pkg/reduce"
	"github.com/eqflat/eqflat/pkg/sym"
)

// ErrUnknownOutput is returned when a connection names an output symbol that
// no equation in the flattened system defines.
var ErrUnknownOutput = errors.New("connection output has no defining equation")

// Connect flattens a system tree into a single reduced block.
//
// Subsystems that are themselves systems are connected recursively first, so
// folding always works on blocks. Each subsystem's symbols are promoted into
// its namespace, the equation and removed lists are concatenated in subsystem
// order, connections are wired by substitution, and the system's namespace
// map is applied before the flattened block is validated and constructed.
// Construction fails hard on colliding left-hand sides; everything the
// reduction passes cannot handle degrades to a logged no-op instead.
func Connect(ctx context.Context, sys *eqn.System, opts Options) (eqn.Block, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return eqn.Block{}, fmt.Errorf("invalid options: %w", err)
	}

	flat, err := flatten(ctx, sys, opts)
	if err != nil {
		return eqn.Block{}, err
	}
	return runPasses(ctx, flat, opts), nil
}

// flatten performs steps 1-5 of Connect: recursion, promotion, wiring,
// renaming, and validated construction. It does not run reduction passes.
func flatten(ctx context.Context, sys *eqn.System, opts Options) (eqn.Block, error) {
	logger := opts.Logger

	var (
		equations []eqn.Equation
		removed   []eqn.Equation
		inputs    []string
		outputs   []string
		indepVar  string
	)

	for _, sub := range sys.Subsystems {
		var child eqn.Block
		switch n := sub.(type) {
		case eqn.Block:
			child = n
		case *eqn.System:
			// Nested systems are fully connected first, passes included, so
			// the parent folds an already-reduced block.
			var err error
			child, err = Connect(ctx, n, opts)
			if err != nil {
				return eqn.Block{}, fmt.Errorf("flatten subsystem %q: %w", n.Name, err)
			}
		default:
			return eqn.Block{}, fmt.Errorf("system %q: unsupported subsystem type %T", sys.Name, sub)
		}

		// The independent variable is shared across the tree, never promoted.
		if child.IndepVar != "" {
			switch {
			case indepVar == "":
				indepVar = child.IndepVar
			case child.IndepVar != indepVar:
				if opts.WarnOnInconsistency {
					logger.Warn("subsystems disagree on independent variable",
						"system", sys.Name, "subsystem", child.Name,
						"have", indepVar, "got", child.IndepVar)
				}
			}
		}

		p := eqn.Promote(child, sub.NodeName())
		equations = append(equations, p.Equations...)
		removed = append(removed, p.Removed...)
		inputs = append(inputs, p.Inputs...)
		outputs = append(outputs, p.Outputs...)
	}

	equations, removed, inputs, err := wireConnections(sys, equations, removed, inputs)
	if err != nil {
		return eqn.Block{}, err
	}

	work := eqn.Block{
		Name:      sys.Name,
		Equations: equations,
		Removed:   removed,
		Inputs:    inputs,
		Outputs:   outputs,
		IndepVar:  indepVar,
	}
	work = eqn.RenameVars(work, sys.Namespace)

	flat, err := eqn.NewBlock(sys.Name, work.Equations, work.Inputs, work.Outputs, work.IndepVar)
	if err != nil {
		return eqn.Block{}, fmt.Errorf("flatten system %q: %w", sys.Name, err)
	}
	return flat.WithEquations(flat.Equations, work.Removed), nil
}

// wireConnections substitutes each connected input with its driving output's
// defining expression. An output defined differentially has no algebraic
// right-hand side to inline, so the input is aliased to the state symbol
// instead. Wired inputs leave the input set.
func wireConnections(sys *eqn.System, equations, removed []eqn.Equation, inputs []string) ([]eqn.Equation, []eqn.Equation, []string, error) {
	if len(sys.Connections) == 0 {
		return equations, removed, inputs, nil
	}

	rules := make(map[string]sym.Expr, len(sys.Connections))
	wired := make(map[string]struct{}, len(sys.Connections))
	for _, conn := range sys.Connections {
		repl, err := definingExpr(equations, conn.Output)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("system %q: wire %s <- %s: %w",
				sys.Name, conn.Input, conn.Output, err)
		}
		rules[conn.Input] = repl
		wired[conn.Input] = struct{}{}
	}

	substitute := func(eqs []eqn.Equation) []eqn.Equation {
		if len(eqs) == 0 {
			return nil
		}
		out := make([]eqn.Equation, len(eqs))
		for i, e := range eqs {
			out[i] = eqn.Equation{
				LHS: sym.Substitute(e.LHS, rules),
				RHS: sym.Substitute(e.RHS, rules),
			}
		}
		return out
	}

	kept := slices.DeleteFunc(slices.Clone(inputs), func(s string) bool {
		_, ok := wired[s]
		return ok
	})
	return substitute(equations), substitute(removed), kept, nil
}

// definingExpr finds the expression that drives an output symbol: the
// right-hand side of its explicit algebraic definition, or the state symbol
// itself when the output is defined by a differential equation.
func definingExpr(equations []eqn.Equation, output string) (sym.Expr, error) {
	for _, e := range equations {
		kind, symbol := eqn.Classify(e)
		if symbol != output {
			continue
		}
		switch kind {
		case eqn.ExplicitAlgebraic:
			return e.RHS, nil
		case eqn.ExplicitDifferential:
			return sym.V(output), nil
		}
	}
	return nil, fmt.Errorf("%q: %w", output, ErrUnknownOutput)
}

// runPasses applies the reduction passes in their fixed order, as toggled by
// opts, emitting pass hooks and optional verbose traces along the way.
func runPasses(ctx context.Context, b eqn.Block, opts Options) eqn.Block {
	runID := RunIDFromContext(ctx)
	hooks := observability.Pipeline()

	run := func(name string, enabled bool, pass func(eqn.Block) eqn.Block) {
		if !enabled {
			return
		}
		hooks.OnPassStart(ctx, runID, name)
		start := time.Now()
		before := len(b.Equations)
		b = pass(b)
		hooks.OnPassComplete(ctx, runID, name, before-len(b.Equations), time.Since(start))
		if opts.Verbose {
			opts.Logger.Debug("pass complete",
				"pass", name, "block", b.Name,
				"equations", len(b.Equations), "removed", len(b.Removed))
			opts.Logger.Debug(b.String())
		}
	}

	run(PassPrune, opts.PruneUnreachable, func(b eqn.Block) eqn.Block {
		return reduce.Prune(b, opts.Logger)
	})
	run(PassInline, opts.InlineAlgebraic, func(b eqn.Block) eqn.Block {
		return reduce.Inline(b, opts.Logger)
	})
	run(PassDerivatives, opts.ResolveDerivatives, func(b eqn.Block) eqn.Block {
		return reduce.ResolveDerivatives(b, opts.Logger)
	})
	run(PassSimplify, opts.Simplify, func(b eqn.Block) eqn.Block {
		return reduce.Simplify(b)
	})
	return b
}
