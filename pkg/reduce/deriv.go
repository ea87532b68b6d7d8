package reduce

import (
	"github.com/charmbracelet/log"

	"github.com/eqflat/eqflat/pkg/eqn"
	"github.com/eqflat/eqflat/pkg/sym"
)

// ResolveDerivatives rewrites every derivative term appearing on a
// right-hand side (of remaining and removed equations alike) into a
// derivative-free, or maximally reduced, form.
//
// Every distinct der(...) term is collected before any rewriting. A term that
// an explicit differential equation defines exactly is replaced by that
// equation's right-hand side. Any other term is reduced in three steps:
// algebraic substitution rules — planned over the current equations without
// excluding outputs — are inlined into the term, the derivative is expanded
// by the chain and product rules, and the already-known explicit differential
// right-hand sides are substituted into the expansion. Derivative remnants
// that survive all three steps are accepted and logged, never errors.
//
// The full replacement map is applied in a single pass; a block with no
// derivative terms on any right-hand side is returned unchanged.
func ResolveDerivatives(b eqn.Block, logger *log.Logger) eqn.Block {
	logger = ensureLogger(logger)

	terms := collectDerivativeTerms(b)
	if len(terms) == 0 {
		return b
	}

	// der(x) -> rhs for every explicit differential equation.
	known := make(map[string]sym.Expr)
	var knownRules []sym.TermRule
	for _, e := range b.Equations {
		if kind, symbol := eqn.Classify(e); kind == eqn.ExplicitDifferential {
			key := e.LHS.String()
			if _, dup := known[key]; !dup {
				known[key] = e.RHS
				knownRules = append(knownRules, sym.TermRule{Term: sym.DerOf(sym.V(symbol)), Repl: e.RHS})
			}
		}
	}

	// The algebraic rule set is shared across terms and only computed when
	// some term actually needs it.
	var algebraic map[string]sym.Expr
	algebraicRules := func() map[string]sym.Expr {
		if algebraic == nil {
			plan := PlanRules(b.Equations, nil)
			algebraic = plan.Rules
			if algebraic == nil {
				algebraic = map[string]sym.Expr{}
			}
		}
		return algebraic
	}

	var repls []sym.TermRule
	unresolved := 0
	for _, d := range terms {
		if rhs, ok := known[d.String()]; ok {
			repls = append(repls, sym.TermRule{Term: d, Repl: rhs})
			continue
		}
		expanded := sym.Substitute(d, algebraicRules())
		expanded = sym.ExpandDerivatives(expanded)
		expanded = sym.ReplaceAll(expanded, knownRules)
		if sym.ContainsDer(expanded) {
			unresolved++
		}
		repls = append(repls, sym.TermRule{Term: d, Repl: expanded})
	}
	if unresolved > 0 {
		logger.Warn("derivative terms left partially unresolved",
			"block", b.Name, "terms", len(terms), "unresolved", unresolved)
	}

	rewrite := func(eqs []eqn.Equation) []eqn.Equation {
		if len(eqs) == 0 {
			return nil
		}
		out := make([]eqn.Equation, len(eqs))
		for i, e := range eqs {
			out[i] = eqn.Equation{LHS: e.LHS, RHS: sym.ReplaceAll(e.RHS, repls)}
		}
		return out
	}
	return b.WithEquations(rewrite(b.Equations), rewrite(b.Removed))
}

// collectDerivativeTerms gathers the distinct der(...) terms on right-hand
// sides, in equation order, remaining equations before removed ones. The
// left-hand sides of explicit differential equations are definitions, not
// uses, and are not collected.
func collectDerivativeTerms(b eqn.Block) []sym.Expr {
	var terms []sym.Expr
	seen := make(map[string]struct{})
	add := func(eqs []eqn.Equation) {
		for _, e := range eqs {
			for _, d := range sym.DerTerms(e.RHS) {
				key := d.String()
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					terms = append(terms, d)
				}
			}
		}
	}
	add(b.Equations)
	add(b.Removed)
	return terms
}
