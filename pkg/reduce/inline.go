package reduce

import (
	"github.com/charmbracelet/log"

	"github.com/eqflat/eqflat/pkg/depgraph"
	"github.com/eqflat/eqflat/pkg/eqn"
	"github.com/eqflat/eqflat/pkg/sym"
)

// Inline eliminates explicit algebraic equations by substitution.
//
// Candidates are the explicit algebraic equations whose defined symbol is not
// a declared output. A cycle-free subset of them is chosen by [PlanRules] and
// inlined — by substitution repeated to a fixed point — into every remaining
// equation's right-hand side, into the left-hand sides of implicit algebraic
// equations, and into the right-hand sides of previously removed equations so
// the eliminated history stays self-consistent. The inlined equations
// themselves move to the removed list in index order.
//
// An implicit algebraic equation whose left-hand side is reduced to exactly
// one free variable by the substitution is canonicalized to the zero form
// 0 = rhs - lhs. Solving it for that variable is a deliberate non-goal.
//
// With no candidates, or with every candidate locked in substitution cycles,
// the block is returned unchanged.
func Inline(b eqn.Block, logger *log.Logger) eqn.Block {
	logger = ensureLogger(logger)

	plan := PlanRules(b.Equations, b.OutputSet())
	if len(plan.Rules) == 0 {
		logger.Debug("inline skipped: no acyclic substitution candidates", "block", b.Name)
		return b
	}
	logger.Debug("planned algebraic substitutions",
		"block", b.Name, "candidates", plan.Candidates, "inlined", len(plan.Rules))

	inlined := make(map[int]struct{}, len(plan.Indices))
	for _, i := range plan.Indices {
		inlined[i] = struct{}{}
	}

	var kept []eqn.Equation
	var newlyRemoved []eqn.Equation
	for i, e := range b.Equations {
		if _, gone := inlined[i]; gone {
			// History entries are fully inlined too: the rule set is acyclic,
			// so the substitution reaches a fixed point without the symbol.
			newlyRemoved = append(newlyRemoved, eqn.Equation{
				LHS: e.LHS,
				RHS: sym.Substitute(e.RHS, plan.Rules),
			})
			continue
		}
		kept = append(kept, substituteInto(e, plan.Rules))
	}

	removed := make([]eqn.Equation, 0, len(b.Removed)+len(newlyRemoved))
	for _, e := range b.Removed {
		removed = append(removed, eqn.Equation{
			LHS: e.LHS,
			RHS: sym.Substitute(e.RHS, plan.Rules),
		})
	}
	removed = append(removed, newlyRemoved...)

	return b.WithEquations(kept, removed)
}

// substituteInto applies the rule set to one surviving equation. Right-hand
// sides are always rewritten; left-hand sides only for implicit algebraic
// equations, where the substitution may reveal a single unknown.
func substituteInto(e eqn.Equation, rules map[string]sym.Expr) eqn.Equation {
	kind, _ := eqn.Classify(e)
	rhs := sym.Substitute(e.RHS, rules)
	if kind != eqn.ImplicitAlgebraic {
		return eqn.Equation{LHS: e.LHS, RHS: rhs}
	}

	lhs := sym.Substitute(e.LHS, rules)
	if len(sym.FreeVars(lhs)) == 1 {
		// Revealed implicit: canonicalize to the zero form.
		return eqn.Equation{LHS: sym.N(0), RHS: sym.SubOf(rhs, lhs)}
	}
	return eqn.Equation{LHS: lhs, RHS: rhs}
}

// Plan is the output of [PlanRules]: the substitution rule set, the equation
// indices it eliminates, and the total candidate count before cycle breaking.
type Plan struct {
	Rules      map[string]sym.Expr
	Indices    []int // ascending equation indices of the inlined candidates
	Candidates int
}

// PlanRules selects the substitution rule set for a sequence of equations.
//
// Candidates are explicit algebraic equations whose defined symbol is not in
// exclude. Over the candidate symbol graph, every elementary cycle is
// enumerated and then broken greedily: the vertex in conflict with the most
// other distinct vertices (two vertices conflict when they share a still
// unbroken cycle) is removed from the pool, ties resolving to the lowest
// index, until no two remaining candidates share a cycle. Self-referential
// candidates are likewise dropped — substituting them can never terminate.
//
// The greedy step approximates the maximum cycle-free vertex subset, which is
// intractable exactly; it does not guarantee minimal removal. Tests pin its
// behavior, so changing the heuristic is a breaking change.
func PlanRules(equations []eqn.Equation, exclude map[string]struct{}) Plan {
	type candidate struct {
		index  int
		symbol string
		rhs    sym.Expr
	}
	var cands []candidate
	for i, e := range equations {
		kind, symbol := eqn.Classify(e)
		if kind != eqn.ExplicitAlgebraic {
			continue
		}
		if _, excluded := exclude[symbol]; excluded {
			continue
		}
		cands = append(cands, candidate{index: i, symbol: symbol, rhs: e.RHS})
	}
	if len(cands) == 0 {
		return Plan{}
	}

	nodes := make([]depgraph.Candidate, len(cands))
	for i, c := range cands {
		nodes[i] = depgraph.Candidate{Symbol: c.symbol, RHS: c.rhs}
	}
	g := depgraph.SymbolGraph(nodes)
	cycles := g.ElementaryCycles()

	present := make([]bool, len(cands))
	for i := range present {
		present[i] = true
	}
	for _, cycle := range cycles {
		if len(cycle) == 1 {
			present[cycle[0]] = false // self-loop: x = f(..., x, ...)
		}
	}

	breakCycles(cycles, present)

	plan := Plan{Rules: make(map[string]sym.Expr), Candidates: len(cands)}
	for i, c := range cands {
		if present[i] {
			plan.Rules[c.symbol] = c.rhs
			plan.Indices = append(plan.Indices, c.index)
		}
	}
	if len(plan.Rules) == 0 {
		return Plan{Candidates: len(cands)}
	}
	return plan
}

// breakCycles clears present flags until no cycle has all its vertices
// present. A cycle already containing an absent vertex is broken and imposes
// no conflicts.
func breakCycles(cycles [][]int, present []bool) {
	for {
		conflicts := pairwiseConflicts(cycles, present)
		worst, worstCount := -1, 0
		for v, count := range conflicts {
			if count > worstCount {
				worst, worstCount = v, count
			}
		}
		if worst < 0 {
			return
		}
		present[worst] = false
	}
}

// pairwiseConflicts counts, per vertex, how many other distinct vertices it
// shares an unbroken multi-vertex cycle with. Iteration is over slice indices
// only, so the counts — and the ties the caller breaks by lowest index — are
// deterministic.
func pairwiseConflicts(cycles [][]int, present []bool) []int {
	counts := make([]int, len(present))
	paired := make(map[[2]int]struct{})
	for _, cycle := range cycles {
		if len(cycle) < 2 || !allPresent(cycle, present) {
			continue
		}
		for i, u := range cycle {
			for _, v := range cycle[i+1:] {
				key := [2]int{min(u, v), max(u, v)}
				if _, dup := paired[key]; dup {
					continue
				}
				paired[key] = struct{}{}
				counts[u]++
				counts[v]++
			}
		}
	}
	return counts
}

func allPresent(cycle []int, present []bool) bool {
	for _, v := range cycle {
		if !present[v] {
			return false
		}
	}
	return true
}
