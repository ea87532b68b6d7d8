package depgraph

import (
	"github.com/eqflat/eqflat/pkg/eqn"
	"github.com/eqflat/eqflat/pkg/sym"
)

// FromEquations builds the equation dependency graph: one vertex per equation,
// indexed by position, with an edge u→v when a symbol appearing on equation
// u's left-hand side occurs free on equation v's right-hand side — v depends
// on the value u defines.
//
// Left-hand symbols are taken as the free variables of the LHS, which covers
// bare states (x = ...), differential states (der(x) = ...), and implicit
// forms alike. Edges are emitted in ascending (u, v) index order, so the
// result is deterministic for a given equation order.
func FromEquations(equations []eqn.Equation) *Graph {
	n := len(equations)
	provides := make([]map[string]struct{}, n)
	uses := make([]map[string]struct{}, n)
	for i, e := range equations {
		provides[i] = sym.FreeVarSet(e.LHS)
		uses[i] = sym.FreeVarSet(e.RHS)
	}

	g := New(n)
	for u := range n {
		for v := range n {
			if u == v {
				continue
			}
			if intersects(provides[u], uses[v]) {
				g.AddEdge(u, v)
			}
		}
	}
	return g
}

// Candidate is one inlining candidate for the symbol-level graph: an explicit
// algebraic equation's defined symbol and right-hand side.
type Candidate struct {
	Symbol string
	RHS    sym.Expr
}

// SymbolGraph builds the candidate dependency graph of the substitution
// planner: one vertex per candidate, in list order, with an edge a→b when
// candidate a's symbol occurs free in candidate b's right-hand side.
// A candidate whose own symbol appears in its right-hand side produces a
// self-loop.
func SymbolGraph(candidates []Candidate) *Graph {
	n := len(candidates)
	uses := make([]map[string]struct{}, n)
	for i, c := range candidates {
		uses[i] = sym.FreeVarSet(c.RHS)
	}

	g := New(n)
	for a := range n {
		for b := range n {
			if _, ok := uses[b][candidates[a].Symbol]; ok {
				g.AddEdge(a, b)
			}
		}
	}
	return g
}

func intersects(a, b map[string]struct{}) bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}
