package eqn

import (
	"slices"
	"sort"

	"github.com/eqflat/eqflat/pkg/sym"
)

// RenameVars returns a copy of the block with every symbol in names rewritten
// throughout: equations, removed equations, inputs, outputs, and the
// independent variable. It is a pure syntactic rewrite; symbols not named in
// the map are untouched.
func RenameVars(b Block, names map[string]string) Block {
	if len(names) == 0 {
		return b
	}
	rules := make(map[string]sym.Expr, len(names))
	for from, to := range names {
		rules[from] = sym.V(to)
	}
	renameSym := func(s string) string {
		if to, ok := names[s]; ok {
			return to
		}
		return s
	}

	out := Block{
		Name:      b.Name,
		Equations: renameEquations(b.Equations, rules),
		Removed:   renameEquations(b.Removed, rules),
		Inputs:    renameSet(b.Inputs, renameSym),
		Outputs:   renameSet(b.Outputs, renameSym),
		IndepVar:  renameSym(b.IndepVar),
	}
	return out
}

// Promote returns a copy of the block with every internal symbol prefixed
// into the given namespace ("plant" turns x into plant.x). Declared inputs,
// outputs, and states are all promoted; the independent variable is shared
// across the system tree and keeps its name.
func Promote(b Block, namespace string) Block {
	if namespace == "" {
		return b
	}
	names := make(map[string]string)
	for _, e := range b.Equations {
		for _, v := range sym.FreeVars(e.LHS) {
			addPromotion(names, v, namespace, b.IndepVar)
		}
		for _, v := range sym.FreeVars(e.RHS) {
			addPromotion(names, v, namespace, b.IndepVar)
		}
	}
	for _, e := range b.Removed {
		for _, v := range sym.FreeVars(e.LHS) {
			addPromotion(names, v, namespace, b.IndepVar)
		}
		for _, v := range sym.FreeVars(e.RHS) {
			addPromotion(names, v, namespace, b.IndepVar)
		}
	}
	for _, s := range b.Inputs {
		addPromotion(names, s, namespace, b.IndepVar)
	}
	for _, s := range b.Outputs {
		addPromotion(names, s, namespace, b.IndepVar)
	}
	return RenameVars(b, names)
}

func addPromotion(names map[string]string, symbol, namespace, indepVar string) {
	if symbol == indepVar {
		return
	}
	if _, ok := names[symbol]; !ok {
		names[symbol] = namespace + "." + symbol
	}
}

func renameEquations(eqs []Equation, rules map[string]sym.Expr) []Equation {
	if len(eqs) == 0 {
		return nil
	}
	out := make([]Equation, len(eqs))
	for i, e := range eqs {
		out[i] = Equation{
			LHS: sym.SubstituteOnce(e.LHS, rules),
			RHS: sym.SubstituteOnce(e.RHS, rules),
		}
	}
	return out
}

func renameSet(names []string, rename func(string) string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, len(names))
	for i, s := range names {
		out[i] = rename(s)
	}
	sort.Strings(out)
	return slices.Compact(out)
}
