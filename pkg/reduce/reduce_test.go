package reduce

import (
	"math"
	"testing"

	"github.com/eqflat/eqflat/pkg/depgraph"
	"github.com/eqflat/eqflat/pkg/eqn"
	"github.com/eqflat/eqflat/pkg/sym"
)

func mustBlock(t *testing.T, name string, equations []string, inputs, outputs []string) eqn.Block {
	t.Helper()
	eqs := make([]eqn.Equation, len(equations))
	for i, src := range equations {
		e, err := eqn.ParseEquation(src)
		if err != nil {
			t.Fatalf("ParseEquation(%q) error: %v", src, err)
		}
		eqs[i] = e
	}
	b, err := eqn.NewBlock(name, eqs, inputs, outputs, "t")
	if err != nil {
		t.Fatalf("NewBlock(%q) error: %v", name, err)
	}
	return b
}

func equationStrings(eqs []eqn.Equation) []string {
	out := make([]string, len(eqs))
	for i, e := range eqs {
		out[i] = e.String()
	}
	return out
}

// =============================================================================
// Prune
// =============================================================================

func TestPrune(t *testing.T) {
	b := mustBlock(t, "m",
		[]string{"y = u + 1", "z = p*2"},
		[]string{"u"}, []string{"y"})

	got := Prune(b, nil)
	if len(got.Equations) != 1 {
		t.Fatalf("kept %v, want only the output chain", equationStrings(got.Equations))
	}
	if got.Equations[0].String() != "y = u + 1" {
		t.Errorf("kept %q, want the y equation", got.Equations[0])
	}
	if len(got.Removed) != 1 || got.Removed[0].String() != "z = 2*p" {
		t.Errorf("removed %v, want the z equation", equationStrings(got.Removed))
	}
}

func TestPrune_KeepsTransitiveChain(t *testing.T) {
	b := mustBlock(t, "m",
		[]string{"a = 1", "b = a + 1", "y = b", "dead = 7"},
		nil, []string{"y"})

	got := Prune(b, nil)
	if len(got.Equations) != 3 {
		t.Fatalf("kept %v, want the full a->b->y chain", equationStrings(got.Equations))
	}
	if len(got.Removed) != 1 || got.Removed[0].String() != "dead = 7" {
		t.Errorf("removed %v, want [dead = 7]", equationStrings(got.Removed))
	}
}

func TestPrune_NoOutputs(t *testing.T) {
	b := mustBlock(t, "m", []string{"a = 1"}, nil, nil)
	got := Prune(b, nil)
	if len(got.Equations) != 1 || len(got.Removed) != 0 {
		t.Error("prune without outputs should be a no-op")
	}
}

func TestPrune_ImplicitOutput(t *testing.T) {
	// y is declared an output but only appears inside an implicit equation,
	// so pruning must degrade to a no-op.
	b := mustBlock(t, "m",
		[]string{"0 = y + u", "dead = 1"},
		[]string{"u"}, []string{"y"})
	got := Prune(b, nil)
	if len(got.Equations) != 2 || len(got.Removed) != 0 {
		t.Error("prune with an implicit output should be a no-op")
	}
}

func TestPrune_ReachabilitySoundness(t *testing.T) {
	// Every kept equation must reach an output definer in the dependency
	// graph; every removed one must not.
	b := mustBlock(t, "m",
		[]string{"a = 1", "y = a", "p = 2", "q = p"},
		nil, []string{"y"})

	got := Prune(b, nil)
	definers, missing := got.OutputDefiners()
	if len(missing) > 0 {
		t.Fatalf("outputs lost their definers: %v", missing)
	}
	g := depgraph.FromEquations(got.Equations)
	targets := make([]int, 0, len(definers))
	for _, idx := range definers {
		targets = append(targets, idx)
	}
	reach := g.ReachableTo(targets)
	for i := range got.Equations {
		if !reach[i] {
			t.Errorf("kept equation %q cannot reach any output", got.Equations[i])
		}
	}
	for _, e := range got.Removed {
		for _, kept := range got.Equations {
			if kept.String() == e.String() {
				t.Errorf("equation %q both kept and removed", e)
			}
		}
	}
}

// =============================================================================
// Inline
// =============================================================================

func TestInline(t *testing.T) {
	b := mustBlock(t, "m",
		[]string{"a = u + 1", "y = a*2"},
		[]string{"u"}, []string{"y"})

	got := Inline(b, nil)
	if len(got.Equations) != 1 {
		t.Fatalf("kept %v, want only the output equation", equationStrings(got.Equations))
	}
	want := sym.MustParse("2*(u + 1)")
	if !got.Equations[0].RHS.Equal(want) {
		t.Errorf("y RHS = %q, want %q", got.Equations[0].RHS, want)
	}
	if len(got.Removed) != 1 {
		t.Errorf("removed %v, want the inlined a equation", equationStrings(got.Removed))
	}
}

func TestInline_ChainResolvesFully(t *testing.T) {
	// a -> b -> c chains must inline to a fixed point: no rule symbol may
	// remain free in any surviving right-hand side.
	b := mustBlock(t, "m",
		[]string{"a = 1", "b = a + 1", "c = b + 1", "y = c"},
		nil, []string{"y"})

	got := Inline(b, nil)
	if len(got.Equations) != 1 {
		t.Fatalf("kept %v, want only y", equationStrings(got.Equations))
	}
	if !got.Equations[0].RHS.Equal(sym.N(3)) {
		t.Errorf("y RHS = %q, want 3", got.Equations[0].RHS)
	}
	for _, e := range got.Equations {
		for _, v := range sym.FreeVars(e.RHS) {
			for _, r := range got.Removed {
				if s := eqn.DefinedSymbol(r); s == v {
					t.Errorf("inlined symbol %q still free in %q", v, e)
				}
			}
		}
	}
}

func TestInline_OutputsExcluded(t *testing.T) {
	// Output-defining equations are never inlined away.
	b := mustBlock(t, "m",
		[]string{"y = u", "z = y"},
		[]string{"u"}, []string{"y", "z"})

	got := Inline(b, nil)
	if len(got.Equations) != 2 {
		t.Errorf("kept %v, outputs must survive", equationStrings(got.Equations))
	}
}

func TestInline_MutualCycle(t *testing.T) {
	b := mustBlock(t, "m",
		[]string{"a = b + 1", "b = a + 1", "c = 5", "y = a + b + c"},
		nil, []string{"y"})

	got := Inline(b, nil)

	// Conservation: nothing appears or disappears.
	if len(got.Equations)+len(got.Removed) != 4 {
		t.Errorf("equation count not conserved: %d kept + %d removed",
			len(got.Equations), len(got.Removed))
	}

	// At most one side of the mutual cycle may be inlined, so at least one
	// of a, b survives.
	var aOrB int
	for _, e := range got.Equations {
		if s := eqn.DefinedSymbol(e); s == "a" || s == "b" {
			aOrB++
		}
	}
	if aOrB == 0 {
		t.Errorf("both cycle members inlined: %v", equationStrings(got.Equations))
	}
}

func TestInline_SelfReference(t *testing.T) {
	// x = x + 1 can never be substituted away.
	b := mustBlock(t, "m",
		[]string{"x = x + 1", "y = x"},
		nil, []string{"y"})

	got := Inline(b, nil)
	if len(got.Equations) != 2 {
		t.Errorf("kept %v, self-referential candidate must survive", equationStrings(got.Equations))
	}
}

func TestInline_RevealedImplicit(t *testing.T) {
	// Substituting into the implicit LHS reveals a single unknown, which is
	// canonicalized to the zero form.
	b := mustBlock(t, "m",
		[]string{"a = 2", "a + z = 4"},
		nil, []string{"z"})

	got := Inline(b, nil)
	var implicit *eqn.Equation
	for i := range got.Equations {
		if kind, _ := eqn.Classify(got.Equations[i]); kind == eqn.ImplicitAlgebraic {
			implicit = &got.Equations[i]
		}
	}
	if implicit == nil {
		t.Fatalf("no implicit equation in %v", equationStrings(got.Equations))
	}
	if !implicit.LHS.Equal(sym.N(0)) {
		t.Errorf("implicit LHS = %q, want the zero form", implicit.LHS)
	}
}

func TestInline_Idempotent(t *testing.T) {
	b := mustBlock(t, "m",
		[]string{"a = u + 1", "b = a*2", "y = b + a"},
		[]string{"u"}, []string{"y"})

	once := Inline(b, nil)
	twice := Inline(once, nil)
	if len(twice.Equations) != len(once.Equations) {
		t.Fatalf("second inline changed the equation count")
	}
	for i := range once.Equations {
		if once.Equations[i].String() != twice.Equations[i].String() {
			t.Errorf("equation %d changed on re-run: %q vs %q",
				i, once.Equations[i], twice.Equations[i])
		}
	}
}

func TestInline_SemanticPreservation(t *testing.T) {
	// The surviving output equation must evaluate to the same number as the
	// original system solved by hand.
	b := mustBlock(t, "m",
		[]string{"a = u + 1", "b = a*a", "y = b + a"},
		[]string{"u"}, []string{"y"})

	got := Inline(b, nil)
	env := map[string]float64{"u": 3}
	// By hand: a = 4, b = 16, y = 20.
	var y eqn.Equation
	for _, e := range got.Equations {
		if eqn.DefinedSymbol(e) == "y" {
			y = e
		}
	}
	val, ok := sym.Eval(y.RHS, env)
	if !ok {
		t.Fatalf("y RHS %q not closed over inputs", y.RHS)
	}
	if math.Abs(val-20) > 1e-9 {
		t.Errorf("y(u=3) = %v, want 20", val)
	}
}

func TestPlanRules_AcyclicSelection(t *testing.T) {
	eqs := []eqn.Equation{}
	for _, src := range []string{"a = b + 1", "b = a + 1", "c = a", "d = 7"} {
		e, err := eqn.ParseEquation(src)
		if err != nil {
			t.Fatal(err)
		}
		eqs = append(eqs, e)
	}
	plan := PlanRules(eqs, nil)
	if plan.Candidates != 4 {
		t.Errorf("Candidates = %d, want 4", plan.Candidates)
	}

	// The selected rule set must itself be cycle-free.
	var nodes []depgraph.Candidate
	for s, rhs := range plan.Rules {
		nodes = append(nodes, depgraph.Candidate{Symbol: s, RHS: rhs})
	}
	if depgraph.SymbolGraph(nodes).HasCycle() {
		t.Errorf("selected rules form a cycle: %v", plan.Rules)
	}

	// d and c are cycle-free and must always be selected.
	if _, ok := plan.Rules["d"]; !ok {
		t.Error("cycle-free candidate d not selected")
	}
	if _, ok := plan.Rules["c"]; !ok {
		t.Error("cycle-free candidate c not selected")
	}
}

func TestPlanRules_Deterministic(t *testing.T) {
	srcs := []string{"a = b", "b = c", "c = a", "x = a + b"}
	build := func() Plan {
		eqs := make([]eqn.Equation, len(srcs))
		for i, src := range srcs {
			e, err := eqn.ParseEquation(src)
			if err != nil {
				t.Fatal(err)
			}
			eqs[i] = e
		}
		return PlanRules(eqs, nil)
	}
	p1, p2 := build(), build()
	if len(p1.Indices) != len(p2.Indices) {
		t.Fatalf("plans differ in size: %v vs %v", p1.Indices, p2.Indices)
	}
	for i := range p1.Indices {
		if p1.Indices[i] != p2.Indices[i] {
			t.Errorf("plans differ at %d: %v vs %v", i, p1.Indices, p2.Indices)
		}
	}
}

// =============================================================================
// ResolveDerivatives
// =============================================================================

func TestResolveDerivatives_KnownTerm(t *testing.T) {
	b := mustBlock(t, "m",
		[]string{"der(x) = v", "y = der(x) + 1"},
		[]string{"v"}, []string{"y"})

	got := ResolveDerivatives(b, nil)
	want := sym.MustParse("v + 1")
	if !got.Equations[1].RHS.Equal(want) {
		t.Errorf("y RHS = %q, want %q", got.Equations[1].RHS, want)
	}
	// The defining equation itself is untouched.
	if got.Equations[0].String() != "der(x) = v" {
		t.Errorf("definition changed: %q", got.Equations[0])
	}
}

func TestResolveDerivatives_Expansion(t *testing.T) {
	// der(a) has no direct definition; a = x + c inlines first, then the
	// expansion resolves against der(x) = v.
	b := mustBlock(t, "m",
		[]string{"a = x + c", "der(x) = v", "y = der(a)"},
		[]string{"v"}, []string{"y"})

	got := ResolveDerivatives(b, nil)
	rhs := got.Equations[2].RHS
	if sym.ContainsDer(rhs) {
		// der(c) survives only if c is free; here c is not a state, so the
		// remnant der(c) is the expected residue.
		remnants := sym.DerTerms(rhs)
		for _, r := range remnants {
			if r.String() == "der(x)" || r.String() == "der(a)" {
				t.Errorf("resolvable term %q survived in %q", r, rhs)
			}
		}
	}
	if !sym.HasFreeVar(rhs, "v") {
		t.Errorf("y RHS = %q, want the state derivative v substituted in", rhs)
	}
}

func TestResolveDerivatives_NoTerms(t *testing.T) {
	b := mustBlock(t, "m", []string{"y = u"}, []string{"u"}, []string{"y"})
	got := ResolveDerivatives(b, nil)
	if got.Equations[0].String() != "y = u" {
		t.Error("block without derivative terms should pass through unchanged")
	}
}

func TestResolveDerivatives_Unresolved(t *testing.T) {
	// der(w) has no definition anywhere; the pass keeps it rather than fail.
	b := mustBlock(t, "m",
		[]string{"y = der(w)"},
		[]string{"w"}, []string{"y"})

	got := ResolveDerivatives(b, nil)
	if !sym.ContainsDer(got.Equations[0].RHS) {
		t.Errorf("unresolvable derivative vanished: %q", got.Equations[0])
	}
}

// =============================================================================
// Simplify
// =============================================================================

func TestSimplify(t *testing.T) {
	e := eqn.Eq(sym.V("y"), sym.AddOf(sym.V("x"), sym.V("x"), sym.N(0)))
	b := eqn.Block{Name: "m", Equations: []eqn.Equation{e}}
	got := Simplify(b)
	if got.Equations[0].String() != "y = 2*x" {
		t.Errorf("simplified to %q, want y = 2*x", got.Equations[0])
	}
}
