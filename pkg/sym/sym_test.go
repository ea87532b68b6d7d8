package sym

import (
	"math"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"integer", "42", "42"},
		{"decimal", "1.5", "3/2"},
		{"variable", "x", "x"},
		{"namespaced variable", "plant.x", "plant.x"},
		{"sum", "x + y", "x + y"},
		{"difference", "x - y", "x + -1*y"},
		{"product", "2*x", "2*x"},
		{"quotient", "x / 2", "1/2*x"},
		{"power", "x^2", "x^2"},
		{"power right assoc", "x^y^2", "x^y^2"},
		{"unary minus", "-x", "-1*x"},
		{"parens", "(x + y)*2", "2*(x + y)"},
		{"function call", "sin(x)", "sin(x)"},
		{"derivative", "der(x)", "der(x)"},
		{"derivative of constant", "der(3)", "0"},
		{"constant folding", "1 + 2 + x", "x + 3"},
		{"like terms", "x + x", "2*x"},
		{"coefficient folding", "x + 2*x", "3*x"},
		{"cancellation", "x - x", "0"},
		{"coefficient cancellation", "2*x - 2*x", "0"},
		{"zero product", "0*x", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Parse(tt.src)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.src, err)
			}
			if got := e.String(); got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"dangling operator", "x +"},
		{"unclosed paren", "(x + y"},
		{"bad character", "x $ y"},
		{"trailing garbage", "x y"},
		{"der with two args", "der(x, y)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.src); err == nil {
				t.Errorf("Parse(%q) should fail", tt.src)
			}
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	// String output must parse back to a structurally equal expression.
	srcs := []string{
		"x + 2*y - 3",
		"k*sin(theta)^2",
		"der(x) + v/2",
		"-(a + b)/2",
		"x^(-2)",
	}
	for _, src := range srcs {
		e := MustParse(src)
		back, err := Parse(e.String())
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", e.String(), err)
		}
		if !back.Equal(e) {
			t.Errorf("round trip of %q: got %q", src, back.String())
		}
	}
}

func TestSimplify_Idempotent(t *testing.T) {
	srcs := []string{"x + x + 1", "2*x*3", "x^1", "x^0", "(x + y)*(x + y)"}
	for _, src := range srcs {
		e := MustParse(src)
		if !e.Simplify().Equal(e) {
			t.Errorf("Simplify(%q) is not idempotent: %q vs %q", src, e.Simplify(), e)
		}
	}
}

func TestFreeVars(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"x + y", []string{"x", "y"}},
		{"der(x) + v", []string{"v", "x"}},
		{"sin(theta)*k", []string{"k", "theta"}},
		{"3", nil},
		{"x + x", []string{"x"}},
	}
	for _, tt := range tests {
		got := FreeVars(MustParse(tt.src))
		if len(got) != len(tt.want) {
			t.Errorf("FreeVars(%q) = %v, want %v", tt.src, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("FreeVars(%q) = %v, want %v", tt.src, got, tt.want)
				break
			}
		}
	}
}

func TestSubstituteOnce(t *testing.T) {
	e := MustParse("x + y")
	got := SubstituteOnce(e, map[string]Expr{"x": MustParse("y + 1")})
	want := MustParse("2*y + 1")
	if !got.Equal(want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSubstituteOnce_NoRewriteOfReplacement(t *testing.T) {
	// A single pass must not rewrite the substituted result.
	e := MustParse("a")
	got := SubstituteOnce(e, map[string]Expr{"a": V("b"), "b": V("c")})
	if !got.Equal(V("b")) {
		t.Errorf("got %q, want b", got)
	}
}

func TestSubstitute_Chain(t *testing.T) {
	// Chained rules resolve to a fixed point.
	e := MustParse("a + 1")
	rules := map[string]Expr{
		"a": MustParse("b + 1"),
		"b": MustParse("c + 1"),
	}
	got := Substitute(e, rules)
	want := MustParse("c + 3")
	if !got.Equal(want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSubstitute_CycleTerminates(t *testing.T) {
	rules := map[string]Expr{
		"a": V("b"),
		"b": V("a"),
	}
	// Must terminate; the result is one of the two symbols.
	got := Substitute(V("a"), rules)
	if !got.Equal(V("a")) && !got.Equal(V("b")) {
		t.Errorf("got %q, want a or b", got)
	}
}

func TestSubstitute_InsideDerivative(t *testing.T) {
	// Substituting a constant into der(...) collapses the derivative.
	e := MustParse("der(x) + y")
	got := Substitute(e, map[string]Expr{"x": N(1)})
	if !got.Equal(V("y")) {
		t.Errorf("got %q, want y", got)
	}
}

func TestExpandDerivatives(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"sum rule", "der(x + y)", "der(x) + der(y)"},
		{"constant", "der(5)", "0"},
		{"scaled variable", "der(2*x)", "2*der(x)"},
		{"product rule", "der(x*y)", "der(x)*y + der(y)*x"},
		{"power rule", "der(x^2)", "2*der(x)*x"},
		{"chain rule sin", "der(sin(x))", "cos(x)*der(x)"},
		{"bare variable", "der(x)", "der(x)"},
		{"unknown function", "der(f(x))", "der(f(x))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandDerivatives(MustParse(tt.src))
			want := MustParse(tt.want)
			if !got.Equal(want) {
				t.Errorf("ExpandDerivatives(%q) = %q, want %q", tt.src, got, want)
			}
		})
	}
}

func TestEval(t *testing.T) {
	env := map[string]float64{"x": 2, "y": 3}
	tests := []struct {
		src  string
		want float64
	}{
		{"x + y", 5},
		{"x*y", 6},
		{"x^2", 4},
		{"x/y", 2.0 / 3.0},
		{"sin(0)", 0},
		{"exp(0) + x", 3},
		{"-x", -2},
	}
	for _, tt := range tests {
		got, ok := Eval(MustParse(tt.src), env)
		if !ok {
			t.Errorf("Eval(%q) reported failure", tt.src)
			continue
		}
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Eval(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestEval_Unbound(t *testing.T) {
	if _, ok := Eval(MustParse("x + z"), map[string]float64{"x": 1}); ok {
		t.Error("Eval should fail on unbound variable")
	}
	if _, ok := Eval(MustParse("der(x)"), map[string]float64{"x": 1}); ok {
		t.Error("Eval should fail on unexpanded derivative")
	}
}

func TestReplace(t *testing.T) {
	// Replace matches whole subterms, so der(x) can be rewritten even though
	// it is not a variable.
	e := MustParse("der(x) + der(x)*y")
	got := Replace(e, DerOf(V("x")), V("v"))
	want := MustParse("v + v*y")
	if !got.Equal(want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDerTerms(t *testing.T) {
	e := MustParse("der(x) + der(y)*der(x)")
	terms := DerTerms(e)
	if len(terms) != 2 {
		t.Fatalf("DerTerms returned %d terms, want 2", len(terms))
	}
	if !ContainsDer(e) {
		t.Error("ContainsDer should report true")
	}
	if ContainsDer(MustParse("x + y")) {
		t.Error("ContainsDer should report false without der terms")
	}
}

func TestFrac(t *testing.T) {
	if got := Frac(1, 2).String(); got != "1/2" {
		t.Errorf("Frac(1,2) = %q, want 1/2", got)
	}
	sum := AddOf(Frac(1, 3), Frac(1, 6))
	if !sum.Equal(Frac(1, 2)) {
		t.Errorf("1/3 + 1/6 = %q, want 1/2", sum)
	}
}
