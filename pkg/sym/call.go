package sym

import (
	"math"
	"strings"
)

// =============================================================================
// Call — named function application
// =============================================================================

// Call is an application of a named function to one or more arguments.
// Well-known single-argument functions (sin, cos, exp, ln, ...) evaluate
// numerically and participate in derivative expansion; unknown names are
// carried through symbolically.
type Call struct {
	name string
	args []Expr
}

// CallOf builds a function application.
func CallOf(name string, args ...Expr) Expr {
	return (&Call{name: name, args: args}).Simplify()
}

// Convenience constructors for the common single-argument functions.
func SinOf(arg Expr) Expr  { return CallOf("sin", arg) }
func CosOf(arg Expr) Expr  { return CallOf("cos", arg) }
func TanOf(arg Expr) Expr  { return CallOf("tan", arg) }
func ExpOf(arg Expr) Expr  { return CallOf("exp", arg) }
func LnOf(arg Expr) Expr   { return CallOf("ln", arg) }
func SqrtOf(arg Expr) Expr { return PowOf(arg, Frac(1, 2)) }

// FuncName returns the function's name.
func (c *Call) FuncName() string { return c.name }

// Args returns the simplified argument list.
func (c *Call) Args() []Expr { return c.args }

func (c *Call) Simplify() Expr {
	args := make([]Expr, len(c.args))
	for i, a := range c.args {
		args[i] = a.Simplify()
	}
	return &Call{name: c.name, args: args}
}

func (c *Call) String() string {
	parts := make([]string, len(c.args))
	for i, a := range c.args {
		parts[i] = a.String()
	}
	return c.name + "(" + strings.Join(parts, ", ") + ")"
}

func (c *Call) Equal(other Expr) bool {
	o, ok := other.(*Call)
	if !ok || c.name != o.name || len(c.args) != len(o.args) {
		return false
	}
	for i := range c.args {
		if !c.args[i].Equal(o.args[i]) {
			return false
		}
	}
	return true
}

func (c *Call) apply(rules map[string]Expr) Expr {
	args := make([]Expr, len(c.args))
	for i, a := range c.args {
		args[i] = a.apply(rules)
	}
	return CallOf(c.name, args...)
}

func (c *Call) free(vars map[string]struct{}) {
	for _, a := range c.args {
		a.free(vars)
	}
}

// evalFuncs maps the well-known single-argument functions to their numeric
// implementations.
var evalFuncs = map[string]func(float64) float64{
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
	"asin": math.Asin,
	"acos": math.Acos,
	"atan": math.Atan,
	"sinh": math.Sinh,
	"cosh": math.Cosh,
	"tanh": math.Tanh,
	"exp":  math.Exp,
	"ln":   math.Log,
	"abs":  math.Abs,
}

func (c *Call) eval(env map[string]float64) (float64, bool) {
	fn, ok := evalFuncs[c.name]
	if !ok || len(c.args) != 1 {
		return 0, false
	}
	v, ok := c.args[0].eval(env)
	if !ok {
		return 0, false
	}
	return fn(v), true
}

// =============================================================================
// Der — unevaluated derivative
// =============================================================================

// Der is an unevaluated derivative with respect to the block's independent
// variable, written der(expr) in text form. Derivatives of bare variables are
// atomic; derivatives of compound expressions are unrolled by
// [ExpandDerivatives].
type Der struct{ arg Expr }

// DerOf builds der(arg). The derivative of a constant collapses to 0
// immediately; anything else stays unevaluated.
func DerOf(arg Expr) Expr { return (&Der{arg: arg}).Simplify() }

// Arg returns the differentiated expression.
func (d *Der) Arg() Expr { return d.arg }

func (d *Der) Simplify() Expr {
	arg := d.arg.Simplify()
	if _, ok := arg.(*Num); ok {
		return N(0)
	}
	return &Der{arg: arg}
}

func (d *Der) String() string { return "der(" + d.arg.String() + ")" }

func (d *Der) Equal(other Expr) bool {
	o, ok := other.(*Der)
	return ok && d.arg.Equal(o.arg)
}

func (d *Der) apply(rules map[string]Expr) Expr {
	return DerOf(d.arg.apply(rules))
}

func (d *Der) free(vars map[string]struct{}) { d.arg.free(vars) }

// An unexpanded derivative has no numeric value.
func (d *Der) eval(map[string]float64) (float64, bool) { return 0, false }

// =============================================================================
// Derivative expansion
// =============================================================================

// derivFuncs maps a function name to the derivative of f(u) in terms of u.
// The chain-rule factor der(u) is applied by the caller.
var derivFuncs = map[string]func(u Expr) Expr{
	"sin":  func(u Expr) Expr { return CosOf(u) },
	"cos":  func(u Expr) Expr { return NegOf(SinOf(u)) },
	"tan":  func(u Expr) Expr { return PowOf(CosOf(u), N(-2)) },
	"exp":  func(u Expr) Expr { return ExpOf(u) },
	"ln":   func(u Expr) Expr { return PowOf(u, N(-1)) },
	"sinh": func(u Expr) Expr { return CallOf("cosh", u) },
	"cosh": func(u Expr) Expr { return CallOf("sinh", u) },
	"tanh": func(u Expr) Expr { return SubOf(N(1), PowOf(CallOf("tanh", u), N(2))) },
}

// ExpandDerivatives unrolls derivative nodes over compound expressions using
// the sum, product, power, and chain rules, leaving derivatives of bare
// variables (and of unknown functions) as atomic der(...) terms.
func ExpandDerivatives(e Expr) Expr {
	return expandDer(e).Simplify()
}

func expandDer(e Expr) Expr {
	switch v := e.(type) {
	case *Num, *Var:
		return e
	case *Add:
		terms := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			terms[i] = expandDer(t)
		}
		return AddOf(terms...)
	case *Mul:
		factors := make([]Expr, len(v.factors))
		for i, f := range v.factors {
			factors[i] = expandDer(f)
		}
		return MulOf(factors...)
	case *Pow:
		return PowOf(expandDer(v.base), expandDer(v.exp))
	case *Call:
		args := make([]Expr, len(v.args))
		for i, a := range v.args {
			args[i] = expandDer(a)
		}
		return CallOf(v.name, args...)
	case *Der:
		return derive(expandDer(v.arg))
	}
	return e
}

// derive computes der(arg) with one level of calculus rules applied, recursing
// into subterms. Bare variables and irreducible terms come back as der(...).
func derive(arg Expr) Expr {
	switch v := arg.(type) {
	case *Num:
		return N(0)
	case *Var:
		return &Der{arg: v}
	case *Add:
		terms := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			terms[i] = derive(t)
		}
		return AddOf(terms...)
	case *Mul:
		// Product rule: sum over factors of d(f_i) * prod(f_j, j != i).
		terms := make([]Expr, len(v.factors))
		for i := range v.factors {
			factors := make([]Expr, 0, len(v.factors))
			factors = append(factors, derive(v.factors[i]))
			for j, f := range v.factors {
				if j != i {
					factors = append(factors, f)
				}
			}
			terms[i] = MulOf(factors...)
		}
		return AddOf(terms...)
	case *Pow:
		if n, ok := v.exp.(*Num); ok {
			// d(u^n) = n * u^(n-1) * d(u)
			return MulOf(n, PowOf(v.base, numAdd(n, N(-1))), derive(v.base))
		}
		// d(u^w) = u^w * (d(w)*ln(u) + w*d(u)/u)
		return MulOf(v, AddOf(
			MulOf(derive(v.exp), LnOf(v.base)),
			MulOf(v.exp, derive(v.base), PowOf(v.base, N(-1))),
		))
	case *Call:
		if fd, ok := derivFuncs[v.name]; ok && len(v.args) == 1 {
			return MulOf(fd(v.args[0]), derive(v.args[0]))
		}
		// Unknown function: keep the derivative unevaluated.
		return &Der{arg: v}
	}
	return &Der{arg: arg}
}

// =============================================================================
// Term-level replacement and derivative collection
// =============================================================================

// Replace substitutes every subterm of e structurally equal to old with repl.
// Unlike [SubstituteOnce] it matches whole subtrees, not just variables, which
// the derivative resolver uses to rewrite der(...) terms.
func Replace(e, old, repl Expr) Expr {
	return replaceTerm(e, old, repl).Simplify()
}

// ReplaceAll applies a set of term replacements in one pass over e.
// Replacement results are not re-matched.
func ReplaceAll(e Expr, repls []TermRule) Expr {
	cur := e
	for _, r := range repls {
		cur = replaceTerm(cur, r.Term, r.Repl)
	}
	return cur.Simplify()
}

// TermRule maps one subterm to its replacement.
type TermRule struct {
	Term Expr
	Repl Expr
}

func replaceTerm(e, old, repl Expr) Expr {
	if e.Equal(old) {
		return repl
	}
	switch v := e.(type) {
	case *Add:
		terms := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			terms[i] = replaceTerm(t, old, repl)
		}
		return AddOf(terms...)
	case *Mul:
		factors := make([]Expr, len(v.factors))
		for i, f := range v.factors {
			factors[i] = replaceTerm(f, old, repl)
		}
		return MulOf(factors...)
	case *Pow:
		return PowOf(replaceTerm(v.base, old, repl), replaceTerm(v.exp, old, repl))
	case *Call:
		args := make([]Expr, len(v.args))
		for i, a := range v.args {
			args[i] = replaceTerm(a, old, repl)
		}
		return CallOf(v.name, args...)
	case *Der:
		return DerOf(replaceTerm(v.arg, old, repl))
	}
	return e
}

// DerTerms collects the distinct der(...) subterms of e in first-occurrence
// order (pre-order traversal). The order is deterministic for a given
// expression, which keeps downstream resolution reproducible.
func DerTerms(e Expr) []Expr {
	var terms []Expr
	seen := make(map[string]struct{})
	collectDerTerms(e, &terms, seen)
	return terms
}

func collectDerTerms(e Expr, terms *[]Expr, seen map[string]struct{}) {
	switch v := e.(type) {
	case *Der:
		key := v.String()
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			*terms = append(*terms, v)
		}
	case *Add:
		for _, t := range v.terms {
			collectDerTerms(t, terms, seen)
		}
	case *Mul:
		for _, f := range v.factors {
			collectDerTerms(f, terms, seen)
		}
	case *Pow:
		collectDerTerms(v.base, terms, seen)
		collectDerTerms(v.exp, terms, seen)
	case *Call:
		for _, a := range v.args {
			collectDerTerms(a, terms, seen)
		}
	}
}

// ContainsDer reports whether e contains any der(...) subterm.
func ContainsDer(e Expr) bool { return len(DerTerms(e)) > 0 }
