// Package sym implements the symbolic expression engine used by the
// equation-reduction pipeline.
//
// Expressions are immutable trees built from a small set of variants:
// numbers ([Num]), variables ([Var]), sums ([Add]), products ([Mul]),
// powers ([Pow]), named function applications ([Call]), and unevaluated
// derivatives with respect to the independent variable ([Der]).
//
// Constructors simplify eagerly: [AddOf], [MulOf], and [PowOf] flatten
// nested terms, fold numeric constants, and normalize ordering, so two
// expressions built from the same inputs compare structurally equal.
//
// # Capabilities
//
// The engine provides the primitives the reduction passes depend on:
//
//   - [FreeVars] / [FreeVarSet]: free-variable extraction
//   - [SubstituteOnce]: single-pass variable substitution
//   - [Substitute]: substitution repeated to a fixed point
//   - [ExpandDerivatives]: chain/product/power-rule unrolling of [Der]
//     nodes over compound expressions
//   - [Eval]: numeric evaluation under a variable assignment
//   - [Parse]: text form used by system definition files
//
// Numbers are exact rationals (math/big), so simplification never loses
// precision; [Eval] converts to float64 at the edges only.
package sym

import (
	"math/big"
	"sort"
)

// Expr is an immutable symbolic expression.
//
// Implementations are value-like: no method mutates the receiver, and every
// transformation returns a new expression. Equal is structural equality over
// the simplified form, suitable for map/set membership via String keys.
type Expr interface {
	// Simplify returns a normalized form of the expression.
	// Constructors already simplify, so calling it twice is a no-op.
	Simplify() Expr

	// String renders the expression in the same text form accepted by Parse.
	String() string

	// Equal reports structural equality with another expression.
	Equal(other Expr) bool

	// apply performs a single substitution pass, replacing free variables
	// by their mapped expressions. It does not re-apply rules to results.
	apply(rules map[string]Expr) Expr

	// free accumulates the names of free variables into vars.
	free(vars map[string]struct{})

	// eval computes a numeric value under env, reporting false if the
	// expression contains an unbound variable or an unresolved derivative.
	eval(env map[string]float64) (float64, bool)
}

// maxSubstituteRounds bounds Substitute's fixed-point iteration so that an
// accidentally self-referential rule set terminates instead of looping.
const maxSubstituteRounds = 64

// =============================================================================
// Num — exact rational constant
// =============================================================================

// Num is an exact rational constant.
type Num struct{ val *big.Rat }

// N creates an integer constant.
func N(n int64) *Num { return &Num{val: new(big.Rat).SetInt64(n)} }

// Frac creates the rational constant p/q. Frac panics if q is zero, matching
// the behavior of big.Rat.
func Frac(p, q int64) *Num { return &Num{val: big.NewRat(p, q)} }

// NumFromRat wraps an existing rational. The value is copied.
func NumFromRat(r *big.Rat) *Num { return &Num{val: new(big.Rat).Set(r)} }

func (n *Num) Simplify() Expr             { return n }
func (n *Num) apply(map[string]Expr) Expr { return n }
func (n *Num) free(map[string]struct{})   {}

// IsZero reports whether the constant is exactly zero.
func (n *Num) IsZero() bool { return n.val.Sign() == 0 }

// IsOne reports whether the constant is exactly one.
func (n *Num) IsOne() bool { return n.val.Cmp(ratOne) == 0 }

// IsNegOne reports whether the constant is exactly minus one.
func (n *Num) IsNegOne() bool { return n.val.Cmp(ratNegOne) == 0 }

// Float64 returns the nearest float64 value.
func (n *Num) Float64() float64 { f, _ := n.val.Float64(); return f }

// Rat returns a copy of the exact rational value.
func (n *Num) Rat() *big.Rat { return new(big.Rat).Set(n.val) }

func (n *Num) Equal(other Expr) bool {
	o, ok := other.(*Num)
	return ok && n.val.Cmp(o.val) == 0
}

func (n *Num) eval(map[string]float64) (float64, bool) { return n.Float64(), true }

func (n *Num) String() string {
	if n.val.IsInt() {
		return n.val.Num().String()
	}
	return n.val.RatString()
}

var (
	ratOne    = new(big.Rat).SetInt64(1)
	ratNegOne = new(big.Rat).SetInt64(-1)
)

func numAdd(a, b *Num) *Num { return &Num{val: new(big.Rat).Add(a.val, b.val)} }
func numMul(a, b *Num) *Num { return &Num{val: new(big.Rat).Mul(a.val, b.val)} }
func numNeg(a *Num) *Num    { return &Num{val: new(big.Rat).Neg(a.val)} }

// =============================================================================
// Var — free variable
// =============================================================================

// Var is a named free variable (a state, input, output, or parameter symbol).
type Var struct{ name string }

// V creates a variable with the given name.
func V(name string) *Var { return &Var{name: name} }

// Name returns the variable's symbol name.
func (v *Var) Name() string { return v.name }

func (v *Var) Simplify() Expr { return v }
func (v *Var) String() string { return v.name }

func (v *Var) Equal(other Expr) bool {
	o, ok := other.(*Var)
	return ok && v.name == o.name
}

func (v *Var) apply(rules map[string]Expr) Expr {
	if r, ok := rules[v.name]; ok {
		return r
	}
	return v
}

func (v *Var) free(vars map[string]struct{}) { vars[v.name] = struct{}{} }

func (v *Var) eval(env map[string]float64) (float64, bool) {
	val, ok := env[v.name]
	return val, ok
}

// =============================================================================
// Package-level operations
// =============================================================================

// Simplify returns the normalized form of e.
func Simplify(e Expr) Expr { return e.Simplify() }

// FreeVarSet returns the set of free variable names in e.
func FreeVarSet(e Expr) map[string]struct{} {
	vars := make(map[string]struct{})
	e.free(vars)
	return vars
}

// FreeVars returns the free variable names in e, sorted.
func FreeVars(e Expr) []string {
	set := FreeVarSet(e)
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasFreeVar reports whether name occurs free in e.
func HasFreeVar(e Expr, name string) bool {
	_, ok := FreeVarSet(e)[name]
	return ok
}

// SubstituteOnce replaces every free variable named in rules by its mapped
// expression, in a single pass. Replacements are not themselves rewritten.
// An empty rule set returns e unchanged.
func SubstituteOnce(e Expr, rules map[string]Expr) Expr {
	if len(rules) == 0 {
		return e
	}
	return e.apply(rules).Simplify()
}

// Substitute applies rules repeatedly until no rule's variable remains free in
// the result, or an internal iteration cap is reached. Use this to inline
// chains of definitions (a -> b, b -> c) in one call. Rule sets with genuine
// cycles stop at the cap rather than diverging.
func Substitute(e Expr, rules map[string]Expr) Expr {
	if len(rules) == 0 {
		return e
	}
	cur := e
	for range maxSubstituteRounds {
		if !anyRuleApplies(cur, rules) {
			break
		}
		cur = cur.apply(rules)
	}
	return cur.Simplify()
}

func anyRuleApplies(e Expr, rules map[string]Expr) bool {
	vars := FreeVarSet(e)
	for name := range rules {
		if _, ok := vars[name]; ok {
			return true
		}
	}
	return false
}

// Eval computes a numeric value for e under env, which maps variable names to
// values. It reports false when e contains a variable missing from env or an
// unexpanded derivative term.
func Eval(e Expr, env map[string]float64) (float64, bool) {
	return e.eval(env)
}

// renderFactor parenthesizes sums when rendered inside a product or power.
func renderFactor(e Expr) string {
	if _, ok := e.(*Add); ok {
		return "(" + e.String() + ")"
	}
	return e.String()
}
