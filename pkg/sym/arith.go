package sym

import (
	"math"
	"math/big"
	"sort"
	"strings"
)

// =============================================================================
// Add — sum of terms
// =============================================================================

// Add is a sum of two or more terms.
type Add struct{ terms []Expr }

// AddOf builds the sum of terms, flattening nested sums, folding numeric
// constants, and collecting repeated variables into coefficients. The result
// may not be an *Add at all: an empty sum is 0, a one-term sum is the term.
func AddOf(terms ...Expr) Expr { return (&Add{terms: terms}).Simplify() }

// SubOf builds the difference a - b.
func SubOf(a, b Expr) Expr { return AddOf(a, MulOf(N(-1), b)) }

// NegOf builds -e.
func NegOf(e Expr) Expr { return MulOf(N(-1), e) }

// Terms returns the simplified term list.
func (a *Add) Terms() []Expr { return a.terms }

func (a *Add) Simplify() Expr {
	flat := make([]Expr, 0, len(a.terms))
	for _, t := range a.terms {
		s := t.Simplify()
		if inner, ok := s.(*Add); ok {
			flat = append(flat, inner.terms...)
		} else {
			flat = append(flat, s)
		}
	}

	numAccum := N(0)
	varCoeffs := map[string]*Num{}
	var varOrder []string
	var others []Expr
	addCoeff := func(name string, c *Num) {
		if _, seen := varCoeffs[name]; !seen {
			varOrder = append(varOrder, name)
			varCoeffs[name] = N(0)
		}
		varCoeffs[name] = numAdd(varCoeffs[name], c)
	}
	for _, t := range flat {
		switch v := t.(type) {
		case *Num:
			numAccum = numAdd(numAccum, v)
		case *Var:
			addCoeff(v.name, N(1))
		default:
			// Coefficient-variable products join the like-term collection,
			// so x + -1*x cancels and x + 2*x folds to 3*x.
			if c, name, ok := coeffVarTerm(t); ok {
				addCoeff(name, c)
				continue
			}
			others = append(others, t)
		}
	}

	sort.Strings(varOrder)
	var result []Expr
	for _, name := range varOrder {
		coeff := varCoeffs[name]
		switch {
		case coeff.IsZero():
		case coeff.IsOne():
			result = append(result, V(name))
		default:
			result = append(result, MulOf(coeff, V(name)))
		}
	}
	result = append(result, others...)
	if !numAccum.IsZero() {
		result = append(result, numAccum)
	}

	switch len(result) {
	case 0:
		return N(0)
	case 1:
		return result[0]
	}
	return &Add{terms: result}
}

// coeffVarTerm matches a product of one numeric coefficient and one bare
// variable (the canonical Mul form puts the coefficient first).
func coeffVarTerm(e Expr) (*Num, string, bool) {
	m, ok := e.(*Mul)
	if !ok || len(m.factors) != 2 {
		return nil, "", false
	}
	c, ok := m.factors[0].(*Num)
	if !ok {
		return nil, "", false
	}
	v, ok := m.factors[1].(*Var)
	if !ok {
		return nil, "", false
	}
	return c, v.name, true
}

func (a *Add) String() string {
	if len(a.terms) == 0 {
		return "0"
	}
	parts := make([]string, len(a.terms))
	for i, t := range a.terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " + ")
}

func (a *Add) Equal(other Expr) bool {
	o, ok := other.(*Add)
	if !ok || len(a.terms) != len(o.terms) {
		return false
	}
	for i := range a.terms {
		if !a.terms[i].Equal(o.terms[i]) {
			return false
		}
	}
	return true
}

func (a *Add) apply(rules map[string]Expr) Expr {
	terms := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		terms[i] = t.apply(rules)
	}
	return AddOf(terms...)
}

func (a *Add) free(vars map[string]struct{}) {
	for _, t := range a.terms {
		t.free(vars)
	}
}

func (a *Add) eval(env map[string]float64) (float64, bool) {
	acc := 0.0
	for _, t := range a.terms {
		v, ok := t.eval(env)
		if !ok {
			return 0, false
		}
		acc += v
	}
	return acc, true
}

// =============================================================================
// Mul — product of factors
// =============================================================================

// Mul is a product of two or more factors.
type Mul struct{ factors []Expr }

// MulOf builds the product of factors, flattening nested products, folding the
// numeric coefficient to the front, and sorting the symbolic factors for a
// canonical order. A zero coefficient collapses the whole product to 0.
func MulOf(factors ...Expr) Expr { return (&Mul{factors: factors}).Simplify() }

// DivOf builds the quotient a / b as a * b^-1.
func DivOf(a, b Expr) Expr { return MulOf(a, PowOf(b, N(-1))) }

// Factors returns the simplified factor list.
func (m *Mul) Factors() []Expr { return m.factors }

func (m *Mul) Simplify() Expr {
	flat := make([]Expr, 0, len(m.factors))
	for _, f := range m.factors {
		s := f.Simplify()
		if inner, ok := s.(*Mul); ok {
			flat = append(flat, inner.factors...)
		} else {
			flat = append(flat, s)
		}
	}

	coeff := N(1)
	var others []Expr
	for _, f := range flat {
		if v, ok := f.(*Num); ok {
			coeff = numMul(coeff, v)
		} else {
			others = append(others, f)
		}
	}
	if coeff.IsZero() {
		return N(0)
	}
	if len(others) == 0 {
		return coeff
	}

	// Sort keys are precomputed so the comparator doesn't re-render.
	keys := make([]string, len(others))
	for i, e := range others {
		keys[i] = e.String()
	}
	sort.Sort(&byKey{exprs: others, keys: keys})

	if coeff.IsOne() {
		if len(others) == 1 {
			return others[0]
		}
		return &Mul{factors: others}
	}
	return &Mul{factors: append([]Expr{coeff}, others...)}
}

type byKey struct {
	exprs []Expr
	keys  []string
}

func (s *byKey) Len() int           { return len(s.exprs) }
func (s *byKey) Less(i, j int) bool { return s.keys[i] < s.keys[j] }
func (s *byKey) Swap(i, j int) {
	s.exprs[i], s.exprs[j] = s.exprs[j], s.exprs[i]
	s.keys[i], s.keys[j] = s.keys[j], s.keys[i]
}

func (m *Mul) String() string {
	if len(m.factors) == 0 {
		return "1"
	}
	parts := make([]string, len(m.factors))
	for i, f := range m.factors {
		parts[i] = renderFactor(f)
	}
	return strings.Join(parts, "*")
}

func (m *Mul) Equal(other Expr) bool {
	o, ok := other.(*Mul)
	if !ok || len(m.factors) != len(o.factors) {
		return false
	}
	for i := range m.factors {
		if !m.factors[i].Equal(o.factors[i]) {
			return false
		}
	}
	return true
}

func (m *Mul) apply(rules map[string]Expr) Expr {
	factors := make([]Expr, len(m.factors))
	for i, f := range m.factors {
		factors[i] = f.apply(rules)
	}
	return MulOf(factors...)
}

func (m *Mul) free(vars map[string]struct{}) {
	for _, f := range m.factors {
		f.free(vars)
	}
}

func (m *Mul) eval(env map[string]float64) (float64, bool) {
	acc := 1.0
	for _, f := range m.factors {
		v, ok := f.eval(env)
		if !ok {
			return 0, false
		}
		acc *= v
	}
	return acc, true
}

// =============================================================================
// Pow — base raised to an exponent
// =============================================================================

// Pow is a base raised to an exponent.
type Pow struct{ base, exp Expr }

// PowOf builds base^exp with the usual identities applied: x^0 is 1, x^1 is x,
// and integer powers of constants are folded.
func PowOf(base, exp Expr) Expr { return (&Pow{base: base, exp: exp}).Simplify() }

// Base returns the simplified base.
func (p *Pow) Base() Expr { return p.base }

// Exp returns the simplified exponent.
func (p *Pow) Exp() Expr { return p.exp }

func (p *Pow) Simplify() Expr {
	base := p.base.Simplify()
	exp := p.exp.Simplify()

	if e, ok := exp.(*Num); ok {
		if e.IsZero() {
			return N(1)
		}
		if e.IsOne() {
			return base
		}
		if b, ok := base.(*Num); ok && e.val.IsInt() {
			return numPow(b, e)
		}
	}
	if b, ok := base.(*Num); ok {
		if b.IsZero() {
			return N(0)
		}
		if b.IsOne() {
			return N(1)
		}
	}
	return &Pow{base: base, exp: exp}
}

// numPow raises an exact rational to an integer power.
func numPow(b, e *Num) *Num {
	n := e.val.Num().Int64()
	neg := n < 0
	if neg {
		n = -n
	}
	acc := new(big.Rat).SetInt64(1)
	for range n {
		acc.Mul(acc, b.val)
	}
	if neg {
		acc.Inv(acc)
	}
	return &Num{val: acc}
}

func (p *Pow) String() string {
	base := renderFactor(p.base)
	if _, ok := p.base.(*Pow); ok {
		base = "(" + p.base.String() + ")"
	}
	exp := renderFactor(p.exp)
	if n, ok := p.exp.(*Num); ok && n.val.Sign() < 0 {
		exp = "(" + n.String() + ")"
	}
	return base + "^" + exp
}

func (p *Pow) Equal(other Expr) bool {
	o, ok := other.(*Pow)
	return ok && p.base.Equal(o.base) && p.exp.Equal(o.exp)
}

func (p *Pow) apply(rules map[string]Expr) Expr {
	return PowOf(p.base.apply(rules), p.exp.apply(rules))
}

func (p *Pow) free(vars map[string]struct{}) {
	p.base.free(vars)
	p.exp.free(vars)
}

func (p *Pow) eval(env map[string]float64) (float64, bool) {
	b, ok := p.base.eval(env)
	if !ok {
		return 0, false
	}
	e, ok := p.exp.eval(env)
	if !ok {
		return 0, false
	}
	return math.Pow(b, e), true
}
