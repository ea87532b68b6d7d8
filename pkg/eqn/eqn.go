// Package eqn defines the equation, block, and system value objects that the
// reduction pipeline operates on.
//
// An [Equation] is an ordered (LHS, RHS) pair of symbolic expressions. A
// [Block] is a flattened unit: a named, ordered equation list with declared
// input and output symbols, an independent variable, and a side-channel of
// removed equations kept for traceability. A [System] is a composition of
// blocks and nested systems plus wiring and renaming rules; it holds no
// equations of its own until flattened by the pipeline.
//
// All three are immutable value objects: every transformation constructs a
// new value and never mutates its input. Equation order is significant and is
// preserved by every operation in this package.
package eqn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eqflat/eqflat/pkg/sym"
)

var (
	// ErrSymbolCollision is returned by [NewBlock] when two equations define
	// the same state symbol or share an identical left-hand side.
	ErrSymbolCollision = errors.New("duplicate left-hand side symbol")

	// ErrInputDefined is returned by [NewBlock] when a declared input symbol
	// is also defined by one of the block's own equations. Inputs are driven
	// externally and must not have an internal definition.
	ErrInputDefined = errors.New("input symbol defined by an equation")

	// ErrInvalidSymbol is returned when a declared input, output, or
	// independent-variable symbol is not a well-formed identifier.
	ErrInvalidSymbol = errors.New("malformed symbol name")

	// ErrSubsystemCycle is returned by [NewSystem] when the same system or
	// block value appears twice on a containment path. The subsystem tree
	// must be a tree, not a graph.
	ErrSubsystemCycle = errors.New("cycle in subsystem containment")

	// ErrDuplicateSubsystem is returned by [NewSystem] when two direct
	// subsystems share a name. Names scope the promoted symbols, so they
	// must be unique among siblings.
	ErrDuplicateSubsystem = errors.New("duplicate subsystem name")
)

// Equation is an ordered pair of symbolic expressions, read "LHS = RHS".
type Equation struct {
	LHS sym.Expr
	RHS sym.Expr
}

// Eq builds an equation from its two sides.
func Eq(lhs, rhs sym.Expr) Equation { return Equation{LHS: lhs, RHS: rhs} }

// ParseEquation reads an equation from its "lhs = rhs" text form.
func ParseEquation(src string) (Equation, error) {
	lhsText, rhsText, ok := strings.Cut(src, "=")
	if !ok {
		return Equation{}, fmt.Errorf("equation %q: missing '='", src)
	}
	lhs, err := sym.Parse(lhsText)
	if err != nil {
		return Equation{}, fmt.Errorf("equation %q: left side: %w", src, err)
	}
	rhs, err := sym.Parse(rhsText)
	if err != nil {
		return Equation{}, fmt.Errorf("equation %q: right side: %w", src, err)
	}
	return Equation{LHS: lhs, RHS: rhs}, nil
}

// String renders the equation in its text form.
func (e Equation) String() string { return e.LHS.String() + " = " + e.RHS.String() }

// Kind classifies an equation by the shape of its left-hand side.
// Classification is structural and never fails: any shape that is not a bare
// variable or a derivative of a bare variable lands in an implicit kind.
type Kind int

const (
	// ExplicitAlgebraic: the LHS is a bare state symbol (x = ...).
	ExplicitAlgebraic Kind = iota
	// ExplicitDifferential: the LHS is the derivative of a bare state symbol
	// (der(x) = ...).
	ExplicitDifferential
	// ImplicitAlgebraic: any other LHS with no derivative terms on either
	// side (0 = f(...)).
	ImplicitAlgebraic
	// ImplicitDifferential: any other LHS where the equation carries
	// derivative terms.
	ImplicitDifferential
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case ExplicitAlgebraic:
		return "explicit_algebraic"
	case ExplicitDifferential:
		return "explicit_differential"
	case ImplicitAlgebraic:
		return "implicit_algebraic"
	case ImplicitDifferential:
		return "implicit_differential"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsExplicit reports whether the kind defines a state symbol directly.
func (k Kind) IsExplicit() bool { return k == ExplicitAlgebraic || k == ExplicitDifferential }

// Classify tags the equation by its left-hand shape and, for explicit kinds,
// returns the defined state symbol. For implicit kinds the symbol is empty.
func Classify(e Equation) (Kind, string) {
	switch lhs := e.LHS.(type) {
	case *sym.Var:
		return ExplicitAlgebraic, lhs.Name()
	case *sym.Der:
		if v, ok := lhs.Arg().(*sym.Var); ok {
			return ExplicitDifferential, v.Name()
		}
	}
	if sym.ContainsDer(e.LHS) || sym.ContainsDer(e.RHS) {
		return ImplicitDifferential, ""
	}
	return ImplicitAlgebraic, ""
}

// DefinedSymbol returns the state symbol the equation explicitly defines,
// or "" for implicit equations.
func DefinedSymbol(e Equation) string {
	_, s := Classify(e)
	return s
}
