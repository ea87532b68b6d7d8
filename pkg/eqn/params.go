package eqn

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/eqflat/eqflat/pkg/sym"
)

// ErrNonNumericParam is returned by [SetParams] when a parameter value cannot
// be interpreted as a number.
var ErrNonNumericParam = errors.New("non-numeric parameter value")

// SetParams returns a copy of the block with each named parameter symbol
// replaced by its numeric value across equations and removed equations.
// Accepted value types: int, int64, float64, *big.Rat, and *sym.Num.
// Anything else yields [ErrNonNumericParam].
func SetParams(b Block, params map[string]any) (Block, error) {
	if len(params) == 0 {
		return b, nil
	}
	rules := make(map[string]sym.Expr, len(params))
	for name, val := range params {
		num, err := numValue(val)
		if err != nil {
			return Block{}, fmt.Errorf("parameter %q: %w", name, err)
		}
		rules[name] = num
	}
	return b.WithEquations(
		renameEquations(b.Equations, rules),
		renameEquations(b.Removed, rules),
	), nil
}

func numValue(val any) (sym.Expr, error) {
	switch v := val.(type) {
	case int:
		return sym.N(int64(v)), nil
	case int64:
		return sym.N(v), nil
	case float64:
		r := new(big.Rat)
		if _, ok := r.SetString(fmt.Sprintf("%g", v)); !ok {
			return nil, fmt.Errorf("%v: %w", val, ErrNonNumericParam)
		}
		return sym.NumFromRat(r), nil
	case *big.Rat:
		return sym.NumFromRat(v), nil
	case *sym.Num:
		return v, nil
	}
	return nil, fmt.Errorf("%T: %w", val, ErrNonNumericParam)
}
