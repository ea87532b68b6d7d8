package sysdef

import (
	"encoding/json"

	"github.com/eqflat/eqflat/pkg/eqn"
	apperrors "github.com/eqflat/eqflat/pkg/errors"
)

// BlockJSON is the wire form of a reduced block, used for cache entries and
// API responses. Equations travel as their text form and are re-parsed on
// decode.
type BlockJSON struct {
	Name      string   `json:"name"`
	IndepVar  string   `json:"indep_var,omitempty"`
	Inputs    []string `json:"inputs,omitempty"`
	Outputs   []string `json:"outputs,omitempty"`
	Equations []string `json:"equations"`
	Removed   []string `json:"removed_equations,omitempty"`
}

// ToJSON converts a block to its wire form.
func ToJSON(b eqn.Block) BlockJSON {
	return BlockJSON{
		Name:      b.Name,
		IndepVar:  b.IndepVar,
		Inputs:    b.Inputs,
		Outputs:   b.Outputs,
		Equations: equationStrings(b.Equations),
		Removed:   equationStrings(b.Removed),
	}
}

// EncodeBlock serializes a block to its JSON wire form.
func EncodeBlock(b eqn.Block) ([]byte, error) {
	return json.Marshal(ToJSON(b))
}

// DecodeBlock parses the JSON wire form back into a block. The data is
// trusted to come from EncodeBlock, so block-level validation is not
// repeated; reduced blocks can legitimately carry several zero-form
// left-hand sides that construction-time validation would reject.
func DecodeBlock(data []byte) (eqn.Block, error) {
	var w BlockJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return eqn.Block{}, apperrors.Wrap(apperrors.ErrCodeInvalidFormat, err, "decode block")
	}

	equations, err := parseEquations(w.Equations)
	if err != nil {
		return eqn.Block{}, err
	}
	removed, err := parseEquations(w.Removed)
	if err != nil {
		return eqn.Block{}, err
	}

	return eqn.Block{
		Name:      w.Name,
		IndepVar:  w.IndepVar,
		Inputs:    w.Inputs,
		Outputs:   w.Outputs,
		Equations: equations,
		Removed:   removed,
	}, nil
}

// Canonical returns stable bytes identifying the definition, for cache keys.
// JSON field order is fixed by the struct and map keys marshal sorted, so
// equal definitions always produce equal bytes.
func (d *Definition) Canonical() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "canonicalize definition")
	}
	return data, nil
}

func equationStrings(eqs []eqn.Equation) []string {
	if len(eqs) == 0 {
		return nil
	}
	out := make([]string, len(eqs))
	for i, e := range eqs {
		out[i] = e.String()
	}
	return out
}

func parseEquations(srcs []string) ([]eqn.Equation, error) {
	if len(srcs) == 0 {
		return nil, nil
	}
	out := make([]eqn.Equation, len(srcs))
	for i, src := range srcs {
		e, err := eqn.ParseEquation(src)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeInvalidFormat, err, "decode equation %q", src)
		}
		out[i] = e
	}
	return out, nil
}
