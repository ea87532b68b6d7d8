package eqn

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"unicode"

	"github.com/eqflat/eqflat/pkg/sym"
)

// Block is a flattened, equation-holding unit with declared inputs and
// outputs and no further internal composition.
//
// Blocks are immutable: every pipeline pass builds a new Block from an old
// one. Equation order is significant — it fixes dependency-graph vertex
// indices and heuristic tie-breaks downstream — and is preserved by every
// transformation. Removed holds everything eliminated so far, in elimination
// order, for traceability only; no computation reads it back.
type Block struct {
	Name      string
	Equations []Equation
	Inputs    []string // sorted, duplicate-free
	Outputs   []string // sorted, duplicate-free
	Removed   []Equation
	IndepVar  string
}

// NewBlock validates and constructs a Block.
//
// Validation enforces the construction-time invariants:
//   - input, output, and independent-variable symbols are well-formed
//   - no two equations define the same state symbol, and no two equations
//     share an identical left-hand side ([ErrSymbolCollision])
//   - no declared input is defined by an equation ([ErrInputDefined])
//
// Outputs are not required to have a defining equation here: passes that need
// one degrade to a no-op when it is missing.
func NewBlock(name string, equations []Equation, inputs, outputs []string, indepVar string) (Block, error) {
	for _, s := range append(slices.Clone(inputs), outputs...) {
		if !validSymbol(s) {
			return Block{}, fmt.Errorf("block %q: symbol %q: %w", name, s, ErrInvalidSymbol)
		}
	}
	if indepVar != "" && !validSymbol(indepVar) {
		return Block{}, fmt.Errorf("block %q: independent variable %q: %w", name, indepVar, ErrInvalidSymbol)
	}

	definedBy := make(map[string]int)
	lhsSeen := make(map[string]int)
	for i, e := range equations {
		key := e.LHS.String()
		if j, ok := lhsSeen[key]; ok {
			return Block{}, fmt.Errorf("block %q: equations %d and %d: lhs %q: %w",
				name, j, i, key, ErrSymbolCollision)
		}
		lhsSeen[key] = i
		if s := DefinedSymbol(e); s != "" {
			if j, ok := definedBy[s]; ok {
				return Block{}, fmt.Errorf("block %q: equations %d and %d both define %q: %w",
					name, j, i, s, ErrSymbolCollision)
			}
			definedBy[s] = i
		}
	}
	for _, in := range inputs {
		if j, ok := definedBy[in]; ok {
			return Block{}, fmt.Errorf("block %q: input %q defined by equation %d: %w",
				name, in, j, ErrInputDefined)
		}
	}

	return Block{
		Name:      name,
		Equations: slices.Clone(equations),
		Inputs:    sortedSet(inputs),
		Outputs:   sortedSet(outputs),
		IndepVar:  indepVar,
	}, nil
}

// WithEquations returns a copy of the block carrying a new equation list and
// removed-equation list. Name, inputs, outputs, and the independent variable
// are unchanged. This is the constructor the pipeline passes use; it performs
// no validation because passes only rearrange already-validated equations.
func (b Block) WithEquations(equations, removed []Equation) Block {
	return Block{
		Name:      b.Name,
		Equations: equations,
		Inputs:    b.Inputs,
		Outputs:   b.Outputs,
		Removed:   removed,
		IndepVar:  b.IndepVar,
	}
}

// OutputSet returns the outputs as a set.
func (b Block) OutputSet() map[string]struct{} { return toSet(b.Outputs) }

// InputSet returns the inputs as a set.
func (b Block) InputSet() map[string]struct{} { return toSet(b.Inputs) }

// IsOutput reports whether s is a declared output symbol.
func (b Block) IsOutput(s string) bool {
	_, ok := slices.BinarySearch(b.Outputs, s)
	return ok
}

// OutputDefiners maps each output symbol to the index of the equation that
// explicitly defines it — the equation whose left-hand side's free variables
// contain the output. It reports false if any output lacks such an equation
// (an implicit output), along with the missing symbol names.
func (b Block) OutputDefiners() (map[string]int, []string) {
	definers := make(map[string]int, len(b.Outputs))
	var missing []string
	for _, out := range b.Outputs {
		idx := -1
		for i, e := range b.Equations {
			if sym.HasFreeVar(e.LHS, out) {
				idx = i
				break
			}
		}
		if idx < 0 {
			missing = append(missing, out)
			continue
		}
		definers[out] = idx
	}
	return definers, missing
}

// String renders the block as a readable summary for logs and diagnostics.
func (b Block) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "block %s (inputs: %s; outputs: %s)\n",
		b.Name, strings.Join(b.Inputs, ", "), strings.Join(b.Outputs, ", "))
	for _, e := range b.Equations {
		fmt.Fprintf(&sb, "  %s\n", e)
	}
	for _, e := range b.Removed {
		fmt.Fprintf(&sb, "  [removed] %s\n", e)
	}
	return sb.String()
}

func validSymbol(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case unicode.IsLetter(r) || r == '_':
		case i > 0 && (unicode.IsDigit(r) || r == '.'):
		default:
			return false
		}
	}
	return true
}

func sortedSet(names []string) []string {
	out := slices.Clone(names)
	sort.Strings(out)
	return slices.Compact(out)
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
