// Package sysdef loads system definition files and encodes reduction results.
//
// A definition file is TOML declaring blocks (equations, inputs, outputs,
// parameter values) and systems composing them (members, connections,
// namespace renames):
//
//	name      = "loop"
//	indep_var = "t"
//	root      = "loop"
//
//	[[blocks]]
//	name      = "source"
//	outputs   = ["out"]
//	equations = ["out = 1"]
//
//	[[blocks]]
//	name      = "plant"
//	inputs    = ["x"]
//	outputs   = ["y"]
//	equations = ["y = x + a", "der(s) = der(x)"]
//	[blocks.params]
//	a = 2
//
//	[[systems]]
//	name    = "loop"
//	members = ["source", "plant"]
//
//	[[systems.connections]]
//	input  = "plant.x"
//	output = "source.out"
//
// Systems may reference blocks and previously declared systems by name; the
// root names the node the pipeline starts from. Malformed files surface
// structured errors carrying pkg/errors codes.
package sysdef

import (
	"errors"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/eqflat/eqflat/pkg/eqn"
	apperrors "github.com/eqflat/eqflat/pkg/errors"
)

// Definition is a parsed system definition file.
type Definition struct {
	// Name labels the definition; defaults to the root node's name.
	Name string `toml:"name" json:"name"`

	// IndepVar is the independent variable shared by every block.
	IndepVar string `toml:"indep_var" json:"indep_var"`

	// Root names the node to flatten. It defaults to the last declared
	// system, or to the only block when no systems are declared.
	Root string `toml:"root" json:"root"`

	Blocks  []BlockDef  `toml:"blocks" json:"blocks"`
	Systems []SystemDef `toml:"systems" json:"systems,omitempty"`
}

// BlockDef declares one equation block.
type BlockDef struct {
	Name      string         `toml:"name" json:"name"`
	Inputs    []string       `toml:"inputs" json:"inputs,omitempty"`
	Outputs   []string       `toml:"outputs" json:"outputs,omitempty"`
	Equations []string       `toml:"equations" json:"equations"`
	Params    map[string]any `toml:"params" json:"params,omitempty"`
}

// SystemDef declares one system composing named members.
type SystemDef struct {
	Name        string            `toml:"name" json:"name"`
	Members     []string          `toml:"members" json:"members"`
	Connections []ConnectionDef   `toml:"connections" json:"connections,omitempty"`
	Namespace   map[string]string `toml:"namespace" json:"namespace,omitempty"`
}

// ConnectionDef wires a member's input to another member's output, both in
// promoted ("member.symbol") form.
type ConnectionDef struct {
	Input  string `toml:"input" json:"input"`
	Output string `toml:"output" json:"output"`
}

// Load reads and parses a definition file from disk.
func Load(path string) (*Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "definition file %q", path)
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "open definition file %q", path)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a TOML definition from r.
func Parse(r io.Reader) (*Definition, error) {
	var def Definition
	if _, err := toml.NewDecoder(r).Decode(&def); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidFormat, err, "parse definition")
	}
	if err := def.validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *Definition) validate() error {
	if len(d.Blocks) == 0 {
		return apperrors.New(apperrors.ErrCodeInvalidDefinition, "definition declares no blocks")
	}

	names := make(map[string]struct{}, len(d.Blocks)+len(d.Systems))
	for _, b := range d.Blocks {
		if b.Name == "" {
			return apperrors.New(apperrors.ErrCodeInvalidDefinition, "block without a name")
		}
		if _, dup := names[b.Name]; dup {
			return apperrors.New(apperrors.ErrCodeInvalidDefinition, "duplicate node name %q", b.Name)
		}
		names[b.Name] = struct{}{}
	}
	for _, s := range d.Systems {
		if s.Name == "" {
			return apperrors.New(apperrors.ErrCodeInvalidDefinition, "system without a name")
		}
		if _, dup := names[s.Name]; dup {
			return apperrors.New(apperrors.ErrCodeInvalidDefinition, "duplicate node name %q", s.Name)
		}
		names[s.Name] = struct{}{}
	}

	if d.Root == "" {
		if len(d.Systems) > 0 {
			d.Root = d.Systems[len(d.Systems)-1].Name
		} else if len(d.Blocks) == 1 {
			d.Root = d.Blocks[0].Name
		} else {
			return apperrors.New(apperrors.ErrCodeInvalidDefinition,
				"root is required when multiple blocks and no systems are declared")
		}
	}
	if _, ok := names[d.Root]; !ok {
		return apperrors.New(apperrors.ErrCodeInvalidDefinition, "root %q is not a declared node", d.Root)
	}
	if d.Name == "" {
		d.Name = d.Root
	}
	return nil
}

// Node builds the in-memory node tree and returns the root.
//
// Blocks are constructed and validated first, with parameter values
// substituted in; systems then resolve their members against blocks and
// previously declared systems, so a system can only reference nodes declared
// above it.
func (d *Definition) Node() (eqn.Node, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	nodes := make(map[string]eqn.Node, len(d.Blocks)+len(d.Systems))

	for _, bd := range d.Blocks {
		b, err := buildBlock(bd, d.IndepVar)
		if err != nil {
			return nil, err
		}
		nodes[bd.Name] = b
	}

	for _, sd := range d.Systems {
		members := make([]eqn.Node, 0, len(sd.Members))
		for _, m := range sd.Members {
			node, ok := nodes[m]
			if !ok {
				return nil, apperrors.New(apperrors.ErrCodeInvalidDefinition,
					"system %q: member %q is not declared above it", sd.Name, m)
			}
			members = append(members, node)
		}
		conns := make([]eqn.Connection, len(sd.Connections))
		for i, c := range sd.Connections {
			conns[i] = eqn.Connection{Input: c.Input, Output: c.Output}
		}
		sys, err := eqn.NewSystem(sd.Name, members, conns, sd.Namespace)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeInvalidDefinition, err, "system %q", sd.Name)
		}
		nodes[sd.Name] = sys
	}

	return nodes[d.Root], nil
}

func buildBlock(bd BlockDef, indepVar string) (eqn.Block, error) {
	equations := make([]eqn.Equation, len(bd.Equations))
	for i, src := range bd.Equations {
		e, err := eqn.ParseEquation(src)
		if err != nil {
			return eqn.Block{}, apperrors.Wrap(apperrors.ErrCodeInvalidExpr, err,
				"block %q: equation %d", bd.Name, i)
		}
		equations[i] = e
	}

	b, err := eqn.NewBlock(bd.Name, equations, bd.Inputs, bd.Outputs, indepVar)
	if err != nil {
		code := apperrors.ErrCodeInvalidDefinition
		if errors.Is(err, eqn.ErrSymbolCollision) {
			code = apperrors.ErrCodeSymbolCollision
		}
		return eqn.Block{}, apperrors.Wrap(code, err, "block %q", bd.Name)
	}

	if len(bd.Params) > 0 {
		b, err = eqn.SetParams(b, bd.Params)
		if err != nil {
			return eqn.Block{}, apperrors.Wrap(apperrors.ErrCodeNonNumericParam, err, "block %q", bd.Name)
		}
	}
	return b, nil
}
