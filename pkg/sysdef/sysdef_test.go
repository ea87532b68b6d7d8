package sysdef

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eqflat/eqflat/pkg/eqn"
	apperrors "github.com/eqflat/eqflat/pkg/errors"
)

const loopDefinition = `
name      = "loop"
indep_var = "t"

[[blocks]]
name      = "source"
outputs   = ["out"]
equations = ["out = 1"]

[[blocks]]
name      = "plant"
inputs    = ["x"]
outputs   = ["y"]
equations = ["y = x + a"]
[blocks.params]
a = 2

[[systems]]
name    = "loop"
members = ["source", "plant"]

[[systems.connections]]
input  = "plant.x"
output = "source.out"
`

func TestParse(t *testing.T) {
	def, err := Parse(strings.NewReader(loopDefinition))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if def.Name != "loop" || def.IndepVar != "t" {
		t.Errorf("header = (%q, %q), want (loop, t)", def.Name, def.IndepVar)
	}
	if len(def.Blocks) != 2 || len(def.Systems) != 1 {
		t.Fatalf("got %d blocks, %d systems", len(def.Blocks), len(def.Systems))
	}
	// Root defaults to the last declared system.
	if def.Root != "loop" {
		t.Errorf("Root = %q, want loop", def.Root)
	}
	if len(def.Systems[0].Connections) != 1 {
		t.Errorf("connections = %v", def.Systems[0].Connections)
	}
}

func TestParse_SingleBlockDefaults(t *testing.T) {
	def, err := Parse(strings.NewReader(`
indep_var = "t"

[[blocks]]
name      = "m"
outputs   = ["y"]
equations = ["y = 1"]
`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if def.Root != "m" {
		t.Errorf("Root = %q, want the only block", def.Root)
	}
	if def.Name != "m" {
		t.Errorf("Name = %q, want the root's name", def.Name)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code apperrors.Code
	}{
		{"malformed toml", "not toml [", apperrors.ErrCodeInvalidFormat},
		{"no blocks", `name = "x"`, apperrors.ErrCodeInvalidDefinition},
		{
			"duplicate node name",
			`[[blocks]]
name = "m"
equations = ["y = 1"]
[[blocks]]
name = "m"
equations = ["z = 1"]`,
			apperrors.ErrCodeInvalidDefinition,
		},
		{
			"unknown root",
			`root = "ghost"
[[blocks]]
name = "m"
equations = ["y = 1"]`,
			apperrors.ErrCodeInvalidDefinition,
		},
		{
			"ambiguous root",
			`[[blocks]]
name = "a"
equations = ["y = 1"]
[[blocks]]
name = "b"
equations = ["z = 1"]`,
			apperrors.ErrCodeInvalidDefinition,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.src))
			if err == nil {
				t.Fatal("Parse() should fail")
			}
			if got := apperrors.GetCode(err); got != tt.code {
				t.Errorf("code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loop.toml")
	if err := os.WriteFile(path, []byte(loopDefinition), 0o644); err != nil {
		t.Fatal(err)
	}
	def, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if def.Name != "loop" {
		t.Errorf("Name = %q, want loop", def.Name)
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if apperrors.GetCode(err) != apperrors.ErrCodeFileNotFound {
		t.Errorf("code = %q, want FILE_NOT_FOUND", apperrors.GetCode(err))
	}
}

func TestNode(t *testing.T) {
	def, err := Parse(strings.NewReader(loopDefinition))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	node, err := def.Node()
	if err != nil {
		t.Fatalf("Node() error: %v", err)
	}
	sys, ok := node.(*eqn.System)
	if !ok {
		t.Fatalf("root node is %T, want *eqn.System", node)
	}
	if len(sys.Subsystems) != 2 {
		t.Errorf("subsystems = %d, want 2", len(sys.Subsystems))
	}

	// Parameters are substituted at build time: plant's a = 2.
	plant, ok := sys.Subsystems[1].(eqn.Block)
	if !ok {
		t.Fatalf("second member is %T, want eqn.Block", sys.Subsystems[1])
	}
	if got := plant.Equations[0].String(); got != "y = x + 2" {
		t.Errorf("plant equation = %q, want params applied", got)
	}
}

func TestNode_BlockRoot(t *testing.T) {
	def, err := Parse(strings.NewReader(`
indep_var = "t"
[[blocks]]
name      = "m"
outputs   = ["y"]
equations = ["y = 1"]
`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	node, err := def.Node()
	if err != nil {
		t.Fatalf("Node() error: %v", err)
	}
	if _, ok := node.(eqn.Block); !ok {
		t.Errorf("root node is %T, want eqn.Block", node)
	}
}

func TestNode_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code apperrors.Code
	}{
		{
			"bad equation",
			`[[blocks]]
name = "m"
equations = ["y = ("]`,
			apperrors.ErrCodeInvalidExpr,
		},
		{
			"symbol collision",
			`[[blocks]]
name = "m"
equations = ["y = 1", "y = 2"]`,
			apperrors.ErrCodeSymbolCollision,
		},
		{
			"non-numeric param",
			`[[blocks]]
name = "m"
equations = ["y = k"]
[blocks.params]
k = "two"`,
			apperrors.ErrCodeNonNumericParam,
		},
		{
			"member declared below",
			`[[blocks]]
name = "m"
equations = ["y = 1"]
[[systems]]
name = "outer"
members = ["inner"]
[[systems]]
name = "inner"
members = ["m"]`,
			apperrors.ErrCodeInvalidDefinition,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := Parse(strings.NewReader(tt.src))
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if _, err = def.Node(); err == nil {
				t.Fatal("Node() should fail")
			}
			if got := apperrors.GetCode(err); got != tt.code {
				t.Errorf("code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestEncodeDecodeBlock(t *testing.T) {
	b, err := eqn.NewBlock("m",
		[]eqn.Equation{mustEq(t, "y = x + 1"), mustEq(t, "der(s) = y")},
		[]string{"x"}, []string{"y"}, "t")
	if err != nil {
		t.Fatal(err)
	}
	b = b.WithEquations(b.Equations, []eqn.Equation{mustEq(t, "z = 2")})

	data, err := EncodeBlock(b)
	if err != nil {
		t.Fatalf("EncodeBlock() error: %v", err)
	}
	got, err := DecodeBlock(data)
	if err != nil {
		t.Fatalf("DecodeBlock() error: %v", err)
	}
	if got.String() != b.String() {
		t.Errorf("decoded block differs:\n%s\nwant:\n%s", got.String(), b.String())
	}
}

func TestDecodeBlock_SkipsValidation(t *testing.T) {
	// Reduced blocks can carry several zero-form left-hand sides, which
	// construction-time validation would reject; decoding must accept them.
	b := eqn.Block{
		Name: "m",
		Equations: []eqn.Equation{
			mustEq(t, "0 = x + 1"),
			mustEq(t, "0 = y - 2"),
		},
	}
	data, err := EncodeBlock(b)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeBlock(data)
	if err != nil {
		t.Fatalf("DecodeBlock() error: %v", err)
	}
	if len(got.Equations) != 2 {
		t.Errorf("decoded %d equations, want 2", len(got.Equations))
	}
}

func TestDecodeBlock_Malformed(t *testing.T) {
	if _, err := DecodeBlock([]byte("{")); err == nil {
		t.Error("DecodeBlock should fail on malformed JSON")
	}
	if _, err := DecodeBlock([]byte(`{"equations": ["y = ("]}`)); err == nil {
		t.Error("DecodeBlock should fail on an unparsable equation")
	}
}

func TestCanonical_Deterministic(t *testing.T) {
	parse := func() *Definition {
		def, err := Parse(strings.NewReader(loopDefinition))
		if err != nil {
			t.Fatal(err)
		}
		return def
	}
	a, err := parse().Canonical()
	if err != nil {
		t.Fatalf("Canonical() error: %v", err)
	}
	b, err := parse().Canonical()
	if err != nil {
		t.Fatalf("Canonical() error: %v", err)
	}
	if string(a) != string(b) {
		t.Error("Canonical() is not deterministic for equal definitions")
	}

	other, err := Parse(strings.NewReader(strings.Replace(loopDefinition, "a = 2", "a = 3", 1)))
	if err != nil {
		t.Fatal(err)
	}
	c, err := other.Canonical()
	if err != nil {
		t.Fatal(err)
	}
	if string(a) == string(c) {
		t.Error("Canonical() should differ for different definitions")
	}
}

func mustEq(t *testing.T, src string) eqn.Equation {
	t.Helper()
	e, err := eqn.ParseEquation(src)
	if err != nil {
		t.Fatalf("ParseEquation(%q) error: %v", src, err)
	}
	return e
}
