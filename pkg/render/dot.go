package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/eqflat/eqflat/pkg/depgraph"
	"github.com/eqflat/eqflat/pkg/eqn"
)

// Options configures dependency graph rendering.
type Options struct {
	// ShowRemoved includes removed equations as dashed grey nodes. They keep
	// no edges: their dependencies were rewritten away when they were
	// eliminated.
	ShowRemoved bool

	// Detailed includes the equation kind in node labels.
	// When false, only the equation text is shown.
	Detailed bool
}

// ToDOT converts a block's equation dependency graph to Graphviz DOT format.
// The resulting DOT string can be rendered using [SVG] or [PNG].
//
// Each remaining equation is a node named eq0, eq1, ... in equation order; an
// edge eqU -> eqV means equation U defines a value equation V uses.
// Output-defining equations are filled to mark the reduction targets.
func ToDOT(b eqn.Block, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded\", fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	definers, _ := b.OutputDefiners()
	defines := make(map[int]bool, len(definers))
	for _, i := range definers {
		defines[i] = true
	}

	for i, e := range b.Equations {
		attrs := fmtAttrs(e, opts, defines[i])
		fmt.Fprintf(&buf, "  eq%d [%s];\n", i, strings.Join(attrs, ", "))
	}
	if opts.ShowRemoved {
		for i, e := range b.Removed {
			fmt.Fprintf(&buf, "  rm%d [label=%q, style=\"rounded,dashed\", color=grey, fontcolor=grey];\n",
				i, fmtLabel(e, opts))
		}
	}

	buf.WriteString("\n")
	g := depgraph.FromEquations(b.Equations)
	for u := 0; u < g.Len(); u++ {
		for _, v := range g.Succ(u) {
			fmt.Fprintf(&buf, "  eq%d -> eq%d;\n", u, v)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(e eqn.Equation, opts Options) string {
	if !opts.Detailed {
		return e.String()
	}
	kind, _ := eqn.Classify(e)
	return e.String() + "\n" + kind.String()
}

func fmtAttrs(e eqn.Equation, opts Options, definesOutput bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(e, opts))}
	if definesOutput {
		attrs = append(attrs, "style=\"rounded,filled\"", "fillcolor=lightyellow")
	}
	return attrs
}
