// Package render draws equation dependency graphs.
//
// # Overview
//
// This package produces directed graph visualizations of a block's equation
// dependency structure using Graphviz: equations appear as boxes, and an
// arrow from one equation to another means the first defines a value the
// second uses. Removed equations can be included as dashed grey nodes to show
// what the reduction eliminated.
//
// # Usage
//
// Convert a block to DOT format, then render to SVG or PNG:
//
//	dot := render.ToDOT(block, render.Options{ShowRemoved: true})
//	svg, err := render.SVG(ctx, dot)
//	png, err := render.PNG(ctx, dot)
//
// # DOT Format
//
// The [ToDOT] function produces Graphviz DOT source that can be:
//
//   - Rendered in-process via [SVG] or [PNG]
//   - Saved and processed with external Graphviz tools
//   - Customized before rendering
//
// The generated DOT uses top-to-bottom layout (rankdir=TB) with rounded box
// nodes; output-defining equations are filled to stand out.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process rendering.
package render
