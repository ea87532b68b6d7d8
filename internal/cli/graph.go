package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eqflat/eqflat/pkg/render"
	"github.com/eqflat/eqflat/pkg/sysdef"
)

// graphCommand creates the graph command for rendering equation dependencies.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		format      string
		output      string
		noCache     bool
		showRemoved bool
		detailed    bool
		passes      passFlags
	)

	cmd := &cobra.Command{
		Use:   "graph [definition.toml]",
		Short: "Render the equation dependency graph of a reduced system",
		Long: `Render the equation dependency graph of a reduced system.

The graph command reduces the definition like 'reduce' does, then renders
the surviving equations as a directed graph: an edge points from the
equation defining a symbol to each equation that uses it. Removed equations
can be included as detached dashed nodes with --removed.

DOT output goes to stdout unless --output is given; svg and png are always
written to a file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd.Context(), args[0], graphParams{
				passes:      passes,
				format:      format,
				output:      output,
				noCache:     noCache,
				showRemoved: showRemoved,
				detailed:    detailed,
			})
		},
	}

	// Common flags
	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format: dot (default), svg, png")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (defaults next to the definition)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable result caching")

	// Graph flags
	cmd.Flags().BoolVar(&showRemoved, "removed", false, "include removed equations as detached nodes")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "annotate nodes with the equation kind")

	// Pass toggles
	passes.register(cmd)

	return cmd
}

// graphParams bundles the graph command's flag values.
type graphParams struct {
	passes      passFlags
	format      string
	output      string
	noCache     bool
	showRemoved bool
	detailed    bool
}

// runGraph reduces the definition and renders its dependency graph.
func (c *CLI) runGraph(ctx context.Context, input string, p graphParams) error {
	switch p.format {
	case "dot", "svg", "png":
	default:
		return fmt.Errorf("unsupported format %q (must be one of: dot, svg, png)", p.format)
	}

	def, err := sysdef.Load(input)
	if err != nil {
		return fmt.Errorf("load definition %s: %w", input, err)
	}

	runner, err := c.newRunner(p.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Reducing %s...", def.Name))
	spinner.Start()

	result, err := runner.Execute(ctx, def, p.passes.options(c))
	if err != nil {
		spinner.StopWithError("Reduction failed")
		return fmt.Errorf("reduce: %w", err)
	}
	spinner.Stop()

	dot := render.ToDOT(result.Block, render.Options{
		ShowRemoved: p.showRemoved,
		Detailed:    p.detailed,
	})

	var data []byte
	switch p.format {
	case "dot":
		data = []byte(dot)
	case "svg":
		prog := newProgress(c.Logger)
		if data, err = render.SVG(ctx, dot); err != nil {
			return fmt.Errorf("render svg: %w", err)
		}
		prog.done("Rendered SVG")
	case "png":
		prog := newProgress(c.Logger)
		if data, err = render.PNG(ctx, dot); err != nil {
			return fmt.Errorf("render png: %w", err)
		}
		prog.done("Rendered PNG")
	}

	// DOT without an explicit output goes to stdout for piping into graphviz.
	if p.format == "dot" && p.output == "" {
		fmt.Print(string(data))
		return nil
	}

	out := p.output
	if out == "" {
		out = strings.TrimSuffix(input, filepath.Ext(input)) + "." + p.format
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	printSuccess("Rendered %s", result.Block.Name)
	printFile(out)
	printStats(result.Stats.Equations, result.Stats.Removed, result.CacheHit)
	return nil
}
