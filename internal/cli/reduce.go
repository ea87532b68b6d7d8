package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eqflat/eqflat/pkg/sysdef"
)

// reduceCommand creates the reduce command for flattening a system definition.
func (c *CLI) reduceCommand() *cobra.Command {
	var (
		output      string
		noCache     bool
		jsonOut     bool
		showRemoved bool
		passes      passFlags
	)

	cmd := &cobra.Command{
		Use:   "reduce [definition.toml]",
		Short: "Flatten a system definition into a single equation block",
		Long: `Flatten a system definition into a single equation block.

The reduce command loads a TOML system definition, composes its blocks along
the declared connections, and reduces the flattened result: algebraic
definitions are inlined, derivative terms resolved, and (with --prune)
equations that feed no declared output are set aside.

Results are cached locally so repeated runs with the same definition and
pass settings return instantly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runReduce(cmd.Context(), args[0], reduceParams{
				passes:      passes,
				output:      output,
				noCache:     noCache,
				jsonOut:     jsonOut,
				showRemoved: showRemoved,
			})
		},
	}

	// Common flags
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the reduced block as JSON to a file")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable result caching")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the reduced block as JSON instead of a listing")
	cmd.Flags().BoolVar(&showRemoved, "show-removed", false, "also list equations removed during reduction")

	// Pass toggles
	passes.register(cmd)

	return cmd
}

// reduceParams bundles the reduce command's flag values.
type reduceParams struct {
	passes      passFlags
	output      string
	noCache     bool
	jsonOut     bool
	showRemoved bool
}

// runReduce loads the definition, executes the pipeline, and prints the result.
func (c *CLI) runReduce(ctx context.Context, input string, p reduceParams) error {
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

	if p.output != "" || p.jsonOut {
		data, err := json.MarshalIndent(sysdef.ToJSON(result.Block), "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		if p.output == "" {
			fmt.Println(string(data))
			return nil
		}
		if err := os.WriteFile(p.output, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", p.output, err)
		}
		printSuccess("Reduced %s", result.Block.Name)
		printFile(p.output)
		printStats(result.Stats.Equations, result.Stats.Removed, result.CacheHit)
		return nil
	}

	printSuccess("Reduced %s", result.Block.Name)
	for _, e := range result.Block.Equations {
		fmt.Println("  " + StyleValue.Render(e.String()))
	}
	if p.showRemoved && len(result.Block.Removed) > 0 {
		printNewline()
		printInfo("Removed during reduction:")
		for _, e := range result.Block.Removed {
			fmt.Println("  " + StyleDim.Render(e.String()))
		}
	}
	printStats(result.Stats.Equations, result.Stats.Removed, result.CacheHit)
	printNextStep("Render the dependency graph", fmt.Sprintf("eqflat graph %s", input))
	return nil
}
