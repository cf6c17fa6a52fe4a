package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/packsmith/packsmith/pkg/errors"
	"github.com/packsmith/packsmith/pkg/manip"
	"github.com/packsmith/packsmith/pkg/npm"
	"github.com/packsmith/packsmith/pkg/ordergraph"
)

// graphCommand renders the manipulator dependency graph.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the manipulator dependency graph",
		Long: `Graph renders the scheduling dependencies between the built-in
manipulators as Graphviz DOT or SVG. Useful to see why a manipulator runs
before another.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dot := ordergraph.ToDOT(defaultManipulators(c))

			var data []byte
			switch format {
			case "dot":
				data = []byte(dot)
			case "svg":
				svg, err := ordergraph.RenderSVG(dot)
				if err != nil {
					return err
				}
				data = svg
			default:
				return errors.New(errors.ErrCodeInvalidInput, "unknown format %q, expected dot or svg", format)
			}

			if output == "" {
				fmt.Print(string(data))
				return nil
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Graph written")
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "dot", "output format: dot or svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")

	return cmd
}

// defaultManipulators returns the standard manipulator set, used for graph
// rendering only. The pool and lister are placeholders.
func defaultManipulators(c *CLI) []manip.Manipulator {
	pool := npm.NewVersionPool()
	return []manip.Manipulator{
		npm.NewVersionsCollector(nil, pool, c.Logger),
		npm.NewVersionManipulator(&npm.SuffixGenerator{Suffix: "rebuild", SuffixPadding: 5}, pool),
		npm.NewDependencyManipulator(nil, nil),
	}
}
