package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tindevelopers/gwinfra/internal/config"
	"github.com/tindevelopers/gwinfra/internal/engine"
)

var graphManifest string

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Output the resource dependency graph in DOT format",
	Long: `Generates a visual representation of the resource dependency graph
in Graphviz DOT format. Pipe the output to 'dot' to generate an image:

  gwinfra graph | dot -Tpng > graph.png`,
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().StringVarP(&graphManifest, "manifest", "f", "gwinfra.yaml", "Path to the manifest file")
}

func runGraph(cmd *cobra.Command, args []string) error {
	manifest, err := config.Load(graphManifest)
	if err != nil {
		return err
	}

	dag, err := engine.BuildGraph(manifest.Resources)
	if err != nil {
		return err
	}

	// Output DOT format
	fmt.Println("digraph gwinfra {")
	fmt.Println("  rankdir = \"BT\";")
	fmt.Println("  node [shape = rect];")
	fmt.Println()

	for _, spec := range manifest.Resources {
		fmt.Printf("  %q;\n", spec.Ref().String())
	}
	fmt.Println()

	for _, spec := range manifest.Resources {
		ref := spec.Ref()
		for _, dep := range dag.Dependencies(ref) {
			fmt.Printf("  %q -> %q;\n", ref.String(), dep.String())
		}
	}

	fmt.Println("}")
	return nil
}
