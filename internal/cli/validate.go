package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tindevelopers/gwinfra/internal/config"
	"github.com/tindevelopers/gwinfra/internal/engine"
)

var validateManifest string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the manifest",
	Long: `Checks the manifest against its schema, the semantic rules (known kinds,
declared dependencies, single secret sources) and the dependency graph.
No cloud calls are made.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateManifest, "manifest", "f", "gwinfra.yaml", "Path to the manifest file")
}

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Printf("Checking %s... ", validateManifest)

	manifest, err := config.Load(validateManifest)
	if err != nil {
		fmt.Println("FAILED")
		return err
	}

	if _, err := engine.BuildGraph(manifest.Resources); err != nil {
		fmt.Println("FAILED")
		return err
	}
	fmt.Println("OK")

	fmt.Printf("\nManifest is valid: %d resources, %d secrets, %d environments.\n",
		len(manifest.Resources), len(manifest.Secrets), len(manifest.Environments))
	return nil
}
