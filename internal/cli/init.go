package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tindevelopers/gwinfra/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter manifest",
	Long: `Creates a starter manifest describing a typical gateway stack: a VPC
connector, a Cloud SQL instance, a Redis cache, a usage-events topic, a
runtime service account, the derived connection secrets, and three
branch-mapped environments. Edit it to match your project, then run
'gwinfra provision'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	path := "gwinfra.yaml"
	if len(args) > 0 {
		path = args[0]
	}

	if err := config.WriteTemplate(path); err != nil {
		return err
	}

	fmt.Printf("Created %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the manifest's project, region and repo for your deployment")
	fmt.Printf("  2. Run 'gwinfra validate -f %s' to check it\n", path)
	fmt.Println("  3. Run 'gwinfra provision --branch main' to converge production")
	return nil
}
