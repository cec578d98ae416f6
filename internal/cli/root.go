package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gwinfra",
	Short: "Idempotent infrastructure provisioning for LLM gateway deployments",
	Long: `Gwinfra converges the cloud resources an LLM gateway environment needs
from a single declarative manifest.

A push to a branch maps to at most one environment. For that environment
gwinfra provisions the resource graph in dependency order, materializes
secrets from provision outputs, and ensures the environment's deploy
trigger. Every operation is idempotent: resources that already exist are
left untouched and re-running a converged manifest changes nothing.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(triggerCmd)
	rootCmd.AddCommand(versionCmd)
}
