package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tindevelopers/gwinfra/internal/config"
	"github.com/tindevelopers/gwinfra/internal/routing"
)

var (
	resolveBranch   string
	resolveManifest string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Show which environment a branch maps to",
	Long: `Resolves a branch against the manifest's environment profiles without
touching any resources. Useful for checking routing before a push.`,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveBranch, "branch", "", "Branch to resolve (required)")
	resolveCmd.Flags().StringVarP(&resolveManifest, "manifest", "f", "gwinfra.yaml", "Path to the manifest file")
	_ = resolveCmd.MarkFlagRequired("branch")
}

func runResolve(cmd *cobra.Command, args []string) error {
	manifest, err := config.Load(resolveManifest)
	if err != nil {
		return err
	}

	profile, err := routing.Resolve(manifest, resolveBranch)
	if err != nil {
		return err
	}
	if profile == nil {
		fmt.Printf("No environment matches branch %q.\n", resolveBranch)
		return nil
	}

	fmt.Printf("Branch %q maps to environment %q:\n", resolveBranch, profile.Name)
	fmt.Printf("  service = %s\n", profile.Service)
	fmt.Printf("  trigger = %s\n", profile.Trigger.Name)
	if profile.MemoryLimit != "" {
		fmt.Printf("  memory  = %s\n", profile.MemoryLimit)
	}
	if profile.MaxInstances > 0 {
		fmt.Printf("  maxInstances = %d\n", profile.MaxInstances)
	}
	return nil
}
