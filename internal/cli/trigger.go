package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tindevelopers/gwinfra/internal/backend"
	"github.com/tindevelopers/gwinfra/internal/logging"
	"github.com/tindevelopers/gwinfra/internal/orchestrate"
)

var (
	triggerManifest string
	triggerBackend  string
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Manage deploy triggers",
	Long: `Commands for inspecting and modifying the build triggers gwinfra manages.

Triggers are never updated in place. To change a trigger's branch, build
config or substitutions, delete it here and re-run provision; the next run
recreates it from the manifest.`,
}

var triggerDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a deploy trigger by name",
	Long: `Deletes a build trigger so the next provision run recreates it from the
manifest. Deleting a trigger that does not exist is a successful no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: runTriggerDelete,
}

func init() {
	triggerCmd.AddCommand(triggerDeleteCmd)

	triggerDeleteCmd.Flags().StringVarP(&triggerManifest, "manifest", "f", "gwinfra.yaml", "Path to the manifest file")
	triggerDeleteCmd.Flags().StringVar(&triggerBackend, "backend", "", "Cloud backend to delete from")
}

func runTriggerDelete(cmd *cobra.Command, args []string) error {
	settings, manifest, err := loadInputs(triggerManifest)
	if err != nil {
		return err
	}
	logging.Init(settings.LogLevel, settings.LogFormat)

	backendName := settings.Backend
	if triggerBackend != "" {
		backendName = triggerBackend
	}

	ctx := cmd.Context()
	bundle, err := backend.Open(ctx, backendName, backend.Options{
		Project:         manifest.Project,
		Region:          manifest.Region,
		CredentialsFile: settings.CredentialsFile,
	})
	if err != nil {
		return err
	}
	defer bundle.Close()

	name := args[0]
	svc := orchestrate.New(manifest, bundle, orchestrateOptions(settings))
	if err := svc.DeleteTrigger(ctx, name); err != nil {
		return err
	}

	fmt.Printf("Trigger %q deleted. The next provision run recreates it from the manifest.\n", name)
	return nil
}
