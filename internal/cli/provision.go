package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tindevelopers/gwinfra/internal/backend"
	"github.com/tindevelopers/gwinfra/internal/engine"
	"github.com/tindevelopers/gwinfra/internal/logging"
	"github.com/tindevelopers/gwinfra/internal/orchestrate"
)

var (
	provisionBranch      string
	provisionManifest    string
	provisionBackend     string
	provisionDryRun      bool
	provisionParallelism int
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision the environment mapped to a branch",
	Long: `Runs the full pipeline for one pushed branch: resolve the environment,
provision the resource graph in dependency order, materialize secrets from
the provision outputs, and ensure the environment's deploy trigger.

A branch that maps to no environment is a successful no-op. A branch that
maps to more than one environment is a configuration error and nothing is
touched.`,
	RunE: runProvision,
}

func init() {
	provisionCmd.Flags().StringVar(&provisionBranch, "branch", "", "Branch to provision for (required)")
	provisionCmd.Flags().StringVarP(&provisionManifest, "manifest", "f", "gwinfra.yaml", "Path to the manifest file")
	provisionCmd.Flags().StringVar(&provisionBackend, "backend", "", "Cloud backend to provision against")
	provisionCmd.Flags().BoolVar(&provisionDryRun, "dry-run", false, "Run against the in-memory backend, no cloud calls")
	provisionCmd.Flags().IntVar(&provisionParallelism, "parallelism", 0, "Concurrent resource operations (0 uses the configured default)")
	_ = provisionCmd.MarkFlagRequired("branch")
}

func runProvision(cmd *cobra.Command, args []string) error {
	settings, manifest, err := loadInputs(provisionManifest)
	if err != nil {
		return err
	}
	logging.Init(settings.LogLevel, settings.LogFormat)

	backendName := settings.Backend
	if provisionBackend != "" {
		backendName = provisionBackend
	}
	if provisionDryRun {
		backendName = "memory"
		fmt.Println("Dry run: provisioning against the in-memory backend, no cloud calls are made.")
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

	opts := orchestrateOptions(settings)
	if provisionParallelism > 0 {
		opts.Parallelism = provisionParallelism
	}
	opts.Progress = func(event engine.ProgressEvent) {
		if event.Status == "started" {
			return
		}
		fmt.Printf("%s: %s (%s)\n", event.Ref, event.Status, event.Duration.Round(timePrecision))
	}

	fmt.Printf("Provisioning for branch %q in project %s...\n", provisionBranch, manifest.Project)

	result, runErr := orchestrate.New(manifest, bundle, opts).Run(ctx, provisionBranch)
	if result == nil {
		return runErr
	}
	if result.Skipped {
		fmt.Printf("No environment matches branch %q. Nothing to do.\n", provisionBranch)
		return nil
	}

	fmt.Printf("\nEnvironment: %s (run %s)\n", result.Environment, result.RunID)
	renderRunReport(result)

	if runErr != nil {
		return fmt.Errorf("run did not converge: %w", runErr)
	}
	fmt.Println("\nProvisioning complete. Environment is converged.")
	return nil
}
