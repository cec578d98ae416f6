package cli

import (
	"fmt"
	"time"

	"github.com/tindevelopers/gwinfra/internal/config"
	"github.com/tindevelopers/gwinfra/internal/engine"
	"github.com/tindevelopers/gwinfra/internal/model"
	"github.com/tindevelopers/gwinfra/internal/orchestrate"
)

// timePrecision rounds durations in progress output.
const timePrecision = 10 * time.Millisecond

// noColor disables ANSI escapes; bound to the --no-color flag.
var noColor bool

// colorize returns the escape code, or an empty string when color is off.
func colorize(code string) string {
	if noColor {
		return ""
	}
	return code
}

// loadInputs reads process settings and the manifest, then applies the
// settings overrides: GWINFRA_PROJECT and GWINFRA_REGION win over the
// manifest, mirroring how the original deploy flow took both from the
// environment.
func loadInputs(manifestPath string) (config.Settings, *model.Manifest, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return config.Settings{}, nil, err
	}
	m, err := config.Load(manifestPath)
	if err != nil {
		return config.Settings{}, nil, err
	}
	if settings.Project != "" {
		m.Project = settings.Project
	}
	if settings.Region != "" {
		m.Region = settings.Region
		for _, spec := range m.Resources {
			spec.Region = settings.Region
		}
	}
	return settings, m, nil
}

// orchestrateOptions maps process settings onto run options.
func orchestrateOptions(settings config.Settings) orchestrate.Options {
	opts := orchestrate.Options{
		Parallelism: settings.Parallelism,
		OpTimeout:   settings.OpTimeout,
		LockDir:     settings.LockDir,
	}
	if settings.RetryMax > 0 {
		opts.Retry = &engine.RetryPolicy{
			MaxRetries: settings.RetryMax,
			BaseDelay:  settings.RetryBaseDelay,
			MaxDelay:   settings.RetryMaxDelay,
		}
	}
	return opts
}

// statusSymbol maps a provisioning status to its one-character plan symbol.
func statusSymbol(status model.Status) string {
	switch status {
	case model.StatusCreated:
		return "+"
	case model.StatusAlreadyExists:
		return "="
	case model.StatusFailed:
		return "x"
	}
	return "?"
}

// statusColor maps a provisioning status to its ANSI color code.
func statusColor(status model.Status) string {
	switch status {
	case model.StatusCreated:
		return "\033[32m"
	case model.StatusFailed:
		return "\033[31m"
	}
	return ""
}

// renderRunReport prints the per-resource, per-secret and trigger outcome of
// one run, then the summary counts.
func renderRunReport(result *orchestrate.RunResult) {
	var created, existing, failed int

	fmt.Println("\nResources:")
	for _, res := range result.Resources.All() {
		color := statusColor(res.Status)
		fmt.Printf("  %s%s %s (%s)%s\n",
			colorize(color), statusSymbol(res.Status), res.Ref, res.Status, colorize("\033[0m"))
		if res.Err != nil {
			fmt.Printf("      %s\n", res.Err)
		}
		switch res.Status {
		case model.StatusCreated:
			created++
		case model.StatusAlreadyExists:
			existing++
		case model.StatusFailed:
			failed++
		}
	}

	if len(result.Secrets) > 0 {
		fmt.Println("\nSecrets:")
		for _, out := range result.Secrets {
			color := statusColor(out.Status)
			fmt.Printf("  %s%s %s (%s)%s\n",
				colorize(color), statusSymbol(out.Status), out.Name, out.Status, colorize("\033[0m"))
			if out.Err != nil {
				fmt.Printf("      %s\n", out.Err)
			}
		}
	}

	fmt.Println("\nTrigger:")
	if result.TriggerStatus == "" {
		fmt.Printf("  %s (skipped)\n", result.TriggerName)
	} else {
		color := statusColor(result.TriggerStatus)
		fmt.Printf("  %s%s %s (%s)%s\n",
			colorize(color), statusSymbol(result.TriggerStatus), result.TriggerName, result.TriggerStatus, colorize("\033[0m"))
	}

	fmt.Println("\nRun Summary:")
	fmt.Printf("  Created:        %d\n", created)
	fmt.Printf("  Already exists: %d\n", existing)
	fmt.Printf("  Failed:         %d\n", failed)
}
