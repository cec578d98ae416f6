// Package trigger keeps CI build triggers in line with the manifest.
package trigger

import (
	"context"
	"fmt"

	"github.com/tindevelopers/gwinfra/internal/cloud"
	"github.com/tindevelopers/gwinfra/internal/engine"
	"github.com/tindevelopers/gwinfra/internal/logging"
	"github.com/tindevelopers/gwinfra/internal/model"
)

// DriftError means a trigger exists but watches a different branch or build
// config than the manifest declares. There is no update-in-place: changing
// these fields requires an explicit delete and recreate.
type DriftError struct {
	Name    string
	Field   string
	Current string
	Desired string
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("trigger %s: %s is %q but manifest declares %q; delete the trigger and re-run to recreate it",
		e.Name, e.Field, e.Current, e.Desired)
}

// Manager ensures build triggers exist as declared.
type Manager struct {
	service cloud.TriggerService

	// Retry applies to trigger service calls.
	Retry *engine.RetryPolicy
}

func NewManager(service cloud.TriggerService) *Manager {
	return &Manager{service: service, Retry: engine.DefaultRetryPolicy()}
}

// Ensure converges one trigger: absent triggers are created, matching
// triggers are left alone, and a trigger whose branch or build config
// differs is reported as drift, never silently rewritten.
func (m *Manager) Ensure(ctx context.Context, spec *model.TriggerSpec) (model.Status, error) {
	existing, err := m.get(ctx, spec.Name)
	switch {
	case err == nil:
		if driftErr := drift(existing, spec); driftErr != nil {
			return model.StatusFailed, driftErr
		}
		logging.Debug("trigger already configured", "trigger", spec.Name)
		return model.StatusAlreadyExists, nil
	case cloud.IsNotFound(err):
		// Fall through to create.
	default:
		return model.StatusFailed, fmt.Errorf("get trigger %s: %w", spec.Name, err)
	}

	err = engine.RetryWithBackoff(ctx, m.Retry, func() error {
		return m.service.CreateTrigger(ctx, spec)
	}, engine.IsRetryable)
	switch {
	case err == nil:
		logging.Info("trigger created", "trigger", spec.Name, "branch", spec.Branch)
		return model.StatusCreated, nil
	case cloud.IsConflict(err):
		// Lost a create race; verify the winner matches the manifest.
		existing, getErr := m.get(ctx, spec.Name)
		if getErr != nil {
			return model.StatusFailed, fmt.Errorf("get trigger %s after conflict: %w", spec.Name, getErr)
		}
		if driftErr := drift(existing, spec); driftErr != nil {
			return model.StatusFailed, driftErr
		}
		return model.StatusAlreadyExists, nil
	default:
		return model.StatusFailed, fmt.Errorf("create trigger %s: %w", spec.Name, err)
	}
}

// Delete removes a trigger by name. A missing trigger is a no-op; this is
// the explicit recreation path for changed build configs.
func (m *Manager) Delete(ctx context.Context, name string) error {
	err := engine.RetryWithBackoff(ctx, m.Retry, func() error {
		return m.service.DeleteTrigger(ctx, name)
	}, engine.IsRetryable)
	if err != nil {
		if cloud.IsNotFound(err) {
			logging.Debug("trigger already absent", "trigger", name)
			return nil
		}
		return fmt.Errorf("delete trigger %s: %w", name, err)
	}
	logging.Info("trigger deleted", "trigger", name)
	return nil
}

func (m *Manager) get(ctx context.Context, name string) (*model.TriggerSpec, error) {
	var existing *model.TriggerSpec
	err := engine.RetryWithBackoff(ctx, m.Retry, func() error {
		var getErr error
		existing, getErr = m.service.GetTrigger(ctx, name)
		return getErr
	}, engine.IsRetryable)
	return existing, err
}

func drift(current, desired *model.TriggerSpec) error {
	if current.Branch != desired.Branch {
		return &DriftError{Name: desired.Name, Field: "branch", Current: current.Branch, Desired: desired.Branch}
	}
	if current.BuildConfigPath != desired.BuildConfigPath {
		return &DriftError{Name: desired.Name, Field: "buildConfigPath", Current: current.BuildConfigPath, Desired: desired.BuildConfigPath}
	}
	return nil
}
