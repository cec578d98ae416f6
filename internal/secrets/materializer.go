// Package secrets materializes secret values into a write-once secret store.
// It runs strictly after provisioning so that derived values render from
// read-back outputs, never from guessed inputs.
package secrets

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tindevelopers/gwinfra/internal/cloud"
	"github.com/tindevelopers/gwinfra/internal/engine"
	"github.com/tindevelopers/gwinfra/internal/logging"
	"github.com/tindevelopers/gwinfra/internal/model"
)

// generatedBytes is the entropy of a generated secret before encoding.
const generatedBytes = 32

var placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// MissingOutputError means a derived secret referenced an output no input
// result provides, either because the field is absent or because the input
// resource failed.
type MissingOutputError struct {
	Secret string
	Field  string
}

func (e *MissingOutputError) Error() string {
	return fmt.Sprintf("secret %s references missing output %q", e.Secret, e.Field)
}

// Outcome is the per-secret report entry. Status reuses the provisioning
// vocabulary: created, already-exists (write-once no-op) or failed.
type Outcome struct {
	Name   string
	Status model.Status
	Err    error
}

// Materializer resolves and stores secrets. The store is write-once: an
// existing secret is a successful no-op and its value is never read,
// compared or overwritten.
type Materializer struct {
	store cloud.SecretStore

	// Retry applies to store calls.
	Retry *engine.RetryPolicy
}

func NewMaterializer(store cloud.SecretStore) *Materializer {
	return &Materializer{store: store, Retry: engine.DefaultRetryPolicy()}
}

// Materialize processes every secret spec in declaration order and returns
// one outcome per spec plus the joined failures. Failures are per-secret;
// one bad secret never stops the rest.
func (m *Materializer) Materialize(ctx context.Context, specs []*model.SecretSpec, results *model.ResultSet) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(specs))
	var errs []error

	for _, spec := range specs {
		outcome := m.materializeOne(ctx, spec, results)
		outcomes = append(outcomes, outcome)
		if outcome.Status == model.StatusFailed && outcome.Err != nil {
			errs = append(errs, fmt.Errorf("secret %s: %w", spec.Name, outcome.Err))
		}
	}

	if len(errs) > 0 {
		return outcomes, fmt.Errorf("%d secret(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return outcomes, nil
}

func (m *Materializer) materializeOne(ctx context.Context, spec *model.SecretSpec, results *model.ResultSet) Outcome {
	// Existence first: re-runs short-circuit before any value is resolved,
	// so a derived secret whose instance predates this run stays untouched.
	var exists bool
	err := engine.RetryWithBackoff(ctx, m.Retry, func() error {
		var checkErr error
		exists, checkErr = m.store.SecretExists(ctx, spec.Name)
		return checkErr
	}, engine.IsRetryable)
	if err != nil {
		return Outcome{Name: spec.Name, Status: model.StatusFailed, Err: fmt.Errorf("existence check: %w", err)}
	}
	if exists {
		logging.Debug("secret already present", "secret", spec.Name)
		return Outcome{Name: spec.Name, Status: model.StatusAlreadyExists}
	}

	value, err := m.resolveValue(spec, results)
	if err != nil {
		return Outcome{Name: spec.Name, Status: model.StatusFailed, Err: err}
	}

	err = engine.RetryWithBackoff(ctx, m.Retry, func() error {
		return m.store.CreateSecret(ctx, spec.Name, value)
	}, engine.IsRetryable)
	switch {
	case err == nil:
		logging.Info("secret stored", "secret", spec.Name)
		return Outcome{Name: spec.Name, Status: model.StatusCreated}
	case cloud.IsConflict(err):
		// Another writer got there first; write-once means that is fine.
		logging.Debug("secret store conflict treated as already-exists", "secret", spec.Name)
		return Outcome{Name: spec.Name, Status: model.StatusAlreadyExists}
	default:
		return Outcome{Name: spec.Name, Status: model.StatusFailed, Err: fmt.Errorf("store: %w", err)}
	}
}

func (m *Materializer) resolveValue(spec *model.SecretSpec, results *model.ResultSet) (string, error) {
	kind, err := spec.SourceKind()
	if err != nil {
		return "", err
	}
	switch kind {
	case model.SourceGenerated:
		return generateValue()
	case model.SourceDerived:
		return renderTemplate(spec, results)
	default:
		return spec.Value, nil
	}
}

// generateValue returns a fresh random value: 32 bytes of entropy, base64.
func generateValue() (string, error) {
	buf := make([]byte, generatedBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read entropy: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// renderTemplate substitutes {field} placeholders from the outputs of the
// secret's inputs, searched in declaration order. The qualified form
// {kind/name.field} pins one input.
func renderTemplate(spec *model.SecretSpec, results *model.ResultSet) (string, error) {
	var renderErr error
	rendered := placeholderPattern.ReplaceAllStringFunc(spec.Template, func(match string) string {
		placeholder := match[1 : len(match)-1]
		value, err := resolvePlaceholder(spec, placeholder, results)
		if err != nil && renderErr == nil {
			renderErr = err
		}
		return value
	})
	if renderErr != nil {
		return "", renderErr
	}
	return rendered, nil
}

func resolvePlaceholder(spec *model.SecretSpec, placeholder string, results *model.ResultSet) (string, error) {
	if refPart, field, qualified := splitQualified(placeholder); qualified {
		ref, err := model.ParseRef(refPart)
		if err != nil {
			return "", fmt.Errorf("placeholder %q: %w", placeholder, err)
		}
		if !refDeclared(spec.Inputs, ref) {
			return "", fmt.Errorf("placeholder %q references %s, which is not an input of secret %s", placeholder, ref, spec.Name)
		}
		return outputFrom(spec.Name, ref, field, results)
	}

	// Bare field: first input whose outputs carry it wins.
	for _, ref := range spec.Inputs {
		res, ok := results.Get(ref)
		if !ok || res.Status == model.StatusFailed {
			continue
		}
		if value, ok := res.Output(placeholder); ok {
			return value, nil
		}
	}
	return "", &MissingOutputError{Secret: spec.Name, Field: placeholder}
}

func outputFrom(secret string, ref model.ResourceRef, field string, results *model.ResultSet) (string, error) {
	res, ok := results.Get(ref)
	if !ok || res.Status == model.StatusFailed {
		return "", &MissingOutputError{Secret: secret, Field: field}
	}
	value, ok := res.Output(field)
	if !ok {
		return "", &MissingOutputError{Secret: secret, Field: field}
	}
	return value, nil
}

// splitQualified splits "kind/name.field" into its ref and field parts.
func splitQualified(placeholder string) (refPart, field string, ok bool) {
	if !strings.Contains(placeholder, "/") {
		return "", "", false
	}
	idx := strings.LastIndex(placeholder, ".")
	if idx <= strings.Index(placeholder, "/") {
		return "", "", false
	}
	return placeholder[:idx], placeholder[idx+1:], true
}

func refDeclared(inputs []model.ResourceRef, ref model.ResourceRef) bool {
	for _, in := range inputs {
		if in == ref {
			return true
		}
	}
	return false
}
