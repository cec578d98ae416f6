// Package cloud defines the collaborator surfaces the orchestrator core
// drives, and the error vocabulary shared by core and providers. The core
// never imports a cloud SDK; real bindings live under providers/ and are
// selected through internal/backend.
package cloud

import (
	"context"
	"errors"
	"io"

	"github.com/tindevelopers/gwinfra/internal/model"
)

// ControlPlane is the resource surface of the target project. Create is not
// required to be idempotent; callers treat a conflict error as
// already-exists. Describe reads back the authoritative attributes of an
// existing resource and must not be answered from cached create inputs.
type ControlPlane interface {
	Exists(ctx context.Context, spec *model.ResourceSpec) (bool, error)
	Create(ctx context.Context, spec *model.ResourceSpec) error
	Describe(ctx context.Context, spec *model.ResourceSpec) (map[string]string, error)
	List(ctx context.Context, kind model.Kind, region string) ([]string, error)
}

// SecretStore is a write-once secret surface. CreateSecret on an existing
// name returns a conflict error; values are never overwritten or compared.
type SecretStore interface {
	SecretExists(ctx context.Context, name string) (bool, error)
	CreateSecret(ctx context.Context, name, value string) error
}

// TriggerService manages CI build triggers. GetTrigger returns a not-found
// error when no trigger with that name exists.
type TriggerService interface {
	GetTrigger(ctx context.Context, name string) (*model.TriggerSpec, error)
	CreateTrigger(ctx context.Context, spec *model.TriggerSpec) error
	DeleteTrigger(ctx context.Context, name string) error
}

// Bundle groups the three collaborator surfaces of one backend.
type Bundle struct {
	ControlPlane   ControlPlane
	SecretStore    SecretStore
	TriggerService TriggerService

	closers []io.Closer
}

// AddCloser registers a client to close when the bundle shuts down.
func (b *Bundle) AddCloser(c io.Closer) {
	b.closers = append(b.closers, c)
}

// Close releases every registered client connection.
func (b *Bundle) Close() error {
	var errs []error
	for _, c := range b.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
