// Package backend selects a cloud binding by name. Backends are built in;
// there is no plugin loading.
package backend

import (
	"context"

	"github.com/tindevelopers/gwinfra/internal/cloud"
	"github.com/tindevelopers/gwinfra/providers/google"
	"github.com/tindevelopers/gwinfra/providers/memory"
)

// DefaultName is the backend used when none is named.
const DefaultName = "google"

// Options carries what a backend needs to build its clients.
type Options struct {
	Project         string
	Region          string
	CredentialsFile string
}

// Names lists the registered backends.
func Names() []string {
	return []string{"google", "memory"}
}

// Open builds the named backend's collaborator bundle. The caller owns the
// bundle and must Close it.
func Open(ctx context.Context, name string, opts Options) (*cloud.Bundle, error) {
	switch name {
	case "", DefaultName:
		p, err := google.New(ctx, google.Options{
			Project:         opts.Project,
			Region:          opts.Region,
			CredentialsFile: opts.CredentialsFile,
		})
		if err != nil {
			return nil, err
		}
		return p.Bundle(), nil
	case "memory":
		return memory.New(opts.Project).Bundle(), nil
	default:
		return nil, cloud.ConfigErrorf("unknown backend: %s", name)
	}
}
