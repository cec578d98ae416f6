// Package routing maps git branches to deployment environments.
package routing

import (
	"fmt"
	"strings"

	"github.com/tindevelopers/gwinfra/internal/cloud"
	"github.com/tindevelopers/gwinfra/internal/model"
)

// AmbiguousEnvironmentError means more than one environment profile claims
// the same branch. The router fails closed rather than picking one.
type AmbiguousEnvironmentError struct {
	Branch       string
	Environments []string
}

func (e *AmbiguousEnvironmentError) Error() string {
	return fmt.Sprintf("branch %q matches multiple environments: %s", e.Branch, strings.Join(e.Environments, ", "))
}

// Resolve returns the environment profile whose branch equals branch. The
// match is an exact string comparison, no globbing. No match returns
// (nil, nil): an unmapped branch means no deployment action, not a failure.
// Multiple matches are a configuration error.
func Resolve(manifest *model.Manifest, branch string) (*model.EnvironmentProfile, error) {
	var matches []*model.EnvironmentProfile
	for _, env := range manifest.Environments {
		if env.Branch == branch {
			matches = append(matches, env)
		}
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, env := range matches {
			names[i] = env.Name
		}
		return nil, &cloud.ConfigError{Err: &AmbiguousEnvironmentError{Branch: branch, Environments: names}}
	}
}
