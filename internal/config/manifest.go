package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tindevelopers/gwinfra/internal/cloud"
	"github.com/tindevelopers/gwinfra/internal/model"
)

// Load reads a manifest file. An empty path loads the built-in gateway
// manifest.
func Load(path string) (*model.Manifest, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cloud.ConfigErrorf("read manifest: %v", err)
	}
	return Parse(data)
}

// Parse turns manifest YAML into a validated, normalized registry.
func Parse(data []byte) (*model.Manifest, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var m model.Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, cloud.ConfigErrorf("parse manifest: %v", err)
	}

	if err := expandLiterals(&m); err != nil {
		return nil, err
	}
	normalize(&m)
	if err := Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// expandLiterals resolves ${VAR} references in literal secret values. An
// unset variable aborts the load: materializing an empty API key would only
// surface once the gateway boots against it.
func expandLiterals(m *model.Manifest) error {
	for _, sec := range m.Secrets {
		if sec.Value == "" {
			continue
		}
		var missing []string
		sec.Value = os.Expand(sec.Value, func(key string) string {
			v, ok := os.LookupEnv(key)
			if !ok {
				missing = append(missing, key)
			}
			return v
		})
		if len(missing) > 0 {
			return cloud.ConfigErrorf("secret %q references unset environment variable %s", sec.Name, missing[0])
		}
	}
	return nil
}

// normalize fills derived defaults: each trigger inherits its profile's
// branch, the manifest-level repo, and a deploy-<environment> name; resources
// without a region inherit the manifest's.
func normalize(m *model.Manifest) {
	for _, spec := range m.Resources {
		if spec.Region == "" {
			spec.Region = m.Region
		}
	}
	for _, env := range m.Environments {
		if env.Trigger.Name == "" {
			env.Trigger.Name = "deploy-" + env.Name
		}
		if env.Trigger.Branch == "" {
			env.Trigger.Branch = env.Branch
		}
		if env.Trigger.RepoOwner == "" {
			env.Trigger.RepoOwner = m.Repo.Owner
		}
		if env.Trigger.RepoName == "" {
			env.Trigger.RepoName = m.Repo.Name
		}
	}
}

// Validate applies the semantic rules the schema cannot express. Duplicate
// environment branches are deliberately allowed here; the router reports
// ambiguity only when a matching branch is actually pushed.
func Validate(m *model.Manifest) error {
	declared := make(map[model.ResourceRef]bool, len(m.Resources))
	for _, spec := range m.Resources {
		if !model.KnownKind(spec.Kind) {
			return cloud.ConfigErrorf("resource %q: unknown kind %q", spec.Name, spec.Kind)
		}
		ref := spec.Ref()
		if declared[ref] {
			return cloud.ConfigErrorf("duplicate resource %s", ref)
		}
		declared[ref] = true
	}
	for _, spec := range m.Resources {
		for _, dep := range spec.DependsOn {
			if !declared[dep] {
				return cloud.ConfigErrorf("resource %s depends on undeclared resource %s", spec.Ref(), dep)
			}
		}
	}

	secretNames := make(map[string]bool, len(m.Secrets))
	for _, sec := range m.Secrets {
		if secretNames[sec.Name] {
			return cloud.ConfigErrorf("duplicate secret %q", sec.Name)
		}
		secretNames[sec.Name] = true
		if _, err := sec.SourceKind(); err != nil {
			return &cloud.ConfigError{Err: err}
		}
		for _, input := range sec.Inputs {
			if !declared[input] {
				return cloud.ConfigErrorf("secret %q input %s is not a declared resource", sec.Name, input)
			}
		}
	}

	envNames := make(map[string]bool, len(m.Environments))
	for _, env := range m.Environments {
		if envNames[env.Name] {
			return cloud.ConfigErrorf("duplicate environment %q", env.Name)
		}
		envNames[env.Name] = true
	}
	return nil
}
