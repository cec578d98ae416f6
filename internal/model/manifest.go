package model

// RepoConfig names the source repository build triggers watch.
type RepoConfig struct {
	Owner string `yaml:"owner" json:"owner"`
	Name  string `yaml:"name" json:"name"`
}

// Manifest is the full declarative description of what a gateway project
// needs: resources, secrets and environment profiles. It is the registry the
// provisioner, materializer and router all read from.
type Manifest struct {
	Project      string                `yaml:"project" json:"project"`
	Region       string                `yaml:"region" json:"region"`
	Repo         RepoConfig            `yaml:"repo,omitempty" json:"repo,omitempty"`
	Resources    []*ResourceSpec       `yaml:"resources" json:"resources"`
	Secrets      []*SecretSpec         `yaml:"secrets,omitempty" json:"secrets,omitempty"`
	Environments []*EnvironmentProfile `yaml:"environments,omitempty" json:"environments,omitempty"`
}

// Resource looks up a resource spec by ref.
func (m *Manifest) Resource(ref ResourceRef) (*ResourceSpec, bool) {
	for _, spec := range m.Resources {
		if spec.Ref() == ref {
			return spec, true
		}
	}
	return nil, false
}

// Environment looks up a profile by environment name.
func (m *Manifest) Environment(name string) (*EnvironmentProfile, bool) {
	for _, env := range m.Environments {
		if env.Name == name {
			return env, true
		}
	}
	return nil, false
}
