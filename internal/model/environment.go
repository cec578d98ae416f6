package model

// EnvironmentProfile binds a git branch to a deployment environment: the
// Cloud Run service name, its sizing, and the build trigger that deploys it.
type EnvironmentProfile struct {
	Name         string      `yaml:"name" json:"name"`
	Branch       string      `yaml:"branch" json:"branch"`
	Service      string      `yaml:"service" json:"service"`
	MemoryLimit  string      `yaml:"memoryLimit,omitempty" json:"memoryLimit,omitempty"`
	MaxInstances int         `yaml:"maxInstances,omitempty" json:"maxInstances,omitempty"`
	Trigger      TriggerSpec `yaml:"trigger" json:"trigger"`
}

// TriggerSpec declares a CI build trigger. Branch defaults to the owning
// profile's branch and Repo* default to the manifest-level repo; both are
// filled in during manifest normalization.
type TriggerSpec struct {
	Name            string            `yaml:"name" json:"name"`
	Branch          string            `yaml:"branch,omitempty" json:"branch,omitempty"`
	BuildConfigPath string            `yaml:"buildConfigPath" json:"buildConfigPath"`
	RepoOwner       string            `yaml:"repoOwner,omitempty" json:"repoOwner,omitempty"`
	RepoName        string            `yaml:"repoName,omitempty" json:"repoName,omitempty"`
	Substitutions   map[string]string `yaml:"substitutions,omitempty" json:"substitutions,omitempty"`
}
