package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tindevelopers/gwinfra/internal/cloud"
	"github.com/tindevelopers/gwinfra/internal/model"
)

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := LoadSettings()
	require.NoError(t, err)

	assert.Equal(t, "google", s.Backend)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, 4, s.Parallelism)
	assert.Equal(t, 4, s.RetryMax)
	assert.Equal(t, 500*time.Millisecond, s.RetryBaseDelay)
	assert.Equal(t, 4*time.Minute, s.OpTimeout)
}

func TestLoadSettings_Overrides(t *testing.T) {
	t.Setenv("GWINFRA_PROJECT", "other-project")
	t.Setenv("GWINFRA_BACKEND", "memory")
	t.Setenv("GWINFRA_PARALLELISM", "8")
	t.Setenv("GWINFRA_OP_TIMEOUT", "10m")

	s, err := LoadSettings()
	require.NoError(t, err)

	assert.Equal(t, "other-project", s.Project)
	assert.Equal(t, "memory", s.Backend)
	assert.Equal(t, 8, s.Parallelism)
	assert.Equal(t, 10*time.Minute, s.OpTimeout)
}

func TestDefaultManifest(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	m, err := Default()
	require.NoError(t, err)

	assert.Len(t, m.Resources, 5)
	assert.Len(t, m.Secrets, 5)
	assert.Len(t, m.Environments, 3)

	// Literal expansion happened at load.
	var openai *model.SecretSpec
	for _, sec := range m.Secrets {
		if sec.Name == "openai-api-key" {
			openai = sec
		}
	}
	require.NotNil(t, openai)
	assert.Equal(t, "sk-test", openai.Value)

	// Normalization filled the trigger defaults and resource regions.
	prod, ok := m.Environment("production")
	require.True(t, ok)
	assert.Equal(t, "deploy-production", prod.Trigger.Name)
	assert.Equal(t, "main", prod.Trigger.Branch)
	assert.Equal(t, "tindevelopers", prod.Trigger.RepoOwner)
	assert.Equal(t, "ai-service-litellm-gateway", prod.Trigger.RepoName)

	sql, ok := m.Resource(model.ResourceRef{Kind: model.KindCloudSQLInstance, Name: "gateway-sql"})
	require.True(t, ok)
	assert.Equal(t, "us-central1", sql.Region)
	require.Len(t, sql.DependsOn, 1)
	assert.Equal(t, model.KindVPCConnector, sql.DependsOn[0].Kind)
}

func TestParse_SchemaRejectsUnknownField(t *testing.T) {
	_, err := Parse([]byte(`
project: demo
resourcez:
  - kind: pubsub-topic
    name: events
`))
	require.Error(t, err)
	assert.True(t, cloud.IsConfigError(err))
	assert.Contains(t, err.Error(), "schema")
}

func TestParse_SchemaRejectsNonStringParam(t *testing.T) {
	_, err := Parse([]byte(`
project: demo
resources:
  - kind: redis-instance
    name: cache
    params:
      memorySizeGb: 1
`))
	require.Error(t, err)
	assert.True(t, cloud.IsConfigError(err))
}

func TestParse_UnknownKind(t *testing.T) {
	_, err := Parse([]byte(`
project: demo
resources:
  - kind: spanner-instance
    name: db
`))
	require.Error(t, err)
	assert.True(t, cloud.IsConfigError(err))
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestParse_DuplicateResource(t *testing.T) {
	_, err := Parse([]byte(`
project: demo
resources:
  - kind: pubsub-topic
    name: events
  - kind: pubsub-topic
    name: events
`))
	require.Error(t, err)
	assert.True(t, cloud.IsConfigError(err))
	assert.Contains(t, err.Error(), "duplicate resource")
}

func TestParse_DanglingDependency(t *testing.T) {
	_, err := Parse([]byte(`
project: demo
resources:
  - kind: cloudsql-instance
    name: db
    dependsOn:
      - kind: vpc-connector
        name: missing
`))
	require.Error(t, err)
	assert.True(t, cloud.IsConfigError(err))
	assert.Contains(t, err.Error(), "undeclared resource")
}

func TestParse_DanglingSecretInput(t *testing.T) {
	_, err := Parse([]byte(`
project: demo
resources:
  - kind: pubsub-topic
    name: events
secrets:
  - name: cache-url
    template: redis://{host}:{port}
    inputs:
      - kind: redis-instance
        name: missing
`))
	require.Error(t, err)
	assert.True(t, cloud.IsConfigError(err))
	assert.Contains(t, err.Error(), "not a declared resource")
}

func TestParse_SecretWithTwoSources(t *testing.T) {
	_, err := Parse([]byte(`
project: demo
resources:
  - kind: pubsub-topic
    name: events
secrets:
  - name: key
    generated: true
    value: fixed
`))
	require.Error(t, err)
	assert.True(t, cloud.IsConfigError(err))
	assert.Contains(t, err.Error(), "multiple value sources")
}

func TestParse_UnsetEnvVarFailsClosed(t *testing.T) {
	_, err := Parse([]byte(`
project: demo
resources:
  - kind: pubsub-topic
    name: events
secrets:
  - name: api-key
    value: ${GWINFRA_TEST_NEVER_SET}
`))
	require.Error(t, err)
	assert.True(t, cloud.IsConfigError(err))
	assert.Contains(t, err.Error(), "unset environment variable")
}

func TestParse_DuplicateBranchesLoad(t *testing.T) {
	// Two profiles on one branch is a routing-time ambiguity, not a load
	// error: the manifest may be edited towards a state where a branch is
	// being handed over between environments.
	m, err := Parse([]byte(`
project: demo
resources:
  - kind: pubsub-topic
    name: events
environments:
  - name: staging
    branch: main
    service: svc-a
    trigger:
      buildConfigPath: cloudbuild.yaml
  - name: production
    branch: main
    service: svc-b
    trigger:
      buildConfigPath: cloudbuild.yaml
`))
	require.NoError(t, err)
	assert.Len(t, m.Environments, 2)
}

func TestWriteTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gwinfra.yaml")

	require.NoError(t, WriteTemplate(path))

	err := WriteTemplate(path)
	require.Error(t, err)
	assert.True(t, cloud.IsConfigError(err))
	assert.Contains(t, err.Error(), "already exists")
}
