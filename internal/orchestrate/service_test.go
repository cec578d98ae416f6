package orchestrate

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tindevelopers/gwinfra/internal/cloud"
	"github.com/tindevelopers/gwinfra/internal/engine"
	"github.com/tindevelopers/gwinfra/internal/model"
	"github.com/tindevelopers/gwinfra/providers/memory"
)

var connectorRef = model.ResourceRef{Kind: model.KindVPCConnector, Name: "gateway-connector"}

func gatewayManifest() *model.Manifest {
	return &model.Manifest{
		Project: "ai-gateway-prod",
		Region:  "us-central1",
		Repo:    model.RepoConfig{Owner: "tindevelopers", Name: "ai-service-litellm-gateway"},
		Resources: []*model.ResourceSpec{
			{Kind: model.KindVPCConnector, Name: "gateway-connector"},
			{
				Kind: model.KindCloudSQLInstance, Name: "gateway-sql",
				Params:    map[string]string{"database": "gateway", "user": "gateway"},
				DependsOn: []model.ResourceRef{connectorRef},
			},
			{Kind: model.KindRedisInstance, Name: "gateway-cache", DependsOn: []model.ResourceRef{connectorRef}},
			{Kind: model.KindPubSubTopic, Name: "gateway-usage-events"},
		},
		Secrets: []*model.SecretSpec{
			{Name: "gateway-secret-key", Generated: true},
			{
				Name:     "gateway-redis-url",
				Template: "redis://{host}:{port}",
				Inputs:   []model.ResourceRef{{Kind: model.KindRedisInstance, Name: "gateway-cache"}},
			},
		},
		Environments: []*model.EnvironmentProfile{
			{
				Name: "production", Branch: "main", Service: "ai-gateway",
				MemoryLimit: "2Gi", MaxInstances: 10,
				Trigger: model.TriggerSpec{
					Name: "deploy-production", Branch: "main", BuildConfigPath: "cloudbuild.yaml",
					RepoOwner: "tindevelopers", RepoName: "ai-service-litellm-gateway",
				},
			},
			{
				Name: "staging", Branch: "staging", Service: "ai-gateway-staging",
				Trigger: model.TriggerSpec{
					Name: "deploy-staging", Branch: "staging", BuildConfigPath: "cloudbuild-staging.yaml",
					RepoOwner: "tindevelopers", RepoName: "ai-service-litellm-gateway",
				},
			},
		},
	}
}

func newService(t *testing.T, m *model.Manifest) (*Service, *memory.Provider) {
	t.Helper()
	p := memory.New(m.Project)
	svc := New(m, p.Bundle(), Options{
		LockDir: t.TempDir(),
		Retry:   &engine.RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	})
	return svc, p
}

func TestRun_FullPipeline(t *testing.T) {
	ctx := context.Background()
	svc, p := newService(t, gatewayManifest())

	result, err := svc.Run(ctx, "main")
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "production", result.Environment)
	assert.False(t, result.Skipped)

	require.Equal(t, 4, result.Resources.Len())
	for _, res := range result.Resources.All() {
		assert.Equal(t, model.StatusCreated, res.Status, res.Ref.String())
	}

	url, ok := p.SecretValue("gateway-redis-url")
	require.True(t, ok)
	assert.Equal(t, "redis://10.0.0.5:6379", url)

	key, ok := p.SecretValue("gateway-secret-key")
	require.True(t, ok)
	assert.NotEmpty(t, key)

	assert.Equal(t, model.StatusCreated, result.TriggerStatus)
	stored, err := p.GetTrigger(ctx, "deploy-production")
	require.NoError(t, err)
	assert.Equal(t, "ai-gateway", stored.Substitutions["_SERVICE_NAME"])
	assert.Equal(t, "2Gi", stored.Substitutions["_MEMORY"])
	assert.Equal(t, "10", stored.Substitutions["_MAX_INSTANCES"])
	assert.Equal(t, "production", stored.Substitutions["_ENVIRONMENT"])
}

func TestRun_SkipsUnmappedBranch(t *testing.T) {
	ctx := context.Background()
	svc, p := newService(t, gatewayManifest())

	result, err := svc.Run(ctx, "feature/h2-transport")
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Empty(t, result.Environment)
	assert.Nil(t, result.Resources)

	topics, err := p.List(ctx, model.KindPubSubTopic, "")
	require.NoError(t, err)
	assert.Empty(t, topics)
}

func TestRun_AmbiguousBranchFailsClosed(t *testing.T) {
	m := gatewayManifest()
	m.Environments[1].Branch = "main"
	svc, p := newService(t, m)

	result, err := svc.Run(context.Background(), "main")
	require.Error(t, err)
	assert.True(t, cloud.IsConfigError(err))
	assert.Nil(t, result)

	topics, err := p.List(context.Background(), model.KindPubSubTopic, "")
	require.NoError(t, err)
	assert.Empty(t, topics)
}

func TestRun_SecondRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, p := newService(t, gatewayManifest())

	_, err := svc.Run(ctx, "main")
	require.NoError(t, err)
	firstKey, _ := p.SecretValue("gateway-secret-key")

	result, err := svc.Run(ctx, "main")
	require.NoError(t, err)

	for _, res := range result.Resources.All() {
		assert.Equal(t, model.StatusAlreadyExists, res.Status, res.Ref.String())
	}
	for _, out := range result.Secrets {
		assert.Equal(t, model.StatusAlreadyExists, out.Status, out.Name)
	}
	assert.Equal(t, model.StatusAlreadyExists, result.TriggerStatus)

	secondKey, _ := p.SecretValue("gateway-secret-key")
	assert.Equal(t, firstKey, secondKey)
}

func TestRun_FailureSkipsTriggerStage(t *testing.T) {
	ctx := context.Background()
	svc, p := newService(t, gatewayManifest())
	p.FailCreate(connectorRef, "quota exceeded")

	result, err := svc.Run(ctx, "main")
	require.Error(t, err)

	connector, _ := result.Resources.Get(connectorRef)
	assert.Equal(t, model.StatusFailed, connector.Status)

	sql, _ := result.Resources.Get(model.ResourceRef{Kind: model.KindCloudSQLInstance, Name: "gateway-sql"})
	assert.Equal(t, model.StatusFailed, sql.Status)
	var blocked *engine.BlockedError
	assert.ErrorAs(t, sql.Err, &blocked)

	topic, _ := result.Resources.Get(model.ResourceRef{Kind: model.KindPubSubTopic, Name: "gateway-usage-events"})
	assert.Equal(t, model.StatusCreated, topic.Status)

	assert.Empty(t, result.TriggerStatus)
	_, err = p.GetTrigger(ctx, "deploy-production")
	assert.True(t, cloud.IsNotFound(err))
}

func TestRun_TransientFlakeRecovers(t *testing.T) {
	ctx := context.Background()
	svc, p := newService(t, gatewayManifest())
	cache := model.ResourceRef{Kind: model.KindRedisInstance, Name: "gateway-cache"}
	p.FlakeCreate(cache, 2)

	result, err := svc.Run(ctx, "main")
	require.NoError(t, err)

	res, ok := result.Resources.Get(cache)
	require.True(t, ok)
	assert.Equal(t, model.StatusCreated, res.Status)
}

func TestRun_LockHeldByAnotherRun(t *testing.T) {
	m := gatewayManifest()
	p := memory.New(m.Project)
	dir := t.TempDir()
	svc := New(m, p.Bundle(), Options{LockDir: dir})

	other := newRunLock(dir, m.Project)
	require.NoError(t, other.Acquire())
	defer other.Release()

	_, err := svc.Run(context.Background(), "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "holds the lock")
}

func TestRunLock_StaleLockReclaimed(t *testing.T) {
	dir := t.TempDir()
	lock := newRunLock(dir, "demo")
	require.NoError(t, lock.Acquire())

	old := time.Now().Add(-11 * time.Minute)
	require.NoError(t, os.Chtimes(lock.path, old, old))

	fresh := newRunLock(dir, "demo")
	require.NoError(t, fresh.Acquire())
	require.NoError(t, fresh.Release())
}

func TestDeleteTrigger(t *testing.T) {
	ctx := context.Background()
	svc, p := newService(t, gatewayManifest())

	_, err := svc.Run(ctx, "main")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTrigger(ctx, "deploy-production"))
	_, err = p.GetTrigger(ctx, "deploy-production")
	assert.True(t, cloud.IsNotFound(err))

	// Deleting an absent trigger is a no-op.
	require.NoError(t, svc.DeleteTrigger(ctx, "deploy-production"))
}
