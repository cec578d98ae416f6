package config

import (
	"fmt"
	"os"

	"github.com/tindevelopers/gwinfra/internal/cloud"
	"github.com/tindevelopers/gwinfra/internal/model"
)

// DefaultManifestYAML is the stock gateway stack: private-network Postgres
// and Redis behind a VPC connector, a usage-events topic, a runtime service
// account, the secrets the gateway reads at boot, and one deploy trigger per
// long-lived branch. `gwinfra init` writes it out; runs without --manifest
// load it directly.
const DefaultManifestYAML = `# AI gateway infrastructure manifest.
# The project may be overridden with GWINFRA_PROJECT. The openai-api-key
# literal requires OPENAI_API_KEY in the environment.
project: my-gcp-project
region: us-central1

repo:
  owner: tindevelopers
  name: ai-service-litellm-gateway

resources:
  - kind: vpc-connector
    name: gateway-connector
    params:
      network: default
      ipCidrRange: 10.8.0.0/28

  - kind: cloudsql-instance
    name: gateway-sql
    params:
      databaseVersion: POSTGRES_15
      database: gateway
      user: gateway
    dependsOn:
      - kind: vpc-connector
        name: gateway-connector

  - kind: redis-instance
    name: gateway-cache
    params:
      tier: BASIC
      memorySizeGb: "1"
    dependsOn:
      - kind: vpc-connector
        name: gateway-connector

  - kind: pubsub-topic
    name: gateway-usage-events

  - kind: service-account
    name: gateway-runtime
    params:
      displayName: Gateway runtime

secrets:
  - name: gateway-secret-key
    generated: true

  - name: litellm-master-key
    generated: true

  - name: gateway-database-url
    template: postgresql+asyncpg://{user}:{rootPassword}@{privateIp}:5432/{database}
    inputs:
      - kind: cloudsql-instance
        name: gateway-sql

  - name: gateway-redis-url
    template: redis://{host}:{port}
    inputs:
      - kind: redis-instance
        name: gateway-cache

  - name: openai-api-key
    value: ${OPENAI_API_KEY}

environments:
  - name: production
    branch: main
    service: ai-gateway
    memoryLimit: 2Gi
    maxInstances: 10
    trigger:
      buildConfigPath: cloudbuild.yaml

  - name: staging
    branch: staging
    service: ai-gateway-staging
    memoryLimit: 1Gi
    maxInstances: 5
    trigger:
      buildConfigPath: cloudbuild-staging.yaml

  - name: development
    branch: develop
    service: ai-gateway-dev
    memoryLimit: 512Mi
    maxInstances: 2
    trigger:
      buildConfigPath: cloudbuild-dev.yaml
`

// Default parses the built-in manifest.
func Default() (*model.Manifest, error) {
	return Parse([]byte(DefaultManifestYAML))
}

// WriteTemplate writes the built-in manifest to path, refusing to overwrite
// an existing file.
func WriteTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return cloud.ConfigErrorf("%s already exists", path)
	}
	if err := os.WriteFile(path, []byte(DefaultManifestYAML), 0644); err != nil {
		return fmt.Errorf("write manifest template: %w", err)
	}
	return nil
}
