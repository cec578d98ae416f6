// Package google binds the orchestrator's collaborator surfaces to the real
// Google Cloud control plane: Cloud SQL, Memorystore, Serverless VPC Access,
// Pub/Sub and IAM behind cloud.ControlPlane, Secret Manager behind
// cloud.SecretStore, and Cloud Build triggers behind cloud.TriggerService.
package google

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/cloudbuild/v1"
	"google.golang.org/api/iam/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/redis/v1"
	"google.golang.org/api/sqladmin/v1beta4"
	"google.golang.org/api/vpcaccess/v1"

	"github.com/tindevelopers/gwinfra/internal/cloud"
	"github.com/tindevelopers/gwinfra/internal/model"
)

const (
	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

	// pollInterval paces long-running operation polls (SQL, Redis, VPC).
	pollInterval = 5 * time.Second
)

// Options configures a Provider. Project is required. When CredentialsFile
// is empty the clients use Application Default Credentials.
type Options struct {
	Project         string
	Region          string
	CredentialsFile string
}

// Provider talks to one Google Cloud project. It implements
// cloud.ControlPlane, cloud.SecretStore and cloud.TriggerService.
type Provider struct {
	project string
	region  string

	sqlService   *sqladmin.Service
	redisService *redis.Service
	vpcService   *vpcaccess.Service
	iamService   *iam.Service
	buildService *cloudbuild.Service
	secretClient *secretmanager.Client
	pubsubClient *pubsub.Client

	// Root passwords generated for instances created this run, keyed by
	// instance name. The API never reads a password back, so Describe merges
	// these into fresh-create outputs only.
	mu           sync.Mutex
	sqlPasswords map[string]string
}

// New builds the client set for one project. Credential problems are
// configuration-class: they abort the run before any control-plane call.
func New(ctx context.Context, opts Options) (*Provider, error) {
	if opts.Project == "" {
		return nil, cloud.ConfigErrorf("google backend: project is required")
	}

	clientOpts, err := clientOptions(ctx, opts)
	if err != nil {
		return nil, err
	}

	sqlService, err := sqladmin.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("sqladmin client: %w", err)
	}
	redisService, err := redis.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("redis client: %w", err)
	}
	vpcService, err := vpcaccess.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("vpcaccess client: %w", err)
	}
	iamService, err := iam.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("iam client: %w", err)
	}
	buildService, err := cloudbuild.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("cloudbuild client: %w", err)
	}
	secretClient, err := secretmanager.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("secretmanager client: %w", err)
	}
	pubsubClient, err := pubsub.NewClient(ctx, opts.Project, clientOpts...)
	if err != nil {
		secretClient.Close()
		return nil, fmt.Errorf("pubsub client: %w", err)
	}

	return &Provider{
		project:      opts.Project,
		region:       opts.Region,
		sqlService:   sqlService,
		redisService: redisService,
		vpcService:   vpcService,
		iamService:   iamService,
		buildService: buildService,
		secretClient: secretClient,
		pubsubClient: pubsubClient,
		sqlPasswords: map[string]string{},
	}, nil
}

// clientOptions resolves credentials. Priority: explicit key file, then
// Application Default Credentials. ADC is probed up front so a missing login
// fails the run before any resource work starts.
func clientOptions(ctx context.Context, opts Options) ([]option.ClientOption, error) {
	if opts.CredentialsFile != "" {
		data, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, cloud.ConfigErrorf("read credentials file: %v", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, cloudPlatformScope)
		if err != nil {
			return nil, cloud.ConfigErrorf("invalid credentials file %s: %v", opts.CredentialsFile, err)
		}
		return []option.ClientOption{option.WithTokenSource(creds.TokenSource)}, nil
	}
	if _, err := google.FindDefaultCredentials(ctx, cloudPlatformScope); err != nil {
		return nil, cloud.ConfigErrorf("no Google credentials: %v (run `gcloud auth application-default login` or set a credentials file)", err)
	}
	return nil, nil
}

// Bundle wires the provider into the three collaborator roles and registers
// the gRPC clients for shutdown.
func (p *Provider) Bundle() *cloud.Bundle {
	b := &cloud.Bundle{
		ControlPlane:   p,
		SecretStore:    p,
		TriggerService: p,
	}
	b.AddCloser(p.secretClient)
	b.AddCloser(p.pubsubClient)
	return b
}

// location returns the spec's region, falling back to the provider default.
func (p *Provider) location(spec *model.ResourceSpec) string {
	if spec.Region != "" {
		return spec.Region
	}
	return p.region
}

func (p *Provider) Exists(ctx context.Context, spec *model.ResourceSpec) (bool, error) {
	switch spec.Kind {
	case model.KindCloudSQLInstance:
		return p.sqlInstanceExists(ctx, spec)
	case model.KindRedisInstance:
		return p.redisInstanceExists(ctx, spec)
	case model.KindVPCConnector:
		return p.connectorExists(ctx, spec)
	case model.KindPubSubTopic:
		return p.topicExists(ctx, spec)
	case model.KindServiceAccount:
		return p.serviceAccountExists(ctx, spec)
	default:
		return false, unsupportedKind("exists", spec)
	}
}

func (p *Provider) Create(ctx context.Context, spec *model.ResourceSpec) error {
	switch spec.Kind {
	case model.KindCloudSQLInstance:
		return p.createSQLInstance(ctx, spec)
	case model.KindRedisInstance:
		return p.createRedisInstance(ctx, spec)
	case model.KindVPCConnector:
		return p.createConnector(ctx, spec)
	case model.KindPubSubTopic:
		return p.createTopic(ctx, spec)
	case model.KindServiceAccount:
		return p.createServiceAccount(ctx, spec)
	default:
		return unsupportedKind("create", spec)
	}
}

func (p *Provider) Describe(ctx context.Context, spec *model.ResourceSpec) (map[string]string, error) {
	switch spec.Kind {
	case model.KindCloudSQLInstance:
		return p.describeSQLInstance(ctx, spec)
	case model.KindRedisInstance:
		return p.describeRedisInstance(ctx, spec)
	case model.KindVPCConnector:
		return p.describeConnector(ctx, spec)
	case model.KindPubSubTopic:
		return p.describeTopic(ctx, spec)
	case model.KindServiceAccount:
		return p.describeServiceAccount(ctx, spec)
	default:
		return nil, unsupportedKind("describe", spec)
	}
}

func (p *Provider) List(ctx context.Context, kind model.Kind, region string) ([]string, error) {
	if region == "" {
		region = p.region
	}
	switch kind {
	case model.KindCloudSQLInstance:
		return p.listSQLInstances(ctx)
	case model.KindRedisInstance:
		return p.listRedisInstances(ctx, region)
	case model.KindVPCConnector:
		return p.listConnectors(ctx, region)
	case model.KindPubSubTopic:
		return p.listTopics(ctx)
	case model.KindServiceAccount:
		return p.listServiceAccounts(ctx)
	default:
		return nil, cloud.NewError("list "+string(kind), cloud.KindPermanent, fmt.Errorf("unsupported kind %q", kind))
	}
}

func unsupportedKind(verb string, spec *model.ResourceSpec) error {
	return cloud.NewError(verb+" "+spec.Ref().String(), cloud.KindPermanent,
		fmt.Errorf("unsupported kind %q", spec.Kind))
}

// existsFromErr folds a get-style probe into the Exists contract: nil error
// means present, not-found means absent, anything else propagates.
func existsFromErr(op string, err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	werr := wrapErr(op, err)
	if cloud.IsNotFound(werr) {
		return false, nil
	}
	return false, werr
}

// ignoreConflict drops already-exists errors from ensure-style sub-steps.
func ignoreConflict(err error) error {
	if cloud.IsConflict(err) {
		return nil
	}
	return err
}

// networkPath expands the spec's short network name into its global
// resource path.
func (p *Provider) networkPath(spec *model.ResourceSpec) string {
	return fmt.Sprintf("projects/%s/global/networks/%s", p.project, spec.Param("network", "default"))
}

// intParam parses an integer parameter, falling back to def when unset.
func intParam(spec *model.ResourceSpec, key string, def int64) (int64, error) {
	v, ok := spec.Params[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %s: %w", key, err)
	}
	return n, nil
}

// boolParam parses a boolean parameter, falling back to def when unset.
func boolParam(spec *model.ResourceSpec, key string, def bool) (bool, error) {
	v, ok := spec.Params[key]
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parameter %s: %w", key, err)
	}
	return b, nil
}

// generatePassword returns a fresh URL-safe random password.
func generatePassword() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
