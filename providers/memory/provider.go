// Package memory implements every collaborator surface in process. It backs
// tests and dry runs: creates mutate only in-memory maps, and describe
// returns deterministic outputs per kind so derived secrets still render.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tindevelopers/gwinfra/internal/cloud"
	"github.com/tindevelopers/gwinfra/internal/model"
)

type Provider struct {
	project string

	mu        sync.Mutex
	resources map[model.ResourceRef]map[string]string
	secrets   map[string]string
	triggers  map[string]*model.TriggerSpec

	failCreates  map[model.ResourceRef]string
	flakeCreates map[model.ResourceRef]int
}

func New(project string) *Provider {
	if project == "" {
		project = "dry-run"
	}
	return &Provider{
		project:      project,
		resources:    make(map[model.ResourceRef]map[string]string),
		secrets:      make(map[string]string),
		triggers:     make(map[string]*model.TriggerSpec),
		failCreates:  make(map[model.ResourceRef]string),
		flakeCreates: make(map[model.ResourceRef]int),
	}
}

// FailCreate makes every Create of ref fail permanently with message.
func (p *Provider) FailCreate(ref model.ResourceRef, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failCreates[ref] = message
}

// FlakeCreate makes the next n Creates of ref fail with a transient error
// before the one after succeeds.
func (p *Provider) FlakeCreate(ref model.ResourceRef, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flakeCreates[ref] = n
}

// Bundle returns the provider wired into all three collaborator roles.
func (p *Provider) Bundle() *cloud.Bundle {
	return &cloud.Bundle{
		ControlPlane:   p,
		SecretStore:    p,
		TriggerService: p,
	}
}

func (p *Provider) Exists(ctx context.Context, spec *model.ResourceSpec) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.resources[spec.Ref()]
	return ok, nil
}

func (p *Provider) Create(ctx context.Context, spec *model.ResourceSpec) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ref := spec.Ref()
	if n := p.flakeCreates[ref]; n > 0 {
		p.flakeCreates[ref] = n - 1
		return cloud.NewError("create "+ref.String(), cloud.KindTransient, errors.New("injected transient error"))
	}
	if msg, ok := p.failCreates[ref]; ok {
		return cloud.NewError("create "+ref.String(), cloud.KindPermanent, errors.New(msg))
	}
	if _, ok := p.resources[ref]; ok {
		return cloud.NewError("create "+ref.String(), cloud.KindConflict, errors.New("resource already exists"))
	}
	if !model.KnownKind(spec.Kind) {
		return cloud.NewError("create "+ref.String(), cloud.KindPermanent, fmt.Errorf("unsupported kind %q", spec.Kind))
	}
	p.resources[ref] = p.syntheticOutputs(spec)
	return nil
}

func (p *Provider) Describe(ctx context.Context, spec *model.ResourceSpec) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ref := spec.Ref()
	outputs, ok := p.resources[ref]
	if !ok {
		return nil, cloud.NewError("describe "+ref.String(), cloud.KindNotFound, errors.New("resource not found"))
	}
	// Copy so callers can't mutate the stored outputs.
	out := make(map[string]string, len(outputs))
	for k, v := range outputs {
		out[k] = v
	}
	return out, nil
}

func (p *Provider) List(ctx context.Context, kind model.Kind, region string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var names []string
	for ref := range p.resources {
		if ref.Kind == kind {
			names = append(names, ref.Name)
		}
	}
	return names, nil
}

func (p *Provider) SecretExists(ctx context.Context, name string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.secrets[name]
	return ok, nil
}

func (p *Provider) CreateSecret(ctx context.Context, name, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.secrets[name]; ok {
		return cloud.NewError("create secret "+name, cloud.KindConflict, errors.New("secret already exists"))
	}
	p.secrets[name] = value
	return nil
}

func (p *Provider) GetTrigger(ctx context.Context, name string) (*model.TriggerSpec, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	spec, ok := p.triggers[name]
	if !ok {
		return nil, cloud.NewError("get trigger "+name, cloud.KindNotFound, errors.New("trigger not found"))
	}
	copied := *spec
	return &copied, nil
}

func (p *Provider) CreateTrigger(ctx context.Context, spec *model.TriggerSpec) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.triggers[spec.Name]; ok {
		return cloud.NewError("create trigger "+spec.Name, cloud.KindConflict, errors.New("trigger already exists"))
	}
	copied := *spec
	p.triggers[spec.Name] = &copied
	return nil
}

func (p *Provider) DeleteTrigger(ctx context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.triggers[name]; !ok {
		return cloud.NewError("delete trigger "+name, cloud.KindNotFound, errors.New("trigger not found"))
	}
	delete(p.triggers, name)
	return nil
}

// SecretValue exposes a stored secret to tests and dry-run reporting.
func (p *Provider) SecretValue(name string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.secrets[name]
	return v, ok
}

// syntheticOutputs fabricates the read-back attributes the real control
// plane would report, stable per ref so repeated runs agree.
func (p *Provider) syntheticOutputs(spec *model.ResourceSpec) map[string]string {
	switch spec.Kind {
	case model.KindCloudSQLInstance:
		return map[string]string{
			"privateIp":      "10.20.0.3",
			"connectionName": fmt.Sprintf("%s:%s:%s", p.project, spec.Region, spec.Name),
			"port":           "5432",
			"database":       spec.Param("database", "gateway"),
			"user":           spec.Param("user", "gateway"),
			"rootPassword":   "dry-run-password-" + spec.Name,
		}
	case model.KindRedisInstance:
		return map[string]string{
			"host":       "10.0.0.5",
			"port":       "6379",
			"authString": "dry-run-auth-" + spec.Name,
		}
	case model.KindVPCConnector:
		return map[string]string{
			"network":     spec.Param("network", "default"),
			"ipCidrRange": spec.Param("ipCidrRange", "10.8.0.0/28"),
			"state":       "READY",
		}
	case model.KindPubSubTopic:
		return map[string]string{
			"topic": spec.Name,
			"id":    fmt.Sprintf("projects/%s/topics/%s", p.project, spec.Name),
		}
	case model.KindServiceAccount:
		return map[string]string{
			"email":    fmt.Sprintf("%s@%s.iam.gserviceaccount.com", spec.Name, p.project),
			"uniqueId": "dry-run-" + spec.Name,
		}
	default:
		return map[string]string{"name": spec.Name}
	}
}
