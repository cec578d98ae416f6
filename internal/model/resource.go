package model

import (
	"fmt"
	"strings"
)

// Kind identifies a provisionable resource type.
type Kind string

const (
	KindCloudSQLInstance Kind = "cloudsql-instance"
	KindRedisInstance    Kind = "redis-instance"
	KindVPCConnector     Kind = "vpc-connector"
	KindPubSubTopic      Kind = "pubsub-topic"
	KindServiceAccount   Kind = "service-account"
)

// Kinds lists every resource kind the orchestrator understands.
var Kinds = []Kind{
	KindCloudSQLInstance,
	KindRedisInstance,
	KindVPCConnector,
	KindPubSubTopic,
	KindServiceAccount,
}

// KnownKind reports whether k is a kind the orchestrator can provision.
func KnownKind(k Kind) bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ResourceRef addresses a resource by kind and name. It is comparable and
// used as the node identity in the dependency graph.
type ResourceRef struct {
	Kind Kind   `yaml:"kind" json:"kind"`
	Name string `yaml:"name" json:"name"`
}

func (r ResourceRef) String() string {
	return string(r.Kind) + "/" + r.Name
}

// ParseRef parses a "kind/name" reference string.
func ParseRef(s string) (ResourceRef, error) {
	kind, name, ok := strings.Cut(s, "/")
	if !ok || kind == "" || name == "" {
		return ResourceRef{}, fmt.Errorf("invalid resource reference %q: want kind/name", s)
	}
	return ResourceRef{Kind: Kind(kind), Name: name}, nil
}

// ResourceSpec declares a single resource the target project must have.
type ResourceSpec struct {
	Kind      Kind              `yaml:"kind" json:"kind"`
	Name      string            `yaml:"name" json:"name"`
	Region    string            `yaml:"region,omitempty" json:"region,omitempty"`
	Params    map[string]string `yaml:"params,omitempty" json:"params,omitempty"`
	DependsOn []ResourceRef     `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"`
}

// Ref returns the spec's graph identity.
func (s *ResourceSpec) Ref() ResourceRef {
	return ResourceRef{Kind: s.Kind, Name: s.Name}
}

// Param returns a parameter value, or def when the parameter is unset.
func (s *ResourceSpec) Param(key, def string) string {
	if v, ok := s.Params[key]; ok {
		return v
	}
	return def
}

// Status is the terminal outcome of provisioning one resource.
type Status string

const (
	StatusCreated       Status = "created"
	StatusAlreadyExists Status = "already-exists"
	StatusFailed        Status = "failed"
)

// ProvisionResult records the outcome for one resource spec. Outputs hold
// read-back attributes (host, port, connection name and the like) and are
// only populated for non-failed results.
type ProvisionResult struct {
	Ref     ResourceRef
	Status  Status
	Outputs map[string]string
	Err     error
}

// Output returns a read-back attribute by field name.
func (r *ProvisionResult) Output(field string) (string, bool) {
	v, ok := r.Outputs[field]
	return v, ok
}
