package model

import "fmt"

// SourceKind says how a secret's value is produced.
type SourceKind string

const (
	SourceGenerated SourceKind = "generated"
	SourceDerived   SourceKind = "derived"
	SourceLiteral   SourceKind = "literal"
)

// SecretSpec declares one secret to materialize into the secret store.
// Exactly one value source must be set: Generated, Template (with Inputs),
// or Value.
type SecretSpec struct {
	Name string `yaml:"name" json:"name"`

	// Generated asks for a fresh random value.
	Generated bool `yaml:"generated,omitempty" json:"generated,omitempty"`

	// Template derives the value from provision outputs, e.g.
	// "redis://{host}:{port}". Placeholders resolve against the outputs of
	// Inputs, searched in order; "{kind/name.field}" pins a single input.
	Template string        `yaml:"template,omitempty" json:"template,omitempty"`
	Inputs   []ResourceRef `yaml:"inputs,omitempty" json:"inputs,omitempty"`

	// Value is a literal, typically an ${ENV_VAR} reference expanded at
	// manifest load.
	Value string `yaml:"value,omitempty" json:"value,omitempty"`
}

// SourceKind classifies the spec and rejects specs that set zero or multiple
// sources.
func (s *SecretSpec) SourceKind() (SourceKind, error) {
	var kinds []SourceKind
	if s.Generated {
		kinds = append(kinds, SourceGenerated)
	}
	if s.Template != "" {
		kinds = append(kinds, SourceDerived)
	}
	if s.Value != "" {
		kinds = append(kinds, SourceLiteral)
	}
	switch len(kinds) {
	case 1:
		return kinds[0], nil
	case 0:
		return "", fmt.Errorf("secret %q: no value source (set generated, template or value)", s.Name)
	default:
		return "", fmt.Errorf("secret %q: multiple value sources %v", s.Name, kinds)
	}
}
