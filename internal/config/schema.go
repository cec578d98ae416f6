package config

import (
	_ "embed"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/tindevelopers/gwinfra/internal/cloud"
)

//go:embed manifest.schema.json
var manifestSchema string

var compiledSchema = jsonschema.MustCompileString("manifest.schema.json", manifestSchema)

// validateSchema checks the raw document shape before it is decoded into
// typed structs, so misspelled fields and wrong types fail with a pointed
// message instead of silently becoming zero values.
func validateSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return cloud.ConfigErrorf("parse manifest: %v", err)
	}

	// The validator wants encoding/json value types, not yaml's.
	buf, err := json.Marshal(doc)
	if err != nil {
		return cloud.ConfigErrorf("manifest is not schema-checkable: %v", err)
	}
	var jsonDoc any
	if err := json.Unmarshal(buf, &jsonDoc); err != nil {
		return cloud.ConfigErrorf("manifest is not schema-checkable: %v", err)
	}

	if err := compiledSchema.Validate(jsonDoc); err != nil {
		return cloud.ConfigErrorf("manifest schema: %v", err)
	}
	return nil
}
