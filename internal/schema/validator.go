package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.schema.yaml
var schemaFS embed.FS

const (
	toolConfigSchema = "schemas/toolconfig.schema.yaml"
	manifestSchema   = "schemas/manifest.schema.yaml"
)

// Validator handles JSON schema validation of the two input documents
type Validator struct {
	toolSchema     *jsonschema.Schema
	manifestSchema *jsonschema.Schema
}

// NewValidator compiles the embedded schemas
func NewValidator() (*Validator, error) {
	v := &Validator{}

	toolSchema, err := loadSchema(toolConfigSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to load tool config schema: %w", err)
	}
	v.toolSchema = toolSchema

	manifest, err := loadSchema(manifestSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest schema: %w", err)
	}
	v.manifestSchema = manifest

	return v, nil
}

// ValidateToolConfig validates raw tool config YAML against the schema
func (v *Validator) ValidateToolConfig(raw []byte) error {
	return validateYAML(v.toolSchema, raw)
}

// ValidateManifest validates raw manifest YAML against the schema
func (v *Validator) ValidateManifest(raw []byte) error {
	return validateYAML(v.manifestSchema, raw)
}

func validateYAML(schema *jsonschema.Schema, raw []byte) error {
	doc, err := toJSONValue(raw)
	if err != nil {
		return err
	}
	return schema.Validate(doc)
}

// toJSONValue decodes YAML and re-decodes it as JSON so the validator only
// sees JSON types
func toJSONValue(raw []byte) (interface{}, error) {
	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	jsonData, err := json.Marshal(stringKeys(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to convert YAML to JSON: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()
	var out interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return out, nil
}

// loadSchema loads and compiles an embedded schema file written in YAML
func loadSchema(path string) (*jsonschema.Schema, error) {
	data, err := schemaFS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	jsonData, err := json.Marshal(stringKeys(mustYAML(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	url := "varcall://" + path
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(jsonData)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return schema, nil
}

func mustYAML(data []byte) interface{} {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		panic(fmt.Sprintf("embedded schema is not valid YAML: %v", err))
	}
	return doc
}

// stringKeys converts YAML maps with non-string keys (numeric patient IDs)
// into JSON-compatible maps
func stringKeys(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = stringKeys(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = stringKeys(val)
		}
		return out
	default:
		return v
	}
}
