package node

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/williamokano/s3_connector/pkg/keys"
)

// Schema returns the JSON schema that the non-image inputs of d must satisfy.
// Required inputs must be present; hidden inputs may be absent or null.
func (d Definition) Schema() map[string]interface{} {
	properties := map[string]interface{}{}
	required := []string{}

	for _, p := range d.Inputs {
		if s := portSchema(p.Type); s != nil {
			properties[p.Name] = s
			required = append(required, p.Name)
		}
	}
	for _, p := range d.Hidden {
		if s := portSchema(p.Type); s != nil {
			properties[p.Name] = map[string]interface{}{
				"anyOf": []interface{}{s, map[string]interface{}{"type": "null"}},
			}
		}
	}

	schema := map[string]interface{}{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"title":      d.Name,
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// portSchema returns nil for ports checked by Go type instead of schema
func portSchema(t PortType) map[string]interface{} {
	switch t {
	case TypeString:
		return map[string]interface{}{"type": "string"}
	case TypePrompt, TypeExtraPNGInfo:
		return map[string]interface{}{"type": "object"}
	default:
		return nil
	}
}

type validator struct {
	def    Definition
	schema *gojsonschema.Schema
}

func newValidator(def Definition) (*validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def.Schema()))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema for %s: %w", def.Name, err)
	}
	return &validator{def: def, schema: schema}, nil
}

// Validate checks the schema-typed inputs of in
func (v *validator) Validate(in Values) error {
	doc := map[string]interface{}{}
	for _, ports := range [][]Port{v.def.Inputs, v.def.Hidden} {
		for _, p := range ports {
			if portSchema(p.Type) == nil {
				continue
			}
			if val, ok := in[p.Name]; ok {
				doc[p.Name] = val
			}
		}
	}

	result, err := v.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", keys.ErrInvalidArgument, v.def.Name, err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("%w: %s: %s", keys.ErrInvalidArgument, v.def.Name, strings.Join(msgs, "; "))
	}

	return nil
}
