package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema derives the input schema for a tool from its argument struct.
// Fields without omitempty are required; jsonschema tags add enums and bounds.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// ParametersMap flattens a schema into the plain object form most provider
// APIs accept: {"type":"object","properties":{...},"required":[...]}.
func ParametersMap(s *jsonschema.Schema) map[string]any {
	params := map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
	if s == nil {
		return params
	}
	if s.Properties != nil && s.Properties.Len() > 0 {
		raw, err := json.Marshal(s.Properties)
		if err == nil {
			var props map[string]any
			if json.Unmarshal(raw, &props) == nil {
				params["properties"] = props
			}
		}
	}
	if len(s.Required) > 0 {
		params["required"] = append([]string(nil), s.Required...)
	}
	return params
}

// Property is a provider-neutral view of one top-level schema property.
type Property struct {
	Name        string
	Type        string
	Description string
	Enum        []string
	Required    bool
}

// Properties lists the top-level properties of s in declaration order.
func Properties(s *jsonschema.Schema) []Property {
	if s == nil || s.Properties == nil {
		return nil
	}
	required := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		required[r] = true
	}
	var out []Property
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		p := Property{
			Name:        pair.Key,
			Type:        pair.Value.Type,
			Description: pair.Value.Description,
			Required:    required[pair.Key],
		}
		for _, e := range pair.Value.Enum {
			if str, ok := e.(string); ok {
				p.Enum = append(p.Enum, str)
			}
		}
		out = append(out, p)
	}
	return out
}
