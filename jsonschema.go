package modelc

import (
	"fmt"

	"github.com/speakeasy-api/openapi/jsonschema/oas3"

	"github.com/jacoelho/modelc/internal/export"
)

// JSONSchema returns the JSON Schema of the named model after inheritance.
func (s *Schema) JSONSchema(name string) (*oas3.Schema, error) {
	if s == nil || s.compiled == nil {
		return nil, schemaNotLoadedError()
	}
	n, ok := s.compiled.Models[name]
	if !ok {
		return nil, fmt.Errorf("json schema: model %s is not defined", name)
	}
	return export.Schema(n), nil
}

// EndpointJSONSchema returns the JSON Schema of an endpoint input.
func (s *Schema) EndpointJSONSchema(endpoint string) (*oas3.Schema, error) {
	if s == nil || s.compiled == nil {
		return nil, schemaNotLoadedError()
	}
	ep, ok := s.compiled.Endpoints[endpoint]
	if !ok {
		return nil, fmt.Errorf("json schema: endpoint %s is not defined", endpoint)
	}
	if ep.AllowAny || ep.Input == nil {
		return &oas3.Schema{}, nil
	}
	return export.Schema(ep.Input), nil
}

// MarshalJSONSchema renders a schema returned by JSONSchema as YAML.
func MarshalJSONSchema(js *oas3.Schema) ([]byte, error) {
	out, err := export.YAML(js)
	if err != nil {
		return nil, fmt.Errorf("json schema: %w", err)
	}
	return out, nil
}
