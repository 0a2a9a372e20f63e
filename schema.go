package modelc

import (
	"context"
	"time"

	"github.com/jacoelho/modelc/errors"
	"github.com/jacoelho/modelc/internal/model"
	"github.com/jacoelho/modelc/internal/pipeline"
)

// Schema is a compiled set of models and endpoints. It is immutable and safe
// for concurrent use.
type Schema struct {
	compiled *pipeline.Compiled
	metrics  *processMetrics
}

// Process runs the input processor of endpoint. Violations are returned as
// errors.ValidationList; any other error comes from a hook.
func (s *Schema) Process(ctx context.Context, endpoint string, input any) (out any, err error) {
	if s == nil || s.compiled == nil {
		return nil, schemaNotLoadedError()
	}
	ep, ok := s.compiled.Endpoints[endpoint]
	if !ok {
		return nil, errors.ValidationList{errors.NewValidationf(errors.ErrEndpointNotFound, "", "endpoint %s is not defined", endpoint)}
	}
	start := time.Now()
	defer func() { s.metrics.observe(endpoint, start, err) }()
	switch {
	case ep.AllowAny:
		return model.CloneValue(input), nil
	case ep.Processor == nil:
		if !emptyInput(input) {
			return nil, errors.ValidationList{errors.NewValidationf(errors.ErrInputNotAllowed, "", "endpoint %s takes no input", endpoint)}
		}
		return nil, nil
	}
	return ep.Processor(ctx, input, "")
}

// ProcessModel runs the processor of the named model.
func (s *Schema) ProcessModel(ctx context.Context, name string, input any) (out any, err error) {
	if s == nil || s.compiled == nil {
		return nil, schemaNotLoadedError()
	}
	proc, ok := s.compiled.Processors[name]
	if !ok {
		return nil, errors.ValidationList{errors.NewValidationf(errors.ErrEndpointNotFound, "", "model %s is not defined", name)}
	}
	start := time.Now()
	defer func() { s.metrics.observe("model:"+name, start, err) }()
	return proc(ctx, input, "")
}

// Models returns the compiled model names in declaration order.
func (s *Schema) Models() []string {
	if s == nil || s.compiled == nil {
		return nil
	}
	return append([]string(nil), s.compiled.Order...)
}

// Endpoints returns the compiled endpoint names in sorted order.
func (s *Schema) Endpoints() []string {
	if s == nil || s.compiled == nil {
		return nil
	}
	return s.compiled.EndpointNames()
}

// Report returns the diagnostics of the compile run, warnings included.
func (s *Schema) Report() *errors.Report {
	if s == nil || s.compiled == nil {
		return &errors.Report{}
	}
	return s.compiled.Report
}

func emptyInput(input any) bool {
	switch v := input.(type) {
	case nil:
		return true
	case map[string]any:
		return len(v) == 0
	}
	return false
}

func schemaNotLoadedError() error {
	return errors.ValidationList{errors.NewValidation(errors.ErrSchemaNotLoaded, "schema not loaded", "")}
}
