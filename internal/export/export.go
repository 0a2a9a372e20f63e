// Package export describes resolved models as JSON Schema documents.
package export

import (
	"slices"

	"github.com/speakeasy-api/openapi/jsonschema/oas3"
	"github.com/speakeasy-api/openapi/sequencedmap"
	"gopkg.in/yaml.v3"

	"github.com/jacoelho/modelc/internal/model"
	"github.com/jacoelho/modelc/internal/valuetype"
)

type exporter struct {
	active map[any]bool
}

// Schema returns the JSON Schema of a resolved, merged node. A model that
// recurses into itself is cut at the recursion point with an open schema of
// its kind.
func Schema(n *model.Node) *oas3.Schema {
	e := &exporter{active: make(map[any]bool)}
	return e.node(n)
}

func (e *exporter) node(n *model.Node) *oas3.Schema {
	if n == nil {
		return &oas3.Schema{}
	}
	body := n.Body()
	if e.active[body] {
		return open(n.Kind)
	}
	e.active[body] = true
	defer delete(e.active, body)

	switch n.Kind {
	case model.KindValue:
		return value(n.Value)
	case model.KindObject:
		return e.object(n.Object)
	case model.KindArray:
		return e.array(n.Array)
	case model.KindAnyOf:
		s := &oas3.Schema{}
		for _, cand := range n.AnyOf.Candidates {
			s.AnyOf = append(s.AnyOf, wrap(e.node(cand)))
		}
		return s
	default:
		return &oas3.Schema{}
	}
}

func open(kind model.Kind) *oas3.Schema {
	switch kind {
	case model.KindObject:
		return typed(oas3.SchemaTypeObject)
	case model.KindArray:
		return typed(oas3.SchemaTypeArray)
	default:
		return &oas3.Schema{}
	}
}

func typed(t oas3.SchemaType) *oas3.Schema {
	return &oas3.Schema{Type: oas3.NewTypeFromString(t)}
}

func wrap(s *oas3.Schema) *oas3.JSONSchema[oas3.Referenceable] {
	return oas3.NewJSONSchemaFromSchema[oas3.Referenceable](s)
}

func (e *exporter) object(o *model.Object) *oas3.Schema {
	s := typed(oas3.SchemaTypeObject)
	props := sequencedmap.New[string, *oas3.JSONSchema[oas3.Referenceable]]()
	if o.Properties != nil {
		for name, child := range o.Properties.All() {
			props.Set(name, wrap(e.node(child)))
			if !child.Optional {
				s.Required = append(s.Required, name)
			}
		}
	}
	s.Properties = props
	if o.Unknown == model.UnknownKeep {
		s.AdditionalProperties = wrap(&oas3.Schema{})
	}
	return s
}

func (e *exporter) array(a *model.Array) *oas3.Schema {
	s := typed(oas3.SchemaTypeArray)
	if a.Item != nil {
		s.Items = wrap(e.node(a.Item))
	}
	minLen, maxLen := a.MinLength, a.MaxLength
	if a.Length.Set {
		minLen, maxLen = a.Length, a.Length
	}
	s.MinItems = int64Ptr(minLen)
	s.MaxItems = int64Ptr(maxLen)
	return s
}

func value(v *model.Value) *oas3.Schema {
	c := &v.Constraints
	s := &oas3.Schema{}
	var jsonTypes []string
	format := ""
	for _, name := range c.Types {
		t, ok := valuetype.Lookup(name)
		if !ok || t.JSONType == "" {
			// an untyped member accepts anything
			jsonTypes = nil
			break
		}
		if !slices.Contains(jsonTypes, t.JSONType) {
			jsonTypes = append(jsonTypes, t.JSONType)
		}
		format = t.Format
	}
	switch len(jsonTypes) {
	case 0:
	case 1:
		s.Type = oas3.NewTypeFromString(oas3.SchemaType(jsonTypes[0]))
		if format != "" && len(c.Types) == 1 {
			s.Format = &format
		}
	default:
		for _, t := range jsonTypes {
			s.AnyOf = append(s.AnyOf, wrap(typed(oas3.SchemaType(t))))
		}
	}

	enum := c.Enum
	if enum == nil {
		enum = c.PrivateEnum
	}
	if eq, ok := c.Equals.Get(); ok {
		enum = []any{eq}
	}
	for _, v := range enum {
		node := &yaml.Node{}
		if err := node.Encode(v); err == nil {
			s.Enum = append(s.Enum, node)
		}
	}
	if len(c.Regex) > 0 {
		pattern := c.Regex[0].Source
		s.Pattern = &pattern
	}
	minLen, maxLen := c.MinLength, c.MaxLength
	if c.Length.Set {
		minLen, maxLen = c.Length, c.Length
	}
	s.MinLength = int64Ptr(minLen)
	s.MaxLength = int64Ptr(maxLen)
	if m, ok := c.MinValue.Get(); ok {
		s.Minimum = &m
	}
	if m, ok := c.MaxValue.Get(); ok {
		s.Maximum = &m
	}
	return s
}

func int64Ptr(o model.Opt[int]) *int64 {
	v, ok := o.Get()
	if !ok {
		return nil
	}
	n := int64(v)
	return &n
}
