package export

import (
	"strconv"

	"github.com/speakeasy-api/openapi/jsonschema/oas3"
	"gopkg.in/yaml.v3"
)

// YAML renders s as a YAML document with keys in a fixed order.
func YAML(s *oas3.Schema) ([]byte, error) {
	return yaml.Marshal(render(s))
}

func render(s *oas3.Schema) *yaml.Node {
	out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if s == nil {
		return out
	}
	if types := s.GetType(); len(types) == 1 {
		pair(out, "type", scalar(string(types[0]), "!!str"))
	}
	if s.Format != nil {
		pair(out, "format", scalar(*s.Format, "!!str"))
	}
	if len(s.Enum) > 0 {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		seq.Content = append(seq.Content, s.Enum...)
		pair(out, "enum", seq)
	}
	if s.Pattern != nil {
		pair(out, "pattern", scalar(*s.Pattern, "!!str"))
	}
	intPair(out, "minLength", s.MinLength)
	intPair(out, "maxLength", s.MaxLength)
	floatPair(out, "minimum", s.Minimum)
	floatPair(out, "maximum", s.Maximum)
	if s.Properties != nil && s.Properties.Len() > 0 {
		props := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for name, child := range s.Properties.All() {
			pair(props, name, render(child.GetLeft()))
		}
		pair(out, "properties", props)
	}
	if len(s.Required) > 0 {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, name := range s.Required {
			seq.Content = append(seq.Content, scalar(name, "!!str"))
		}
		pair(out, "required", seq)
	}
	if s.AdditionalProperties != nil {
		pair(out, "additionalProperties", render(s.AdditionalProperties.GetLeft()))
	}
	if s.Items != nil {
		pair(out, "items", render(s.Items.GetLeft()))
	}
	intPair(out, "minItems", s.MinItems)
	intPair(out, "maxItems", s.MaxItems)
	if len(s.AnyOf) > 0 {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, cand := range s.AnyOf {
			seq.Content = append(seq.Content, render(cand.GetLeft()))
		}
		pair(out, "anyOf", seq)
	}
	return out
}

func pair(m *yaml.Node, key string, v *yaml.Node) {
	m.Content = append(m.Content, scalar(key, "!!str"), v)
}

func scalar(v, tag string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v}
}

func intPair(m *yaml.Node, key string, v *int64) {
	if v != nil {
		pair(m, key, scalar(strconv.FormatInt(*v, 10), "!!int"))
	}
}

func floatPair(m *yaml.Node, key string, v *float64) {
	if v != nil {
		pair(m, key, scalar(strconv.FormatFloat(*v, 'g', -1, 64), "!!float"))
	}
}
