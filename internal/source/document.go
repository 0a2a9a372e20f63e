package source

import (
	"fmt"
	"slices"

	"github.com/speakeasy-api/openapi/sequencedmap"
	"gopkg.in/yaml.v3"
)

// DefaultMaxDepth bounds the nesting of decoded documents.
const DefaultMaxDepth = 128

// Map is an insertion-ordered raw mapping.
type Map = sequencedmap.Map[string, any]

// NewMap returns an empty raw mapping.
func NewMap() *Map {
	return sequencedmap.New[string, any]()
}

const (
	sectionModels    = "models"
	sectionEndpoints = "endpoints"
)

// Document is one decoded model document.
type Document struct {
	Models    *Map
	Endpoints *Map
	Origin    string
}

// Decode parses a YAML or JSON model document, keeping mapping key order.
func Decode(origin string, data []byte, maxDepth int) (*Document, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode %s: %w", origin, err)
	}
	d := &nodeDecoder{maxDepth: maxDepth}
	raw, err := d.decode(&root, 0)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", origin, err)
	}
	return newDocument(origin, raw)
}

// FromValue builds a document from an in-memory structure. Plain Go maps are
// converted to ordered mappings with sorted keys; other values, hook
// functions included, are kept as they are.
func FromValue(origin string, v any, maxDepth int) (*Document, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	raw, err := fromValue(v, 0, maxDepth)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", origin, err)
	}
	return newDocument(origin, raw)
}

// Ordered converts plain Go maps inside v to ordered mappings with sorted keys.
func Ordered(v any, maxDepth int) (any, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return fromValue(v, 0, maxDepth)
}

func newDocument(origin string, raw any) (*Document, error) {
	doc := &Document{Origin: origin, Models: NewMap(), Endpoints: NewMap()}
	if raw == nil {
		return doc, nil
	}
	root, ok := raw.(*Map)
	if !ok {
		return nil, fmt.Errorf("load %s: document root must be a mapping, got %T", origin, raw)
	}
	for key, value := range root.All() {
		switch key {
		case sectionModels, sectionEndpoints:
			if value == nil {
				continue
			}
			section, ok := value.(*Map)
			if !ok {
				return nil, fmt.Errorf("load %s: %s must be a mapping, got %T", origin, key, value)
			}
			if key == sectionModels {
				doc.Models = section
			} else {
				doc.Endpoints = section
			}
		default:
			return nil, fmt.Errorf("load %s: unknown section %q", origin, key)
		}
	}
	return doc, nil
}

const (
	aliasRatioRangeLow  = 400000
	aliasRatioRangeHigh = 4000000
	aliasRatioRange     = float64(aliasRatioRangeHigh - aliasRatioRangeLow)
)

// allowedAliasRatio returns the share of decoded nodes that may come from
// alias expansion. Small documents may alias freely; large ones may not.
func allowedAliasRatio(decoded int) float64 {
	switch {
	case decoded <= aliasRatioRangeLow:
		return 0.99
	case decoded >= aliasRatioRangeHigh:
		return 0.10
	default:
		return 0.99 - 0.89*(float64(decoded-aliasRatioRangeLow)/aliasRatioRange)
	}
}

type nodeDecoder struct {
	maxDepth   int
	decoded    int
	aliased    int
	aliasDepth int
}

func (d *nodeDecoder) decode(n *yaml.Node, depth int) (any, error) {
	if depth > d.maxDepth {
		return nil, fmt.Errorf("line %d: nesting exceeds %d levels", n.Line, d.maxDepth)
	}
	d.decoded++
	if d.aliasDepth > 0 {
		d.aliased++
	}
	if d.aliased > 100 && d.decoded > 1000 && float64(d.aliased)/float64(d.decoded) > allowedAliasRatio(d.decoded) {
		return nil, fmt.Errorf("line %d: document contains excessive aliasing", n.Line)
	}
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return d.decode(n.Content[0], depth)
	case yaml.AliasNode:
		d.aliasDepth++
		defer func() { d.aliasDepth-- }()
		return d.decode(n.Alias, depth+1)
	case yaml.MappingNode:
		m := NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping key must be a scalar", key.Line)
			}
			if _, dup := m.Get(key.Value); dup {
				return nil, fmt.Errorf("line %d: duplicate key %q", key.Line, key.Value)
			}
			value, err := d.decode(n.Content[i+1], depth+1)
			if err != nil {
				return nil, err
			}
			m.Set(key.Value, value)
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			value, err := d.decode(item, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, value)
		}
		return out, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
	}
}

// Plain converts ordered mappings inside v to map[string]any, copying lists
// along the way. Authored data values such as defaults and enum members are
// stored in this form so they compare and clone like request input.
func Plain(v any) any {
	switch t := v.(type) {
	case *Map:
		if t == nil {
			return nil
		}
		out := make(map[string]any, t.Len())
		for k, e := range t.All() {
			out[k] = Plain(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Plain(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Plain(e)
		}
		return out
	default:
		return v
	}
}

func fromValue(v any, depth, maxDepth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("nesting exceeds %d levels", maxDepth)
	}
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		m := NewMap()
		for _, k := range keys {
			value, err := fromValue(t[k], depth+1, maxDepth)
			if err != nil {
				return nil, err
			}
			m.Set(k, value)
		}
		return m, nil
	case *Map:
		m := NewMap()
		for k, e := range t.All() {
			value, err := fromValue(e, depth+1, maxDepth)
			if err != nil {
				return nil, err
			}
			m.Set(k, value)
		}
		return m, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			value, err := fromValue(e, depth+1, maxDepth)
			if err != nil {
				return nil, err
			}
			out[i] = value
		}
		return out, nil
	default:
		return v, nil
	}
}
