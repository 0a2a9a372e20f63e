package model

import "github.com/speakeasy-api/openapi/sequencedmap"

// Properties is the insertion-ordered property map of an object model.
type Properties = sequencedmap.Map[string, *Node]

// NewProperties returns an empty property map.
func NewProperties() *Properties {
	return sequencedmap.New[string, *Node]()
}

// UnknownPolicy decides what happens to input keys an object does not declare.
type UnknownPolicy uint8

const (
	// UnknownInherit defers to the compile options.
	UnknownInherit UnknownPolicy = iota
	// UnknownError reports each undeclared key as a violation.
	UnknownError
	// UnknownStrip drops undeclared keys.
	UnknownStrip
	// UnknownKeep copies undeclared keys through unchanged.
	UnknownKeep
)

// ParseUnknownPolicy parses the authored form of a policy.
func ParseUnknownPolicy(s string) (UnknownPolicy, bool) {
	switch s {
	case "error":
		return UnknownError, true
	case "strip":
		return UnknownStrip, true
	case "keep":
		return UnknownKeep, true
	default:
		return UnknownInherit, false
	}
}

// String returns the authored form of p.
func (p UnknownPolicy) String() string {
	switch p {
	case UnknownError:
		return "error"
	case UnknownStrip:
		return "strip"
	case UnknownKeep:
		return "keep"
	default:
		return "inherit"
	}
}

// Object is the body of an object model.
type Object struct {
	Properties *Properties
	Behavior   *Behavior
	Construct  ConstructFunc
	Convert    ConvertFunc
	Extends    string
	Unknown    UnknownPolicy
}

// Array is the body of an array model.
type Array struct {
	Item      *Node
	Convert   ConvertFunc
	Length    Opt[int]
	MinLength Opt[int]
	MaxLength Opt[int]
}

// AnyOf is the body of a union model. Candidate order is significant.
type AnyOf struct {
	Candidates []*Node
	Labels     []string
}

// CloneValue copies the maps and slices of a JSON-like value.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = CloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	default:
		return v
	}
}
