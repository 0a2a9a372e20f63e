package model

import "fmt"

// Kind discriminates the active variant of a Node.
type Kind uint8

const (
	// KindLink is a by-name reference to another model.
	KindLink Kind = iota + 1
	// KindValue is a scalar constraint model.
	KindValue
	// KindObject is an object shape with named properties.
	KindObject
	// KindArray is a homogeneous array shape.
	KindArray
	// KindAnyOf is an ordered union of candidate models.
	KindAnyOf
)

// String returns the kind name used in diagnostics.
func (k Kind) String() string {
	switch k {
	case KindLink:
		return "link"
	case KindValue:
		return "value"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindAnyOf:
		return "anyOf"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Presence describes how a node behaves when it is absent from its parent object.
type Presence struct {
	Default    any
	Optional   bool
	HasDefault bool
}

// DefaultValue returns a private copy of the default value.
func (p Presence) DefaultValue() any {
	return CloneValue(p.Default)
}

// Node is one model node. The body pointer matching Kind is the only one set.
//
// Requiredness variants are shallow copies that share the body with their
// origin, so work done on a body (merging, compiling) is visible through every
// variant.
type Node struct {
	Link   *Link
	Value  *Value
	Object *Object
	Array  *Array
	AnyOf  *AnyOf
	// Name is the registry name for named models and empty for inline nodes.
	Name string
	// Path locates the node in the authored document.
	Path string
	Presence
	Kind Kind
}

// NewLink returns a link node.
func NewLink(link Link) *Node {
	return &Node{Kind: KindLink, Link: &link}
}

// NewValue returns a value node.
func NewValue(v *Value) *Node {
	return &Node{Kind: KindValue, Value: v}
}

// NewObject returns an object node.
func NewObject(o *Object) *Node {
	return &Node{Kind: KindObject, Object: o}
}

// NewArray returns an array node.
func NewArray(a *Array) *Node {
	return &Node{Kind: KindArray, Array: a}
}

// NewAnyOf returns an anyOf node.
func NewAnyOf(a *AnyOf) *Node {
	return &Node{Kind: KindAnyOf, AnyOf: a}
}

// Body returns the kind-specific body. Bodies are identity keys for memo tables.
func (n *Node) Body() any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindLink:
		return n.Link
	case KindValue:
		return n.Value
	case KindObject:
		return n.Object
	case KindArray:
		return n.Array
	case KindAnyOf:
		return n.AnyOf
	default:
		return nil
	}
}

// WithPresence returns a shallow copy of n carrying p.
func (n *Node) WithPresence(p Presence) *Node {
	clone := *n
	clone.Presence = p
	return &clone
}

// Describe returns the name or the authoring path of n.
func (n *Node) Describe() string {
	if n == nil {
		return "<nil>"
	}
	if n.Name != "" {
		return n.Name
	}
	return n.Path
}

// Check reports whether the discriminant and the body agree.
func (n *Node) Check() error {
	if n == nil {
		return fmt.Errorf("model node is nil")
	}
	set := 0
	for _, ok := range []bool{n.Link != nil, n.Value != nil, n.Object != nil, n.Array != nil, n.AnyOf != nil} {
		if ok {
			set++
		}
	}
	if set != 1 || n.Body() == nil {
		return fmt.Errorf("model node %s: kind %s does not match its body", n.Describe(), n.Kind)
	}
	return nil
}
