package model

import (
	"context"
	"fmt"
	"slices"
)

// Behavior is a method table made of ordered layers. Lookups consult the
// nearest layer first and fall back to the layers beneath it.
type Behavior struct {
	layers []map[string]Method
}

// NewBehavior returns a single-layer behavior table.
func NewBehavior(methods map[string]Method) *Behavior {
	layer := make(map[string]Method, len(methods))
	for name, fn := range methods {
		if fn != nil {
			layer[name] = fn
		}
	}
	return &Behavior{layers: []map[string]Method{layer}}
}

// Over stacks b on top of base. Either side may be nil.
func (b *Behavior) Over(base *Behavior) *Behavior {
	switch {
	case b == nil:
		return base
	case base == nil:
		return b
	}
	layers := make([]map[string]Method, 0, len(b.layers)+len(base.layers))
	layers = append(layers, b.layers...)
	layers = append(layers, base.layers...)
	return &Behavior{layers: layers}
}

// Lookup returns the nearest method called name.
func (b *Behavior) Lookup(name string) (Method, bool) {
	if b == nil {
		return nil, false
	}
	for _, layer := range b.layers {
		if fn, ok := layer[name]; ok {
			return fn, true
		}
	}
	return nil, false
}

// Depth returns the number of layers.
func (b *Behavior) Depth() int {
	if b == nil {
		return 0
	}
	return len(b.layers)
}

// Methods returns every method name reachable through b, sorted.
func (b *Behavior) Methods() []string {
	if b == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var names []string
	for _, layer := range b.layers {
		for name := range layer {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Instance is a built object value carrying its behavior table.
type Instance struct {
	Fields   map[string]any
	behavior *Behavior
}

// NewInstance wraps fields with behavior.
func NewInstance(fields map[string]any, behavior *Behavior) *Instance {
	if fields == nil {
		fields = make(map[string]any)
	}
	return &Instance{Fields: fields, behavior: behavior}
}

// Get returns the field called name.
func (i *Instance) Get(name string) (any, bool) {
	v, ok := i.Fields[name]
	return v, ok
}

// Set stores a field.
func (i *Instance) Set(name string, v any) {
	i.Fields[name] = v
}

// Behavior returns the behavior table of i.
func (i *Instance) Behavior() *Behavior {
	return i.behavior
}

// Call invokes the nearest method called name.
func (i *Instance) Call(ctx context.Context, name string, args ...any) (any, error) {
	fn, ok := i.behavior.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("call %s: no such method", name)
	}
	return fn(ctx, i, args...)
}
