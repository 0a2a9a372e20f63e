package modelc

import (
	"github.com/jacoelho/modelc/internal/model"
	"github.com/jacoelho/modelc/internal/normalize"
)

// Hooks are the named functions a model document may reference.
type Hooks = normalize.Hooks

// ConstructFunc initializes a built object in place.
type ConstructFunc = model.ConstructFunc

// ConvertFunc replaces a processed value with its converted form.
type ConvertFunc = model.ConvertFunc

// ValidateFunc is a custom value check.
type ValidateFunc = model.ValidateFunc

// Method is one entry of an object behavior table.
type Method = model.Method

// Instance is a processed object that carries a behavior table.
type Instance = model.Instance

// UnknownPolicy decides what happens to undeclared object properties.
type UnknownPolicy = model.UnknownPolicy

const (
	// UnknownError reports each undeclared property as a violation.
	UnknownError = model.UnknownError
	// UnknownStrip drops undeclared properties.
	UnknownStrip = model.UnknownStrip
	// UnknownKeep copies undeclared properties through unchanged.
	UnknownKeep = model.UnknownKeep
)

// ParseUnknownPolicy parses the authored name of a policy: error, strip or keep.
func ParseUnknownPolicy(s string) (UnknownPolicy, bool) {
	return model.ParseUnknownPolicy(s)
}
