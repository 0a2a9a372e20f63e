package model

// Opt is a setting that may be unset.
type Opt[T any] struct {
	V   T
	Set bool
}

// Some returns a set option holding v.
func Some[T any](v T) Opt[T] {
	return Opt[T]{V: v, Set: true}
}

// Get returns the value and whether it was set.
func (o Opt[T]) Get() (T, bool) {
	return o.V, o.Set
}

// Pattern is a named regular expression constraint.
type Pattern struct {
	Name   string
	Source string
}

// Constraints are the authored checks of a value model.
// Slices are unset when nil.
type Constraints struct {
	Types       []string
	Enum        []any
	PrivateEnum []any
	Regex       []Pattern
	MimeTypes   []string
	Equals      Opt[any]
	StrictType  Opt[bool]
	ConvertType Opt[bool]
	Length      Opt[int]
	MinLength   Opt[int]
	MaxLength   Opt[int]
	MinByteSize Opt[int]
	MaxByteSize Opt[int]
	MinValue    Opt[float64]
	MaxValue    Opt[float64]
	Contains    Opt[string]
	StartsWith  Opt[string]
	EndsWith    Opt[string]
	Letters     Opt[string]
	CharClass   Opt[string]
	DateFormat  Opt[string]
}

// Overlay copies every setting of base that c leaves unset.
// Settings already present on c are never overwritten.
func (c *Constraints) Overlay(base *Constraints) {
	if base == nil {
		return
	}
	overlaySlice(&c.Types, base.Types)
	overlaySlice(&c.Enum, base.Enum)
	overlaySlice(&c.PrivateEnum, base.PrivateEnum)
	overlaySlice(&c.Regex, base.Regex)
	overlaySlice(&c.MimeTypes, base.MimeTypes)
	overlayOpt(&c.Equals, base.Equals)
	overlayOpt(&c.StrictType, base.StrictType)
	overlayOpt(&c.ConvertType, base.ConvertType)
	overlayOpt(&c.Length, base.Length)
	overlayOpt(&c.MinLength, base.MinLength)
	overlayOpt(&c.MaxLength, base.MaxLength)
	overlayOpt(&c.MinByteSize, base.MinByteSize)
	overlayOpt(&c.MaxByteSize, base.MaxByteSize)
	overlayOpt(&c.MinValue, base.MinValue)
	overlayOpt(&c.MaxValue, base.MaxValue)
	overlayOpt(&c.Contains, base.Contains)
	overlayOpt(&c.StartsWith, base.StartsWith)
	overlayOpt(&c.EndsWith, base.EndsWith)
	overlayOpt(&c.Letters, base.Letters)
	overlayOpt(&c.CharClass, base.CharClass)
	overlayOpt(&c.DateFormat, base.DateFormat)
}

func overlayOpt[T any](dst *Opt[T], src Opt[T]) {
	if !dst.Set && src.Set {
		*dst = src
	}
}

func overlaySlice[T any](dst *[]T, src []T) {
	if *dst == nil && src != nil {
		*dst = src
	}
}

// Value is the body of a value model.
type Value struct {
	Convert     ConvertFunc
	Extends     string
	Validators  []NamedValidator
	Constraints Constraints
}

// NamedValidator is a custom check attached to a value model.
type NamedValidator struct {
	Fn   ValidateFunc
	Name string
}

// Overlay copies every setting of base that v leaves unset, hooks included.
func (v *Value) Overlay(base *Value) {
	if base == nil {
		return
	}
	v.Constraints.Overlay(&base.Constraints)
	if v.Validators == nil {
		v.Validators = base.Validators
	}
	if v.Convert == nil {
		v.Convert = base.Convert
	}
}
