package model

import "context"

// ConstructFunc initializes a freshly built object.
type ConstructFunc func(ctx context.Context, obj *Instance) error

// ConvertFunc replaces a validated value with a converted one.
type ConvertFunc func(ctx context.Context, v any) (any, error)

// ValidateFunc is a custom value check. A non-nil error is a violation.
type ValidateFunc func(ctx context.Context, v any) error

// Method is one entry of a behavior table.
type Method func(ctx context.Context, obj *Instance, args ...any) (any, error)

// ChainConstruct runs first to completion before then starts.
// A nil step is skipped.
func ChainConstruct(first, then ConstructFunc) ConstructFunc {
	switch {
	case first == nil:
		return then
	case then == nil:
		return first
	}
	return func(ctx context.Context, obj *Instance) error {
		if err := first(ctx, obj); err != nil {
			return err
		}
		return then(ctx, obj)
	}
}

// ChainConvert feeds the output of first into then.
// A nil step is the identity.
func ChainConvert(first, then ConvertFunc) ConvertFunc {
	switch {
	case first == nil:
		return then
	case then == nil:
		return first
	}
	return func(ctx context.Context, v any) (any, error) {
		out, err := first(ctx, v)
		if err != nil {
			return nil, err
		}
		return then(ctx, out)
	}
}
