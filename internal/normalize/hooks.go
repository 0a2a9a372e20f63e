package normalize

import (
	"context"

	"github.com/jacoelho/modelc/internal/model"
)

// Hooks are the named functions a document may reference by string.
type Hooks struct {
	Constructs map[string]model.ConstructFunc
	Converts   map[string]model.ConvertFunc
	Validators map[string]model.ValidateFunc
	Behaviors  map[string]map[string]model.Method
}

func asConstruct(v any) (model.ConstructFunc, bool) {
	switch fn := v.(type) {
	case model.ConstructFunc:
		return fn, fn != nil
	case func(context.Context, *model.Instance) error:
		return fn, fn != nil
	}
	return nil, false
}

func asConvert(v any) (model.ConvertFunc, bool) {
	switch fn := v.(type) {
	case model.ConvertFunc:
		return fn, fn != nil
	case func(context.Context, any) (any, error):
		return fn, fn != nil
	}
	return nil, false
}

func asValidate(v any) (model.ValidateFunc, bool) {
	switch fn := v.(type) {
	case model.ValidateFunc:
		return fn, fn != nil
	case func(context.Context, any) error:
		return fn, fn != nil
	}
	return nil, false
}

func asMethod(v any) (model.Method, bool) {
	switch fn := v.(type) {
	case model.Method:
		return fn, fn != nil
	case func(context.Context, *model.Instance, ...any) (any, error):
		return fn, fn != nil
	}
	return nil, false
}
