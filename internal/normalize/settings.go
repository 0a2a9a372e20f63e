package normalize

import (
	"math"

	xerrors "github.com/jacoelho/modelc/errors"
	"github.com/jacoelho/modelc/internal/model"
	"github.com/jacoelho/modelc/internal/source"
)

const (
	keyProperties        = "properties"
	keyArray             = "array"
	keyAnyOf             = "anyOf"
	keyExtends           = "extends"
	keyPrototype         = "prototype"
	keyConstruct         = "construct"
	keyConvert           = "convert"
	keyIsOptional        = "isOptional"
	keyDefault           = "default"
	keyUnknownProperties = "unknownProperties"
	keyLength            = "length"
	keyMinLength         = "minLength"
	keyMaxLength         = "maxLength"
)

// arraySettingKeys are the keys an array shorthand may carry in its settings.
var arraySettingKeys = map[string]struct{}{
	keyMinLength:  {},
	keyMaxLength:  {},
	keyLength:     {},
	keyIsOptional: {},
	keyDefault:    {},
	keyConvert:    {},
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int(n), true
	case float64:
		if n != math.Trunc(n) || n >= 1<<63 || n < -(1<<63) {
			return 0, false
		}
		return int(n), true
	case float32:
		return toInt(float64(n))
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	if i, ok := toInt(v); ok {
		return float64(i), true
	}
	return 0, false
}

func toStrings(v any) ([]string, bool) {
	switch t := v.(type) {
	case string:
		return []string{t}, true
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// settingReader decodes typed settings out of one raw mapping and reports
// every malformed value.
type settingReader struct {
	report *xerrors.Report
	m      *source.Map
	model  string
	path   string
}

func (r settingReader) invalid(key, format string, args ...any) {
	r.report.Errorf(xerrors.ErrInvalidSetting, r.model, r.path+"."+key, format, args...)
}

func (r settingReader) length(key string) model.Opt[int] {
	raw, ok := r.m.Get(key)
	if !ok {
		return model.Opt[int]{}
	}
	n, ok := toInt(raw)
	if !ok || n < 0 {
		r.invalid(key, "%s must be a non-negative integer, got %v", key, raw)
		return model.Opt[int]{}
	}
	return model.Some(n)
}

func (r settingReader) number(key string) model.Opt[float64] {
	raw, ok := r.m.Get(key)
	if !ok {
		return model.Opt[float64]{}
	}
	f, ok := toFloat(raw)
	if !ok {
		r.invalid(key, "%s must be a number, got %v", key, raw)
		return model.Opt[float64]{}
	}
	return model.Some(f)
}

func (r settingReader) boolean(key string) model.Opt[bool] {
	raw, ok := r.m.Get(key)
	if !ok {
		return model.Opt[bool]{}
	}
	b, ok := raw.(bool)
	if !ok {
		r.invalid(key, "%s must be a boolean, got %v", key, raw)
		return model.Opt[bool]{}
	}
	return model.Some(b)
}

func (r settingReader) str(key string) model.Opt[string] {
	raw, ok := r.m.Get(key)
	if !ok {
		return model.Opt[string]{}
	}
	s, ok := raw.(string)
	if !ok {
		r.invalid(key, "%s must be a string, got %v", key, raw)
		return model.Opt[string]{}
	}
	return model.Some(s)
}

func (r settingReader) strings(key string) []string {
	raw, ok := r.m.Get(key)
	if !ok {
		return nil
	}
	out, ok := toStrings(raw)
	if !ok {
		r.invalid(key, "%s must be a string or a list of strings", key)
		return nil
	}
	return out
}

func (r settingReader) list(key string) []any {
	raw, ok := r.m.Get(key)
	if !ok {
		return nil
	}
	out, ok := source.Plain(raw).([]any)
	if !ok {
		r.invalid(key, "%s must be a list, got %T", key, raw)
		return nil
	}
	return out
}

func (r settingReader) presence() model.Presence {
	var p model.Presence
	if opt, ok := r.boolean(keyIsOptional).Get(); ok {
		p.Optional = opt
	}
	if def, ok := r.m.Get(keyDefault); ok {
		p.Default = source.Plain(def)
		p.HasDefault = true
	}
	return p
}

func (r settingReader) extends() string {
	s, ok := r.str(keyExtends).Get()
	if !ok {
		return ""
	}
	if !model.ValidName(s) {
		r.invalid(keyExtends, "extends must name a model, got %q", s)
		return ""
	}
	return s
}

// unknown reports every key of the mapping that allowed does not list.
func (r settingReader) unknown(what string, allowed map[string]struct{}) {
	for key := range r.m.All() {
		if _, ok := allowed[key]; !ok {
			r.report.Errorf(xerrors.ErrUnknownSetting, r.model, r.path+"."+key, "%s does not accept %q", what, key)
		}
	}
}

func keySet(keys ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}
