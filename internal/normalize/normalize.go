package normalize

import (
	"fmt"

	xerrors "github.com/jacoelho/modelc/errors"
	"github.com/jacoelho/modelc/internal/model"
	"github.com/jacoelho/modelc/internal/source"
	"github.com/jacoelho/modelc/internal/valuetype"
)

// Config controls normalization.
type Config struct {
	Hooks    Hooks
	MaxDepth int
}

// Endpoint is a normalized endpoint declaration.
type Endpoint struct {
	// Input is nil when the endpoint takes no input.
	Input    *model.Node
	Name     string
	Path     string
	AllowAny bool
}

// Result holds the canonical registry produced from a source set.
type Result struct {
	Models    map[string]*model.Node
	Report    *xerrors.Report
	Order     []string
	Endpoints []Endpoint
}

const (
	keyInput         = "input"
	keySingleInput   = "singleInput"
	keyAllowAnyInput = "allowAnyInput"
)

var (
	objectKeys = keySet(keyProperties, keyExtends, keyPrototype, keyConstruct, keyConvert,
		keyIsOptional, keyDefault, keyUnknownProperties)
	arrayKeys = keySet(keyArray, keyMinLength, keyMaxLength, keyLength, keyIsOptional, keyDefault, keyConvert)
	anyOfKeys = keySet(keyAnyOf, keyIsOptional, keyDefault)
	valueKeys = keySet("type", "strictType", "convertType", "enum", "privateEnum", keyLength,
		keyMinLength, keyMaxLength, "contains", "equals", "minValue", "maxValue", "regex",
		"startsWith", "endsWith", "letters", "charClass", "minByteSize", "maxByteSize",
		"mimeType", "dateFormat", "validate", keyConvert, keyExtends, keyIsOptional, keyDefault)
	endpointKeys = keySet(keyInput, keySingleInput, keyAllowAnyInput)
)

// Normalize rewrites every raw model and endpoint of set into canonical nodes.
// Problems are collected in the result report; entries that fail to
// normalize are left out of the registry.
func Normalize(set *source.Set, cfg Config) *Result {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = source.DefaultMaxDepth
	}
	res := &Result{Models: make(map[string]*model.Node), Report: &xerrors.Report{}}
	if set == nil {
		return res
	}
	n := &normalizer{cfg: cfg, report: res.Report}
	for name, raw := range set.Models.All() {
		n.model = name
		path := "models." + name
		if !model.ValidName(name) {
			n.report.Errorf(xerrors.ErrInvalidSetting, name, path, "model name %q is not a valid name", name)
			continue
		}
		node := n.node(raw, path, 0)
		if node == nil {
			continue
		}
		if node.Name != name {
			named := *node
			named.Name = name
			node = &named
		}
		res.Models[name] = node
		res.Order = append(res.Order, name)
	}
	for name, raw := range set.Endpoints.All() {
		n.model = ""
		if ep, ok := n.endpoint(name, raw); ok {
			res.Endpoints = append(res.Endpoints, ep)
		}
	}
	return res
}

// Entry normalizes one raw model entry. A *model.Node is returned unchanged.
func Entry(raw any, path string, cfg Config) (*model.Node, *xerrors.Report) {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = source.DefaultMaxDepth
	}
	n := &normalizer{cfg: cfg, report: &xerrors.Report{}}
	return n.node(raw, path, 0), n.report
}

type normalizer struct {
	cfg    Config
	report *xerrors.Report
	model  string
}

func (n *normalizer) errorf(code xerrors.ConfigCode, path, format string, args ...any) {
	n.report.Errorf(code, n.model, path, format, args...)
}

func (n *normalizer) reader(m *source.Map, path string) settingReader {
	return settingReader{report: n.report, m: m, model: n.model, path: path}
}

func (n *normalizer) node(raw any, path string, depth int) *model.Node {
	if depth > n.cfg.MaxDepth {
		n.errorf(xerrors.ErrMaxDepth, path, "model nesting exceeds %d levels", n.cfg.MaxDepth)
		return nil
	}
	switch v := raw.(type) {
	case *model.Node:
		return v
	case string:
		link, err := model.ParseLink(v)
		if err != nil {
			n.errorf(xerrors.ErrMalformedLink, path, "%v", err)
			return nil
		}
		node := model.NewLink(link)
		node.Path = path
		return node
	case []any:
		m, ok := n.arrayShorthand(v, path)
		if !ok {
			return nil
		}
		return n.array(m, path, depth)
	case *source.Map:
		return n.mapping(v, path, depth)
	case map[string]any:
		m, err := source.Ordered(v, n.cfg.MaxDepth-depth)
		if err != nil {
			n.errorf(xerrors.ErrMaxDepth, path, "%v", err)
			return nil
		}
		return n.node(m, path, depth)
	default:
		n.errorf(xerrors.ErrInvalidSetting, path, "model entry must be a string, a list or a mapping, got %T", raw)
		return nil
	}
}

// arrayShorthand rewrites [item] and [item, settings] into the canonical
// array mapping.
func (n *normalizer) arrayShorthand(seq []any, path string) (*source.Map, bool) {
	if len(seq) == 0 || len(seq) > 2 {
		n.errorf(xerrors.ErrArrayShorthandArity, path, "array shorthand takes an item and optional settings, got %d elements", len(seq))
		return nil, false
	}
	m := source.NewMap()
	if len(seq) == 2 && seq[1] != nil {
		settings, ok := seq[1].(*source.Map)
		if !ok {
			n.errorf(xerrors.ErrInvalidSetting, path, "array shorthand settings must be a mapping, got %T", seq[1])
			return nil, false
		}
		for key, value := range settings.All() {
			if _, ok := arraySettingKeys[key]; !ok {
				n.errorf(xerrors.ErrUnknownSetting, path+"."+key, "array shorthand settings do not accept %q", key)
				continue
			}
			m.Set(key, value)
		}
	}
	m.Set(keyArray, seq[0])
	return m, true
}

func (n *normalizer) mapping(m *source.Map, path string, depth int) *model.Node {
	var kinds []string
	for _, key := range []string{keyProperties, keyArray, keyAnyOf} {
		if _, ok := m.Get(key); ok {
			kinds = append(kinds, key)
		}
	}
	if len(kinds) > 1 {
		n.errorf(xerrors.ErrAmbiguousKind, path, "model declares %v, only one kind is allowed", kinds)
		return nil
	}
	if len(kinds) == 0 {
		return n.value(m, path)
	}
	switch kinds[0] {
	case keyProperties:
		return n.object(m, path, depth)
	case keyArray:
		return n.array(m, path, depth)
	default:
		return n.anyOf(m, path, depth)
	}
}

func (n *normalizer) object(m *source.Map, path string, depth int) *model.Node {
	r := n.reader(m, path)
	r.unknown("an object model", objectKeys)

	obj := &model.Object{Properties: model.NewProperties(), Extends: r.extends()}
	raw, _ := m.Get(keyProperties)
	switch props := raw.(type) {
	case nil:
	case *source.Map:
		n.properties(obj.Properties, props, path+"."+keyProperties, depth)
	default:
		n.errorf(xerrors.ErrInvalidSetting, path+"."+keyProperties, "properties must be a mapping, got %T", raw)
	}
	if raw, ok := m.Get(keyPrototype); ok {
		obj.Behavior = n.behavior(raw, path+"."+keyPrototype)
	}
	if raw, ok := m.Get(keyConstruct); ok {
		obj.Construct = n.construct(raw, path+"."+keyConstruct)
	}
	if raw, ok := m.Get(keyConvert); ok {
		obj.Convert = n.convert(raw, path+"."+keyConvert)
	}
	if s, ok := r.str(keyUnknownProperties).Get(); ok {
		policy, valid := model.ParseUnknownPolicy(s)
		if !valid {
			r.invalid(keyUnknownProperties, "unknownProperties must be error, strip or keep, got %q", s)
		}
		obj.Unknown = policy
	}

	node := model.NewObject(obj)
	node.Path = path
	node.Presence = r.presence()
	return node
}

func (n *normalizer) properties(dst *model.Properties, props *source.Map, path string, depth int) {
	for name, raw := range props.All() {
		if name == "" {
			n.errorf(xerrors.ErrInvalidSetting, path, "property name must not be empty")
			continue
		}
		if child := n.node(raw, path+"."+name, depth+1); child != nil {
			dst.Set(name, child)
		}
	}
}

func (n *normalizer) array(m *source.Map, path string, depth int) *model.Node {
	r := n.reader(m, path)
	r.unknown("an array model", arrayKeys)

	raw, _ := m.Get(keyArray)
	item := n.node(raw, path+"."+keyArray, depth+1)
	if item == nil {
		return nil
	}
	arr := &model.Array{
		Item:      item,
		Length:    r.length(keyLength),
		MinLength: r.length(keyMinLength),
		MaxLength: r.length(keyMaxLength),
	}
	if raw, ok := m.Get(keyConvert); ok {
		arr.Convert = n.convert(raw, path+"."+keyConvert)
	}
	node := model.NewArray(arr)
	node.Path = path
	node.Presence = r.presence()
	return node
}

func (n *normalizer) anyOf(m *source.Map, path string, depth int) *model.Node {
	r := n.reader(m, path)
	r.unknown("an anyOf model", anyOfKeys)

	body := &model.AnyOf{}
	raw, _ := m.Get(keyAnyOf)
	switch cands := raw.(type) {
	case []any:
		for i, c := range cands {
			if child := n.node(c, fmt.Sprintf("%s.%s[%d]", path, keyAnyOf, i), depth+1); child != nil {
				body.Candidates = append(body.Candidates, child)
				body.Labels = append(body.Labels, "")
			}
		}
	case *source.Map:
		for label, c := range cands.All() {
			if child := n.node(c, path+"."+keyAnyOf+"."+label, depth+1); child != nil {
				body.Candidates = append(body.Candidates, child)
				body.Labels = append(body.Labels, label)
			}
		}
	default:
		n.errorf(xerrors.ErrInvalidSetting, path+"."+keyAnyOf, "anyOf must be a list or a mapping, got %T", raw)
		return nil
	}
	node := model.NewAnyOf(body)
	node.Path = path
	node.Presence = r.presence()
	return node
}

func (n *normalizer) value(m *source.Map, path string) *model.Node {
	r := n.reader(m, path)
	r.unknown("a value model", valueKeys)

	v := &model.Value{Extends: r.extends()}
	c := &v.Constraints
	c.Types = n.types(r)
	c.StrictType = r.boolean("strictType")
	c.ConvertType = r.boolean("convertType")
	c.Enum = r.list("enum")
	c.PrivateEnum = r.list("privateEnum")
	c.Length = r.length(keyLength)
	c.MinLength = r.length(keyMinLength)
	c.MaxLength = r.length(keyMaxLength)
	c.MinByteSize = r.length("minByteSize")
	c.MaxByteSize = r.length("maxByteSize")
	c.MinValue = r.number("minValue")
	c.MaxValue = r.number("maxValue")
	c.Contains = r.str("contains")
	c.StartsWith = r.str("startsWith")
	c.EndsWith = r.str("endsWith")
	c.CharClass = r.str("charClass")
	c.DateFormat = r.str("dateFormat")
	c.MimeTypes = r.strings("mimeType")
	if eq, ok := m.Get("equals"); ok {
		c.Equals = model.Some(source.Plain(eq))
	}
	if letters, ok := r.str("letters").Get(); ok {
		if letters != valuetype.LettersUpper && letters != valuetype.LettersLower {
			r.invalid("letters", "letters must be %s or %s, got %q", valuetype.LettersUpper, valuetype.LettersLower, letters)
		} else {
			c.Letters = model.Some(letters)
		}
	}
	c.Regex = n.patterns(m, path)
	if raw, ok := m.Get("validate"); ok {
		v.Validators = n.validators(raw, path+".validate")
	}
	if raw, ok := m.Get(keyConvert); ok {
		v.Convert = n.convert(raw, path+"."+keyConvert)
	}

	node := model.NewValue(v)
	node.Path = path
	node.Presence = r.presence()
	return node
}

func (n *normalizer) types(r settingReader) []string {
	names := r.strings("type")
	if names == nil {
		return nil
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := valuetype.Lookup(name); !ok {
			n.errorf(xerrors.ErrInvalidType, r.path+".type", "unknown value type %q", name)
			continue
		}
		out = append(out, name)
	}
	return out
}

func (n *normalizer) patterns(m *source.Map, path string) []model.Pattern {
	raw, ok := m.Get("regex")
	if !ok {
		return nil
	}
	switch t := raw.(type) {
	case string:
		return []model.Pattern{{Source: t}}
	case *source.Map:
		out := make([]model.Pattern, 0, t.Len())
		for name, p := range t.All() {
			s, ok := p.(string)
			if !ok {
				n.errorf(xerrors.ErrInvalidSetting, path+".regex."+name, "regex %s must be a string, got %T", name, p)
				continue
			}
			out = append(out, model.Pattern{Name: name, Source: s})
		}
		return out
	default:
		n.errorf(xerrors.ErrInvalidSetting, path+".regex", "regex must be a string or a mapping, got %T", raw)
		return nil
	}
}

func (n *normalizer) construct(raw any, path string) model.ConstructFunc {
	if name, ok := raw.(string); ok {
		fn, found := n.cfg.Hooks.Constructs[name]
		if !found || fn == nil {
			n.errorf(xerrors.ErrUnknownHook, path, "construct hook %q is not registered", name)
			return nil
		}
		return fn
	}
	fn, ok := asConstruct(raw)
	if !ok {
		n.errorf(xerrors.ErrInvalidSetting, path, "construct must be a hook name or a function, got %T", raw)
	}
	return fn
}

func (n *normalizer) convert(raw any, path string) model.ConvertFunc {
	if name, ok := raw.(string); ok {
		fn, found := n.cfg.Hooks.Converts[name]
		if !found || fn == nil {
			n.errorf(xerrors.ErrUnknownHook, path, "convert hook %q is not registered", name)
			return nil
		}
		return fn
	}
	fn, ok := asConvert(raw)
	if !ok {
		n.errorf(xerrors.ErrInvalidSetting, path, "convert must be a hook name or a function, got %T", raw)
	}
	return fn
}

func (n *normalizer) validators(raw any, path string) []model.NamedValidator {
	items, ok := raw.([]any)
	if !ok {
		items = []any{raw}
	}
	out := make([]model.NamedValidator, 0, len(items))
	for i, item := range items {
		if name, ok := item.(string); ok {
			fn, found := n.cfg.Hooks.Validators[name]
			if !found || fn == nil {
				n.errorf(xerrors.ErrUnknownHook, path, "validate hook %q is not registered", name)
				continue
			}
			out = append(out, model.NamedValidator{Name: name, Fn: fn})
			continue
		}
		fn, ok := asValidate(item)
		if !ok {
			n.errorf(xerrors.ErrInvalidSetting, path, "validate must be a hook name or a function, got %T", item)
			continue
		}
		out = append(out, model.NamedValidator{Name: fmt.Sprintf("validate[%d]", i), Fn: fn})
	}
	return out
}

func (n *normalizer) behavior(raw any, path string) *model.Behavior {
	switch t := raw.(type) {
	case string:
		methods, ok := n.cfg.Hooks.Behaviors[t]
		if !ok {
			n.errorf(xerrors.ErrUnknownHook, path, "prototype %q is not registered", t)
			return nil
		}
		return model.NewBehavior(methods)
	case *model.Behavior:
		return t
	case map[string]model.Method:
		return model.NewBehavior(t)
	case *source.Map:
		methods := make(map[string]model.Method, t.Len())
		for name, m := range t.All() {
			fn, ok := asMethod(m)
			if !ok {
				n.errorf(xerrors.ErrInvalidSetting, path+"."+name, "prototype method %s must be a function, got %T", name, m)
				continue
			}
			methods[name] = fn
		}
		return model.NewBehavior(methods)
	default:
		n.errorf(xerrors.ErrInvalidSetting, path, "prototype must be a hook name or a method mapping, got %T", raw)
		return nil
	}
}

func (n *normalizer) endpoint(name string, raw any) (Endpoint, bool) {
	path := "endpoints." + name
	ep := Endpoint{Name: name, Path: path}
	if raw == nil {
		return ep, true
	}
	m, ok := raw.(*source.Map)
	if !ok {
		n.errorf(xerrors.ErrInvalidSetting, path, "endpoint must be a mapping, got %T", raw)
		return Endpoint{}, false
	}
	r := n.reader(m, path)
	r.unknown("an endpoint", endpointKeys)

	input, hasInput := m.Get(keyInput)
	single, hasSingle := m.Get(keySingleInput)
	ep.AllowAny = r.boolean(keyAllowAnyInput).V
	switch {
	case hasInput && hasSingle:
		r.invalid(keyInput, "endpoint declares both input and singleInput")
		return Endpoint{}, false
	case ep.AllowAny && (hasInput || hasSingle):
		r.invalid(keyAllowAnyInput, "allowAnyInput cannot be combined with a declared input")
		return Endpoint{}, false
	case hasInput:
		props, ok := input.(*source.Map)
		if !ok {
			r.invalid(keyInput, "input must be a mapping of properties, got %T", input)
			return Endpoint{}, false
		}
		obj := &model.Object{Properties: model.NewProperties()}
		n.properties(obj.Properties, props, path+"."+keyInput, 0)
		ep.Input = model.NewObject(obj)
		ep.Input.Path = path + "." + keyInput
	case hasSingle:
		ep.Input = n.node(single, path+"."+keySingleInput, 0)
		if ep.Input == nil {
			return Endpoint{}, false
		}
	}
	return ep, true
}
