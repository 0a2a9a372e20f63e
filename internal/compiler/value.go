package compiler

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"github.com/gabriel-vasile/mimetype"

	xerrors "github.com/jacoelho/modelc/errors"
	"github.com/jacoelho/modelc/internal/model"
	"github.com/jacoelho/modelc/internal/valuetype"
)

type compiledPattern struct {
	re   *regexp2.Regexp
	name string
}

type valueProcessor struct {
	c           model.Constraints
	convert     model.ConvertFunc
	charClass   *regexp2.Regexp
	types       []*valuetype.Type
	typeNames   []string
	patterns    []compiledPattern
	validators  []model.NamedValidator
	opts        valuetype.Options
	convertType bool
	hasDate     bool
}

func (c *Compiler) value(n *model.Node) (Processor, error) {
	v := n.Value
	if v.Extends != "" {
		return nil, fmt.Errorf("compile %s: extends %s was not merged", n.Describe(), v.Extends)
	}
	p := &valueProcessor{
		c:          v.Constraints,
		validators: v.Validators,
		opts: valuetype.Options{
			Strict:     v.Constraints.StrictType.V,
			DateFormat: v.Constraints.DateFormat.V,
		},
	}
	for _, name := range v.Constraints.Types {
		t, ok := valuetype.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("compile %s: unknown value type %q", n.Describe(), name)
		}
		p.types = append(p.types, t)
		p.typeNames = append(p.typeNames, name)
		if name == "date" {
			p.hasDate = true
		}
	}
	for _, pat := range v.Constraints.Regex {
		re, err := valuetype.CompileRegex(pat.Source)
		if err != nil {
			return nil, fmt.Errorf("compile %s: regex %q: %w", n.Describe(), pat.Source, err)
		}
		p.patterns = append(p.patterns, compiledPattern{re: re, name: pat.Name})
	}
	if class, ok := v.Constraints.CharClass.Get(); ok {
		re, err := valuetype.CompileCharClass(class)
		if err != nil {
			return nil, fmt.Errorf("compile %s: char class %q: %w", n.Describe(), class, err)
		}
		p.charClass = re
	}
	if c.cfg.Convert {
		p.convertType = !v.Constraints.ConvertType.Set || v.Constraints.ConvertType.V
		p.convert = v.Convert
	}
	return p.run, nil
}

func (p *valueProcessor) run(ctx context.Context, in any, path string) (any, error) {
	var errs xerrors.ValidationList
	add := func(code xerrors.ErrorCode, format string, args ...any) *xerrors.Validation {
		errs = append(errs, xerrors.NewValidationf(code, path, format, args...))
		return &errs[len(errs)-1]
	}

	typ := p.checkType(in)
	if typ == nil && len(p.types) > 0 {
		v := add(xerrors.ErrValueType, "value must be of type %s", strings.Join(p.typeNames, " or "))
		v.Expected = p.typeNames
		v.Actual = kindOf(in)
	}
	c := &p.c
	if c.Enum != nil && !contains(c.Enum, in) {
		v := add(xerrors.ErrValueEnum, "value must be one of the listed values")
		v.Expected = describeAll(c.Enum)
	}
	if c.PrivateEnum != nil && !contains(c.PrivateEnum, in) {
		add(xerrors.ErrValueEnum, "value is not allowed")
	}
	if size, ok := valuetype.Length(in); ok {
		if want, set := c.Length.Get(); set && size != want {
			add(xerrors.ErrValueLength, "length must be %d, got %d", want, size)
		}
		if minLen, set := c.MinLength.Get(); set && size < minLen {
			add(xerrors.ErrValueMinLength, "length must be at least %d, got %d", minLen, size)
		}
		if maxLen, set := c.MaxLength.Get(); set && size > maxLen {
			add(xerrors.ErrValueMaxLength, "length must be at most %d, got %d", maxLen, size)
		}
	}
	s, isString := in.(string)
	if sub, set := c.Contains.Get(); set && isString && !strings.Contains(s, sub) {
		add(xerrors.ErrValueContains, "value must contain %q", sub)
	}
	if want, set := c.Equals.Get(); set && !equal(in, want) {
		v := add(xerrors.ErrValueEquals, "value must equal %v", want)
		v.Expected = []string{fmt.Sprint(want)}
	}
	if num, ok := p.number(in); ok {
		if minValue, set := c.MinValue.Get(); set && num < minValue {
			add(xerrors.ErrValueMin, "value must be at least %v, got %v", minValue, num)
		}
		if maxValue, set := c.MaxValue.Get(); set && num > maxValue {
			add(xerrors.ErrValueMax, "value must be at most %v, got %v", maxValue, num)
		}
	}
	if isString {
		p.checkString(s, add)
	}
	for _, val := range p.validators {
		if err := val.Fn(ctx, in); err != nil {
			v := add(xerrors.ErrValueCustom, "%v", err)
			v.Expected = []string{val.Name}
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	out := in
	if p.convertType && typ != nil && typ.Convertible() {
		converted, ok := typ.Convert(in, p.opts)
		if !ok {
			return nil, xerrors.ValidationList{xerrors.NewValidationf(xerrors.ErrValueType, path, "value cannot be converted to %s", typ.Name)}
		}
		out = converted
	}
	if p.convert != nil {
		converted, err := p.convert(ctx, out)
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", where(path), err)
		}
		out = converted
	}
	return out, nil
}

func (p *valueProcessor) checkString(s string, add func(xerrors.ErrorCode, string, ...any) *xerrors.Validation) {
	c := &p.c
	for _, pat := range p.patterns {
		if ok, err := pat.re.MatchString(s); err != nil || !ok {
			v := add(xerrors.ErrValueRegex, "value does not match %s", patternLabel(pat))
			v.Expected = []string{pat.re.String()}
		}
	}
	if prefix, set := c.StartsWith.Get(); set && !strings.HasPrefix(s, prefix) {
		add(xerrors.ErrValueStartsWith, "value must start with %q", prefix)
	}
	if suffix, set := c.EndsWith.Get(); set && !strings.HasSuffix(s, suffix) {
		add(xerrors.ErrValueEndsWith, "value must end with %q", suffix)
	}
	if mode, set := c.Letters.Get(); set && !valuetype.HasLetterCase(s, mode) {
		add(xerrors.ErrValueLetters, "value must be %s", mode)
	}
	if p.charClass != nil {
		if ok, err := p.charClass.MatchString(s); err != nil || !ok {
			add(xerrors.ErrValueCharClass, "value must only contain characters in [%s]", c.CharClass.V)
		}
	}
	if minSize, set := c.MinByteSize.Get(); set && len(s) < minSize {
		add(xerrors.ErrValueMinByteSize, "value must be at least %d bytes, got %d", minSize, len(s))
	}
	if maxSize, set := c.MaxByteSize.Get(); set && len(s) > maxSize {
		add(xerrors.ErrValueMaxByteSize, "value must be at most %d bytes, got %d", maxSize, len(s))
	}
	if len(c.MimeTypes) > 0 && !mimeMatches(s, c.MimeTypes) {
		v := add(xerrors.ErrValueMimeType, "content type must be %s", strings.Join(c.MimeTypes, " or "))
		v.Expected = c.MimeTypes
	}
	if format, set := c.DateFormat.Get(); set && !p.hasDate {
		if _, ok := valuetype.ParseDate(s, format); !ok {
			add(xerrors.ErrValueDateFormat, "value must be a date formatted as %s", format)
		}
	}
}

// checkType returns the first declared type the value has.
func (p *valueProcessor) checkType(in any) *valuetype.Type {
	for _, t := range p.types {
		if t.Check(in, p.opts) {
			return t
		}
	}
	return nil
}

func (p *valueProcessor) number(in any) (float64, bool) {
	if f, ok := valuetype.Number(in); ok {
		return f, true
	}
	s, ok := in.(string)
	if !ok || p.opts.Strict || !p.numericType() {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

func (p *valueProcessor) numericType() bool {
	for _, t := range p.types {
		if t.JSONType == "integer" || t.JSONType == "number" {
			return true
		}
	}
	return false
}

func patternLabel(p compiledPattern) string {
	if p.name != "" {
		return p.name
	}
	return "/" + p.re.String() + "/"
}

func mimeMatches(s string, want []string) bool {
	if _, data, ok := strings.Cut(s, ";base64,"); ok && strings.HasPrefix(s, "data:") {
		s = data
	}
	b, ok := valuetype.DecodeBase64(s)
	if !ok {
		return false
	}
	detected := mimetype.Detect(b)
	for _, m := range want {
		if detected.Is(m) {
			return true
		}
	}
	return false
}

func contains(list []any, v any) bool {
	for _, e := range list {
		if equal(e, v) {
			return true
		}
	}
	return false
}

// equal compares numbers by value and everything else structurally.
func equal(a, b any) bool {
	if x, ok := valuetype.Number(a); ok {
		if y, ok := valuetype.Number(b); ok {
			return x == y
		}
	}
	return reflect.DeepEqual(a, b)
}

func describeAll(list []any) []string {
	out := make([]string, len(list))
	for i, v := range list {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func kindOf(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		if utf8.RuneCountInString(t) > 32 {
			return "string"
		}
		return strconv.Quote(t)
	case bool:
		return "boolean"
	case map[string]any, *model.Instance:
		return "object"
	case []any:
		return "array"
	}
	if _, ok := valuetype.Number(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
