package compiler

import (
	"context"
	"encoding/base64"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	xerrors "github.com/jacoelho/modelc/errors"
	"github.com/jacoelho/modelc/internal/inherit"
	"github.com/jacoelho/modelc/internal/model"
	"github.com/jacoelho/modelc/internal/normalize"
	"github.com/jacoelho/modelc/internal/resolver"
	"github.com/jacoelho/modelc/internal/source"
)

type fixture struct {
	r *resolver.Resolver
	c *Compiler
}

func newFixture(t *testing.T, doc string, hooks normalize.Hooks, cfg Config) *fixture {
	t.Helper()
	d, err := source.Decode("test.yaml", []byte(doc), 0)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	set, _ := source.Merge(d)
	res := normalize.Normalize(set, normalize.Config{Hooks: hooks})
	if res.Report.HasErrors() {
		t.Fatalf("Normalize() errors = %v", res.Report.Err())
	}
	r, report := resolver.New(res.Models, res.Order)
	if report.HasErrors() {
		t.Fatalf("resolver.New() errors = %v", report.Err())
	}
	if report := inherit.Merge(r, r.Nodes()); report.HasErrors() {
		t.Fatalf("inherit.Merge() errors = %v", report.Err())
	}
	return &fixture{r: r, c: New(cfg)}
}

func (f *fixture) processor(t *testing.T, name string) Processor {
	t.Helper()
	n, ok := f.r.Lookup(name)
	if !ok {
		t.Fatalf("model %s not found", name)
	}
	p, err := f.c.Compile(n)
	if err != nil {
		t.Fatalf("Compile(%s) error = %v", name, err)
	}
	return p
}

func codes(t *testing.T, err error) []string {
	t.Helper()
	list, ok := xerrors.AsValidations(err)
	if !ok {
		t.Fatalf("error %v is not a violation list", err)
	}
	out := make([]string, len(list))
	for i, v := range list {
		out[i] = v.Code
	}
	return out
}

var convertOn = Config{Convert: true}

func TestObjectDefaultsAndMissing(t *testing.T) {
	f := newFixture(t, `
models:
  m:
    properties:
      a: {type: string}
      b: {type: number, isOptional: true, default: 5}
`, normalize.Hooks{}, Config{})
	p := f.processor(t, "m")
	ctx := context.Background()

	got, err := p(ctx, map[string]any{"a": "x"}, "")
	if err != nil {
		t.Fatalf("process error = %v", err)
	}
	if diff := cmp.Diff(map[string]any{"a": "x", "b": 5}, got); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}

	_, err = p(ctx, map[string]any{}, "")
	list, ok := xerrors.AsValidations(err)
	if !ok || len(list) != 1 {
		t.Fatalf("violations = %v, want exactly one", err)
	}
	if list[0].Code != string(xerrors.ErrObjectMissingProperty) || list[0].Path != "/a" {
		t.Fatalf("violation = %+v, want missing /a", list[0])
	}
}

func TestMappingDefaultsAreFreshCopies(t *testing.T) {
	f := newFixture(t, `
models:
  holder:
    properties:
      meta: {type: object, isOptional: true, default: {a: 1, nested: {b: 2}}}
      tags: {type: array, isOptional: true, default: [{k: v}]}
`, normalize.Hooks{}, Config{})
	p := f.processor(t, "holder")
	ctx := context.Background()

	first, err := p(ctx, map[string]any{}, "")
	if err != nil {
		t.Fatalf("process error = %v", err)
	}
	want := map[string]any{
		"meta": map[string]any{"a": 1, "nested": map[string]any{"b": 2}},
		"tags": []any{map[string]any{"k": "v"}},
	}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}

	out := first.(map[string]any)
	out["meta"].(map[string]any)["a"] = 99
	out["meta"].(map[string]any)["nested"].(map[string]any)["b"] = 99
	out["tags"].([]any)[0].(map[string]any)["k"] = "changed"

	second, err := p(ctx, map[string]any{}, "")
	if err != nil {
		t.Fatalf("process error = %v", err)
	}
	if diff := cmp.Diff(want, second); diff != "" {
		t.Fatalf("default leaked between calls (-want +got):\n%s", diff)
	}
}

func TestObjectUnknownProperties(t *testing.T) {
	doc := `
models:
  strict: {properties: {a: {type: string}}}
  loose: {properties: {a: {type: string}}, unknownProperties: keep}
  quiet: {properties: {a: {type: string}}, unknownProperties: strip}
`
	f := newFixture(t, doc, normalize.Hooks{}, Config{})
	ctx := context.Background()
	in := map[string]any{"a": "x", "z": 1}

	_, err := f.processor(t, "strict")(ctx, in, "")
	if diff := cmp.Diff([]string{"object-unknown-property"}, codes(t, err)); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
	got, err := f.processor(t, "loose")(ctx, in, "")
	if err != nil || !cmp.Equal(in, got) {
		t.Fatalf("keep = %v, %v", got, err)
	}
	got, err = f.processor(t, "quiet")(ctx, in, "")
	if err != nil || !cmp.Equal(map[string]any{"a": "x"}, got) {
		t.Fatalf("strip = %v, %v", got, err)
	}

	stripAll := newFixture(t, doc, normalize.Hooks{}, Config{Unknown: model.UnknownStrip})
	if _, err := stripAll.processor(t, "strict")(ctx, in, ""); err != nil {
		t.Fatalf("global strip error = %v", err)
	}
}

func TestArrayBounds(t *testing.T) {
	f := newFixture(t, "models:\n  tags: [{type: string}, {minLength: 2}]\n", normalize.Hooks{}, Config{})
	p := f.processor(t, "tags")
	ctx := context.Background()

	_, err := p(ctx, []any{"x"}, "")
	if diff := cmp.Diff([]string{"array-min-length"}, codes(t, err)); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
	got, err := p(ctx, []any{"x", "y"}, "")
	if err != nil || !cmp.Equal([]any{"x", "y"}, got) {
		t.Fatalf("process = %v, %v", got, err)
	}
}

func TestArrayCollectsEveryElement(t *testing.T) {
	f := newFixture(t, "models:\n  nums: [{type: int}]\n", normalize.Hooks{}, Config{})
	_, err := f.processor(t, "nums")(context.Background(), []any{1, "a", 2, true}, "/list")
	list, _ := xerrors.AsValidations(err)
	var paths []string
	for _, v := range list {
		paths = append(paths, v.Path)
	}
	if diff := cmp.Diff([]string{"/list/1", "/list/3"}, paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestAnyOfOrderAndRepresentative(t *testing.T) {
	f := newFixture(t, `
models:
  u:
    anyOf:
      - {type: string}
      - {type: number}
`, normalize.Hooks{}, convertOn)
	p := f.processor(t, "u")
	ctx := context.Background()

	got, err := p(ctx, 5, "")
	if err != nil || got != float64(5) {
		t.Fatalf("process(5) = %v, %v, want float64(5) via number", got, err)
	}
	got, err = p(ctx, "hi", "")
	if err != nil || got != "hi" {
		t.Fatalf("process(hi) = %v, %v", got, err)
	}
	_, err = p(ctx, map[string]any{}, "")
	list, ok := xerrors.AsValidations(err)
	if !ok || len(list) != 1 {
		t.Fatalf("violations = %v, want exactly one", err)
	}
	if list[0].Code != string(xerrors.ErrAnyOfNoMatch) {
		t.Fatalf("code = %s", list[0].Code)
	}
	if diff := cmp.Diff([]string{"string", "number"}, list[0].Expected); diff != "" {
		t.Fatalf("expected mismatch (-want +got):\n%s", diff)
	}
}

func TestAnyOfFirstMatchWins(t *testing.T) {
	f := newFixture(t, `
models:
  u:
    anyOf:
      first: {type: all, convert: tagFirst}
      second: {type: string, convert: tagSecond}
`, normalize.Hooks{Converts: map[string]model.ConvertFunc{
		"tagFirst":  func(context.Context, any) (any, error) { return "first", nil },
		"tagSecond": func(context.Context, any) (any, error) { return "second", nil },
	}}, convertOn)
	got, err := f.processor(t, "u")(context.Background(), "x", "")
	if err != nil || got != "first" {
		t.Fatalf("process = %v, %v, want first", got, err)
	}
}

func TestValueChecksAccumulate(t *testing.T) {
	f := newFixture(t, `
models:
  code:
    type: string
    minLength: 5
    startsWith: "A"
    letters: uppercase
    regex: {digits: "\\d$"}
`, normalize.Hooks{}, Config{})
	_, err := f.processor(t, "code")(context.Background(), "bc", "")
	want := []string{"value-min-length", "value-regex", "value-starts-with", "value-letters"}
	if diff := cmp.Diff(want, codes(t, err)); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
}

func TestValueChecks(t *testing.T) {
	png := base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	tests := []struct {
		name  string
		model string
		in    any
		codes []string
	}{
		{name: "type", model: "{type: int}", in: "x", codes: []string{"value-type"}},
		{name: "enum", model: "{enum: [a, b]}", in: "c", codes: []string{"value-enum"}},
		{name: "enum numbers", model: "{enum: [1, 2]}", in: 2.0},
		{name: "private enum", model: "{privateEnum: [a]}", in: "b", codes: []string{"value-enum"}},
		{name: "length", model: "{length: 2}", in: "abc", codes: []string{"value-length"}},
		{name: "max length", model: "{maxLength: 2}", in: []any{1, 2, 3}, codes: []string{"value-max-length"}},
		{name: "contains", model: "{contains: '@'}", in: "x", codes: []string{"value-contains"}},
		{name: "equals", model: "{equals: 3}", in: 4, codes: []string{"value-equals"}},
		{name: "equals mapping", model: "{type: object, equals: {a: 1}}", in: map[string]any{"a": 1}},
		{name: "equals mapping mismatch", model: "{type: object, equals: {a: 1}}", in: map[string]any{"a": 2}, codes: []string{"value-equals"}},
		{name: "enum mapping", model: "{type: object, enum: [{a: 1}, {b: [x]}]}", in: map[string]any{"b": []any{"x"}}},
		{name: "private enum mapping", model: "{type: object, privateEnum: [{a: 1}]}", in: map[string]any{"a": 1}},
		{name: "range", model: "{type: number, minValue: 1, maxValue: 2}", in: 3, codes: []string{"value-max"}},
		{name: "string number", model: "{type: int, minValue: 10}", in: "5", codes: []string{"value-min"}},
		{name: "strict", model: "{type: int, strictType: true}", in: "5", codes: []string{"value-type"}},
		{name: "ends with", model: "{endsWith: z}", in: "a", codes: []string{"value-ends-with"}},
		{name: "char class", model: "{charClass: a-z}", in: "aB", codes: []string{"value-char-class"}},
		{name: "byte size", model: "{maxByteSize: 2}", in: "é€", codes: []string{"value-max-byte-size"}},
		{name: "min byte size", model: "{minByteSize: 4}", in: "ab", codes: []string{"value-min-byte-size"}},
		{name: "mime ok", model: "{mimeType: image/png}", in: png},
		{name: "mime", model: "{mimeType: [image/jpeg]}", in: png, codes: []string{"value-mime-type"}},
		{name: "date format", model: "{type: string, dateFormat: '%Y/%m/%d'}", in: "2024-01-01", codes: []string{"value-date-format"}},
		{name: "date with format", model: "{type: date, dateFormat: '%Y/%m/%d'}", in: "2024/01/01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "models:\n  v: "+tt.model+"\n", normalize.Hooks{}, Config{})
			_, err := f.processor(t, "v")(context.Background(), tt.in, "")
			if len(tt.codes) == 0 {
				if err != nil {
					t.Fatalf("process error = %v", err)
				}
				return
			}
			if diff := cmp.Diff(tt.codes, codes(t, err)); diff != "" {
				t.Fatalf("codes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValueConversion(t *testing.T) {
	doc := `
models:
  n: {type: int}
  keep: {type: int, convertType: false}
  when: {type: date}
`
	ctx := context.Background()
	on := newFixture(t, doc, normalize.Hooks{}, convertOn)
	got, err := on.processor(t, "n")(ctx, "42", "")
	if err != nil || got != int64(42) {
		t.Fatalf("convert = %v, %v, want int64(42)", got, err)
	}
	got, _ = on.processor(t, "keep")(ctx, "42", "")
	if got != "42" {
		t.Fatalf("convertType false = %v, want unchanged", got)
	}
	got, _ = on.processor(t, "when")(ctx, "2026-10-17T00:00:00Z", "")
	if _, ok := got.(time.Time); !ok {
		t.Fatalf("date = %T, want time.Time", got)
	}
	off := newFixture(t, doc, normalize.Hooks{}, Config{})
	got, _ = off.processor(t, "n")(ctx, "42", "")
	if got != "42" {
		t.Fatalf("conversion disabled = %v, want unchanged", got)
	}
}

func TestCustomValidatorAndConvertFailure(t *testing.T) {
	hooks := normalize.Hooks{
		Validators: map[string]model.ValidateFunc{
			"even": func(_ context.Context, v any) error {
				if n, ok := v.(int); ok && n%2 == 0 {
					return nil
				}
				return errors.New("value must be even")
			},
		},
		Converts: map[string]model.ConvertFunc{
			"fail": func(context.Context, any) (any, error) { return nil, errors.New("boom") },
		},
	}
	f := newFixture(t, `
models:
  even: {validate: even}
  broken: {type: int, convert: fail}
`, hooks, convertOn)
	ctx := context.Background()
	_, err := f.processor(t, "even")(ctx, 3, "")
	if diff := cmp.Diff([]string{"value-custom"}, codes(t, err)); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
	_, err = f.processor(t, "broken")(ctx, 1, "/x")
	if _, ok := xerrors.AsValidations(err); ok || err == nil {
		t.Fatalf("convert failure = %v, want hook error", err)
	}
}

func TestConstructFanOutJoinsSiblings(t *testing.T) {
	var running, finished atomic.Int32
	release := make(chan struct{})
	slow := func(ctx context.Context, obj *model.Instance) error {
		if running.Add(1) == 2 {
			close(release)
		}
		select {
		case <-release:
		case <-time.After(5 * time.Second):
			return errors.New("siblings did not run concurrently")
		}
		finished.Add(1)
		obj.Set("ready", true)
		return nil
	}
	failing := func(context.Context, *model.Instance) error {
		return errors.New("construct failed")
	}
	hooks := normalize.Hooks{Constructs: map[string]model.ConstructFunc{"slow": slow, "fail": failing}}
	f := newFixture(t, `
models:
  part: {properties: {id: {type: string}}, construct: slow}
  whole:
    properties:
      left: part
      right: part
  broken:
    properties:
      left: part
      right: part
      bad: {properties: {}, construct: fail}
`, hooks, Config{})
	ctx := context.Background()
	got, err := f.processor(t, "whole")(ctx, map[string]any{
		"left":  map[string]any{"id": "l"},
		"right": map[string]any{"id": "r"},
	}, "")
	if err != nil {
		t.Fatalf("process error = %v", err)
	}
	want := map[string]any{
		"left":  map[string]any{"id": "l", "ready": true},
		"right": map[string]any{"id": "r", "ready": true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}

	running.Store(0)
	finished.Store(0)
	release = make(chan struct{})
	_, err = f.processor(t, "broken")(ctx, map[string]any{
		"left":  map[string]any{"id": "l"},
		"right": map[string]any{"id": "r"},
		"bad":   map[string]any{},
	}, "")
	if err == nil || err.Error() != "construct /bad: construct failed" {
		t.Fatalf("error = %v, want construct failure", err)
	}
	if finished.Load() != 2 {
		t.Fatalf("finished siblings = %d, want 2", finished.Load())
	}
}

func TestBehaviorInstances(t *testing.T) {
	hooks := normalize.Hooks{Behaviors: map[string]map[string]model.Method{
		"user": {"greet": func(_ context.Context, obj *model.Instance, _ ...any) (any, error) {
			name, _ := obj.Get("name")
			return "hello " + name.(string), nil
		}},
	}}
	f := newFixture(t, "models:\n  user: {properties: {name: {type: string}}, prototype: user}\n", hooks, Config{})
	got, err := f.processor(t, "user")(context.Background(), map[string]any{"name": "ada"}, "")
	if err != nil {
		t.Fatalf("process error = %v", err)
	}
	inst, ok := got.(*model.Instance)
	if !ok {
		t.Fatalf("output = %T, want *model.Instance", got)
	}
	greeting, err := inst.Call(context.Background(), "greet")
	if err != nil || greeting != "hello ada" {
		t.Fatalf("Call(greet) = %v, %v", greeting, err)
	}
}

func TestCompileIsIdempotentAndHandlesRecursion(t *testing.T) {
	f := newFixture(t, `
models:
  tree:
    properties:
      label: {type: string}
      children: [o.tree, {isOptional: true}]
`, normalize.Hooks{}, Config{})
	first := f.processor(t, "tree")
	built := f.c.Built()
	f.processor(t, "tree")
	if f.c.Built() != built {
		t.Fatalf("Built() = %d after recompiling, want %d", f.c.Built(), built)
	}
	in := map[string]any{
		"label": "root",
		"children": []any{
			map[string]any{"label": "leaf"},
			map[string]any{"label": 3},
		},
	}
	_, err := first(context.Background(), in, "")
	list, _ := xerrors.AsValidations(err)
	if len(list) != 1 || list[0].Path != "/children/1/label" {
		t.Fatalf("violations = %v, want one at /children/1/label", err)
	}
}

func TestCompileRejectsUnresolvedNodes(t *testing.T) {
	c := New(Config{})
	if _, err := c.Compile(model.NewLink(model.Link{Target: "x"})); err == nil {
		t.Fatalf("Compile(link) error = nil")
	}
	union := model.NewAnyOf(&model.AnyOf{Candidates: []*model.Node{model.NewValue(&model.Value{})}})
	if _, err := c.Compile(union); err == nil {
		t.Fatalf("Compile(anyOf with one candidate) error = nil")
	}
	bad := model.NewValue(&model.Value{Constraints: model.Constraints{Regex: []model.Pattern{{Source: "("}}}})
	if _, err := c.Compile(bad); err == nil {
		t.Fatalf("Compile(invalid regex) error = nil")
	}
}

func TestJoinEscapesPointerTokens(t *testing.T) {
	if got := join("/a", "b/c~d"); got != "/a/b~1c~0d" {
		t.Fatalf("join() = %q", got)
	}
}
