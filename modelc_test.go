package modelc_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacoelho/modelc"
	"github.com/jacoelho/modelc/errors"
)

const usersDoc = `
models:
  name: {type: string, minLength: 1}
  base:
    properties:
      id: {type: int}
  user:
    extends: base
    properties:
      name: name
      nickname: {type: string, isOptional: true, default: anon}
endpoints:
  createUser:
    input:
      user: user
  rename:
    singleInput: name
  ping:
  echo:
    allowAnyInput: true
`

func loadUsers(t *testing.T, opts ...modelc.Options) *modelc.Schema {
	t.Helper()
	schema, err := modelc.Load(strings.NewReader(usersDoc), opts...)
	require.NoError(t, err)
	return schema
}

func violationCodes(t *testing.T, err error) []string {
	t.Helper()
	list, ok := errors.AsValidations(err)
	require.True(t, ok, "error %v is not a violation list", err)
	out := make([]string, len(list))
	for i, v := range list {
		out[i] = v.Code
	}
	return out
}

func TestProcessEndpoint(t *testing.T) {
	schema := loadUsers(t)
	ctx := context.Background()

	got, err := schema.Process(ctx, "createUser", map[string]any{
		"user": map[string]any{"id": "12", "name": "ada"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"user": map[string]any{"id": int64(12), "name": "ada", "nickname": "anon"},
	}, got)

	_, err = schema.Process(ctx, "createUser", map[string]any{
		"user": map[string]any{"name": ""},
		"role": "admin",
	})
	require.Error(t, err)
	assert.ElementsMatch(t, []string{
		string(errors.ErrObjectUnknownProperty),
		string(errors.ErrValueMinLength),
		string(errors.ErrObjectMissingProperty),
	}, violationCodes(t, err))

	got, err = schema.Process(ctx, "rename", "grace")
	require.NoError(t, err)
	assert.Equal(t, "grace", got)
}

func TestProcessEndpointShapes(t *testing.T) {
	schema := loadUsers(t)
	ctx := context.Background()

	_, err := schema.Process(ctx, "missing", nil)
	assert.Equal(t, []string{string(errors.ErrEndpointNotFound)}, violationCodes(t, err))

	got, err := schema.Process(ctx, "ping", map[string]any{})
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = schema.Process(ctx, "ping", map[string]any{"x": 1})
	assert.Equal(t, []string{string(errors.ErrInputNotAllowed)}, violationCodes(t, err))

	in := map[string]any{"anything": []any{1, "two"}}
	got, err = schema.Process(ctx, "echo", in)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestProcessModel(t *testing.T) {
	schema := loadUsers(t)
	got, err := schema.ProcessModel(context.Background(), "base", map[string]any{"id": 3})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(3)}, got)

	_, err = schema.ProcessModel(context.Background(), "nope", nil)
	assert.Equal(t, []string{string(errors.ErrEndpointNotFound)}, violationCodes(t, err))
}

func TestSchemaNames(t *testing.T) {
	schema := loadUsers(t)
	assert.Equal(t, []string{"name", "base", "user"}, schema.Models())
	assert.Equal(t, []string{"createUser", "echo", "ping", "rename"}, schema.Endpoints())
	assert.False(t, schema.Report().HasErrors())
}

func TestNilSchema(t *testing.T) {
	var schema *modelc.Schema
	_, err := schema.Process(context.Background(), "createUser", nil)
	assert.Equal(t, []string{string(errors.ErrSchemaNotLoaded)}, violationCodes(t, err))
	assert.Nil(t, schema.Models())
	assert.Nil(t, schema.Endpoints())
}

func TestOptionsValidate(t *testing.T) {
	require.NoError(t, modelc.NewOptions().Validate())
	require.Error(t, modelc.NewOptions().WithMaxDepth(-1).Validate())
	require.Error(t, modelc.NewOptions().WithUnknownProperties(modelc.UnknownPolicy(9)).Validate())
}

func TestOptionsUnknownAndConvert(t *testing.T) {
	doc := "models:\n  m:\n    properties:\n      n: {type: int}\n"
	ctx := context.Background()

	strip, err := modelc.Load(strings.NewReader(doc), modelc.NewOptions().WithUnknownProperties(modelc.UnknownStrip))
	require.NoError(t, err)
	got, err := strip.ProcessModel(ctx, "m", map[string]any{"n": 1, "extra": true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": int64(1)}, got)

	raw, err := modelc.Load(strings.NewReader(doc), modelc.NewOptions().WithConvert(false))
	require.NoError(t, err)
	got, err = raw.ProcessModel(ctx, "m", map[string]any{"n": "1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": "1"}, got)
}

func TestCompileValueWithInlineHooks(t *testing.T) {
	construct := func(_ context.Context, obj *modelc.Instance) error {
		first, _ := obj.Get("first")
		last, _ := obj.Get("last")
		obj.Set("full", first.(string)+" "+last.(string))
		return nil
	}
	greet := func(_ context.Context, obj *modelc.Instance, _ ...any) (any, error) {
		full, _ := obj.Get("full")
		return "hello " + full.(string), nil
	}
	schema, err := modelc.Compile(map[string]any{
		"models": map[string]any{
			"person": map[string]any{
				"properties": map[string]any{
					"first": map[string]any{"type": "string"},
					"last":  map[string]any{"type": "string"},
				},
				"construct": construct,
				"prototype": map[string]any{"greet": greet},
			},
		},
	})
	require.NoError(t, err)

	got, err := schema.ProcessModel(context.Background(), "person", map[string]any{"first": "Ada", "last": "Lovelace"})
	require.NoError(t, err)
	inst, ok := got.(*modelc.Instance)
	require.True(t, ok, "output %T is not an instance", got)
	msg, err := inst.Call(context.Background(), "greet")
	require.NoError(t, err)
	assert.Equal(t, "hello Ada Lovelace", msg)
}

func TestCompileMappingSettingsFromGoValues(t *testing.T) {
	schema, err := modelc.Compile(map[string]any{
		"models": map[string]any{
			"settings": map[string]any{
				"properties": map[string]any{
					"mode": map[string]any{"type": "object", "enum": []any{map[string]any{"fast": true}}},
					"meta": map[string]any{"type": "object", "isOptional": true, "default": map[string]any{"owner": "ops"}},
				},
			},
		},
	})
	require.NoError(t, err)
	ctx := context.Background()

	got, err := schema.ProcessModel(ctx, "settings", map[string]any{"mode": map[string]any{"fast": true}})
	require.NoError(t, err)
	out, ok := got.(map[string]any)
	require.True(t, ok, "output %T is not a map", got)
	assert.Equal(t, map[string]any{"owner": "ops"}, out["meta"])

	out["meta"].(map[string]any)["owner"] = "someone"
	again, err := schema.ProcessModel(ctx, "settings", map[string]any{"mode": map[string]any{"fast": true}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"owner": "ops"}, again.(map[string]any)["meta"])
}

func TestCompileWithNamedHooks(t *testing.T) {
	hooks := modelc.Hooks{
		Validators: map[string]modelc.ValidateFunc{
			"even": func(_ context.Context, v any) error {
				if n, ok := v.(int); !ok || n%2 != 0 {
					return assert.AnError
				}
				return nil
			},
		},
	}
	doc := "models:\n  even: {type: int, validate: even}\n"
	schema, err := modelc.Load(strings.NewReader(doc), modelc.NewOptions().WithHooks(hooks))
	require.NoError(t, err)

	_, err = schema.ProcessModel(context.Background(), "even", 4)
	require.NoError(t, err)
	_, err = schema.ProcessModel(context.Background(), "even", 3)
	assert.Equal(t, []string{string(errors.ErrValueCustom)}, violationCodes(t, err))

	_, err = modelc.Load(strings.NewReader(doc))
	require.Error(t, err)
	cfgErrs := errors.AsConfigErrors(err)
	require.Len(t, cfgErrs, 1)
	assert.Equal(t, errors.ErrUnknownHook, cfgErrs[0].Code)
}

func TestLoadFSAcrossDocuments(t *testing.T) {
	fsys := fstest.MapFS{
		"a.yaml": &fstest.MapFile{Data: []byte("models:\n  id: {type: uuid}\n")},
		"b.json": &fstest.MapFile{Data: []byte(`{"models": {"ref": {"properties": {"id": "id"}}}}`)},
		"c.yaml": &fstest.MapFile{Data: []byte("models:\n  id: {type: string}\n")},
	}
	schema, err := modelc.LoadFS(fsys, []string{"a.yaml", "b.json"})
	require.NoError(t, err)
	_, err = schema.ProcessModel(context.Background(), "ref", map[string]any{"id": "not-a-uuid"})
	assert.Equal(t, []string{string(errors.ErrValueType)}, violationCodes(t, err))

	_, err = modelc.LoadFS(fsys, []string{"a.yaml", "c.yaml"})
	require.Error(t, err)
	cfgErrs := errors.AsConfigErrors(err)
	require.Len(t, cfgErrs, 1)
	assert.Equal(t, errors.ErrDuplicateModel, cfgErrs[0].Code)

	_, err = modelc.LoadFS(fsys, []string{"missing.yaml"})
	require.Error(t, err)
}

func TestModelSetRequiresDocuments(t *testing.T) {
	_, err := modelc.NewModelSet().Compile()
	require.Error(t, err)

	set := modelc.NewModelSet()
	require.Error(t, set.AddFS(nil, "a.yaml"))
	require.Error(t, set.AddValue("v", nil))
}

func TestWarningsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})

	doc := "models:\n  list: [{type: string, isOptional: true}]\n"
	_, err := modelc.Load(strings.NewReader(doc), modelc.NewOptions().WithLogger(logger))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "code=optional-array-item")

	_, err = modelc.Load(strings.NewReader(doc), modelc.NewOptions().WithWarningsAsErrors(true))
	require.Error(t, err)
}

type countingRegisterer struct {
	prometheus.Registerer
	calls int
}

func (c *countingRegisterer) Register(col prometheus.Collector) error {
	c.calls++
	return c.Registerer.Register(col)
}

func TestMetricsRegisteredOnCompile(t *testing.T) {
	reg := &countingRegisterer{Registerer: prometheus.NewRegistry()}
	opts := modelc.NewOptions().WithMetrics(reg)
	require.NoError(t, opts.Validate())
	assert.Zero(t, reg.calls, "Validate registered collectors")

	loadUsers(t, opts)
	assert.Equal(t, 2, reg.calls)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	opts := modelc.NewOptions().WithMetrics(reg)
	schema := loadUsers(t, opts)
	ctx := context.Background()

	_, err := schema.Process(ctx, "rename", "ada")
	require.NoError(t, err)
	_, err = schema.Process(ctx, "rename", "")
	require.Error(t, err)

	// a second compile against the same registry reuses the collectors
	again := loadUsers(t, opts)
	_, err = again.Process(ctx, "rename", "bob")
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "modelc_process_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			counts[labels["endpoint"]+"/"+labels["outcome"]] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{"rename/ok": 2, "rename/invalid": 1}, counts)
}

func TestLiveReload(t *testing.T) {
	live := modelc.NewLive(nil)
	require.False(t, live.Ready())
	_, err := live.Process(context.Background(), "rename", "ada")
	assert.Equal(t, []string{string(errors.ErrSchemaNotLoaded)}, violationCodes(t, err))

	require.NoError(t, live.Reload(func() (*modelc.Schema, error) {
		return modelc.Load(strings.NewReader(usersDoc))
	}))
	require.True(t, live.Ready())
	first := live.Schema()

	err = live.Reload(func() (*modelc.Schema, error) {
		return modelc.Load(strings.NewReader("models:\n  a: b\n"))
	})
	require.Error(t, err)
	assert.Same(t, first, live.Schema())

	got, err := live.Process(context.Background(), "rename", "ada")
	require.NoError(t, err)
	assert.Equal(t, "ada", got)
}

func TestProcessConcurrent(t *testing.T) {
	schema := loadUsers(t)
	const goroutines = 8
	const iterations = 25

	errCh := make(chan error, goroutines*iterations)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				_, err := schema.Process(context.Background(), "createUser", map[string]any{
					"user": map[string]any{"id": j, "name": "n"},
				})
				if err != nil {
					errCh <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent process: %v", err)
	}
}

func TestJSONSchema(t *testing.T) {
	schema := loadUsers(t)
	js, err := schema.JSONSchema("user")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "id"}, js.Required)

	out, err := modelc.MarshalJSONSchema(js)
	require.NoError(t, err)
	assert.Contains(t, string(out), "minLength: 1")

	ep, err := schema.EndpointJSONSchema("createUser")
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, ep.Required)

	_, err = schema.JSONSchema("missing")
	require.Error(t, err)
}
