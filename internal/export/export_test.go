package export

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jacoelho/modelc/internal/model"
	"github.com/jacoelho/modelc/internal/pipeline"
	"github.com/jacoelho/modelc/internal/source"
)

func compiled(t *testing.T, doc string) *pipeline.Compiled {
	t.Helper()
	d, err := source.Decode("doc.yaml", []byte(doc), 0)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	out, err := pipeline.Compile([]*source.Document{d}, pipeline.Config{Convert: true})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return out
}

func TestSchemaObject(t *testing.T) {
	c := compiled(t, `
models:
  email: {type: email, maxLength: 64}
  user:
    properties:
      email: email
      age: {type: int, minValue: 0, isOptional: true}
      tags: [{type: string}, {minLength: 1}]
      role: {enum: [admin, user]}
`)
	s := Schema(c.Models["user"])
	if got := s.GetType(); len(got) != 1 || got[0] != "object" {
		t.Fatalf("type = %v, want object", got)
	}
	if diff := cmp.Diff([]string{"email", "tags", "role"}, s.Required); diff != "" {
		t.Fatalf("Required mismatch (-want +got):\n%s", diff)
	}
	email, ok := s.Properties.Get("email")
	if !ok {
		t.Fatalf("email property missing")
	}
	if f := email.GetLeft().Format; f == nil || *f != "email" {
		t.Fatalf("email format = %v, want email", f)
	}
	if m := email.GetLeft().MaxLength; m == nil || *m != 64 {
		t.Fatalf("email maxLength = %v, want 64", m)
	}
	age, _ := s.Properties.Get("age")
	if m := age.GetLeft().Minimum; m == nil || *m != 0 {
		t.Fatalf("age minimum = %v, want 0", m)
	}
	tags, _ := s.Properties.Get("tags")
	if m := tags.GetLeft().MinItems; m == nil || *m != 1 {
		t.Fatalf("tags minItems = %v, want 1", m)
	}
	role, _ := s.Properties.Get("role")
	if n := len(role.GetLeft().Enum); n != 2 {
		t.Fatalf("role enum size = %d, want 2", n)
	}
}

func TestSchemaRecursion(t *testing.T) {
	c := compiled(t, `
models:
  tree:
    properties:
      label: {type: string}
      children: [o.tree, {isOptional: true}]
`)
	s := Schema(c.Models["tree"])
	children, ok := s.Properties.Get("children")
	if !ok {
		t.Fatalf("children property missing")
	}
	item := children.GetLeft().Items.GetLeft()
	if got := item.GetType(); len(got) != 1 || got[0] != "object" {
		t.Fatalf("recursive item type = %v, want object", got)
	}
	if item.Properties != nil && item.Properties.Len() != 0 {
		t.Fatalf("recursive item has %d properties, want an open object", item.Properties.Len())
	}
}

func TestSchemaAnyOf(t *testing.T) {
	c := compiled(t, `
models:
  id:
    anyOf: [{type: string}, {type: int}]
`)
	s := Schema(c.Models["id"])
	if len(s.AnyOf) != 2 {
		t.Fatalf("anyOf size = %d, want 2", len(s.AnyOf))
	}
}

func TestSchemaValueTypes(t *testing.T) {
	v := &model.Value{Constraints: model.Constraints{Types: []string{"string", "int"}, Length: model.Some(3)}}
	s := Schema(model.NewValue(v))
	if len(s.AnyOf) != 2 {
		t.Fatalf("anyOf size = %d, want one entry per JSON type", len(s.AnyOf))
	}
	if s.MinLength == nil || *s.MinLength != 3 || s.MaxLength == nil || *s.MaxLength != 3 {
		t.Fatalf("length bounds = %v..%v, want 3..3", s.MinLength, s.MaxLength)
	}

	all := Schema(model.NewValue(&model.Value{Constraints: model.Constraints{Types: []string{"all"}}}))
	if len(all.GetType()) != 0 {
		t.Fatalf("type = %v, want none for all", all.GetType())
	}
}

func TestYAML(t *testing.T) {
	c := compiled(t, `
models:
  point:
    properties:
      x: {type: number}
      label: {type: string, isOptional: true}
`)
	out, err := YAML(Schema(c.Models["point"]))
	if err != nil {
		t.Fatalf("YAML() error = %v", err)
	}
	want := `type: object
properties:
    x:
        type: number
    label:
        type: string
required:
    - x
`
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Fatalf("YAML() mismatch (-want +got):\n%s", diff)
	}
}
