package errors

import (
	"fmt"
	"testing"
)

func TestValidationErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		want string
		v    Validation
	}{
		{
			name: "message only",
			v:    Validation{Code: "object-missing-property", Message: "missing property a"},
			want: "[object-missing-property] missing property a",
		},
		{
			name: "with path",
			v:    Validation{Code: "value-type", Message: "wrong type", Path: "/user/age"},
			want: "[value-type] wrong type at /user/age",
		},
		{
			name: "with expected",
			v: Validation{
				Code:     "value-enum",
				Message:  "value not allowed",
				Expected: []string{"a", "b"},
			},
			want: "[value-enum] value not allowed (expected: a, b)",
		},
		{
			name: "with actual",
			v: Validation{
				Code:    "value-type",
				Message: "wrong type",
				Actual:  "bool",
			},
			want: "[value-type] wrong type (actual: bool)",
		},
		{
			name: "with all",
			v: Validation{
				Code:     "value-type",
				Message:  "wrong type",
				Path:     "/items/0",
				Expected: []string{"string"},
				Actual:   "number",
			},
			want: "[value-type] wrong type at /items/0 (expected: string) (actual: number)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Error(); got != tt.want {
				t.Fatalf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewValidationf(t *testing.T) {
	v := NewValidationf(ErrObjectMissingProperty, "/a", "missing property %s", "a")
	if v.Code != string(ErrObjectMissingProperty) {
		t.Fatalf("Code = %q, want %q", v.Code, ErrObjectMissingProperty)
	}
	if v.Message != "missing property a" {
		t.Fatalf("Message = %q, want %q", v.Message, "missing property a")
	}
	if v.Path != "/a" {
		t.Fatalf("Path = %q, want %q", v.Path, "/a")
	}
}

func TestValidationListError(t *testing.T) {
	one := Validation{Code: "value-type", Message: "wrong type"}
	two := Validation{Code: "value-min", Message: "too small"}

	tests := []struct {
		name string
		want string
		list ValidationList
	}{
		{name: "empty", list: ValidationList{}, want: "no validation errors"},
		{name: "single", list: ValidationList{one}, want: "[value-type] wrong type"},
		{name: "multiple", list: ValidationList{one, two}, want: "[value-type] wrong type (and 1 more)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.list.Error(); got != tt.want {
				t.Fatalf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAsValidations(t *testing.T) {
	list := ValidationList{
		{Code: "value-type", Message: "wrong type"},
		{Code: "value-min", Message: "too small"},
	}
	wrapped := fmt.Errorf("process endpoint: %w", list)

	got, ok := AsValidations(wrapped)
	if !ok {
		t.Fatalf("AsValidations() ok = false, want true")
	}
	if len(got) != 2 {
		t.Fatalf("AsValidations() len = %d, want 2", len(got))
	}
	if _, ok := AsValidations(fmt.Errorf("plain")); ok {
		t.Fatalf("AsValidations(plain) ok = true, want false")
	}
}
