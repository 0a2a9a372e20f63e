package errors

import (
	"fmt"
	"testing"

	"go.uber.org/multierr"
)

func TestReportErrCombinesAllErrors(t *testing.T) {
	var r Report
	if r.Err() != nil || r.HasErrors() {
		t.Fatalf("empty report should not carry errors")
	}
	r.Errorf(ErrSelfLink, "a", "models.a", "model %s links to itself", "a")
	r.Errorf(ErrUnresolvedLink, "b", "models.b", "model %s is not defined", "c")
	r.Warnf(WarnOptionalArrayItem, "c", "models.c.array", "optional item")

	err := r.Err()
	if err == nil {
		t.Fatalf("Err() = nil, want error")
	}
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("multierr.Errors() len = %d, want 2", got)
	}

	wrapped := fmt.Errorf("compile models: %w", err)
	cfgs := AsConfigErrors(wrapped)
	if len(cfgs) != 2 {
		t.Fatalf("AsConfigErrors() len = %d, want 2", len(cfgs))
	}
	if cfgs[0].Code != ErrSelfLink || cfgs[1].Code != ErrUnresolvedLink {
		t.Fatalf("AsConfigErrors() codes = %s, %s", cfgs[0].Code, cfgs[1].Code)
	}
	if len(r.Warnings) != 1 {
		t.Fatalf("Warnings len = %d, want 1", len(r.Warnings))
	}
}

func TestDiagnosticFormatting(t *testing.T) {
	e := &ConfigError{Code: ErrSelfLink, Model: "a", Message: "model a links to itself"}
	if got, want := e.Error(), "[self-link] model a links to itself in model a"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	w := ConfigWarning{Code: WarnOptionalArrayItem, Path: "models.tags.array", Message: "optional item is ignored"}
	if got, want := w.String(), "[optional-array-item] optional item is ignored at models.tags.array"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestReportMerge(t *testing.T) {
	var a, b Report
	a.Errorf(ErrAnyOfArity, "u", "", "too few candidates")
	b.Warnf(WarnDefaultWithoutOptional, "v", "", "inert default")
	a.Merge(&b)
	a.Merge(nil)
	if len(a.Errors) != 1 || len(a.Warnings) != 1 {
		t.Fatalf("Merge() = %d errors %d warnings, want 1 and 1", len(a.Errors), len(a.Warnings))
	}
}
