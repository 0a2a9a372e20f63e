package errors

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// ConfigCode identifies the kind of a compile-time diagnostic.
type ConfigCode string

const (
	// ErrUnresolvedLink indicates a link names a model that does not exist.
	ErrUnresolvedLink ConfigCode = "unresolved-link"
	// ErrMalformedLink indicates a link string is not valid link syntax.
	ErrMalformedLink ConfigCode = "malformed-link"
	// ErrSelfLink indicates a model links to itself.
	ErrSelfLink ConfigCode = "self-link"
	// ErrCircularLink indicates a chain of links returns to its origin.
	ErrCircularLink ConfigCode = "circular-link"
	// ErrSelfInheritance indicates a model extends itself.
	ErrSelfInheritance ConfigCode = "self-inheritance"
	// ErrCircularInheritance indicates an extends chain returns to its origin.
	ErrCircularInheritance ConfigCode = "circular-inheritance"
	// ErrExtendsKind indicates an extends target of the wrong model kind.
	ErrExtendsKind ConfigCode = "extends-kind"
	// ErrUnresolvedExtends indicates an extends target that does not exist.
	ErrUnresolvedExtends ConfigCode = "unresolved-extends"
	// ErrInvalidRegex indicates a regex constraint does not compile.
	ErrInvalidRegex ConfigCode = "invalid-regex"
	// ErrInvalidCharClass indicates a charClass constraint does not compile.
	ErrInvalidCharClass ConfigCode = "invalid-char-class"
	// ErrArrayShorthandArity indicates an array shorthand without one or two elements.
	ErrArrayShorthandArity ConfigCode = "array-shorthand-arity"
	// ErrAnyOfArity indicates an anyOf with fewer than two candidates.
	ErrAnyOfArity ConfigCode = "anyof-arity"
	// ErrDuplicateModel indicates a model name registered twice.
	ErrDuplicateModel ConfigCode = "duplicate-model"
	// ErrDuplicateEndpoint indicates an endpoint name registered twice.
	ErrDuplicateEndpoint ConfigCode = "duplicate-endpoint"
	// ErrAmbiguousKind indicates a mapping that declares more than one model kind.
	ErrAmbiguousKind ConfigCode = "ambiguous-kind"
	// ErrUnknownSetting indicates a key that the model kind does not accept.
	ErrUnknownSetting ConfigCode = "unknown-setting"
	// ErrInvalidSetting indicates a setting with a value of the wrong shape.
	ErrInvalidSetting ConfigCode = "invalid-setting"
	// ErrInvalidType indicates an unknown value type name.
	ErrInvalidType ConfigCode = "invalid-type"
	// ErrUnknownHook indicates a hook name missing from the hook registry.
	ErrUnknownHook ConfigCode = "unknown-hook"
	// ErrMaxDepth indicates a model nested deeper than the configured limit.
	ErrMaxDepth ConfigCode = "max-depth"

	// WarnOptionalArrayItem indicates an optional modifier on an array item.
	WarnOptionalArrayItem ConfigCode = "optional-array-item"
	// WarnDefaultWithoutOptional indicates a default on a required node.
	WarnDefaultWithoutOptional ConfigCode = "default-without-optional"
	// WarnCandidateOptional indicates an optional modifier on an anyOf candidate.
	WarnCandidateOptional ConfigCode = "optional-anyof-candidate"
)

// ConfigError is a fatal compile-time diagnostic.
type ConfigError struct {
	Code    ConfigCode
	Model   string
	Path    string
	Message string
}

// Error formats the diagnostic with its code and location.
func (e *ConfigError) Error() string {
	if e == nil {
		return "config error <nil>"
	}
	return formatDiagnostic(e.Code, e.Model, e.Path, e.Message)
}

// ConfigWarning is a non-fatal compile-time diagnostic.
type ConfigWarning struct {
	Code    ConfigCode
	Model   string
	Path    string
	Message string
}

// String formats the warning with its code and location.
func (w ConfigWarning) String() string {
	return formatDiagnostic(w.Code, w.Model, w.Path, w.Message)
}

func formatDiagnostic(code ConfigCode, model, path, msg string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s", code, msg))
	switch {
	case path != "":
		b.WriteString(fmt.Sprintf(" at %s", path))
	case model != "":
		b.WriteString(fmt.Sprintf(" in model %s", model))
	}
	return b.String()
}

// Report collects the diagnostics of one compile run.
type Report struct {
	Errors   []*ConfigError
	Warnings []ConfigWarning
}

// Errorf records a fatal diagnostic.
func (r *Report) Errorf(code ConfigCode, model, path, format string, args ...any) {
	r.Errors = append(r.Errors, &ConfigError{Code: code, Model: model, Path: path, Message: fmt.Sprintf(format, args...)})
}

// Warnf records a non-fatal diagnostic.
func (r *Report) Warnf(code ConfigCode, model, path, format string, args ...any) {
	r.Warnings = append(r.Warnings, ConfigWarning{Code: code, Model: model, Path: path, Message: fmt.Sprintf(format, args...)})
}

// Merge appends the diagnostics of other.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// HasErrors reports whether any fatal diagnostic was recorded.
func (r *Report) HasErrors() bool {
	return r != nil && len(r.Errors) > 0
}

// Err combines the fatal diagnostics into one error, or returns nil.
func (r *Report) Err() error {
	if r == nil {
		return nil
	}
	var err error
	for _, e := range r.Errors {
		err = multierr.Append(err, e)
	}
	return err
}

// AsConfigErrors extracts every ConfigError combined into err, looking
// through wrapping errors.
func AsConfigErrors(err error) []*ConfigError {
	var out []*ConfigError
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if cfg, ok := e.(*ConfigError); ok {
			out = append(out, cfg)
			return
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	for _, e := range multierr.Errors(err) {
		walk(e)
	}
	return out
}
