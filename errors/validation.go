package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode identifies the kind of a request-time violation.
type ErrorCode string

const (
	// ErrSchemaNotLoaded indicates processing was attempted without a compiled schema.
	ErrSchemaNotLoaded ErrorCode = "schema-not-loaded"
	// ErrEndpointNotFound indicates the requested endpoint or model is not registered.
	ErrEndpointNotFound ErrorCode = "endpoint-not-found"
	// ErrInputNotAllowed indicates input was sent to an endpoint that takes none.
	ErrInputNotAllowed ErrorCode = "input-not-allowed"

	// ErrValueType indicates a value does not have any of the declared types.
	ErrValueType ErrorCode = "value-type"
	// ErrValueEnum indicates a value is not one of the listed values.
	ErrValueEnum ErrorCode = "value-enum"
	// ErrValueLength indicates a value does not have the exact length.
	ErrValueLength ErrorCode = "value-length"
	// ErrValueMinLength indicates a value is shorter than allowed.
	ErrValueMinLength ErrorCode = "value-min-length"
	// ErrValueMaxLength indicates a value is longer than allowed.
	ErrValueMaxLength ErrorCode = "value-max-length"
	// ErrValueContains indicates a string lacks a required substring.
	ErrValueContains ErrorCode = "value-contains"
	// ErrValueEquals indicates a value differs from the required one.
	ErrValueEquals ErrorCode = "value-equals"
	// ErrValueMin indicates a number is below the minimum.
	ErrValueMin ErrorCode = "value-min"
	// ErrValueMax indicates a number is above the maximum.
	ErrValueMax ErrorCode = "value-max"
	// ErrValueRegex indicates a string does not match a pattern.
	ErrValueRegex ErrorCode = "value-regex"
	// ErrValueStartsWith indicates a string has the wrong prefix.
	ErrValueStartsWith ErrorCode = "value-starts-with"
	// ErrValueEndsWith indicates a string has the wrong suffix.
	ErrValueEndsWith ErrorCode = "value-ends-with"
	// ErrValueLetters indicates a string has the wrong letter case.
	ErrValueLetters ErrorCode = "value-letters"
	// ErrValueCharClass indicates a string contains characters outside the class.
	ErrValueCharClass ErrorCode = "value-char-class"
	// ErrValueMinByteSize indicates a string is smaller than allowed in bytes.
	ErrValueMinByteSize ErrorCode = "value-min-byte-size"
	// ErrValueMaxByteSize indicates a string is larger than allowed in bytes.
	ErrValueMaxByteSize ErrorCode = "value-max-byte-size"
	// ErrValueMimeType indicates a base64 payload has the wrong content type.
	ErrValueMimeType ErrorCode = "value-mime-type"
	// ErrValueDateFormat indicates a date does not follow the declared layout.
	ErrValueDateFormat ErrorCode = "value-date-format"
	// ErrValueCustom indicates a custom validator rejected the value.
	ErrValueCustom ErrorCode = "value-custom"

	// ErrObjectType indicates a value is not an object.
	ErrObjectType ErrorCode = "object-type"
	// ErrObjectUnknownProperty indicates an undeclared property.
	ErrObjectUnknownProperty ErrorCode = "object-unknown-property"
	// ErrObjectMissingProperty indicates a required property is absent.
	ErrObjectMissingProperty ErrorCode = "object-missing-property"

	// ErrArrayType indicates a value is not an array.
	ErrArrayType ErrorCode = "array-type"
	// ErrArrayLength indicates an array does not have the exact length.
	ErrArrayLength ErrorCode = "array-length"
	// ErrArrayMinLength indicates an array has too few elements.
	ErrArrayMinLength ErrorCode = "array-min-length"
	// ErrArrayMaxLength indicates an array has too many elements.
	ErrArrayMaxLength ErrorCode = "array-max-length"

	// ErrAnyOfNoMatch indicates no union candidate accepted the value.
	ErrAnyOfNoMatch ErrorCode = "anyof-no-match"
)

// Validation describes one request-time violation with its instance path.
//
//nolint:errname // public API name.
type Validation struct {
	Code     string
	Message  string
	Path     string
	Actual   string
	Expected []string
}

// ValidationList is an error that wraps one or more violations.
type ValidationList []Validation //nolint:errname // public API name, keep for compatibility.

// Error returns a compact summary of the violations.
func (v ValidationList) Error() string {
	switch len(v) {
	case 0:
		return "no validation errors"
	case 1:
		return v[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more)", v[0].Error(), len(v)-1)
	}
}

// Error formats the violation for display, including code, message, and context.
func (v *Validation) Error() string {
	if v == nil {
		return "validation <nil>"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s", v.Code, v.Message))
	if v.Path != "" {
		b.WriteString(fmt.Sprintf(" at %s", v.Path))
	}
	if len(v.Expected) > 0 {
		b.WriteString(fmt.Sprintf(" (expected: %s)", strings.Join(v.Expected, ", ")))
	}
	if v.Actual != "" {
		b.WriteString(fmt.Sprintf(" (actual: %s)", v.Actual))
	}
	return b.String()
}

// NewValidation builds a Validation with a code, message, and optional path.
func NewValidation(code ErrorCode, msg, path string) Validation {
	return Validation{Code: string(code), Message: msg, Path: path}
}

// NewValidationf formats a message and builds a Validation.
func NewValidationf(code ErrorCode, path, format string, args ...any) Validation {
	return NewValidation(code, fmt.Sprintf(format, args...), path)
}

// AsValidations extracts violations from an error returned by a processor.
func AsValidations(err error) ([]Validation, bool) {
	list, ok := asValidationList(err)
	if !ok {
		return nil, false
	}
	return []Validation(list), true
}

func asValidationList(err error) (ValidationList, bool) {
	if err == nil {
		return nil, false
	}
	var list ValidationList
	if errors.As(err, &list) {
		return list, true
	}

	var listPtr *ValidationList
	if errors.As(err, &listPtr) && listPtr != nil {
		return *listPtr, true
	}

	return nil, false
}
