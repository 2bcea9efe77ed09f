package handler

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNilDependency is returned by Init when a dependency is missing.
var ErrNilDependency = errors.New(ErrNilACDFatalLogMsg)

// ValidationError carries per-field messages of a rejected request, keyed by JSON field name.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError creates a ValidationError with one message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {message}}}
}

// Add appends a message for field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}

	e.Fields[field] = append(e.Fields[field], message)
}

// Message returns the first message in field order.
func (e *ValidationError) Message() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}

	sort.Strings(fields)

	for _, f := range fields {
		if len(e.Fields[f]) > 0 {
			return e.Fields[f][0]
		}
	}

	return "The given data was invalid."
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Message())
}

// StatusError is an error with a status code and optional extra body fields.
// Debug is only sent to clients in dev mode.
type StatusError struct {
	Code    int
	Message string
	Extra   map[string]any
	Err     error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}

	return e.Message
}

func (e *StatusError) Unwrap() error { return e.Err }
