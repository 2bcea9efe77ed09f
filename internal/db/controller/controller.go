// Package controller holds errors shared by the database controllers.
package controller

import (
	"errors"
	"fmt"
)

// ErrDBNil is returned when the database connection is nil.
var ErrDBNil = errors.New("database connection is nil")

// ConflictError reports a unique constraint violation on Field.
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("the %s %q has already been taken", e.Field, e.Value)
}

// NewConflict returns a ConflictError for field and value.
func NewConflict(field, value string) error {
	return &ConflictError{Field: field, Value: value}
}
