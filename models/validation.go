package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is shared across write paths; struct tags cover shape, the
// per-model Validate methods cover cross-field money invariants that
// tags cannot express.
var validate = validator.New()

// ValidationError marks a malformed input record rejected at the write
// boundary. Records are never silently clamped into validity.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
