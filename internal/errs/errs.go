// Package errs defines the domain error taxonomy surfaced to admin callers.
// Guard violations and missing entities abort the requested operation before
// any mutation; sweep code catches them per item and moves on.
package errs

import (
	"errors"
	"fmt"
)

// GuardViolationError signals an illegal state transition, e.g. verifying a
// form that is still in draft. Re-applying a target state a row already has
// is not a guard violation: it is a silent no-op.
type GuardViolationError struct {
	Message string
}

func (e *GuardViolationError) Error() string {
	return e.Message
}

// GuardViolationf creates a guard violation with a formatted message
func GuardViolationf(format string, args ...interface{}) *GuardViolationError {
	return &GuardViolationError{Message: fmt.Sprintf(format, args...)}
}

// IsGuardViolation reports whether err is (or wraps) a guard violation
func IsGuardViolation(err error) bool {
	var g *GuardViolationError
	return errors.As(err, &g)
}

// NotFoundError signals a missing project or form id
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewNotFound creates a not-found error for the given resource and id
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// IsNotFound reports whether err is (or wraps) a not-found error
func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

// ValidationError signals invalid input, e.g. a malformed wallet address
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidation creates a validation error for the given field
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is (or wraps) a validation error
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
