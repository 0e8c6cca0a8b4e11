// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNotFound indicates a requested item or user was not found.
	// Handlers translate this (and ownership mismatches) into one generic
	// user-facing message so that item existence is never leaked.
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicateCode indicates a short-code insert collided with an
	// existing code. The item creation path retries with a fresh code;
	// this error is never shown to the user.
	ErrDuplicateCode = errors.New("short code already in use")

	// ErrStoreUnavailable indicates the backing store could not be reached.
	// Surfaces to the user as a generic "try again" message and to the
	// engine result as StatusError.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrUnknownUser indicates the caller has never issued /start.
	ErrUnknownUser = errors.New("unknown user")
)

// ValidationError represents user input validation failures.
// It is always user-visible and safe to echo back verbatim.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, ", "))
}

// UserMessage returns the joined validation messages for the reply text.
func (e *ValidationError) UserMessage() string {
	return strings.Join(e.Errors, ", ")
}

// NewValidationError creates a validation error from individual messages.
func NewValidationError(msgs ...string) *ValidationError {
	return &ValidationError{Errors: msgs}
}

// StoreError wraps a low-level storage failure with the operation name.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error (op=%s): %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new store error.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}
