// Package errors provides the journal's sentinel and typed errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrTradeNotFound        = errors.New("trade not found")
	ErrDuplicateTrade       = errors.New("duplicate trade id")
	ErrSnapshotCorrupt      = errors.New("snapshot corrupt")
	ErrUnknownMarket        = errors.New("unknown market")
	ErrConfigInvalid        = errors.New("invalid configuration")
	ErrInputValidation      = errors.New("input validation failed")
	ErrScreenshotUnreadable = errors.New("screenshot unreadable")
)

// ValidationError represents a validation error on user input.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// Unwrap lets errors.Is match ErrInputValidation.
func (e *ValidationError) Unwrap() error {
	return ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// StoreError represents a failure in a snapshot store.
type StoreError struct {
	Backend   string
	Operation string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error [%s] %s: %v", e.Backend, e.Operation, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(backend, operation string, err error) *StoreError {
	return &StoreError{
		Backend:   backend,
		Operation: operation,
		Err:       err,
	}
}

// ScreenshotError represents an attachment that could not be read or scored.
type ScreenshotError struct {
	Name   string
	Reason string
	Err    error
}

func (e *ScreenshotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("screenshot error [%s]: %s: %v", e.Name, e.Reason, e.Err)
	}
	return fmt.Sprintf("screenshot error [%s]: %s", e.Name, e.Reason)
}

// Unwrap exposes ErrScreenshotUnreadable and the underlying cause.
func (e *ScreenshotError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrScreenshotUnreadable, e.Err}
	}
	return []error{ErrScreenshotUnreadable}
}

// NewScreenshotError creates a new ScreenshotError.
func NewScreenshotError(name, reason string, err error) *ScreenshotError {
	return &ScreenshotError{
		Name:   name,
		Reason: reason,
		Err:    err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
