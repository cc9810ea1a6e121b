// Package types defines error types
package types

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrMissingTarget indicates no execution target label was configured
	ErrMissingTarget = errors.New("execution target is required")

	// ErrNilTask indicates no task body was configured
	ErrNilTask = errors.New("task is required")

	// ErrNoAxes indicates an empty axis set
	ErrNoAxes = errors.New("at least one axis is required")

	// ErrEmptyAxis indicates an axis with no values
	ErrEmptyAxis = errors.New("axis has no values")

	// ErrDuplicateAxis indicates two axes sharing one name
	ErrDuplicateAxis = errors.New("duplicate axis name")

	// ErrStageAborted indicates a stage was never started because a
	// sibling failed under fail-fast
	ErrStageAborted = errors.New("stage aborted: sibling stage failed")
)

// ConfigError represents an invalid configuration value. It always
// surfaces synchronously and is never subject to retry.
type ConfigError struct {
	// Field is the configuration field at fault
	Field string

	// Reason describes what is wrong with it
	Reason string

	// Cause is the underlying error, if any
	Cause error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid config field %q: %s: %v", e.Field, e.Reason, e.Cause)
	}
	return fmt.Sprintf("invalid config field %q: %s", e.Field, e.Reason)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new configuration error
func NewConfigError(field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason}
}

// StageError represents a failure inside one named stage or retry unit
type StageError struct {
	// Stage is the display name of the failed unit
	Stage string

	// Cause is the underlying error
	Cause error

	// Context contains error context information
	Context map[string]interface{}
}

// Error implements the error interface
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %q failed: %v", e.Stage, e.Cause)
}

// Unwrap returns the underlying error
func (e *StageError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is a specific error
func (e *StageError) Is(target error) bool {
	return errors.Is(e.Cause, target)
}

// NewStageError creates a new stage error
func NewStageError(stage string, cause error) *StageError {
	return &StageError{
		Stage:   stage,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds error context
func (e *StageError) WithContext(key string, value interface{}) *StageError {
	e.Context[key] = value
	return e
}
