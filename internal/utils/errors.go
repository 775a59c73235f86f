// Package utils provides logging, structured error handling, and URL
// helpers shared across the media validation engine.
package utils

import (
	"errors"
	"fmt"
	"time"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns string representation of error severity
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ErrorCode represents predefined error codes for categorization
type ErrorCode string

const (
	// Extraction and classification
	ErrCodeExtractionFailed ErrorCode = "EXTRACTION_FAILED"

	// Reachability probing
	ErrCodeProbeTimeout   ErrorCode = "PROBE_TIMEOUT"
	ErrCodeProbeTransport ErrorCode = "PROBE_TRANSPORT"
	ErrCodeProbeStatus    ErrorCode = "PROBE_STATUS"

	// Repair
	ErrCodeRepairStale ErrorCode = "REPAIR_STALE"
	ErrCodeRepairWrite ErrorCode = "REPAIR_WRITE"

	// Run lifecycle and caller misuse
	ErrCodeRunFatal      ErrorCode = "RUN_FATAL"
	ErrCodeInvalidState  ErrorCode = "INVALID_STATE"
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	// Storage
	ErrCodeStoreFailure ErrorCode = "STORE_FAILURE"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"

	// Generic
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StructuredError provides categorized error information. Only a small
// subset of codes ever reaches a caller as a returned error; validation
// and repair findings are carried as data on outcomes and actions.
type StructuredError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Severity  ErrorSeverity          `json:"severity"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Cause     error                  `json:"-"`
	Timestamp time.Time              `json:"timestamp"`
	Retryable bool                   `json:"retryable"`
}

// Error implements the error interface
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error unwrapping
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches a target error code
func (e *StructuredError) Is(target error) bool {
	if se, ok := target.(*StructuredError); ok {
		return e.Code == se.Code
	}
	return false
}

// WithContext attaches a context value and returns the error for chaining.
func (e *StructuredError) WithContext(key string, value interface{}) *StructuredError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause attaches an underlying cause.
func (e *StructuredError) WithCause(cause error) *StructuredError {
	e.Cause = cause
	return e
}

// WithRetryable marks whether the operation may be retried.
func (e *StructuredError) WithRetryable(retryable bool) *StructuredError {
	e.Retryable = retryable
	return e
}

// NewError creates a structured error with the given code and message.
func NewError(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:      code,
		Message:   message,
		Severity:  severityForCode(code),
		Timestamp: time.Now(),
	}
}

// NewErrorf creates a structured error with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...interface{}) *StructuredError {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WrapError wraps an existing error with a code and message.
func WrapError(err error, code ErrorCode, message string) *StructuredError {
	return NewError(code, message).WithCause(err)
}

// IsCode reports whether err carries the given error code anywhere in
// its chain.
func IsCode(err error, code ErrorCode) bool {
	var se *StructuredError
	for errors.As(err, &se) {
		if se.Code == code {
			return true
		}
		err = se.Cause
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf extracts the error code from err, or ErrCodeInternal when err
// carries no structured code.
func CodeOf(err error) ErrorCode {
	var se *StructuredError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

func severityForCode(code ErrorCode) ErrorSeverity {
	switch code {
	case ErrCodeRunFatal, ErrCodeStoreFailure:
		return SeverityCritical
	case ErrCodeExtractionFailed, ErrCodeRepairStale:
		return SeverityWarning
	default:
		return SeverityError
	}
}
