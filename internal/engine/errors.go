package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while instantiating or running
// a pipeline.
//
// Errors raised by the pipeline itself (an OnError notification) are
// wrapped with ErrCodeStreamFailed; Err holds the original error.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the affected run, if one was started.
	RunID string

	// Err is the underlying cause.
	Err error

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidFragment indicates a fragment tree that cannot be
	// instantiated: an unbound placeholder or channel, or an unknown kind.
	ErrCodeInvalidFragment RuntimeErrorCode = "INVALID_FRAGMENT"

	// ErrCodeStreamFailed indicates the pipeline terminated with an error.
	ErrCodeStreamFailed RuntimeErrorCode = "STREAM_FAILED"

	// ErrCodeQuotaExceeded indicates the run exceeded its value limit.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeCancelled indicates the run's context ended first.
	ErrCodeCancelled RuntimeErrorCode = "CANCELLED"

	// ErrCodeStore indicates the trace could not be persisted.
	ErrCodeStore RuntimeErrorCode = "STORE_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.RunID != "" {
		return fmt.Sprintf("%s: %s (run=%s)", e.Code, msg, e.RunID)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// IsCode reports whether err is or wraps a RuntimeError with code.
func IsCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and
// ValuesExceededError.
func IsQuotaError(err error) bool {
	if IsCode(err, ErrCodeQuotaExceeded) {
		return true
	}
	var ve *ValuesExceededError
	return errors.As(err, &ve)
}

func invalidFragment(format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidFragment,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewQuotaError creates a RuntimeError for an exceeded value limit.
func NewQuotaError(runID string, values, limit int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("run exceeded max values (%d > %d)", values, limit),
		RunID:   runID,
		Details: map[string]string{
			"values":     fmt.Sprintf("%d", values),
			"max_values": fmt.Sprintf("%d", limit),
		},
	}
}
