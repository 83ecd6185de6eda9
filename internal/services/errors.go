package services

import (
	"fmt"
)

// ValidationReason says which upload check failed.
type ValidationReason string

const (
	ReasonTooLarge          ValidationReason = "too_large"
	ReasonTooLong           ValidationReason = "too_long"
	ReasonUnsupportedFormat ValidationReason = "unsupported_format"
	ReasonMissingMedia      ValidationReason = "missing_media"
	ReasonInvalidDuration   ValidationReason = "invalid_duration"
	ReasonInvalidForm       ValidationReason = "invalid_form"
)

// ValidationError means the client's upload failed a pre-check. The model is
// never called for such a request.
type ValidationError struct {
	Reason  ValidationReason
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Reason, e.Message)
}

func newValidationError(reason ValidationReason, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// UpstreamError means the model could not be reached in time, after the
// retry budget was spent, or the admission gate stayed full.
type UpstreamError struct {
	Timeout  bool
	Busy     bool
	Attempts int
	Err      error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Busy:
		return fmt.Sprintf("model unavailable: too many evaluations in flight: %v", e.Err)
	case e.Timeout:
		return fmt.Sprintf("model timed out after %d attempt(s): %v", e.Attempts, e.Err)
	default:
		return fmt.Sprintf("model unavailable after %d attempt(s): %v", e.Attempts, e.Err)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// MalformedResponseError means the model replied but its output failed
// parsing, range or count checks.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return "malformed model response: " + e.Reason
}

func malformed(format string, args ...any) *MalformedResponseError {
	return &MalformedResponseError{Reason: fmt.Sprintf(format, args...)}
}
