package harvest

import (
	"errors"
	"fmt"

	"github.com/zyniel/westie/internal/daterange"
	"github.com/zyniel/westie/internal/event"
	"github.com/zyniel/westie/internal/page"
)

// ErrorCode represents a specific failure condition of a harvest
type ErrorCode string

const (
	CodeTransientStale      ErrorCode = "TRANSIENT_STALE"
	CodeParseFailure        ErrorCode = "PARSE_FAILURE"
	CodeViewportUnavailable ErrorCode = "VIEWPORT_UNAVAILABLE"
	CodeCaptureFailure      ErrorCode = "CAPTURE_FAILURE"
)

// Sentinels for errors.Is; they match any Error with the same code.
var (
	ErrTransientStale      = &Error{Code: CodeTransientStale}
	ErrParseFailure        = &Error{Code: CodeParseFailure}
	ErrViewportUnavailable = &Error{Code: CodeViewportUnavailable}
	ErrCaptureFailure      = &Error{Code: CodeCaptureFailure}
)

// Error wraps a harvest failure with its code and context
type Error struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Details    map[string]interface{}
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Underlying != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Underlying)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is checks if the error matches the target
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// NewError creates a new Error
func NewError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Underlying: err,
		Details:    make(map[string]interface{}),
	}
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Classify maps err onto the harvest error taxonomy. It returns "" for nil
// and for errors outside the taxonomy.
func Classify(err error) ErrorCode {
	var herr *Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &herr):
		return herr.Code
	case errors.Is(err, page.ErrStale):
		return CodeTransientStale
	case errors.Is(err, event.ErrInvalidEvent),
		errors.Is(err, daterange.ErrUnknownPattern),
		errors.Is(err, daterange.ErrStartDateUnparseable),
		errors.Is(err, daterange.ErrEndDateUnparseable):
		return CodeParseFailure
	}
	return ""
}
