package apperr

import (
	"errors"
	"fmt"
)

// Error is the standardized error carried across the engine and its drivers.
// The Code decides how callers (and the HTTP edge) react; Err preserves the
// underlying cause for errors.Is/As chains.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error with a code and message
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a code and a formatted message
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// InvalidParams creates an INVALID_PARAMS error
func InvalidParams(message string) *Error {
	return New(CodeInvalidParams, message)
}

// InvalidSignal creates an INVALID_SIGNAL error
func InvalidSignal(message string) *Error {
	return New(CodeInvalidSignal, message)
}

// EmptyFingerprint creates an EMPTY_FINGERPRINT error
func EmptyFingerprint() *Error {
	return New(CodeEmptyFingerprint, "extraction produced zero fingerprint tokens")
}

// UnknownRecording creates an UNKNOWN_RECORDING error
func UnknownRecording(id uint) *Error {
	return Newf(CodeUnknownRecording, "recording %d does not exist", id)
}

// Conflict creates a CONFLICT error
func Conflict(message string) *Error {
	return New(CodeConflict, message)
}

// IndexIO wraps a durable-store failure
func IndexIO(message string, err error) *Error {
	return Wrap(CodeIndexIO, message, err)
}

// NotFound creates a NOT_FOUND error
func NotFound(resource string) *Error {
	return Newf(CodeNotFound, "%s not found", resource)
}

// BadRequest creates a BAD_REQUEST error
func BadRequest(message string) *Error {
	return New(CodeBadRequest, message)
}

// Internal creates an INTERNAL_ERROR
func Internal(message string, err error) *Error {
	return Wrap(CodeInternal, message, err)
}

// CodeOf extracts the Code from an error chain; INTERNAL_ERROR if none
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HasCode reports whether any error in the chain carries the given code
func HasCode(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Err
	}
	return false
}
