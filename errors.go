/*
Package movies – error types.

A failed command cycle is reported to the user as one status line. The
ErrorCode on an *Error says which line applies: a bad field, a missing
movie or table, or a DynamoDB failure.
*/
package movies

import (
	"errors"
	"fmt"
)

// ErrorCode classifies why a command cycle failed.
type ErrorCode string

const (
	ErrArgument       ErrorCode = "ArgumentError"
	ErrMissingField   ErrorCode = "MissingRequiredField"
	ErrInvalidYear    ErrorCode = "InvalidYear"
	ErrReleaseDate    ErrorCode = "InvalidReleaseDateFormat"
	ErrStore          ErrorCode = "StoreError"
	ErrNotFound       ErrorCode = "NotFound"
	ErrAlreadyExists  ErrorCode = "AlreadyExists"
	ErrUnknownCommand ErrorCode = "UnknownCommand"
)

// Error is a catalog failure. Message is the text shown to the user; Attrs
// holds the offending input or the table and operation, for the logs only.
type Error struct {
	Message string
	Code    ErrorCode
	Attrs   map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// ErrorOption sets one optional part of an Error.
type ErrorOption func(*Error)

// NewError returns an Error showing msg to the user.
func NewError(msg string, opts ...ErrorOption) *Error {
	e := &Error{Message: msg}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func WithCode(code ErrorCode) ErrorOption {
	return func(e *Error) { e.Code = code }
}

// WithAttrs records the input that was rejected, or where a store call went
// wrong.
func WithAttrs(attrs map[string]any) ErrorOption {
	return func(e *Error) { e.Attrs = attrs }
}

// WithCause keeps the underlying failure reachable through errors.As. A
// *StoreError cause supplies the text embedded in status lines.
func WithCause(cause error) ErrorOption {
	return func(e *Error) { e.Cause = cause }
}

// CodeOf returns the code of the outermost *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// StoreError is what DynamoDB said when a call failed: the API error code
// (ResourceNotFoundException, ValidationException, ...) and its message.
type StoreError struct {
	Code    string
	Message string
}

func (e *StoreError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// detail is the failure text appended to "could not be ..." status lines.
// DynamoDB's own message wins over ours.
func detail(err error) string {
	var se *StoreError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if e.Cause != nil {
		return detail(e.Cause)
	}
	return e.Message
}
