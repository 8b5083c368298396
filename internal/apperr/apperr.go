// Package apperr defines the gateway's error taxonomy and its mapping to
// HTTP status codes. Every failure that crosses the API boundary is tagged
// with one of these codes so handlers and the audit trail classify outcomes
// the same way.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a request outcome.
type Code string

const (
	CodeAuth               Code = "auth_error"
	CodeAccessDenied       Code = "access_denied"
	CodeNotFound           Code = "not_found"
	CodeDecode             Code = "decode_error"
	CodeUpstream           Code = "upstream_error"
	CodeRotationInProgress Code = "rotation_in_progress"
	CodeInvalidInput       Code = "invalid_input"
	CodeInternal           Code = "internal"
)

// Error carries a code alongside a message and an optional cause.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Msg: msg, Err: err}
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HTTPStatus maps a code to its response status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeAuth:
		return http.StatusUnauthorized
	case CodeAccessDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDecode:
		return http.StatusUnprocessableEntity
	case CodeUpstream:
		return http.StatusBadGateway
	case CodeRotationInProgress:
		return http.StatusConflict
	case CodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
