// Package domainerrors provides the closed error taxonomy used across
// services. Call sites attach a Code when constructing or wrapping an error
// and branch on HasCode rather than on message text or numeric wire codes.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for propagation and HTTP mapping.
type Code string

const (
	// CodeValidation marks malformed caller input. Never reaches external systems.
	CodeValidation Code = "validation"
	// CodeBadRequest marks a structurally invalid request (missing fields, bad JSON).
	CodeBadRequest Code = "bad_request"
	// CodeNotFound marks an absent session, binding, or registry result.
	CodeNotFound Code = "not_found"
	// CodeConflict marks an operation rejected because of concurrent state.
	CodeConflict Code = "conflict"
	// CodeExpired marks a session past its TTL.
	CodeExpired Code = "expired"
	// CodeInvalidState marks an operation invalid for the current session state.
	CodeInvalidState Code = "invalid_state"
	// CodeUnauthorized marks a missing, malformed, or unresolvable access token.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an authenticated but disallowed operation.
	CodeForbidden Code = "forbidden"
	// CodeTimeout marks an external call that exceeded its deadline.
	CodeTimeout Code = "timeout"
	// CodeUnavailable marks an external dependency failure (registry, signer).
	CodeUnavailable Code = "unavailable"
	// CodeInternal marks persistence faults and unexpected failures.
	CodeInternal Code = "internal"
	// CodeInvariantViolation marks a domain constructor rejecting inconsistent state.
	CodeInvariantViolation Code = "invariant_violation"
)

// Error is a domain error carrying a Code and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New constructs a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is/As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost domain error in the chain, or
// CodeInternal when the error is not a domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
