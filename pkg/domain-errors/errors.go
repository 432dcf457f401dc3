// Package domainerrors provides coded errors for the compliance engine.
//
// Services return these so transport layers can map failures to stable,
// user-visible codes without string matching. Stores return sentinel errors
// (pkg/platform/sentinel); services translate them into coded errors here.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error classification.
type Code string

const (
	// CodeNotFound signals the entity does not exist in the caller's
	// cooperative scope. Cross-tenant lookups are indistinguishable from
	// missing entities on purpose.
	CodeNotFound Code = "not_found"

	// CodeInvalidState signals a lifecycle transition attempted from a
	// disallowed status (closing a closed case, rejecting a non-pending TTR).
	CodeInvalidState Code = "invalid_state"

	// CodeValidation signals malformed input data (bad import row, missing
	// required field).
	CodeValidation Code = "validation_error"

	// CodeInvalidInput signals a value that failed parsing at a trust
	// boundary (IDs, list types, enum values).
	CodeInvalidInput Code = "invalid_input"

	// CodeBadRequest signals a structurally invalid request.
	CodeBadRequest Code = "bad_request"

	// CodeConflict signals a uniqueness or concurrency conflict.
	CodeConflict Code = "conflict"

	// CodeUnauthorized signals a missing or unresolvable tenant scope.
	CodeUnauthorized Code = "unauthorized"

	// CodeInvariantViolation signals a domain invariant breach detected by
	// an aggregate. Usually translated to a more specific code by services.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeInternal signals an infrastructure failure. Descriptions are never
	// surfaced to callers.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error. Message is safe to show to callers except
// when Code is CodeInternal.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a coded error with the given message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is/As chains.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
