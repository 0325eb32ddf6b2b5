// Package domainerrors defines the error taxonomy shared by all services.
// Services construct these, stores return sentinel errors that services wrap,
// and the HTTP layer translates codes to status codes in one place.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers and for HTTP translation.
type Code string

const (
	// CodeBadRequest covers malformed or invalid input. The caller's fault.
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized covers missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden covers authenticated callers lacking the required role.
	CodeForbidden Code = "forbidden"
	// CodeNotFound covers unknown elections, members, or status rows.
	CodeNotFound Code = "not_found"
	// CodeConflict covers double-vote and double-registration attempts.
	CodeConflict Code = "conflict"
	// CodeInvalidState covers operations that are illegal in the current
	// lifecycle state, such as casting outside the voting window or tallying
	// an election that has not closed.
	CodeInvalidState Code = "invalid_state"
	// CodePolicy covers operations refused on policy grounds, such as
	// resetting an electronically cast vote.
	CodePolicy Code = "policy_violation"
	// CodeIntegrity is reserved for data-integrity incidents that require
	// manual reconciliation. Never hidden from the audit trail.
	CodeIntegrity Code = "integrity"
	// CodeTimeout covers cancelled or deadline-exceeded operations.
	CodeTimeout Code = "timeout"
	// CodeInternal covers everything the caller cannot act on.
	CodeInternal Code = "internal_error"
)

// Error carries a Code alongside a human-readable message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// unclassified errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the human-readable message from err, if any.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

// ToHTTPStatus maps a code to the HTTP status the transport layer returns.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvalidState:
		return http.StatusConflict
	case CodePolicy:
		return http.StatusUnprocessableEntity
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
