// Package apperr defines the error kinds both endpoints surface to callers
// and their mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error by who can correct it.
type Kind int

const (
	// Internal is an unexpected failure (transport errors, decode errors).
	Internal Kind = iota
	// InvalidInput is client-correctable: missing or malformed fields,
	// unknown action, method/action mismatch.
	InvalidInput
	// MethodNotAllowed is returned for HTTP methods an endpoint never accepts.
	MethodNotAllowed
	// Config means a server-side secret is missing.
	Config
	// Upstream means the completion service rejected or failed the call.
	Upstream
	// Server means a store operation failed.
	Server
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case MethodNotAllowed:
		return "method_not_allowed"
	case Config:
		return "config_error"
	case Upstream:
		return "upstream_error"
	case Server:
		return "server_error"
	default:
		return "internal_error"
	}
}

// Error is the caller-facing error. Message is safe to show; Details is an
// optional diagnostic string; Err is the wrapped cause and is never written
// to a response.
type Error struct {
	Kind    Kind
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an Error without a cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap returns an Error carrying cause as its wrapped error.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// WithDetails returns a copy of e with Details set.
func (e *Error) WithDetails(details string) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// KindOf returns the Kind of err, or Internal if err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// Status maps err to the HTTP status code it should be answered with.
func Status(err error) int {
	switch KindOf(err) {
	case InvalidInput:
		return http.StatusBadRequest
	case MethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}
