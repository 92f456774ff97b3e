// Package core defines the error-kind vocabulary shared by every layer of
// the on-call core: domain, application, and ingress all speak in terms of
// *core.Error rather than raising transport-typed exceptions, so the HTTP
// boundary is the only place a kind is ever translated to a status code.
package core

import (
	"errors"
	"fmt"
)

// Kind is the closed set of error categories the core can produce.
type Kind string

const (
	// KindBadRequest covers malformed input and temporal-policy violations.
	KindBadRequest Kind = "bad_request"
	// KindUnauthorized covers both login-required and permission-denied outcomes.
	KindUnauthorized Kind = "unauthorized"
	// KindNotFound covers missing ids or (team, name) lookups.
	KindNotFound Kind = "not_found"
	// KindConflict covers FK resolution failures and unique constraint violations.
	KindConflict Kind = "conflict"
	// KindUpstreamFailure covers failed calls to external identity/messenger systems.
	KindUpstreamFailure Kind = "upstream_failure"
	// KindInternal covers everything unexpected.
	KindInternal Kind = "internal"
)

// Error is the result variant returned by every core operation that can fail.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind around an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// BadRequest constructs a KindBadRequest error.
func BadRequest(format string, args ...any) *Error {
	return New(KindBadRequest, fmt.Sprintf(format, args...))
}

// Unauthorized constructs a KindUnauthorized error.
func Unauthorized(format string, args ...any) *Error {
	return New(KindUnauthorized, fmt.Sprintf(format, args...))
}

// NotFound constructs a KindNotFound error.
func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

// Conflict constructs a KindConflict error.
func Conflict(format string, args ...any) *Error {
	return New(KindConflict, fmt.Sprintf(format, args...))
}

// Upstream constructs a KindUpstreamFailure error.
func Upstream(cause error, format string, args ...any) *Error {
	return Wrap(KindUpstreamFailure, fmt.Sprintf(format, args...), cause)
}

// Internal constructs a KindInternal error.
func Internal(cause error, format string, args ...any) *Error {
	return Wrap(KindInternal, fmt.Sprintf(format, args...), cause)
}

// As extracts a *Error from err, if present.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err, defaulting to KindInternal if err is not a *Error.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}
