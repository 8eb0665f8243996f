// Package apperr defines the error taxonomy shared by the store, the
// aggregation paths, and the HTTP handlers. Handlers translate the kind
// into an HTTP status; messages are written for end users.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport-level mapping.
type Kind int

const (
	// KindValidation is a missing or malformed required field (400).
	KindValidation Kind = iota + 1
	// KindNotFound is an absent session, submission, or config (404).
	KindNotFound
	// KindConflict is a duplicate identifier on insert (400).
	KindConflict
	// KindStorage is an unreachable store or failed query (500).
	KindStorage
	// KindUpstream is a failed or unconfigured third-party call (503).
	KindUpstream
)

// Error carries a kind, a user-facing message, and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation returns a validation error with a formatted message.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a not-found error with a formatted message.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict returns a conflict error with a formatted message.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Storage wraps a store failure.
func Storage(msg string, err error) *Error {
	return &Error{Kind: KindStorage, Message: msg, Err: err}
}

// Upstream wraps a third-party service failure.
func Upstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}

// KindOf reports the kind of err, or KindStorage for untyped errors so that
// unexpected failures surface as 500s rather than leaking details.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// MessageOf returns the user-facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
