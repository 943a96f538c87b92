package model

import "errors"

// Kind classifies an Error for the caller.
type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindStore      Kind = "store"
)

// Error is a domain failure with a message that is safe to show callers.
// Err carries the internal cause, if any, and is never rendered to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the bare sentinel for e's kind, so that
// errors.Is(err, ErrNotFound) holds for every not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Message != "" || t.Err != nil {
		return false
	}
	return e.Kind == t.Kind
}

// Kind sentinels, for use with errors.Is.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrAuth       = &Error{Kind: KindAuth}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrStore      = &Error{Kind: KindStore}
)

var (
	ErrUserNotFound       = NotFound("user not found")
	ErrEventNotFound      = NotFound("event not found")
	ErrEmailTaken         = Validation("email is already registered")
	ErrAlreadyJoined      = Conflict("already joined this event")
	ErrInvalidCredentials = Unauthorized("invalid email or password")
	ErrMissingToken       = Unauthorized("missing auth token")
	ErrInvalidToken       = Unauthorized("invalid or expired auth token")
)

func Validation(msg string) *Error   { return &Error{Kind: KindValidation, Message: msg} }
func Unauthorized(msg string) *Error { return &Error{Kind: KindAuth, Message: msg} }
func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }

// WrapStore passes domain errors through and classifies anything else as a
// store failure with a generic message.
func WrapStore(err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: KindStore, Message: "internal error", Err: err}
}

// KindOf returns the kind of err, or KindStore for unclassified errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindStore
}

// MessageOf returns the caller-safe message for err.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Kind != KindStore && de.Message != "" {
		return de.Message
	}
	return "internal error"
}
