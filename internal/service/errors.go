package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the services matches exactly one
// of these with errors.Is.
var (
	ErrValidation  = errors.New("validation failed")
	ErrConflict    = errors.New("conflict")
	ErrNotFound    = errors.New("not found")
	ErrAuth        = errors.New("authentication failed")
	ErrPersistence = errors.New("persistence failure")
)

// Specific failures callers may want to match directly.
var (
	ErrEmailTaken         = newError(ErrConflict, "email is already registered", nil)
	ErrInvalidCredentials = newError(ErrAuth, "invalid email or password", nil)
	ErrTokenInvalid       = newError(ErrAuth, "session token is invalid", nil)
	ErrTokenExpired       = newError(ErrAuth, "session token has expired", nil)
	ErrOwnerNotFound      = newError(ErrNotFound, "owner user not found", nil)
	ErrMatchPostNotFound  = newError(ErrNotFound, "match post not found", nil)
)

// Error is a classified service failure. Its message is safe to show to
// clients, except for ErrPersistence errors whose cause stays internal.
type Error struct {
	kind error
	msg  string
	err  error
}

func newError(kind error, msg string, cause error) *Error {
	return &Error{kind: kind, msg: msg, err: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.err != nil {
		return []error{e.kind, e.err}
	}
	return []error{e.kind}
}

// Kind returns the kind sentinel.
func (e *Error) Kind() error {
	return e.kind
}

// Message returns the client-facing message without the cause.
func (e *Error) Message() string {
	return e.msg
}

func validationError(msg string, cause error) *Error {
	return newError(ErrValidation, msg, cause)
}

func persistenceError(op string, cause error) *Error {
	return newError(ErrPersistence, op, cause)
}
