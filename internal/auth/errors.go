package auth

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password does not meet policy")
	ErrBackendUnavailable = errors.New("auth backend unavailable")
	ErrInvalidSession     = errors.New("invalid session")
)

// AuthError is returned by every Gateway operation. Message is the text shown
// to the user as is; Err is one of the sentinels above, possibly wrapping the cause.
type AuthError struct {
	Op      string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth %s: %s", e.Op, e.Message)
}

func (e *AuthError) Unwrap() error { return e.Err }

func authErr(op, msg string, err error) *AuthError {
	return &AuthError{Op: op, Message: msg, Err: err}
}

func backendErr(op string, cause error) *AuthError {
	return &AuthError{Op: op, Message: cause.Error(), Err: fmt.Errorf("%w: %w", ErrBackendUnavailable, cause)}
}
