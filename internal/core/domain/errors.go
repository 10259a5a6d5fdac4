package domain

import "errors"

var (
	ErrDuplicateUsername = errors.New("username already registered")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrUserNotFound      = errors.New("user not found")

	// ErrInvalidGrant covers every login and refresh failure. Callers must not
	// be able to tell an unknown user from a wrong password or a dead token.
	ErrInvalidGrant = errors.New("invalid grant")

	ErrUnauthenticated = errors.New("could not validate credentials")
	ErrAccountDisabled = errors.New("inactive user")
	ErrForbidden       = errors.New("not enough privileges")

	// ErrInvalidToken is the only error a token decode ever yields.
	ErrInvalidToken = errors.New("invalid token")
)
