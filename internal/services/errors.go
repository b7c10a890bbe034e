package services

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by UserService wraps one of them, or is an
// unexpected infrastructure failure.
var (
	ErrValidation     = errors.New("validation failed")
	ErrAuthentication = errors.New("authentication failed")
)

var (
	ErrMissingFields   = fmt.Errorf("%w: missing required fields", ErrValidation)
	ErrEmailTaken      = fmt.Errorf("%w: email already registered", ErrAuthentication)
	ErrUnknownEmail    = fmt.Errorf("%w: no user with that email", ErrAuthentication)
	ErrWrongPassword   = fmt.Errorf("%w: password does not match", ErrAuthentication)
	ErrUnauthenticated = fmt.Errorf("%w: no valid session", ErrAuthentication)
	ErrUserNotFound    = fmt.Errorf("%w: user not found", ErrAuthentication)
)
