package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is a sentinel for ownership violations.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)
