package service

import "errors"

// Error kinds translated to HTTP status codes by the handler package.
var (
	ErrNotFound        = errors.New("not found")
	ErrBadRequest      = errors.New("bad request")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrEmailTaken      = errors.New("email is already taken")
	ErrTooManyAttempts = errors.New("too many login attempts")
)
