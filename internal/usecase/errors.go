package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrNotOwner              = errors.New("resource belongs to another user")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
