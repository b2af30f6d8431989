package repository

import "errors"

// Common repository errors that can be tested for
var (
	ErrConnectionNotFound = errors.New("connection not found")
	ErrNoRefreshToken     = errors.New("no refresh token stored")
	ErrInvalidInput       = errors.New("invalid input")
	ErrStore              = errors.New("connection store failure")
)
