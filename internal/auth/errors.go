package auth

import "errors"

// Authentication and authorization errors
var (
	ErrMissingBearer = errors.New("missing or malformed bearer token")
	ErrTokenExpired  = errors.New("token has expired")
	ErrInvalidToken  = errors.New("invalid token")
)
