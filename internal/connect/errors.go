package connect

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed refresh or authorize request.
type Kind string

// Error kinds surfaced to API callers
const (
	KindUnauthorized       Kind = "unauthorized"
	KindInvalidUser        Kind = "invalid_user"
	KindUnknownProvider    Kind = "unknown_provider"
	KindNotConfigured      Kind = "not_configured"
	KindConnectionNotFound Kind = "connection_not_found"
	KindNoRefreshToken     Kind = "no_refresh_token"
	KindExchangeFailed     Kind = "exchange_failed"
	KindInternal           Kind = "internal"
)

// Error is returned by the JSON-facing operations. Status is the HTTP status
// the response should carry.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var ce *Error
	ok := errors.As(err, &ce)
	return ce, ok
}

// ErrUnauthorized is the error for requests without a verified identity.
func ErrUnauthorized(err error) *Error {
	return &Error{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: "unauthorized", Err: err}
}

func newError(kind Kind, status int, message string, err error) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Err: err}
}
