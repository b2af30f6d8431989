// Package oauth implements the provider-facing half of the connect flow:
// state validation, pending-connect tracking and token exchanges.
package oauth

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// InvalidStateError reports a callback state value that cannot be used as a user id.
type InvalidStateError struct {
	Reason string
	State  string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state: %s", e.Reason)
}

// IsInvalidState reports whether err is, or wraps, an *InvalidStateError.
func IsInvalidState(err error) bool {
	var ise *InvalidStateError
	return errors.As(err, &ise)
}

// ValidateState checks that state is a canonical hyphenated UUID. The state
// carries the connecting user's id through the provider round trip.
func ValidateState(state string) error {
	_, err := ParseState(state)
	return err
}

// ParseState validates state and returns the user id in lowercase form, so
// an uppercase echo and a lowercase bearer subject name the same user.
func ParseState(state string) (string, error) {
	if state == "" {
		return "", &InvalidStateError{Reason: "missing"}
	}
	// uuid.Parse also accepts urn:uuid:, braced and unhyphenated forms.
	if len(state) != 36 {
		return "", &InvalidStateError{Reason: "malformed", State: state}
	}
	id, err := uuid.Parse(state)
	if err != nil {
		return "", &InvalidStateError{Reason: "malformed", State: state}
	}
	return id.String(), nil
}
