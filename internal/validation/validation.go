// Package validation provides structured validation error handling
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error represents a validation error with field-specific details
type Error struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors represents multiple validation errors
type Errors []Error

// Error implements the error interface
func (ve Errors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}

	var messages []string
	for _, err := range ve {
		if err.Field != "" {
			messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
		} else {
			messages = append(messages, err.Message)
		}
	}

	return strings.Join(messages, "; ")
}

// Add adds a validation error
func (ve *Errors) Add(field, message string) {
	*ve = append(*ve, Error{Field: field, Message: message})
}

// HasErrors returns true if there are validation errors
func (ve Errors) HasErrors() bool {
	return len(ve) > 0
}

// FieldNamer maps a Go struct field name, as it appears in a tag parameter,
// to the name shown in messages.
type FieldNamer func(field string) string

// FromValidator converts go-playground validator failures into Errors. Other
// errors are returned unchanged. A nil namer leaves field references as is.
func FromValidator(err error, namer FieldNamer) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	var out Errors
	for _, fe := range fieldErrs {
		out.Add(fe.Field(), describe(fe, namer))
	}
	return out
}

func describe(fe validator.FieldError, namer FieldNamer) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		other := fe.Param()
		if namer != nil {
			other = namer(other)
		}
		return fmt.Sprintf("is required when %s is not set", other)
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fmt.Sprint(fe.Value()))
	case "url":
		return "must be a valid URL"
	case "startswith":
		return fmt.Sprintf("must start with %q", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
