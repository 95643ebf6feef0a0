package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by repositories when a record does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidStationCode is returned for anything that is not a 3-letter code
	ErrInvalidStationCode = errors.New("invalid station code")
)

// InputError is a user-correctable validation failure
type InputError struct {
	Field   string
	Message string
}

// NewInputError creates an InputError for field
func NewInputError(field, message string) *InputError {
	return &InputError{Field: field, Message: message}
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsInputError reports whether err wraps an InputError
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
