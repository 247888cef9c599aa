package services

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is returned when a bearer token does not resolve to a user.
var ErrUnauthenticated = errors.New("unauthenticated")

// ValidationError aggregates per-field validation failures. All rules for a
// request are evaluated before it is returned, so a single response names
// every offending field.
type ValidationError struct {
	fields   []string            // insertion order, for a stable summary message
	messages map[string][]string // field -> messages
}

// NewValidationError creates an empty ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{
		messages: make(map[string][]string),
	}
}

// Add appends a message for a field.
func (e *ValidationError) Add(field, message string) {
	if _, ok := e.messages[field]; !ok {
		e.fields = append(e.fields, field)
	}
	e.messages[field] = append(e.messages[field], message)
}

// HasErrors reports whether any failure was recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.messages) > 0
}

// Errors returns the field -> messages map for the response body.
func (e *ValidationError) Errors() map[string][]string {
	return e.messages
}

// Message returns the response summary: the first recorded message, with a
// count of the remaining failures when there is more than one.
func (e *ValidationError) Message() string {
	if len(e.fields) == 0 {
		return ""
	}
	first := e.messages[e.fields[0]][0]

	total := 0
	for _, msgs := range e.messages {
		total += len(msgs)
	}
	switch rest := total - 1; {
	case rest == 1:
		return fmt.Sprintf("%s (and 1 more error)", first)
	case rest > 1:
		return fmt.Sprintf("%s (and %d more errors)", first, rest)
	default:
		return first
	}
}

func (e *ValidationError) Error() string {
	return e.Message()
}
