package item

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when no item matches the given id.
var ErrNotFound = errors.New("item not found")

// ErrValidation is the sentinel every *ValidationError matches with errors.Is.
var ErrValidation = errors.New("validation failed")

// ErrStore is the sentinel every *StoreError matches with errors.Is.
var ErrStore = errors.New("store failure")

// Reason enumerates why a field was rejected.
type Reason string

const (
	ReasonRequired Reason = "required"
	ReasonInvalid  Reason = "invalid"
)

// Violation describes one rejected field.
type Violation struct {
	Field   string `json:"field"`
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

// ValidationError lists every violation found in a payload.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	if len(msgs) == 0 {
		return ErrValidation.Error()
	}
	return strings.Join(msgs, "; ")
}

// Is makes errors.Is(err, ErrValidation) true.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a single-violation error.
func Invalid(field string, reason Reason, message string) *ValidationError {
	return &ValidationError{Violations: []Violation{{Field: field, Reason: reason, Message: message}}}
}

// StoreError wraps an unexpected failure of the document store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStore) true.
func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// WrapStore wraps err in a *StoreError unless it is nil or already
// classified as not-found, validation or store failure.
func WrapStore(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrStore) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
