package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure of a booking-engine operation.  Handlers map
// each kind to one HTTP status.
type ErrorKind string

const (
	KindValidation ErrorKind = "VALIDATION"
	KindConflict   ErrorKind = "CONFLICT"
	KindNotFound   ErrorKind = "NOT_FOUND"
	KindState      ErrorKind = "STATE"
	KindFare       ErrorKind = "FARE"
)

// Error is a classified domain error.  Err optionally carries the cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError reports a missing or malformed input.
func NewValidationError(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

// NewConflictError reports a duplicate or overlapping reservation.
func NewConflictError(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

// NewNotFoundError reports a missing flight, seat, booking or user.
func NewNotFoundError(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

// NewStateError reports an operation that the current state forbids, such as
// taking a seat that another booking already holds.
func NewStateError(format string, args ...any) *Error {
	return newError(KindState, format, args...)
}

// NewFareError reports a special-fare eligibility violation.
func NewFareError(format string, args ...any) *Error {
	return newError(KindFare, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
