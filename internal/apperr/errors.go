// Package apperr defines the error kinds surfaced by the engine.
package apperr

import (
	"errors"
	"fmt"
)

// Kind categorizes engine errors.
type Kind int

const (
	// KindInternal is an unexpected infrastructure failure.
	KindInternal Kind = iota
	// KindValidation indicates malformed or missing input.
	KindValidation
	// KindNotFound indicates a referenced entity does not exist.
	KindNotFound
	// KindInvalidStateTransition indicates a purchase order is not in the required state.
	KindInvalidStateTransition
	// KindInsufficientStock indicates a deduction would make a quantity negative.
	KindInsufficientStock
	// KindConflict indicates a lost race that survived the bounded retries.
	KindConflict
	// KindUnauthorized indicates the actor's role lacks the capability.
	KindUnauthorized
)

var kindNames = map[Kind]string{
	KindInternal:               "INTERNAL",
	KindValidation:             "VALIDATION_ERROR",
	KindNotFound:               "NOT_FOUND",
	KindInvalidStateTransition: "INVALID_STATE_TRANSITION",
	KindInsufficientStock:      "INSUFFICIENT_STOCK",
	KindConflict:               "CONFLICT",
	KindUnauthorized:           "UNAUTHORIZED",
}

// String returns the machine-readable kind name.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindInternal]
}

// Error carries a kind, a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so errors.Is(err, apperr.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation             = &Error{Kind: KindValidation}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrInvalidStateTransition = &Error{Kind: KindInvalidStateTransition}
	ErrInsufficientStock      = &Error{Kind: KindInsufficientStock}
	ErrConflict               = &Error{Kind: KindConflict}
	ErrUnauthorized           = &Error{Kind: KindUnauthorized}
)

func newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error { return newf(KindValidation, format, args...) }
func NotFound(format string, args ...any) *Error   { return newf(KindNotFound, format, args...) }
func InvalidState(format string, args ...any) *Error {
	return newf(KindInvalidStateTransition, format, args...)
}
func InsufficientStock(format string, args ...any) *Error {
	return newf(KindInsufficientStock, format, args...)
}
func Unauthorized(format string, args ...any) *Error { return newf(KindUnauthorized, format, args...) }

// Conflict wraps the last conflicting cause after retries were exhausted.
func Conflict(cause error, format string, args ...any) *Error {
	e := newf(KindConflict, format, args...)
	e.Cause = cause
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the user-facing message of the first *Error in err's chain.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
