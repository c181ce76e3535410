// Package apperror classifies the failures public operations can return, so
// callers can tell caller mistakes, guard violations and store outages apart
// without string matching.
package apperror

import (
	"errors"
	"fmt"
)

// Kind discriminates failure classes.
type Kind int

const (
	// KindValidation — malformed or out-of-range caller input. Never retried.
	KindValidation Kind = iota + 1
	// KindInvalidStateTransition — the expense is not in the status the
	// requested transition requires. A business-rule failure, not a fault.
	KindInvalidStateTransition
	// KindNotFound — the entity id does not exist.
	KindNotFound
	// KindStoreUnavailable — connectivity/auth/timeout against the store.
	// Read paths recover from this with fallback data.
	KindStoreUnavailable
	// KindAssistant — a fault inside the chat function-calling loop.
	KindAssistant
)

// Error carries a failure class alongside a caller-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with fmt.Sprintf formatting.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from an error chain; zero when unclassified.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}

func IsValidation(err error) bool             { return KindOf(err) == KindValidation }
func IsInvalidStateTransition(err error) bool { return KindOf(err) == KindInvalidStateTransition }
func IsNotFound(err error) bool               { return KindOf(err) == KindNotFound }
func IsStoreUnavailable(err error) bool       { return KindOf(err) == KindStoreUnavailable }
func IsAssistant(err error) bool              { return KindOf(err) == KindAssistant }
