// Package errs defines the error taxonomy shared by the task pipeline.
//
// Errors carry a Kind so transport layers can map failures to status
// codes without string matching. Wrap with fmt.Errorf("...: %w", err)
// as usual; Kind survives the wrapping via errors.As.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for status mapping.
type Kind string

const (
	KindNotFound     Kind = "not_found"     // entity missing
	KindConflict     Kind = "conflict"      // invalid state for the operation
	KindPrecondition Kind = "precondition"  // caller-supplied data incomplete
	KindConfig       Kind = "configuration" // provider/config unusable
	KindProvider     Kind = "provider"      // upstream AI provider failure
)

// Error is a classified error.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Kind returns the error's classification.
func (e *Error) Kind() Kind { return e.kind }

// New creates a classified error with a plain message.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error with a message prefix.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{kind: kind, msg: msg, err: err}
}

// KindOf extracts the classification from err, following wrap chains.
// Unclassified errors report the empty Kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return ""
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
