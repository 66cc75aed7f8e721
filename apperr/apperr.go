// Package apperr defines the error taxonomy shared by every layer of the
// terminal gateway. Each failure carries a Kind that decides how the HTTP
// layer surfaces it and a stable Code the UI can switch on.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	// KindValidation is bad user input; the input is kept for correction.
	KindValidation
	// KindBusinessRule is valid input that the current state refuses.
	KindBusinessRule
	// KindTransport is a network or upstream API failure. Never retried.
	KindTransport
	KindNotFound
	// KindConflict is a second attempt while the same operation is in flight.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindBusinessRule:
		return "business_rule"
	case KindTransport:
		return "transport"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is the concrete error type. Two errors are equal under errors.Is when
// their codes match, so sentinels survive fmt.Errorf("%w") wrapping and
// re-creation with a different message.
type Error struct {
	Kind    Kind
	Code    string
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

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Wrap attaches a kind and code to an underlying cause.
func Wrap(kind Kind, code, msg string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Err: err}
}

func Validation(code, msg string) *Error   { return New(KindValidation, code, msg) }
func BusinessRule(code, msg string) *Error { return New(KindBusinessRule, code, msg) }
func NotFound(code, msg string) *Error     { return New(KindNotFound, code, msg) }

func Transport(msg string, err error) *Error {
	return Wrap(KindTransport, CodeTransport, msg, err)
}

const CodeTransport = "upstream_unavailable"

// ErrDrawerClosed is raised when the upstream refuses a sale because no
// drawer session is open. Callers send the user to the drawer-open screen
// instead of retrying.
var ErrDrawerClosed = BusinessRule("drawer_closed", "cash drawer is closed, open it before selling")

// ErrInFlight is returned when the same terminal already has the operation
// outstanding.
var ErrInFlight = New(KindConflict, "operation_in_flight", "operation already in progress")

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf classifies err. Errors outside the taxonomy are KindInternal.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the taxonomy code of err, or "internal".
func CodeOf(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return "internal"
}
