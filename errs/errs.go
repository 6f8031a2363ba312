// Package errs implements the engine's error taxonomy (spec §7): a small set
// of kinds with a documented recovery policy, each wrapping an underlying
// cause. Wrapping uses github.com/pkg/errors so a Cause() chain and a
// capture-site stack trace survive across the connection/dispatcher
// boundary, while remaining fully compatible with stdlib errors.Is/As via
// Unwrap.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one entry of the spec §7 taxonomy.
type Kind int

const (
	// Parse is a malformed HTTP head or body framing. Fatal for the
	// connection; on a server, if nothing has been written yet, the
	// caller may attempt to answer with 400 (see AsBadRequest).
	Parse Kind = iota
	// UserBody means the application body stream failed. Fatal for the
	// exchange only: H1 closes the connection, H2 resets the stream with
	// INTERNAL_ERROR.
	UserBody
	// IncompleteMessage is EOF before the body was fully framed.
	// Surfaced to the caller; the connection is closed.
	IncompleteMessage
	// Io is a transport-level error. Fatal for the connection.
	Io
	// Protocol is a remote H2 protocol violation: GOAWAY then close.
	Protocol
	// Canceled is a cancellation signal, surfaced to the application
	// future without a GOAWAY.
	Canceled
	// Shutdown means the connection is draining; new requests fail fast.
	Shutdown
)

func (k Kind) String() string {
	switch k {
	case Parse:
		return "parse"
	case UserBody:
		return "user_body"
	case IncompleteMessage:
		return "incomplete_message"
	case Io:
		return "io"
	case Protocol:
		return "protocol"
	case Canceled:
		return "canceled"
	case Shutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Error is a taxonomy-tagged error wrapping a cause.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// New wraps cause (capturing a stack trace via pkg/errors if cause does not
// already carry one) under kind.
func New(kind Kind, cause error) *Error {
	if cause == nil {
		cause = errors.New(kind.String())
	}
	if _, ok := cause.(interface{ StackTrace() errors.StackTrace }); !ok {
		cause = errors.WithStack(cause)
	}
	return &Error{Kind: kind, Cause: cause}
}

// Newf formats a message and wraps it under kind.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Cause: errors.Errorf(format, args...)}
}

// Is reports whether err (or anything it wraps) is a *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// AsBadRequest reports whether err is a Parse error that a server may
// convert into a literal 400 response instead of tearing down silently, per
// spec §7 "Propagation": a single bad request is recoverable if nothing has
// been written yet.
func AsBadRequest(err error) (status int, ok bool) {
	if Is(err, Parse) {
		return 400, true
	}
	return 0, false
}
