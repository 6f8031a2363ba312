// Package dispatch couples an h1.Connection or h2.Connection to application
// code through a small Service abstraction (spec §4.G, §5), the same role
// the teacher's server_handler.go plays for net/http's Handler: it owns the
// request/response pumping loop so neither the wire codec nor the
// application needs to know about the other's goroutine structure.
package dispatch

import (
	"context"

	"github.com/hyperium/hyper-sub003/body"
	"github.com/hyperium/hyper-sub003/message"
)

// Message pairs a message.Head with its body, the dispatcher-level
// request/response value Service.Call exchanges (spec §3's
// "Request"/"Response" are this shape specialized to subject kind).
type Message struct {
	Head *message.Head
	Body body.Body
}

// Service is the application-facing contract a dispatcher drives (spec §5
// "Service"). Ready reports whether the service can currently accept a call,
// letting a client-side dispatcher apply backpressure before a request is
// even framed (spec §5 "poll_ready gates send_request").
type Service interface {
	Ready(ctx context.Context) error
	Call(ctx context.Context, req *Message) (*Message, error)
}

// ServiceFunc adapts a plain function to a Service whose Ready always
// succeeds, for handlers with no admission control of their own.
type ServiceFunc func(ctx context.Context, req *Message) (*Message, error)

func (f ServiceFunc) Ready(ctx context.Context) error { return nil }
func (f ServiceFunc) Call(ctx context.Context, req *Message) (*Message, error) {
	return f(ctx, req)
}

// TrySendError reports that a value of type T could not be handed to the
// dispatcher, returning the value itself alongside the cause so the caller
// doesn't lose ownership of work it already built (spec §5 "a failed send
// hands the request back to the caller instead of dropping it"). Grounded
// on the same shape as Rust's hyper::client::conn::TrySendError<T>, which
// this system's client dispatcher directly answers to.
type TrySendError[T any] struct {
	Msg T
	Err error
}

func (e *TrySendError[T]) Error() string { return e.Err.Error() }
func (e *TrySendError[T]) Unwrap() error { return e.Err }

// IntoMessage returns the value that failed to send.
func (e *TrySendError[T]) IntoMessage() T { return e.Msg }
