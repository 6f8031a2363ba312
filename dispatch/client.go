package dispatch

import (
	"context"

	"github.com/hyperium/hyper-sub003/body"
	"github.com/hyperium/hyper-sub003/h1"
	"github.com/hyperium/hyper-sub003/h2"
	"github.com/hyperium/hyper-sub003/internal/tracehooks"
	"github.com/hyperium/hyper-sub003/metrics"
)

// Sender issues one request over an already-established connection and
// returns its response, spec §5's client-side half of Service: "a
// connection... offers... to send requests one at a time (H1) or
// concurrently (H2)".
type Sender interface {
	Send(ctx context.Context, req *Message) (*Message, error)
}

// H1Sender drives a single client-role h1.Connection. H1 carries one
// request at a time, so callers issue one Send at a time: Send does not
// serialize concurrent callers itself, and it returns once the response
// head is parsed, without waiting for an earlier response body to be read.
type H1Sender struct {
	Conn    *h1.Connection
	Metrics *metrics.Registry // optional; nil disables metrics updates
}

// Send implements Sender. A failure to even write the request head hands
// req back to the caller via TrySendError, since nothing has been
// consumed yet.
func (s *H1Sender) Send(ctx context.Context, req *Message) (*Message, error) {
	hooks := tracehooks.From(ctx)
	id := tracehooks.NewID()
	if hooks.OnRequestHead != nil {
		hooks.OnRequestHead(id)
	}

	hint := bodyHint(req.Body)
	kind, _, err := s.Conn.WriteHead(ctx, req.Head, hint, true)
	if err != nil {
		return nil, &TrySendError[*Message]{Msg: req, Err: err}
	}
	if req.Body != nil {
		for {
			chunk, err := req.Body.Next(ctx)
			if err != nil {
				s.Conn.Close()
				return nil, err
			}
			if chunk == nil {
				break
			}
			if err := s.Conn.WriteBodyChunk(kind, chunk); err != nil {
				s.Conn.Close()
				return nil, err
			}
		}
	}
	var tr *headerSet
	if req.Body != nil {
		tr = trailersOf(req.Body.Trailers(ctx))
	}
	keepAlive := wantsKeepAlive(true, req.Head)
	if err := s.Conn.EndWrite(kind, tr.toHeaders(), keepAlive); err != nil {
		s.Conn.Close()
		return nil, err
	}

	exch, err := s.Conn.Next(ctx)
	if err != nil {
		// spec §4.G: a response-sender dropped (here, ctx canceled) before
		// the response arrives cancels the in-flight request; H1 does this
		// by closing the connection rather than leaving it half-read.
		s.Conn.Close()
		return nil, err
	}
	if s.Metrics != nil {
		s.Metrics.H1ExchangesTotal.WithLabelValues("client").Inc()
	}
	if hooks.OnResponseHead != nil {
		hooks.OnResponseHead(id, exch.Head.Status().Code)
	}
	return &Message{Head: exch.Head, Body: &body.PipeBody{P: exch.Body}}, nil
}

// H2Sender drives a client-role h2.Connection. Unlike H1Sender, Send may be
// called concurrently from multiple goroutines: each call opens its own
// stream, so requests are genuinely multiplexed (spec §4.F).
type H2Sender struct {
	Conn      *h2.Connection
	Authority string
	Scheme    string
	Metrics   *metrics.Registry // optional; nil disables metrics updates
}

// Send implements Sender by opening a new H2 stream per call.
func (s *H2Sender) Send(ctx context.Context, req *Message) (*Message, error) {
	endStream := req.Body == nil
	stream, err := s.Conn.OpenStream(req.Head, s.Authority, s.Scheme, endStream)
	if err != nil {
		return nil, &TrySendError[*Message]{Msg: req, Err: err}
	}

	hooks := tracehooks.From(ctx)
	id := tracehooks.NewID()
	if hooks.OnStreamOpen != nil {
		hooks.OnStreamOpen(id, stream.ID())
	}
	if s.Metrics != nil {
		s.Metrics.H2ActiveStreams.Inc()
		s.Metrics.H2ConnWindow.Set(float64(s.Conn.SendWindow()))
	}

	if req.Body != nil {
		go func() {
			for {
				chunk, err := req.Body.Next(ctx)
				if err != nil || chunk == nil {
					break
				}
				if err := stream.Outbound().SendData(ctx, chunk); err != nil {
					return
				}
			}
			if tr := trailersOf(req.Body.Trailers(ctx)); tr != nil {
				_ = stream.Outbound().SendTrailers(tr.h)
			}
			stream.Outbound().End(nil)
		}()
	}
	head, err := stream.WaitHead(ctx)
	if s.Metrics != nil {
		s.Metrics.H2ActiveStreams.Dec()
		s.Metrics.H2ConnWindow.Set(float64(s.Conn.SendWindow()))
	}
	if err != nil {
		if hooks.OnStreamClosed != nil {
			hooks.OnStreamClosed(id, stream.ID(), err)
		}
		return nil, err
	}
	if hooks.OnStreamClosed != nil {
		hooks.OnStreamClosed(id, stream.ID(), nil)
	}
	return &Message{Head: head, Body: h2.StreamBody(stream)}, nil
}
