package h2

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hyperium/hyper-sub003/body"
	"github.com/hyperium/hyper-sub003/message"
)

// StreamState is a stream's position in the RFC 7540 §5.1 state machine,
// collapsed to the subset this engine actually distinguishes (reserved
// states are unreachable since push is always refused, spec §4.F).
type StreamState int

const (
	StreamIdle StreamState = iota
	StreamOpen
	StreamHalfClosedLocal
	StreamHalfClosedRemote
	StreamClosed
)

// Stream is one HTTP/2 stream multiplexed over a Connection's transport.
// Grounded on packetd-packetd's protocol/phttp2 per-stream bookkeeping,
// translated from that package's explicit poll state to Go's blocking
// body.Pipe.
type Stream struct {
	id   uint32
	conn *Connection

	mu    sync.Mutex
	state StreamState

	sendWindow *window
	recvWindow *window
	recvCredit *recvCredit

	headerBlock []byte // accumulates across CONTINUATION frames
	head        *message.Head

	// refused marks a server stream admitted into the stream table only so
	// its HEADERS block can be decoded for HPACK sync, then answered with
	// RST_STREAM(REFUSED_STREAM) instead of delivered to Accept (spec §4.F
	// admission control / §8 scenario 5).
	refused bool

	inbound  *body.Pipe
	outbound *body.Pipe

	endStreamSent atomic.Bool
	rstSent       atomic.Bool
	rstReceived   atomic.Bool

	// headReady closes once the first HEADERS block (request or response)
	// has been fully decoded, letting WaitHead block until then.
	headReady chan struct{}
}

// WaitHead blocks until the stream's head (request head on a server-accepted
// stream, response head on a client-opened stream) is available. If ctx is
// canceled first, the stream is reset with RST_STREAM(CANCEL) per spec §4.G:
// dropping a response future before the head arrives cancels the in-flight
// request rather than leaving the stream dangling.
func (s *Stream) WaitHead(ctx context.Context) (*message.Head, error) {
	select {
	case <-s.headReady:
		return s.Head(), nil
	case <-ctx.Done():
		s.Cancel()
		return nil, ctx.Err()
	}
}

// Cancel resets the stream with RST_STREAM(CANCEL), the H2 half of spec
// §4.G's drop-before-response-arrives contract.
func (s *Stream) Cancel() {
	s.conn.resetStream(s, ErrCancel)
}

func newStream(id uint32, c *Connection, initialSendWindow, initialRecvWindow uint32) *Stream {
	return &Stream{
		id:         id,
		conn:       c,
		state:      StreamIdle,
		sendWindow: newWindow(int32(initialSendWindow)),
		recvWindow: newWindow(int32(initialRecvWindow)),
		recvCredit: newRecvCredit(int32(initialRecvWindow)),
		// Initial credit on these pipes (spec §4.B) is independent of the
		// RFC 7540 wire-level flow-control windows above: it bounds how far
		// the DATA-frame read loop / pumpOutbound can run ahead of a slow
		// consumer, which grants credit back as it drains (body.PipeBody.Next,
		// pumpOutbound).
		inbound:  body.NewPipe(16, initialBodyCredit),
		outbound: body.NewPipe(16, initialBodyCredit),
	}
}

const initialBodyCredit = 64 << 10

func (s *Stream) setState(st StreamState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// State returns the stream's current RFC 7540 §5.1 state.
func (s *Stream) State() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID returns the stream identifier.
func (s *Stream) ID() uint32 { return s.id }

// Inbound is the pipe the engine writes received DATA frames into; the
// dispatcher reads the request or response body from it.
func (s *Stream) Inbound() *body.Pipe { return s.inbound }

// Outbound is the pipe the application writes its outgoing body into; the
// engine drains it and frames DATA/WINDOW_UPDATE-gated writes.
func (s *Stream) Outbound() *body.Pipe { return s.outbound }

// Head returns the decoded request or response head once HEADERS (plus any
// CONTINUATION) has been fully reassembled.
func (s *Stream) Head() *message.Head {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head
}

func (s *Stream) closeBoth(err error) {
	s.setState(StreamClosed)
	s.inbound.End(err)
	s.sendWindow.close()
	s.recvWindow.close()
}

// isClosed reports whether both halves have reached a terminal state such
// that the stream entry may be reaped from the connection's stream map.
func (s *Stream) isClosed() bool {
	return s.State() == StreamClosed
}

func advanceOnEndStreamRecv(s *Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StreamOpen:
		s.state = StreamHalfClosedRemote
	case StreamHalfClosedLocal:
		s.state = StreamClosed
	}
}

func advanceOnEndStreamSent(s *Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StreamOpen:
		s.state = StreamHalfClosedLocal
	case StreamHalfClosedRemote:
		s.state = StreamClosed
	}
}
