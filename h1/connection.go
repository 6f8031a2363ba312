/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package h1

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/hyperium/hyper-sub003/body"
	"github.com/hyperium/hyper-sub003/buffer"
	"github.com/hyperium/hyper-sub003/errs"
	"github.com/hyperium/hyper-sub003/headers"
	"github.com/hyperium/hyper-sub003/message"
	"github.com/hyperium/hyper-sub003/rt"
	"go.uber.org/zap"
)

// Role distinguishes which side of the exchange a Connection drives: a
// server reads requests first, a client writes them first (spec §4.E).
type Role int

const (
	RoleServer Role = iota
	RoleClient
)

// ReaderState is the reading half's state machine, spec §3.
type ReaderState int

const (
	ReaderInit ReaderState = iota
	ReaderContinue
	ReaderBody
	ReaderKeepAlive
	ReaderClosed
	ReaderUpgraded
)

// WriterState is the writing half's state machine, spec §3.
type WriterState int

const (
	WriterInit WriterState = iota
	WriterBody
	WriterKeepAlive
	WriterClosed
	WriterUpgraded
)

// initialBodyCredit is the starting grant on a request/response body pipe
// (spec §4.B); body.PipeBody.Next releases credit back as the consumer
// drains chunks, so this only bounds how far SendData can run ahead of a
// stalled consumer before blocking.
const initialBodyCredit = 64 << 10

// ConnOptions configures a Connection, the H1 slice of spec §6.5.
type ConnOptions struct {
	MaxBufferSize    int
	EncoderOptions   Options
	KeepAliveEnabled bool // default true, spec §6.5 "H1-keep-alive (on by default)"
	Logger           *zap.Logger
}

// Exchange is one parsed head handed from the reading half to whichever
// layer drives the connection (normally dispatch.ServeH1 /
// dispatch.H1Sender), paired with its body's consuming endpoint.
type Exchange struct {
	Head  *message.Head
	Body  *body.Pipe
	Flags ParsedFlags
}

// Connection owns a transport, both read/write buffers, the decoder/encoder
// pair, and the two half state machines (spec §4.E). Grounded on the
// teacher's conn.go + conn_reader.go, translated from its
// background-read-goroutine-plus-sync.Cond idiom into a dedicated read pump
// goroutine feeding a channel of parsed Exchanges, which lets request-body
// draining proceed on the wire concurrently with response writing (spec §4.G
// server step 3/4: "may start before the request body is fully read" /
// "Concurrently, pipe the request body...").
type Connection struct {
	transport rt.Transport
	ring      *buffer.Ring
	bw        *bufio.Writer
	decoder   *Decoder
	encoder   *Encoder
	role      Role
	opts      ConnOptions
	log       *zap.Logger

	incoming chan incomingResult

	mu           sync.Mutex
	readerState  ReaderState
	writerState  WriterState
	lastSent     string // last request method written (client) paired with next response parse
	activeDec    BodyDecoder
	activeFlags  ParsedFlags
	activePipe   *body.Pipe
	writerReady  chan struct{} // reader blocks on this before starting the next exchange
	keepAlivePolicy bool

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
	done      chan struct{}

	upgradeCh chan upgradeResult
}

type incomingResult struct {
	exch *Exchange
	err  error
}

type upgradeResult struct {
	rw  io.ReadWriteCloser
	buf []byte
	err error
}

// NewConnection constructs a Connection over transport for the given role.
func NewConnection(transport rt.Transport, role Role, opts ConnOptions) *Connection {
	if opts.MaxBufferSize <= 0 {
		opts.MaxBufferSize = 1 << 20
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	c := &Connection{
		transport:       transport,
		ring:            buffer.NewRing(4096, opts.MaxBufferSize),
		bw:              bufio.NewWriterSize(&flusher{transport}, 4096),
		decoder:         NewDecoder(role == RoleClient),
		encoder:         NewEncoder(opts.EncoderOptions),
		role:            role,
		opts:            opts,
		log:             log,
		incoming:        make(chan incomingResult, 1),
		writerReady:     make(chan struct{}, 1),
		done:            make(chan struct{}),
		keepAlivePolicy: opts.KeepAliveEnabled,
		upgradeCh:       make(chan upgradeResult, 1),
	}
	c.writerState = WriterKeepAlive
	if role == RoleClient {
		// Client reader starts idle until a request is written.
		c.readerState = ReaderKeepAlive
	}
	// The server reader starts in ReaderInit, so the first request is read
	// at once; each later request waits on writerReady, which EndWrite
	// signals once the previous response is complete.
	go c.readPump(context.Background())
	return c
}

// flusher adapts an rt.Transport's Write into an io.Writer for bufio, while
// Flush() explicitly calls through to the transport's own Flush so vectored/
// buffered transports still get a chance to coalesce writes.
type flusher struct{ t rt.Transport }

func (f *flusher) Write(p []byte) (int, error) { return f.t.Write(p) }

// Next blocks for the next parsed Exchange (spec §4.E "produce it to the
// dispatcher"). It returns io.EOF once the connection has closed and no
// further Exchange will be produced.
func (c *Connection) Next(ctx context.Context) (*Exchange, error) {
	select {
	case r, ok := <-c.incoming:
		if !ok {
			return nil, io.EOF
		}
		return r.exch, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, io.EOF
	}
}

// readPump is the single goroutine that owns transport reads, driving the
// reader half state machine of spec §4.E.
func (c *Connection) readPump(ctx context.Context) {
	defer close(c.incoming)
	for {
		if c.closed.Load() {
			return
		}
		state := c.getReaderState()
		switch state {
		case ReaderInit:
			head, framing, flags, err := c.parseNextHead(ctx)
			if err != nil {
				if errors.Is(err, io.EOF) {
					c.setReaderState(ReaderClosed)
					return
				}
				c.incoming <- incomingResult{err: err}
				c.setReaderState(ReaderClosed)
				c.failConn(err)
				return
			}
			// Initial credit bounds how far the read pump can run ahead of
			// a slow consumer before SendData blocks on Grant, independent
			// of the channel's own small capacity (spec §4.B credit model).
			pipe := body.NewPipe(4, initialBodyCredit)
			c.mu.Lock()
			c.activeDec = NewBodyDecoder(framing)
			c.activeFlags = flags
			c.activePipe = pipe
			c.mu.Unlock()
			c.setReaderState(ReaderBody)
			c.incoming <- incomingResult{exch: &Exchange{Head: head, Body: pipe, Flags: flags}}
		case ReaderBody:
			done, err := c.driveBody(ctx)
			if err != nil {
				c.setReaderState(ReaderClosed)
				c.failConn(err)
				return
			}
			if !done {
				continue
			}
			c.mu.Lock()
			flags := c.activeFlags
			c.mu.Unlock()
			if flags.Upgrade {
				c.setReaderState(ReaderUpgraded)
				c.deliverUpgrade(nil)
				return
			}
			if !flags.KeepAlive || !c.keepAlivePolicy {
				c.setReaderState(ReaderClosed)
				return
			}
			c.setReaderState(ReaderKeepAlive)
		case ReaderKeepAlive:
			// Invariant 1 (spec §3): the reader advances to the next
			// exchange only once the writer has finished the paired
			// one (server) — or, for the client, once the request for
			// the NEXT exchange has been fully written. EndWrite
			// signals writerReady in both cases, so waiting here on
			// writerReady is correct for both roles.
			select {
			case <-c.writerReady:
				c.setReaderState(ReaderInit)
			case <-ctx.Done():
				return
			}
		case ReaderClosed, ReaderUpgraded:
			return
		}
	}
}

func (c *Connection) driveBody(ctx context.Context) (done bool, err error) {
	c.mu.Lock()
	dec := c.activeDec
	pipe := c.activePipe
	c.mu.Unlock()

	done, err = dec.Feed(ctx, c.ring, false, pipe)
	if err != nil || done {
		return done, err
	}
	if readErr := c.fillFromTransport(); readErr != nil {
		if errors.Is(readErr, io.EOF) {
			done, err = dec.Feed(ctx, c.ring, true, pipe)
			return done, err
		}
		return false, errs.New(errs.Io, readErr)
	}
	return false, nil
}

// parseNextHead blocks, refilling the ring from the transport, until a full
// head is available or a terminal error/EOF occurs.
func (c *Connection) parseNextHead(ctx context.Context) (*message.Head, Framing, ParsedFlags, error) {
	for {
		head, framing, flags, err := c.decoder.TryParseHead(c.ring)
		if err == nil {
			return head, framing, flags, nil
		}
		if err != ErrNeedMore {
			return nil, Framing{}, ParsedFlags{}, err
		}
		if readErr := c.fillFromTransport(); readErr != nil {
			if errors.Is(readErr, io.EOF) && c.ring.Len() == 0 {
				return nil, Framing{}, ParsedFlags{}, io.EOF
			}
			return nil, Framing{}, ParsedFlags{}, errs.New(errs.Io, readErr)
		}
	}
}

func (c *Connection) fillFromTransport() error {
	buf, err := c.ring.Reserve(4096)
	if err != nil {
		return errs.New(errs.Parse, err)
	}
	n, err := c.transport.Read(buf)
	if n > 0 {
		c.ring.Commit(n)
	}
	if err != nil {
		return err
	}
	if n == 0 {
		return io.EOF
	}
	return nil
}

func (c *Connection) getReaderState() ReaderState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readerState
}

func (c *Connection) setReaderState(s ReaderState) {
	c.mu.Lock()
	c.readerState = s
	c.mu.Unlock()
}

func (c *Connection) failConn(err error) {
	c.closed.Store(true)
	c.closeErr = err
	c.closeOnce.Do(func() { close(c.done) })
	c.transport.Close()
}

// WriteHead begins writing an outgoing head (a response, server-side; a
// request, client-side), selecting the encoder kind from hint, per spec
// §4.D.
func (c *Connection) WriteHead(ctx context.Context, head *message.Head, hint BodyLengthHint, permitsBody bool) (kind EncoderKind, forceClose bool, err error) {
	kind, forceClose = c.encoder.SelectKind(hint, head.Proto, permitsBody)
	if head.Headers == nil {
		head.Headers = headers.New()
	}
	if err := c.encoder.WriteHead(c.bw, head, kind, hint.Exact, permitsBody); err != nil {
		return kind, forceClose, errs.New(errs.Io, err)
	}
	c.mu.Lock()
	c.writerState = WriterBody
	c.mu.Unlock()

	if c.role == RoleClient {
		if req, ok := head.Subject.(message.RequestSubject); ok {
			c.decoder.SetRequestMethod(req.Method)
		}
	}
	return kind, forceClose, nil
}

// WriteInformational writes a 1xx interim response (spec SUPPLEMENTED
// FEATURES: the 100-continue gate) without touching the writer half's state
// machine: RFC 7230 §3.2.2 lets a server send any number of 1xx responses
// before the final status line, and the client decoder already treats an
// informational head as non-terminal (ParsedFlags.Informational), so the
// reader side needs no special casing either.
func (c *Connection) WriteInformational(head *message.Head) error {
	if head.Headers == nil {
		head.Headers = headers.New()
	}
	if err := c.encoder.WriteHead(c.bw, head, EncodeEmpty, 0, false); err != nil {
		return errs.New(errs.Io, err)
	}
	if err := c.bw.Flush(); err != nil {
		return errs.New(errs.Io, err)
	}
	return nil
}

// WriteBodyChunk writes one body chunk using the framing selected by the
// preceding WriteHead.
func (c *Connection) WriteBodyChunk(kind EncoderKind, p []byte) error {
	_, err := c.encoder.WriteChunk(c.bw, kind, p)
	if err != nil {
		return errs.New(errs.Io, err)
	}
	return nil
}

// EndWrite finalizes the body (chunk terminator + trailers if any), flushes,
// and transitions the writer half to KeepAlive or Closed depending on
// negotiated keep-alive and the encoder kind (spec §3 invariant 2: a
// CloseDelimited body forces Closed).
func (c *Connection) EndWrite(kind EncoderKind, trailers *headers.Header, keepAlive bool) error {
	if err := c.encoder.WriteEnd(c.bw, kind, trailers); err != nil {
		return errs.New(errs.Io, err)
	}
	if err := c.bw.Flush(); err != nil {
		return errs.New(errs.Io, err)
	}
	if err := c.transport.Flush(); err != nil {
		return errs.New(errs.Io, err)
	}

	next := WriterKeepAlive
	if kind == EncodeCloseDelimited || !keepAlive || !c.keepAlivePolicy {
		next = WriterClosed
	}
	c.mu.Lock()
	c.writerState = next
	c.mu.Unlock()

	if next == WriterClosed {
		c.closed.Store(true)
		c.transport.Close()
		return nil
	}
	select {
	case c.writerReady <- struct{}{}:
	default:
	}
	return nil
}

// State returns the current reader/writer states, mostly for tests and
// metrics.
func (c *Connection) State() (ReaderState, WriterState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readerState, c.writerState
}

// Upgrade surrenders the transport plus any unconsumed buffered bytes to the
// caller, per spec §3 invariant 4. Valid only once the reader half has
// reached ReaderUpgraded.
func (c *Connection) Upgrade() (io.ReadWriteCloser, []byte, error) {
	r := <-c.upgradeCh
	return r.rw, r.buf, r.err
}

func (c *Connection) deliverUpgrade(err error) {
	leftover := make([]byte, c.ring.Len())
	copy(leftover, c.ring.Peek())
	c.upgradeCh <- upgradeResult{rw: &transportRWC{c.transport}, buf: leftover, err: err}
}

type transportRWC struct{ t rt.Transport }

func (t *transportRWC) Read(p []byte) (int, error)  { return t.t.Read(p) }
func (t *transportRWC) Write(p []byte) (int, error) { return t.t.Write(p) }
func (t *transportRWC) Close() error                { return t.t.Close() }

// Close tears down the connection immediately (spec §5 "Dropping the
// connection future closes the transport without a GOAWAY").
func (c *Connection) Close() error {
	c.closed.Store(true)
	c.closeOnce.Do(func() { close(c.done) })
	return c.transport.Close()
}

// Err returns the error that caused the connection to close, if any.
func (c *Connection) Err() error { return c.closeErr }
