/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package body implements the back-pressured body channel spec §4.B
// describes: a bounded, multi-producer/single-consumer stream of byte chunks
// plus an out-of-band trailers slot and end-of-stream marker. Grounded on
// the teacher's body type (types_transfer.go), generalized from a
// single-goroutine blocking io.Reader into a cross-goroutine channel because
// the spec requires explicit, credit-based backpressure rather than relying
// on the OS socket buffer the way a single blocking Read naturally does.
package body

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/hyperium/hyper-sub003/buffer"
	"github.com/hyperium/hyper-sub003/headers"
)

// ErrReceiverGone is returned by SendData/SendTrailers once the consumer end
// has been dropped (spec §4.B "fails when the receiver is dropped").
var ErrReceiverGone = errors.New("body: receiver dropped")

// ErrTrailersAfterEnd is returned if SendTrailers is called after End.
var ErrTrailersAfterEnd = errors.New("body: trailers sent after end")

type item struct {
	chunk buffer.Chunk
	err   error // non-nil on the final item when the stream ended in error
}

// Pipe is the producer/consumer pair for one message body. The producing
// endpoint is held by the codec (h1.Decoder writing chunks as they're
// parsed, or h2.Stream writing DATA frame payloads); the consuming endpoint
// is held by the application or the dispatcher piping bytes onward. Dropping
// either (calling Close) signals the other, per spec §3 "Ownership".
type Pipe struct {
	data chan item

	mu        sync.Mutex
	trailers  *headers.Header
	trailerCh chan struct{} // closed once trailers are set or End is called
	ended     bool

	credits    atomic.Int64 // available send capacity, consumer-controlled
	creditSig  chan struct{}
	closedOnce sync.Once
	closed     atomic.Bool
}

// NewPipe returns a Pipe with the given channel capacity (number of chunks
// buffered before SendData blocks) and initial credit (spec §4.B "capacity
// is exposed as an integer available-credits value, set by the consumer").
func NewPipe(capacity int, initialCredits int64) *Pipe {
	if capacity <= 0 {
		capacity = 1
	}
	p := &Pipe{
		data:      make(chan item, capacity),
		trailerCh: make(chan struct{}),
		creditSig: make(chan struct{}, 1),
	}
	p.credits.Store(initialCredits)
	return p
}

// Grant adds n credits and wakes any SendData blocked waiting for capacity.
// Called by the consumer as it reads (spec §4.B back-pressure).
func (p *Pipe) Grant(n int64) {
	if n <= 0 {
		return
	}
	p.credits.Add(n)
	select {
	case p.creditSig <- struct{}{}:
	default:
	}
}

// SendData pushes a chunk, blocking until capacity is available or the
// receiver is gone. Fails with ErrReceiverGone once Close has been called by
// the consumer.
func (p *Pipe) SendData(ctx context.Context, chunk buffer.Chunk) error {
	for {
		if p.closed.Load() {
			return ErrReceiverGone
		}
		c := p.credits.Load()
		if c >= int64(len(chunk)) || c < 0 {
			if c >= 0 {
				p.credits.Add(-int64(len(chunk)))
			}
			select {
			case p.data <- item{chunk: chunk}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		select {
		case <-p.creditSig:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SendTrailers sets the trailer map, at most once, and must precede End.
func (p *Pipe) SendTrailers(h *headers.Header) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended {
		return ErrTrailersAfterEnd
	}
	if p.trailers != nil {
		return errors.New("body: trailers already sent")
	}
	p.trailers = h
	return nil
}

// End terminates the stream; err is surfaced as the final Next() error if
// non-nil (spec §4.B "if the codec observes a malformed frame while decoding
// a body, it surfaces the error on the data stream as Err(Parse) and then
// ends").
func (p *Pipe) End(err error) {
	p.mu.Lock()
	if p.ended {
		p.mu.Unlock()
		return
	}
	p.ended = true
	p.mu.Unlock()

	if err != nil {
		p.data <- item{err: err}
	}
	close(p.data)
	close(p.trailerCh)
}

// Next yields the next chunk, or (nil, io.EOF)-equivalent via (nil, nil) once
// the stream has ended cleanly, or the terminal error if it ended in error.
func (p *Pipe) Next(ctx context.Context) (buffer.Chunk, error) {
	select {
	case it, ok := <-p.data:
		if !ok {
			return nil, nil
		}
		if it.err != nil {
			return nil, it.err
		}
		return it.chunk, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Trailers blocks until the stream has ended and returns the trailer map, if
// any was sent.
func (p *Pipe) Trailers(ctx context.Context) *headers.Header {
	select {
	case <-p.trailerCh:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.trailers
	case <-ctx.Done():
		return nil
	}
}

// Close marks the consumer as gone; subsequent SendData calls fail fast.
func (p *Pipe) Close() {
	p.closedOnce.Do(func() {
		p.closed.Store(true)
	})
}

// SizeHint is the lower/upper bound on remaining bytes, possibly unknown
// (spec §3 "Body").
type SizeHint struct {
	Lower uint64
	Upper uint64
	Known bool
}
