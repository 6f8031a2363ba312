/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package h1

import (
	"bytes"
	"context"

	"github.com/hyperium/hyper-sub003/body"
	"github.com/hyperium/hyper-sub003/buffer"
	"github.com/hyperium/hyper-sub003/errs"
	"github.com/hyperium/hyper-sub003/headers"
)

// BodyDecoder drains buffered bytes and pushes body chunks into a
// *body.Pipe, per spec §4.C. Feed is called each time the connection has
// more buffered bytes (or has hit transport EOF, signaled via eof=true with
// an empty slice); it returns done=true once the body (and any trailers)
// have been fully delivered. It MUST honor the pipe's backpressure (spec
// §4.B) — Feed may block on Pipe.SendData.
type BodyDecoder interface {
	Feed(ctx context.Context, ring *buffer.Ring, eof bool, into *body.Pipe) (done bool, err error)
}

// NewBodyDecoder returns the BodyDecoder for a resolved Framing.
func NewBodyDecoder(f Framing) BodyDecoder {
	switch f.Kind {
	case KindEmpty:
		return emptyDecoder{}
	case KindLength:
		return &lengthDecoder{remain: f.Length}
	case KindChunked:
		return &chunkedDecoder{state: chunkSizeLine}
	case KindEof:
		return &eofDecoder{}
	default:
		return emptyDecoder{}
	}
}

type emptyDecoder struct{}

func (emptyDecoder) Feed(ctx context.Context, ring *buffer.Ring, eof bool, into *body.Pipe) (bool, error) {
	into.End(nil)
	return true, nil
}

// lengthDecoder implements DecoderKind = Length(n): spec §3.
type lengthDecoder struct {
	remain int64
}

func (d *lengthDecoder) Feed(ctx context.Context, ring *buffer.Ring, eof bool, into *body.Pipe) (bool, error) {
	for d.remain > 0 {
		avail := ring.Peek()
		if len(avail) == 0 {
			if eof {
				err := errs.New(errs.IncompleteMessage, nil)
				into.End(err)
				return true, err
			}
			return false, nil
		}
		take := int64(len(avail))
		if take > d.remain {
			take = d.remain
		}
		chunk := make([]byte, take)
		copy(chunk, avail[:take])
		if err := into.SendData(ctx, buffer.Chunk(chunk)); err != nil {
			return true, err
		}
		ring.Advance(int(take))
		d.remain -= take
	}
	into.End(nil)
	return true, nil
}

// eofDecoder implements DecoderKind = Eof: the body ends at transport EOF
// (response only, non-keep-alive), per spec §3.
type eofDecoder struct{}

func (d *eofDecoder) Feed(ctx context.Context, ring *buffer.Ring, eof bool, into *body.Pipe) (bool, error) {
	if n := ring.Len(); n > 0 {
		chunk := make([]byte, n)
		copy(chunk, ring.Peek())
		if err := into.SendData(ctx, buffer.Chunk(chunk)); err != nil {
			return true, err
		}
		ring.Advance(n)
	}
	if eof {
		into.End(nil)
		return true, nil
	}
	return false, nil
}

// chunked decoder sub-states, per spec §4.C "Chunked body states".
type chunkState int

const (
	chunkSizeLine chunkState = iota
	chunkData
	chunkDataCRLF
	chunkTrailer
	chunkDone
)

// chunkedDecoder implements DecoderKind = Chunked(state): reads a hex size
// line (optional ;ext, CRLF-terminated), then exactly size bytes, then CRLF,
// looping back to the size line; size 0 transitions to an optional trailer
// block terminated by a blank line. Ported from the teacher's
// utils_chunks.go (readChunkLine, removeChunkExtension, parseHexUint).
type chunkedDecoder struct {
	state      chunkState
	remain     int64
	trailers   *headers.Header
}

func (d *chunkedDecoder) Feed(ctx context.Context, ring *buffer.Ring, eof bool, into *body.Pipe) (bool, error) {
	for {
		switch d.state {
		case chunkSizeLine:
			line, ok, err := tryReadLine(ring)
			if err != nil {
				wrapped := errs.New(errs.Parse, err)
				into.End(wrapped)
				return true, wrapped
			}
			if !ok {
				if eof {
					err := errs.New(errs.IncompleteMessage, nil)
					into.End(err)
					return true, err
				}
				return false, nil
			}
			line = removeChunkExtension(line)
			n, err := parseHexUint(line)
			if err != nil {
				wrapped := errs.New(errs.Parse, err)
				into.End(wrapped)
				return true, wrapped
			}
			if n == 0 {
				d.state = chunkTrailer
				continue
			}
			d.remain = int64(n)
			d.state = chunkData
		case chunkData:
			avail := ring.Peek()
			if len(avail) == 0 {
				if eof {
					err := errs.New(errs.IncompleteMessage, nil)
					into.End(err)
					return true, err
				}
				return false, nil
			}
			take := int64(len(avail))
			if take > d.remain {
				take = d.remain
			}
			chunk := make([]byte, take)
			copy(chunk, avail[:take])
			if err := into.SendData(ctx, buffer.Chunk(chunk)); err != nil {
				return true, err
			}
			ring.Advance(int(take))
			d.remain -= take
			if d.remain == 0 {
				d.state = chunkDataCRLF
			}
		case chunkDataCRLF:
			line, ok, err := tryReadLine(ring)
			if err != nil {
				wrapped := errs.New(errs.Parse, err)
				into.End(wrapped)
				return true, wrapped
			}
			if !ok {
				if eof {
					err := errs.New(errs.IncompleteMessage, nil)
					into.End(err)
					return true, err
				}
				return false, nil
			}
			if len(line) != 0 {
				wrapped := errs.Newf(errs.Parse, "h1: malformed chunk terminator")
				into.End(wrapped)
				return true, wrapped
			}
			d.state = chunkSizeLine
		case chunkTrailer:
			if d.trailers == nil {
				d.trailers = headers.New()
			}
			for {
				line, ok, err := tryReadLine(ring)
				if err != nil {
					wrapped := errs.New(errs.Parse, err)
					into.End(wrapped)
					return true, wrapped
				}
				if !ok {
					if eof {
						err := errs.New(errs.IncompleteMessage, nil)
						into.End(err)
						return true, err
					}
					return false, nil
				}
				if len(line) == 0 {
					d.state = chunkDone
					break
				}
				colon := bytes.IndexByte(line, ':')
				if colon <= 0 {
					wrapped := errs.Newf(errs.Parse, "h1: malformed trailer line")
					into.End(wrapped)
					return true, wrapped
				}
				name := string(bytes.TrimSpace(line[:colon]))
				value := string(bytes.TrimSpace(line[colon+1:]))
				d.trailers.Add(name, value)
			}
			if d.state != chunkDone {
				continue
			}
		case chunkDone:
			if d.trailers != nil && d.trailers.Len() > 0 {
				into.SendTrailers(d.trailers)
			}
			into.End(nil)
			return true, nil
		}
	}
}

// tryReadLine reads one CRLF-terminated line from ring without consuming it
// if incomplete, returning ok=false to signal "need more bytes" (spec §4.C).
func tryReadLine(ring *buffer.Ring) (line []byte, ok bool, err error) {
	buffered := ring.Peek()
	idx := bytes.IndexByte(buffered, '\n')
	if idx < 0 {
		if len(buffered) > maxLineLength {
			return nil, false, ErrLineTooLong
		}
		return nil, false, nil
	}
	raw := buffered[:idx+1]
	if len(raw) > maxLineLength {
		return nil, false, ErrLineTooLong
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	ring.Advance(idx + 1)
	return trimCRLF(out), true, nil
}

func removeChunkExtension(p []byte) []byte {
	if i := bytes.IndexByte(p, ';'); i >= 0 {
		return p[:i]
	}
	return p
}

func parseHexUint(v []byte) (uint64, error) {
	if len(v) == 0 {
		return 0, errs.Newf(errs.Parse, "h1: empty chunk size line")
	}
	var n uint64
	for i, b := range v {
		var d byte
		switch {
		case '0' <= b && b <= '9':
			d = b - '0'
		case 'a' <= b && b <= 'f':
			d = b - 'a' + 10
		case 'A' <= b && b <= 'F':
			d = b - 'A' + 10
		default:
			return 0, errs.Newf(errs.Parse, "h1: invalid byte in chunk length")
		}
		if i == 16 {
			return 0, errs.Newf(errs.Parse, "h1: chunk length too large")
		}
		n <<= 4
		n |= uint64(d)
	}
	return n, nil
}
