/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package h1

import (
	"bufio"
	"fmt"
	"strconv"

	"github.com/hyperium/hyper-sub003/headers"
	"github.com/hyperium/hyper-sub003/internal/dateheader"
	"github.com/hyperium/hyper-sub003/message"
)

// EncoderKind enumerates the framing the encoder picked for an outgoing
// message, per spec §3 "Framing encoder kind".
type EncoderKind int

const (
	EncodeLength EncoderKind = iota
	EncodeChunked
	EncodeCloseDelimited
	EncodeEmpty
)

// BodyLengthHint is the application-supplied hint spec §4.D's encoder
// chooses a framing from.
type BodyLengthHint struct {
	Exact   int64 // >= 0 when Known
	Known   bool
	IsEmpty bool
}

// Options configures encoder behavior. TitleCaseHeaders is not read by the
// encoder: header names are always written in the canonical form
// headers.Header stores them in, which is already title case, and there is
// no option to preserve the casing a name was received with.
type Options struct {
	TitleCaseHeaders bool
	IsServer         bool
}

// Encoder serializes a head (spec §4.D) and wraps body chunks in the chosen
// framing, grounded on the teacher's chunk_writer.go.
type Encoder struct {
	opts Options
}

func NewEncoder(opts Options) *Encoder { return &Encoder{opts: opts} }

// SelectKind implements spec §4.D's four-rule table.
func (e *Encoder) SelectKind(hint BodyLengthHint, proto message.Version, permitsBody bool) (EncoderKind, bool /*forceClose*/) {
	switch {
	case hint.IsEmpty:
		return EncodeEmpty, false
	case hint.Known:
		return EncodeLength, false
	case proto == message.Version11:
		return EncodeChunked, false
	default:
		return EncodeCloseDelimited, true
	}
}

// WriteHead writes head to w, inserting framing headers per the selected
// kind, and for server responses a Date header if one isn't already set
// (spec §4.D).
func (e *Encoder) WriteHead(w *bufio.Writer, head *message.Head, kind EncoderKind, length int64, permitsBody bool) error {
	h := head.Headers
	if h == nil {
		h = headers.New()
	}

	switch s := head.Subject.(type) {
	case message.RequestSubject:
		if _, err := fmt.Fprintf(w, "%s %s %s\r\n", s.Method, s.Target, head.Proto); err != nil {
			return err
		}
	case message.StatusSubject:
		reason := s.Reason
		if _, err := fmt.Fprintf(w, "%s %d %s\r\n", head.Proto, s.Code, reason); err != nil {
			return err
		}
		if e.opts.IsServer && !h.Has(headers.Date) {
			h.Set(headers.Date, dateheader.Now())
		}
	}

	switch kind {
	case EncodeLength:
		h.Del(headers.TransferEncoding)
		h.Set(headers.ContentLength, strconv.FormatInt(length, 10))
	case EncodeChunked:
		h.Del(headers.ContentLength)
		h.Set(headers.TransferEncoding, "chunked")
	case EncodeCloseDelimited:
		h.Del(headers.ContentLength)
		h.Del(headers.TransferEncoding)
		h.Set(headers.Connection, "close")
	case EncodeEmpty:
		h.Del(headers.TransferEncoding)
		if permitsBody {
			h.Set(headers.ContentLength, "0")
		} else {
			h.Del(headers.ContentLength)
		}
	}

	if err := h.Write(w, nil); err != nil {
		return err
	}
	_, err := w.WriteString("\r\n")
	return err
}

// WriteChunk writes one body chunk to w according to kind, e.g. wrapping it
// in "<hex-size>\r\n<data>\r\n" for EncodeChunked, per spec §4.D.
func (e *Encoder) WriteChunk(w *bufio.Writer, kind EncoderKind, p []byte) (int, error) {
	if kind != EncodeChunked {
		return w.Write(p)
	}
	if len(p) == 0 {
		return 0, nil
	}
	if _, err := fmt.Fprintf(w, "%x\r\n", len(p)); err != nil {
		return 0, err
	}
	n, err := w.Write(p)
	if err != nil {
		return n, err
	}
	if _, err := w.Write(CrLf); err != nil {
		return n, err
	}
	return n, nil
}

// WriteEnd writes the body terminator: for EncodeChunked, the zero-length
// chunk plus optional trailers (spec §4.D "Chunked frames: terminator
// 0\r\n<optional trailers>\r\n"); a no-op for other kinds.
func (e *Encoder) WriteEnd(w *bufio.Writer, kind EncoderKind, trailers *headers.Header) error {
	if kind != EncodeChunked {
		return nil
	}
	if _, err := w.WriteString("0\r\n"); err != nil {
		return err
	}
	if trailers != nil && trailers.Len() > 0 {
		if err := trailers.Write(w, nil); err != nil {
			return err
		}
	}
	_, err := w.Write(CrLf)
	return err
}
