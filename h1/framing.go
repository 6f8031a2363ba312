/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package h1

import (
	"strconv"
	"strings"

	"github.com/hyperium/hyper-sub003/errs"
	"github.com/hyperium/hyper-sub003/headers"
	"github.com/hyperium/hyper-sub003/message"
)

// DecoderKind enumerates the framing a just-parsed head resolves to, per
// spec §3 "Framing decoder kind".
type DecoderKind int

const (
	KindLength DecoderKind = iota
	KindChunked
	KindEof
	KindEmpty
)

// ParsedFlags carries the auxiliary booleans spec §3 attaches to a parsed
// message alongside its decoder kind.
type ParsedFlags struct {
	ExpectContinue bool
	KeepAlive      bool
	Upgrade        bool
	Informational  bool
}

// Framing is the resolved decoder kind plus its parameter (content length
// for KindLength; irrelevant otherwise).
type Framing struct {
	Kind   DecoderKind
	Length int64 // valid when Kind == KindLength
}

// selectFraming implements spec §4.C's five-rule framing selection table,
// ported from the teacher's fixLength (utils_transfer.go). isResponse
// distinguishes response-only rules (HEAD/1xx/204/304 -> Empty; CONNECT 2xx
// -> Empty then Upgraded; unknown-length response -> Eof) from request-only
// ones (unknown-length request body -> Empty).
func selectFraming(h *message.Head, isResponse bool, requestMethod string) (Framing, ParsedFlags, error) {
	var flags ParsedFlags

	if isResponse {
		status := h.Status()
		flags.Informational = status.IsInformational()
		if status.IsInformational() || status.Code == 204 || status.Code == 304 || requestMethod == message.MethodHead {
			flags.KeepAlive = keepAliveDefault(h)
			return Framing{Kind: KindEmpty}, flags, nil
		}
		if requestMethod == message.MethodConnect && status.Code >= 200 && status.Code < 300 {
			flags.Upgrade = true
			return Framing{Kind: KindEmpty}, flags, nil
		}
	}

	flags.KeepAlive = keepAliveDefault(h)
	if v := h.Headers.Get(headers.Upgrade); v != "" && h.Headers.Get(headers.Connection) != "" && containsToken(h.Headers.Get(headers.Connection), "upgrade") {
		flags.Upgrade = true
	}
	if !isResponse && strings.EqualFold(h.Headers.Get(headers.Expect), "100-continue") {
		flags.ExpectContinue = true
	}

	te := h.Headers.Get(headers.TransferEncoding)
	if te != "" {
		// Open Question (spec §9): the origin drops Content-Length and
		// prefers chunked when both headers are present. This
		// implementation takes the stricter RFC 7230 §3.3.3 reading —
		// the combination is a request-smuggling vector, so it is
		// rejected outright rather than silently resolved. See
		// DESIGN.md Open Question log.
		if h.Headers.Has(headers.ContentLength) {
			return Framing{}, flags, errs.Newf(errs.Parse, "h1: both Content-Length and Transfer-Encoding present")
		}
		if isFinalChunked(te) {
			return Framing{Kind: KindChunked}, flags, nil
		}
		if !isResponse {
			return Framing{}, flags, errs.Newf(errs.Parse, "h1: Transfer-Encoding present without final chunked coding on a request")
		}
		flags.KeepAlive = false
		return Framing{Kind: KindEof}, flags, nil
	}

	if cls := h.Headers.Values(headers.ContentLength); len(cls) > 0 {
		n, err := parseUniformContentLength(cls)
		if err != nil {
			return Framing{}, flags, err
		}
		if n == 0 {
			return Framing{Kind: KindEmpty}, flags, nil
		}
		return Framing{Kind: KindLength, Length: n}, flags, nil
	}

	if !isResponse {
		return Framing{Kind: KindEmpty}, flags, nil
	}
	return Framing{Kind: KindEof}, flags, nil
}

// parseUniformContentLength parses and cross-checks every Content-Length
// value present; conflicting values are a 400 per spec §4.C rule 4.
func parseUniformContentLength(values []string) (int64, error) {
	var n int64 = -1
	for _, v := range values {
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || parsed < 0 {
			return 0, errs.Newf(errs.Parse, "h1: invalid Content-Length %q", v)
		}
		if n == -1 {
			n = parsed
		} else if n != parsed {
			return 0, errs.Newf(errs.Parse, "h1: conflicting Content-Length values")
		}
	}
	return n, nil
}

func isFinalChunked(te string) bool {
	codings := strings.Split(te, ",")
	last := strings.TrimSpace(codings[len(codings)-1])
	return strings.EqualFold(last, "chunked")
}

func containsToken(headerVal, token string) bool {
	for _, part := range strings.Split(headerVal, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

// keepAliveDefault implements spec §4.C's keep-alive determination: HTTP/1.1
// defaults to keep-alive unless Connection: close; HTTP/1.0 defaults to
// close unless Connection: keep-alive.
func keepAliveDefault(h *message.Head) bool {
	conn := h.Headers.Get(headers.Connection)
	switch h.Proto {
	case message.Version11:
		return !containsToken(conn, "close")
	default:
		return containsToken(conn, "keep-alive")
	}
}
