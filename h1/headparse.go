/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package h1

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/hyperium/hyper-sub003/errs"
	"github.com/hyperium/hyper-sub003/headers"
	"github.com/hyperium/hyper-sub003/message"
)

// headEndIndex returns the index just past the blank line terminating a
// message head within buffered, or -1 if the terminator hasn't arrived yet.
// It is safe to call repeatedly as more bytes accumulate (spec property P3):
// it always rescans from the start of the unconsumed buffer, which is
// O(n) in head size, not in the number of partial reads.
func headEndIndex(buffered []byte) int {
	if i := bytes.Index(buffered, []byte("\r\n\r\n")); i >= 0 {
		return i + 4
	}
	return -1
}

// parseHead parses a complete head (request or response line + headers,
// terminated by a blank line) out of raw, reusing h (if non-nil) for the
// header map per spec §4.C's "cached header map slot". isResponse selects
// which line grammar to expect.
func parseHead(raw []byte, h *headers.Header, isResponse bool) (*message.Head, error) {
	r := bufio.NewReaderSize(bytes.NewReader(raw), len(raw)+1)
	line, err := readLine(r)
	if err != nil {
		return nil, errs.New(errs.Parse, err)
	}
	if h == nil {
		h = headers.New()
	} else {
		h.Reset()
	}

	var subject message.Subject
	var proto message.Version
	if isResponse {
		s, p, err := parseStatusLine(line)
		if err != nil {
			return nil, err
		}
		subject, proto = s, p
	} else {
		s, p, err := parseRequestLine(line)
		if err != nil {
			return nil, err
		}
		subject, proto = s, p
	}

	if err := parseHeaderLines(r, h); err != nil {
		return nil, err
	}

	return &message.Head{Subject: subject, Headers: h, Proto: proto}, nil
}

func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadSlice('\n')
	if err != nil {
		return nil, err
	}
	if len(line) > maxLineLength {
		return nil, ErrLineTooLong
	}
	return trimCRLF(line), nil
}

func trimCRLF(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte("\n"))
	b = bytes.TrimSuffix(b, []byte("\r"))
	return b
}

func parseVersion(s string) (message.Version, error) {
	switch s {
	case "HTTP/1.1":
		return message.Version11, nil
	case "HTTP/1.0":
		return message.Version10, nil
	default:
		return 0, errs.Newf(errs.Parse, "h1: unsupported version %q", s)
	}
}

func parseRequestLine(line []byte) (message.RequestSubject, message.Version, error) {
	parts := strings.SplitN(string(line), " ", 3)
	if len(parts) != 3 {
		return message.RequestSubject{}, 0, errs.Newf(errs.Parse, "h1: malformed request line %q", line)
	}
	method, target, proto := parts[0], parts[1], parts[2]
	if !headers.ValidFieldName(method) {
		return message.RequestSubject{}, 0, errs.Newf(errs.Parse, "h1: invalid method %q", method)
	}
	v, err := parseVersion(proto)
	if err != nil {
		return message.RequestSubject{}, 0, err
	}
	return message.RequestSubject{Method: method, Target: target}, v, nil
}

func parseStatusLine(line []byte) (message.StatusSubject, message.Version, error) {
	s := string(line)
	sp := strings.IndexByte(s, ' ')
	if sp < 0 {
		return message.StatusSubject{}, 0, errs.Newf(errs.Parse, "h1: malformed status line %q", line)
	}
	v, err := parseVersion(s[:sp])
	if err != nil {
		return message.StatusSubject{}, 0, err
	}
	rest := s[sp+1:]
	codeStr := rest
	reason := ""
	if sp2 := strings.IndexByte(rest, ' '); sp2 >= 0 {
		codeStr = rest[:sp2]
		reason = rest[sp2+1:]
	}
	code, err := strconv.Atoi(codeStr)
	if err != nil || code < 100 || code > 999 {
		return message.StatusSubject{}, 0, errs.Newf(errs.Parse, "h1: invalid status code %q", codeStr)
	}
	return message.StatusSubject{Code: code, Reason: reason}, v, nil
}

// parseHeaderLines reads "Name: value" lines until a blank line, rejecting
// obsolete line folding (CRLF SP continuation), per spec §4.C.
func parseHeaderLines(r *bufio.Reader, h *headers.Header) error {
	for {
		line, err := readLine(r)
		if err != nil {
			return errs.New(errs.Parse, err)
		}
		if len(line) == 0 {
			return nil
		}
		if line[0] == ' ' || line[0] == '\t' {
			return errs.Newf(errs.Parse, "h1: obsolete line folding is not supported")
		}
		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			return errs.Newf(errs.Parse, "h1: malformed header line %q", line)
		}
		name := string(bytes.TrimSpace(line[:colon]))
		value := string(bytes.TrimSpace(line[colon+1:]))
		if !headers.ValidFieldName(name) {
			return errs.Newf(errs.Parse, "h1: invalid header field name %q", name)
		}
		if !headers.ValidFieldValue(value) {
			return errs.Newf(errs.Parse, "h1: invalid header field value for %q", name)
		}
		h.Add(name, value)
	}
}
