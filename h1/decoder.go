/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package h1

import (
	"github.com/hyperium/hyper-sub003/headers"
	"github.com/hyperium/hyper-sub003/message"
)

// Decoder incrementally parses message heads out of a *buffer.Ring,
// retaining a reusable header map across exchanges (spec §4.C "Cached
// header map"). One Decoder is owned per direction by an h1.Connection.
type Decoder struct {
	reusable    *headers.Header
	isResponse  bool
	lastMethod  string // request method paired with the in-flight response parse
}

// NewDecoder returns a Decoder for parsing requests (isResponse=false, used
// server-side) or responses (isResponse=true, used client-side).
func NewDecoder(isResponse bool) *Decoder {
	return &Decoder{isResponse: isResponse, reusable: headers.New()}
}

// SetRequestMethod records the method of the request a response decode is
// paired with, needed by selectFraming's HEAD special-case (spec §4.C rule
// 1) and client-side CONNECT handling (rule 2).
func (d *Decoder) SetRequestMethod(method string) { d.lastMethod = method }

// TryParseHead attempts to parse one head from the unconsumed bytes of ring.
// It returns ErrNeedMore (without consuming anything) if the buffered bytes
// do not yet contain a full head, satisfying spec property P3: parsing only
// begins once bytes["\r\n\r\n"] has been located, so behavior never depends
// on how reads were split.
func (d *Decoder) TryParseHead(ring interface {
	Peek() []byte
	Advance(int)
}) (*message.Head, Framing, ParsedFlags, error) {
	buffered := ring.Peek()
	end := headEndIndex(buffered)
	if end < 0 {
		return nil, Framing{}, ParsedFlags{}, ErrNeedMore
	}
	raw := make([]byte, end)
	copy(raw, buffered[:end])

	head, err := parseHead(raw, d.reusable, d.isResponse)
	if err != nil {
		ring.Advance(end)
		return nil, Framing{}, ParsedFlags{}, err
	}
	ring.Advance(end)

	method := d.lastMethod
	if !d.isResponse {
		method = head.Request().Method
	}
	framing, flags, err := selectFraming(head, d.isResponse, method)
	if err != nil {
		return head, Framing{}, flags, err
	}
	return head, framing, flags, nil
}
