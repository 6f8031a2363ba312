/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package h1 implements the HTTP/1.x wire codec (spec §4.C, §4.D) and the
// connection state machine that drives it (spec §4.E), grounded on the
// teacher's types_request.go/public_response.go (head parsing),
// utils_transfer.go + utils_chunks.go (framing selection, chunked coding),
// chunk_writer.go (encoder), and conn.go/conn_reader.go/server_handler.go
// (the reading/writing half state machines).
package h1

import "errors"

// ErrNeedMore is returned by the decoder when the buffered bytes do not yet
// contain a complete head or body unit; the caller must read more bytes from
// the transport and retry (spec §4.C: "on underfill it signals 'need more
// bytes'"). It MUST behave identically regardless of how the available bytes
// were split across prior reads (spec property P3).
var ErrNeedMore = errors.New("h1: need more bytes")

// ErrLineTooLong mirrors the teacher's errLineTooLong (a line — request/
// status line, header line, or chunk size line — exceeded the configured
// limit).
var ErrLineTooLong = errors.New("h1: header line too long")

// CrLf is the wire line terminator, ported from the teacher's types_http.go.
var CrLf = []byte{'\r', '\n'}

const maxLineLength = 4096
