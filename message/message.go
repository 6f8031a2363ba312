/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package message defines the minimal HTTP message-head data model the
// engine needs (spec §3: "Message head"). Spec §1 treats the full HTTP
// message type — method/URI/headers/body, header parsing for individual
// header families — as an external collaborator library; this package is
// the small slice of that surface the codecs and dispatcher actually touch
// (subject + version + header map), not a general-purpose HTTP types
// library.
package message

import (
	"fmt"

	"github.com/hyperium/hyper-sub003/headers"
)

// Version is an HTTP version, restricted by spec §4.C to 1.0 and 1.1 for the
// H1 codec; H2 uses VersionH2 as a marker on messages that crossed from the
// H2 engine into the shared dispatcher types.
type Version uint8

const (
	Version10 Version = iota
	Version11
	VersionH2
)

func (v Version) String() string {
	switch v {
	case Version10:
		return "HTTP/1.0"
	case Version11:
		return "HTTP/1.1"
	case VersionH2:
		return "HTTP/2.0"
	default:
		return "HTTP/?.?"
	}
}

// Common request methods, ported from the teacher's types_http.go constants.
const (
	MethodGet     = "GET"
	MethodHead    = "HEAD"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodPatch   = "PATCH"
	MethodDelete  = "DELETE"
	MethodConnect = "CONNECT"
	MethodOptions = "OPTIONS"
	MethodTrace   = "TRACE"
)

// Subject is either a request-line subject (method + target) or a
// status-line subject (code + optional reason), per spec §3.
type Subject interface {
	isSubject()
}

// RequestSubject is the request-line (method, request-target) pair.
type RequestSubject struct {
	Method string
	Target string
}

func (RequestSubject) isSubject() {}

// StatusSubject is the status-line (status code, optional reason phrase)
// pair.
type StatusSubject struct {
	Code   int
	Reason string
}

func (StatusSubject) isSubject() {}

// Head is the parsed or to-be-encoded message head: subject, header map, and
// version (spec §3).
type Head struct {
	Subject Subject
	Headers *headers.Header
	Proto   Version
}

// IsRequest reports whether h carries a RequestSubject.
func (h *Head) IsRequest() bool {
	_, ok := h.Subject.(RequestSubject)
	return ok
}

// Request returns the RequestSubject, panicking if h is a response head.
// Callers that aren't certain should type-switch on Subject directly.
func (h *Head) Request() RequestSubject {
	return h.Subject.(RequestSubject)
}

// Status returns the StatusSubject, panicking if h is a request head.
func (h *Head) Status() StatusSubject {
	return h.Subject.(StatusSubject)
}

func (h *Head) String() string {
	switch s := h.Subject.(type) {
	case RequestSubject:
		return fmt.Sprintf("%s %s %s", s.Method, s.Target, h.Proto)
	case StatusSubject:
		return fmt.Sprintf("%s %d %s", h.Proto, s.Code, s.Reason)
	default:
		return "<invalid head>"
	}
}

// IsInformational reports whether a status subject is a 1xx response, which
// does not terminate the exchange (spec §3 ParsedMessage.is_informational).
func (s StatusSubject) IsInformational() bool {
	return s.Code >= 100 && s.Code <= 199
}
