/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package headers implements the ordered, case-insensitive multi-map of
// header name to raw values shared by the H1 and H2 codecs (spec §3:
// "Header map is an ordered multi-map of case-insensitive names to raw byte
// values, preserving insertion order and duplicates").
package headers

import (
	"sort"
)

// Header is a case-insensitive multi-map of header names to values. Keys are
// stored canonicalized (e.g. "content-length" -> "Content-Length"); values
// for a given key preserve insertion order and duplicates. Unlike a bare Go
// map, Header additionally tracks the first-seen order of distinct keys in
// order, so Write can reproduce wire order deterministically instead of
// relying on Go's unspecified map iteration order.
type Header struct {
	values map[string][]string
	order  []string
}

// New returns an empty Header ready for use.
func New() *Header {
	return &Header{values: make(map[string][]string)}
}

// Reset clears h for reuse, keeping the underlying map allocation. This is
// the "cached header map slot" spec §4.C describes: a connection returns its
// cleared map here between keep-alive exchanges instead of allocating a new
// one.
func (h *Header) Reset() {
	for _, k := range h.order {
		delete(h.values, k)
	}
	h.order = h.order[:0]
}

// Add appends value to the list of values associated with key.
func (h *Header) Add(key, value string) {
	if h.values == nil {
		h.values = make(map[string][]string)
	}
	ck := CanonicalKey(key)
	if _, ok := h.values[ck]; !ok {
		h.order = append(h.order, ck)
	}
	h.values[ck] = append(h.values[ck], value)
}

// Set replaces any existing values associated with key with the single value.
func (h *Header) Set(key, value string) {
	if h.values == nil {
		h.values = make(map[string][]string)
	}
	ck := CanonicalKey(key)
	if _, ok := h.values[ck]; !ok {
		h.order = append(h.order, ck)
	}
	h.values[ck] = []string{value}
}

// Get returns the first value associated with key, or "" if absent.
func (h *Header) Get(key string) string {
	if h == nil || h.values == nil {
		return ""
	}
	v := h.values[CanonicalKey(key)]
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// Values returns all values associated with key, in insertion order. The
// returned slice must not be mutated by the caller.
func (h *Header) Values(key string) []string {
	if h == nil || h.values == nil {
		return nil
	}
	return h.values[CanonicalKey(key)]
}

// Has reports whether key has at least one value.
func (h *Header) Has(key string) bool {
	return len(h.Values(key)) > 0
}

// Del removes all values associated with key.
func (h *Header) Del(key string) {
	if h == nil || h.values == nil {
		return
	}
	ck := CanonicalKey(key)
	if _, ok := h.values[ck]; !ok {
		return
	}
	delete(h.values, ck)
	for i, k := range h.order {
		if k == ck {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of distinct keys.
func (h *Header) Len() int {
	if h == nil {
		return 0
	}
	return len(h.order)
}

// Keys returns the distinct canonical keys in first-seen order.
func (h *Header) Keys() []string {
	if h == nil {
		return nil
	}
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// Range calls fn for each key/value pair in first-seen key order, duplicate
// values for a key in insertion order.
func (h *Header) Range(fn func(key, value string)) {
	if h == nil {
		return
	}
	for _, k := range h.order {
		for _, v := range h.values[k] {
			fn(k, v)
		}
	}
}

// Clone returns a deep copy of h.
func (h *Header) Clone() *Header {
	if h == nil {
		return nil
	}
	out := &Header{values: make(map[string][]string, len(h.values)), order: append([]string(nil), h.order...)}
	for k, vv := range h.values {
		cp := make([]string, len(vv))
		copy(cp, vv)
		out.values[k] = cp
	}
	return out
}

// CopyFrom appends every value of src onto h, preserving src's per-key order
// and appending newly-seen keys to h's order.
func (h *Header) CopyFrom(src *Header) {
	if src == nil {
		return
	}
	src.Range(h.Add)
}

// sortedKeys is used only where wire output must be deterministic across a
// set that was built without preserved order (e.g. merging a trailer map
// built from raw wire parsing); normal Write uses first-seen order.
func (h *Header) sortedKeys() []string {
	out := h.Keys()
	sort.Strings(out)
	return out
}
