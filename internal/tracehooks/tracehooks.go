/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package tracehooks carries per-exchange observability hooks and a
// correlation ID through a context.Context, the same role the teacher's
// trc.ClientTrace plays for DNS/TLS/dial events (trc/client_trace.go,
// trc/types.go) — but scoped to what this engine's spec actually owns
// (exchange lifecycle), since DNS/TLS/dial are out of scope collaborators
// here (spec §1). Correlation IDs use github.com/google/uuid so a single
// exchange's log lines can be joined across the decoder, dispatcher, and any
// downstream handler.
package tracehooks

import (
	"context"

	"github.com/google/uuid"
)

// Hooks is a set of optional callbacks fired at exchange milestones. Any
// field may be nil. Compose mirrors the teacher's trc.ClientTrace.compose:
// when both an outer and inner Hooks are registered on the same context, both
// fire, outer first.
type Hooks struct {
	OnRequestHead  func(id uuid.UUID)
	OnResponseHead func(id uuid.UUID, status int)
	OnStreamOpen   func(id uuid.UUID, streamID uint32)
	OnStreamClosed func(id uuid.UUID, streamID uint32, err error)
	OnConnClosed   func(id uuid.UUID, err error)
}

type ctxKey struct{}

// WithHooks returns a context carrying h, composed with any Hooks already
// present so nested WithHooks calls accumulate rather than replace.
func WithHooks(ctx context.Context, h *Hooks) context.Context {
	if prev, ok := ctx.Value(ctxKey{}).(*Hooks); ok && prev != nil {
		h = compose(h, prev)
	}
	return context.WithValue(ctx, ctxKey{}, h)
}

func compose(outer, inner *Hooks) *Hooks {
	return &Hooks{
		OnRequestHead:  chain2(outer.OnRequestHead, inner.OnRequestHead),
		OnResponseHead: chain3(outer.OnResponseHead, inner.OnResponseHead),
		OnStreamOpen:   chainStream(outer.OnStreamOpen, inner.OnStreamOpen),
		OnStreamClosed: chainStreamErr(outer.OnStreamClosed, inner.OnStreamClosed),
		OnConnClosed:   chainConnErr(outer.OnConnClosed, inner.OnConnClosed),
	}
}

func chain2(a, b func(uuid.UUID)) func(uuid.UUID) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(id uuid.UUID) { a(id); b(id) }
}

func chain3(a, b func(uuid.UUID, int)) func(uuid.UUID, int) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(id uuid.UUID, code int) { a(id, code); b(id, code) }
}

func chainStream(a, b func(uuid.UUID, uint32)) func(uuid.UUID, uint32) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(id uuid.UUID, sid uint32) { a(id, sid); b(id, sid) }
}

func chainStreamErr(a, b func(uuid.UUID, uint32, error)) func(uuid.UUID, uint32, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(id uuid.UUID, sid uint32, err error) { a(id, sid, err); b(id, sid, err) }
}

func chainConnErr(a, b func(uuid.UUID, error)) func(uuid.UUID, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(id uuid.UUID, err error) { a(id, err); b(id, err) }
}

// From retrieves the Hooks registered on ctx, or a zero-value Hooks (all
// fields nil, so every call site below can invoke fields unconditionally
// after a nil-check) if none were registered.
func From(ctx context.Context) *Hooks {
	if h, ok := ctx.Value(ctxKey{}).(*Hooks); ok {
		return h
	}
	return &Hooks{}
}

// NewID returns a fresh correlation ID for a connection or stream.
func NewID() uuid.UUID { return uuid.New() }
