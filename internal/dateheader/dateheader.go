/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package dateheader implements the process-wide Date header cache spec §4.D
// and §9 describe: a pre-formatted RFC 7231 IMF-fixdate string, updated at
// most once per second. The teacher recomputes time.Now().Format(TimeFormat)
// on every response (types_server.go's TimeFormat constant); this package
// generalizes that into the explicit cache the spec requires, using
// sync/atomic.Value rather than a goroutine-local cache since Go has no
// thread-local storage and a single shared atomic string is simpler and
// equally correct (documented deviation, see DESIGN.md).
package dateheader

import (
	"sync/atomic"
	"time"
)

// TimeFormat is RFC 7231's IMF-fixdate, hard-coded to GMT, ported from the
// teacher's types_server.go constant of the same name.
const TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

type entry struct {
	formatted string
	second    int64
}

var cached atomic.Value // holds *entry

func init() {
	now := time.Now().UTC()
	cached.Store(&entry{formatted: now.Format(TimeFormat), second: now.Unix()})
}

// Now returns the cached formatted date string, refreshing it lazily on the
// first call to land in a new wall-clock second — "updated at most once per
// second" (spec §9) without a dedicated background goroutine.
func Now() string {
	now := time.Now().UTC()
	sec := now.Unix()
	if e := cached.Load().(*entry); e.second == sec {
		return e.formatted
	}
	e := &entry{formatted: now.Format(TimeFormat), second: sec}
	cached.Store(e)
	return e.formatted
}
