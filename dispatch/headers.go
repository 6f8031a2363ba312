package dispatch

import (
	"strings"

	"github.com/hyperium/hyper-sub003/headers"
	"github.com/hyperium/hyper-sub003/message"
)

// headerSet wraps a *headers.Header so callers can pass the result of
// trailersOf straight into APIs that want a possibly-nil *headers.Header,
// without every call site re-deriving "map len 0 means nil".
type headerSet struct{ h *headers.Header }

func (hs *headerSet) toHeaders() *headers.Header {
	if hs == nil {
		return nil
	}
	return hs.h
}

// trailersOf converts the map[string][]string shape body.Body.Trailers
// returns back into the ordered Header map the H1/H2 write paths expect.
// Insertion order is lost at this boundary (body.Body's Trailers is a plain
// map per spec §6.2), which only matters for trailer fields, not the
// message head.
func trailersOf(m map[string][]string) *headerSet {
	if len(m) == 0 {
		return nil
	}
	h := headers.New()
	for k, vv := range m {
		for _, v := range vv {
			h.Add(k, v)
		}
	}
	return &headerSet{h: h}
}

// wantsKeepAlive implements spec §3 invariant 3: keep-alive requires BOTH
// the decoded peer message's parsed flag AND the absence of an
// application-set Connection: close on the outgoing message paired with it.
// Either side alone saying "close" forces the connection closed.
func wantsKeepAlive(parsed bool, outgoing *message.Head) bool {
	if !parsed {
		return false
	}
	if outgoing == nil || outgoing.Headers == nil {
		return true
	}
	for _, v := range outgoing.Headers.Values(headers.Connection) {
		for _, tok := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(tok), "close") {
				return false
			}
		}
	}
	return true
}
