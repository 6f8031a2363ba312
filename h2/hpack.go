package h2

import (
	"bytes"

	"golang.org/x/net/http2/hpack"

	"github.com/hyperium/hyper-sub003/headers"
	"github.com/hyperium/hyper-sub003/message"
)

// Pseudo-header names (RFC 7540 §8.1.2.3/8.1.2.4).
const (
	pseudoMethod    = ":method"
	pseudoScheme    = ":scheme"
	pseudoAuthority = ":authority"
	pseudoPath      = ":path"
	pseudoStatus    = ":status"
)

// hpackCodec wraps golang.org/x/net/http2/hpack so the frame/stream layer
// never hand-rolls header compression (SPEC_FULL.md DOMAIN STACK: HPACK).
// One hpackCodec per connection, matching HPACK's single shared dynamic
// table per direction (RFC 7540 §4.3).
type hpackCodec struct {
	enc    *hpack.Encoder
	encBuf bytes.Buffer
	dec    *hpack.Decoder

	// fields accumulate across Write calls of one header block, collected by
	// the emit callback the Decoder drives synchronously on each Write.
	fields []hpack.HeaderField
}

func newHPACKCodec(maxDynamicTableSize uint32) *hpackCodec {
	c := &hpackCodec{}
	c.enc = hpack.NewEncoder(&c.encBuf)
	c.dec = hpack.NewDecoder(maxDynamicTableSize, func(f hpack.HeaderField) {
		c.fields = append(c.fields, f)
	})
	return c
}

func (c *hpackCodec) setEncoderTableSize(n uint32) { c.enc.SetMaxDynamicTableSize(n) }
func (c *hpackCodec) setDecoderTableSize(n uint32)  { c.dec.SetMaxDynamicTableSize(n) }

// decodeBlock feeds one fully-reassembled header block (HEADERS frame
// payload plus any CONTINUATION payloads, per spec §4.F CONTINUATION
// reassembly) through the shared Decoder and returns the accumulated fields.
func (c *hpackCodec) decodeBlock(block []byte) ([]hpack.HeaderField, error) {
	c.fields = c.fields[:0]
	if _, err := c.dec.Write(block); err != nil {
		return nil, err
	}
	out := c.fields
	c.fields = nil
	return out, nil
}

// encodeRequest serializes a request head's pseudo-headers followed by its
// regular headers into one HPACK block (RFC 7540 §8.1.2.3 ordering: all
// pseudo-headers precede regular ones).
func (c *hpackCodec) encodeRequest(h *message.Head, authority, scheme string) ([]byte, error) {
	req := h.Request()
	c.encBuf.Reset()
	if err := c.enc.WriteField(hpack.HeaderField{Name: pseudoMethod, Value: req.Method}); err != nil {
		return nil, err
	}
	if err := c.enc.WriteField(hpack.HeaderField{Name: pseudoScheme, Value: scheme}); err != nil {
		return nil, err
	}
	if err := c.enc.WriteField(hpack.HeaderField{Name: pseudoAuthority, Value: authority}); err != nil {
		return nil, err
	}
	if err := c.enc.WriteField(hpack.HeaderField{Name: pseudoPath, Value: req.Target}); err != nil {
		return nil, err
	}
	if err := c.writeRegular(h.Headers); err != nil {
		return nil, err
	}
	out := make([]byte, c.encBuf.Len())
	copy(out, c.encBuf.Bytes())
	return out, nil
}

// encodeResponse serializes a response head the same way, :status first.
func (c *hpackCodec) encodeResponse(h *message.Head) ([]byte, error) {
	st := h.Status()
	c.encBuf.Reset()
	if err := c.enc.WriteField(hpack.HeaderField{Name: pseudoStatus, Value: itoa(st.Code)}); err != nil {
		return nil, err
	}
	if err := c.writeRegular(h.Headers); err != nil {
		return nil, err
	}
	out := make([]byte, c.encBuf.Len())
	copy(out, c.encBuf.Bytes())
	return out, nil
}

// writeTrailers encodes a trailer block: regular headers only, no
// pseudo-headers (RFC 7540 §8.1.2.1 forbids pseudo-headers in trailers).
func (c *hpackCodec) writeTrailers(h *headers.Header) ([]byte, error) {
	c.encBuf.Reset()
	if err := c.writeRegular(h); err != nil {
		return nil, err
	}
	out := make([]byte, c.encBuf.Len())
	copy(out, c.encBuf.Bytes())
	return out, nil
}

func (c *hpackCodec) writeRegular(h *headers.Header) error {
	var werr error
	h.Range(func(k, v string) {
		if werr != nil {
			return
		}
		// HPACK requires lowercase field names (RFC 7540 §8.1.2); the shared
		// Header map canonicalizes to title case for H1 wire compatibility,
		// so H2 lowercases at the codec boundary rather than storing two
		// casings of the same map.
		werr = c.enc.WriteField(hpack.HeaderField{Name: lower(k), Value: v})
	})
	return werr
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// fieldsToHead reconstructs a message.Head from decoded HPACK fields,
// splitting pseudo-headers (spec §4.F "translate to/from the shared Head
// model") from the regular header map. request selects which pseudo-header
// set to expect.
func fieldsToHead(fields []hpack.HeaderField, request bool) (*message.Head, error) {
	h := headers.New()
	head := &message.Head{Headers: h, Proto: message.VersionH2}
	var method, scheme, authority, path, status string
	for _, f := range fields {
		switch {
		case f.Name == pseudoMethod:
			method = f.Value
		case f.Name == pseudoScheme:
			scheme = f.Value
		case f.Name == pseudoAuthority:
			authority = f.Value
		case f.Name == pseudoPath:
			path = f.Value
		case f.Name == pseudoStatus:
			status = f.Value
		case len(f.Name) > 0 && f.Name[0] == ':':
			return nil, errUnknownPseudoHeader(f.Name)
		default:
			h.Add(f.Name, f.Value)
		}
	}
	_ = scheme
	if request {
		if authority != "" && h.Get("Host") == "" {
			h.Set("Host", authority)
		}
		head.Subject = message.RequestSubject{Method: method, Target: path}
	} else {
		code := 0
		for _, c := range status {
			if c < '0' || c > '9' {
				break
			}
			code = code*10 + int(c-'0')
		}
		head.Subject = message.StatusSubject{Code: code}
	}
	return head, nil
}

type errUnknownPseudoHeader string

func (e errUnknownPseudoHeader) Error() string { return "h2: unknown pseudo-header " + string(e) }
