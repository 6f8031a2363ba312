package h2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperium/hyper-sub003/headers"
	"github.com/hyperium/hyper-sub003/message"
)

func TestHPACKRequestRoundTrip(t *testing.T) {
	enc := newHPACKCodec(4096)
	dec := newHPACKCodec(4096)

	h := headers.New()
	h.Set("User-Agent", "testsuite")
	req := &message.Head{
		Headers: h,
		Subject: message.RequestSubject{Method: message.MethodGet, Target: "/widgets"},
	}

	block, err := enc.encodeRequest(req, "example.com", "https")
	require.NoError(t, err)

	fields, err := dec.decodeBlock(block)
	require.NoError(t, err)

	got, err := fieldsToHead(fields, true)
	require.NoError(t, err)
	assert.Equal(t, "GET", got.Request().Method)
	assert.Equal(t, "/widgets", got.Request().Target)
	assert.Equal(t, "example.com", got.Headers.Get("Host"))
	assert.Equal(t, "testsuite", got.Headers.Get("User-Agent"))
}

func TestHPACKResponseRoundTrip(t *testing.T) {
	enc := newHPACKCodec(4096)
	dec := newHPACKCodec(4096)

	h := headers.New()
	h.Set("Content-Type", "text/plain")
	resp := &message.Head{
		Headers: h,
		Subject: message.StatusSubject{Code: 200, Reason: "OK"},
	}

	block, err := enc.encodeResponse(resp)
	require.NoError(t, err)

	fields, err := dec.decodeBlock(block)
	require.NoError(t, err)

	got, err := fieldsToHead(fields, false)
	require.NoError(t, err)
	assert.Equal(t, 200, got.Status().Code)
	assert.Equal(t, "text/plain", got.Headers.Get("Content-Type"))
}

func TestHPACKTrailersHaveNoPseudoHeaders(t *testing.T) {
	enc := newHPACKCodec(4096)
	dec := newHPACKCodec(4096)

	h := headers.New()
	h.Set("X-Checksum", "abc123")

	block, err := enc.writeTrailers(h)
	require.NoError(t, err)

	fields, err := dec.decodeBlock(block)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "x-checksum", fields[0].Name)
	assert.Equal(t, "abc123", fields[0].Value)
}
