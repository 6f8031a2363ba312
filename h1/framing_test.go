package h1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperium/hyper-sub003/errs"
	"github.com/hyperium/hyper-sub003/headers"
	"github.com/hyperium/hyper-sub003/message"
)

func newHead(proto message.Version, hdrs map[string]string) *message.Head {
	h := headers.New()
	for k, v := range hdrs {
		h.Set(k, v)
	}
	return &message.Head{
		Proto:   proto,
		Headers: h,
		Subject: message.RequestSubject{Method: message.MethodGet, Target: "/"},
	}
}

func TestSelectFramingContentLength(t *testing.T) {
	h := newHead(message.Version11, map[string]string{"Content-Length": "5"})
	f, flags, err := selectFraming(h, false, message.MethodGet)
	require.NoError(t, err)
	assert.Equal(t, KindLength, f.Kind)
	assert.EqualValues(t, 5, f.Length)
	assert.True(t, flags.KeepAlive)
}

func TestSelectFramingChunked(t *testing.T) {
	h := newHead(message.Version11, map[string]string{"Transfer-Encoding": "chunked"})
	f, _, err := selectFraming(h, false, message.MethodGet)
	require.NoError(t, err)
	assert.Equal(t, KindChunked, f.Kind)
}

func TestSelectFramingRejectsLengthAndChunkedTogether(t *testing.T) {
	h := newHead(message.Version11, map[string]string{
		"Transfer-Encoding": "chunked",
		"Content-Length":    "5",
	})
	_, _, err := selectFraming(h, false, message.MethodGet)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Parse))
}

func TestSelectFramingNoBodyRequestDefaultsEmpty(t *testing.T) {
	h := newHead(message.Version11, nil)
	f, _, err := selectFraming(h, false, message.MethodGet)
	require.NoError(t, err)
	assert.Equal(t, KindEmpty, f.Kind)
}

func TestSelectFramingResponseHeadRequestIsEmpty(t *testing.T) {
	h := &message.Head{
		Proto:   message.Version11,
		Headers: headers.New(),
		Subject: message.StatusSubject{Code: 200, Reason: "OK"},
	}
	f, flags, err := selectFraming(h, true, message.MethodHead)
	require.NoError(t, err)
	assert.Equal(t, KindEmpty, f.Kind)
	assert.True(t, flags.KeepAlive)
}

func TestSelectFramingHTTP10DefaultsClose(t *testing.T) {
	h := newHead(message.Version10, nil)
	_, flags, err := selectFraming(h, false, message.MethodGet)
	require.NoError(t, err)
	assert.False(t, flags.KeepAlive)
}

func TestKeepAliveDefaultHonorsConnectionHeader(t *testing.T) {
	h := newHead(message.Version11, map[string]string{"Connection": "close"})
	assert.False(t, keepAliveDefault(h))

	h2 := newHead(message.Version10, map[string]string{"Connection": "keep-alive"})
	assert.True(t, keepAliveDefault(h2))
}
