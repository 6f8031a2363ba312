package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceFuncReadyAlwaysSucceeds(t *testing.T) {
	var svc Service = ServiceFunc(func(ctx context.Context, req *Message) (*Message, error) {
		return req, nil
	})
	assert.NoError(t, svc.Ready(context.Background()))

	req := &Message{}
	resp, err := svc.Call(context.Background(), req)
	require.NoError(t, err)
	assert.Same(t, req, resp)
}

func TestTrySendErrorUnwrapsAndReturnsMessage(t *testing.T) {
	cause := errors.New("queue full")
	req := &Message{}
	e := &TrySendError[*Message]{Msg: req, Err: cause}

	assert.Equal(t, "queue full", e.Error())
	assert.Equal(t, cause, errors.Unwrap(e))
	assert.Same(t, req, e.IntoMessage())
}

func TestTrailersOfEmptyMapIsNil(t *testing.T) {
	assert.Nil(t, trailersOf(nil))
	assert.Nil(t, trailersOf(map[string][]string{}))
}

func TestTrailersOfPreservesAllValues(t *testing.T) {
	hs := trailersOf(map[string][]string{"X-Checksum": {"a", "b"}})
	require.NotNil(t, hs)
	h := hs.toHeaders()
	require.NotNil(t, h)
	assert.Equal(t, []string{"a", "b"}, h.Values("X-Checksum"))
}

func TestHeaderSetNilToHeadersIsNil(t *testing.T) {
	var hs *headerSet
	assert.Nil(t, hs.toHeaders())
}
