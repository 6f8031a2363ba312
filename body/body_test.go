package body

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperium/hyper-sub003/buffer"
	"github.com/hyperium/hyper-sub003/headers"
)

func TestPipeSendAndNext(t *testing.T) {
	p := NewPipe(4, 100)
	ctx := context.Background()

	require.NoError(t, p.SendData(ctx, buffer.Chunk("hello")))
	c, err := p.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, buffer.Chunk("hello"), c)
}

func TestPipeEndCleanYieldsNilNil(t *testing.T) {
	p := NewPipe(4, 100)
	ctx := context.Background()
	p.End(nil)

	c, err := p.Next(ctx)
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestPipeEndWithErrorSurfacesOnNext(t *testing.T) {
	p := NewPipe(4, 100)
	ctx := context.Background()
	wantErr := errors.New("boom")
	p.End(wantErr)

	_, err := p.Next(ctx)
	assert.Equal(t, wantErr, err)
}

func TestPipeSendDataBlocksUntilGrant(t *testing.T) {
	p := NewPipe(4, 2) // only 2 bytes of credit
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- p.SendData(ctx, buffer.Chunk("hello")) // 5 bytes, exceeds credit
	}()

	select {
	case <-done:
		t.Fatal("SendData returned before credit was available")
	case <-time.After(20 * time.Millisecond):
	}

	p.Grant(10)
	require.NoError(t, <-done)
}

func TestPipeCloseFailsFastSendData(t *testing.T) {
	p := NewPipe(4, 100)
	ctx := context.Background()
	p.Close()

	err := p.SendData(ctx, buffer.Chunk("x"))
	assert.ErrorIs(t, err, ErrReceiverGone)
}

func TestPipeTrailersAfterEndRejected(t *testing.T) {
	p := NewPipe(4, 100)
	p.End(nil)

	err := p.SendTrailers(headers.New())
	assert.ErrorIs(t, err, ErrTrailersAfterEnd)
}

func TestPipeTrailersBlocksUntilEnd(t *testing.T) {
	p := NewPipe(4, 100)
	ctx := context.Background()

	h := headers.New()
	h.Set("X-Trailer", "v")
	require.NoError(t, p.SendTrailers(h))

	done := make(chan *headers.Header, 1)
	go func() { done <- p.Trailers(ctx) }()

	select {
	case <-done:
		t.Fatal("Trailers returned before End")
	case <-time.After(20 * time.Millisecond):
	}

	p.End(nil)
	got := <-done
	require.NotNil(t, got)
	assert.Equal(t, "v", got.Get("X-Trailer"))
}

func TestPipeBodyAdaptsToBodyInterface(t *testing.T) {
	p := NewPipe(4, 100)
	ctx := context.Background()
	require.NoError(t, p.SendData(ctx, buffer.Chunk("abc")))
	p.End(nil)

	var b Body = &PipeBody{P: p}
	chunk, err := b.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), chunk)

	chunk2, err := b.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, chunk2)
}
