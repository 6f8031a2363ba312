package h1

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperium/hyper-sub003/body"
	"github.com/hyperium/hyper-sub003/buffer"
)

func feedAll(t *testing.T, d BodyDecoder, input string, into *body.Pipe) {
	t.Helper()
	ring := buffer.NewRing(8, 0)
	buf, err := ring.Reserve(len(input))
	require.NoError(t, err)
	copy(buf, input)
	ring.Commit(len(input))

	done, err := d.Feed(context.Background(), ring, true, into)
	require.NoError(t, err)
	require.True(t, done)
}

func TestLengthDecoderDeliversExactBytes(t *testing.T) {
	p := body.NewPipe(4, 1000)
	d := NewBodyDecoder(Framing{Kind: KindLength, Length: 5})
	feedAll(t, d, "hello", p)

	c, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(c))
}

func TestEmptyDecoderEndsImmediately(t *testing.T) {
	p := body.NewPipe(4, 1000)
	d := NewBodyDecoder(Framing{Kind: KindEmpty})
	done, err := d.Feed(context.Background(), buffer.NewRing(8, 0), false, p)
	require.NoError(t, err)
	assert.True(t, done)

	c, err := p.Next(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestEofDecoderEndsOnTransportEOF(t *testing.T) {
	p := body.NewPipe(4, 1000)
	d := NewBodyDecoder(Framing{Kind: KindEof})
	feedAll(t, d, "trailing body", p)

	c, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "trailing body", string(c))
}

func TestChunkedDecoderFullCycle(t *testing.T) {
	p := body.NewPipe(4, 1000)
	d := NewBodyDecoder(Framing{Kind: KindChunked})

	raw := "5\r\nhello\r\n6\r\n world\r\n0\r\nX-Trailer: abc\r\n\r\n"
	feedAll(t, d, raw, p)

	c1, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(c1))

	c2, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, " world", string(c2))

	c3, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, c3)

	tr := p.Trailers(context.Background())
	require.NotNil(t, tr)
	assert.Equal(t, "abc", tr.Get("X-Trailer"))
}

func TestChunkedDecoderNeedsMoreReturnsNotDone(t *testing.T) {
	p := body.NewPipe(4, 1000)
	d := NewBodyDecoder(Framing{Kind: KindChunked})
	ring := buffer.NewRing(8, 0)
	partial := "5\r\nhel"
	buf, _ := ring.Reserve(len(partial))
	copy(buf, partial)
	ring.Commit(len(partial))

	done, err := d.Feed(context.Background(), ring, false, p)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestParseHexUint(t *testing.T) {
	n, err := parseHexUint([]byte("1a"))
	require.NoError(t, err)
	assert.EqualValues(t, 26, n)

	_, err = parseHexUint([]byte(""))
	assert.Error(t, err)

	_, err = parseHexUint([]byte("zz"))
	assert.Error(t, err)
}
