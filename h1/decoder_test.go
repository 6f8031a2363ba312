package h1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperium/hyper-sub003/buffer"
)

func TestDecoderNeedsMoreUntilBlankLine(t *testing.T) {
	d := NewDecoder(false)
	r := buffer.NewRing(16, 0)

	partial := "GET / HTTP/1.1\r\nHost: example.com\r\n"
	buf, _ := r.Reserve(len(partial))
	copy(buf, partial)
	r.Commit(len(partial))

	_, _, _, err := d.TryParseHead(r)
	assert.ErrorIs(t, err, ErrNeedMore)

	buf2, _ := r.Reserve(2)
	copy(buf2, "\r\n")
	r.Commit(2)

	head, framing, _, err := d.TryParseHead(r)
	require.NoError(t, err)
	assert.Equal(t, "GET", head.Request().Method)
	assert.Equal(t, "/", head.Request().Target)
	assert.Equal(t, KindEmpty, framing.Kind)
}

// TestDecoderIndependentOfReadSplitting is property P3: the same bytes
// split across arbitrarily many transport reads parse identically to one
// single read.
func TestDecoderIndependentOfReadSplitting(t *testing.T) {
	raw := "POST /submit HTTP/1.1\r\nHost: x\r\nContent-Length: 3\r\n\r\n"

	parseWithChunkSize := func(chunkSize int) *string {
		d := NewDecoder(false)
		r := buffer.NewRing(8, 0)
		var method string
		for i := 0; i < len(raw); i += chunkSize {
			end := i + chunkSize
			if end > len(raw) {
				end = len(raw)
			}
			part := raw[i:end]
			buf, err := r.Reserve(len(part))
			require.NoError(t, err)
			copy(buf, part)
			r.Commit(len(part))

			head, _, _, err := d.TryParseHead(r)
			if err == ErrNeedMore {
				continue
			}
			require.NoError(t, err)
			method = head.Request().Method
			return &method
		}
		return nil
	}

	oneShot := parseWithChunkSize(len(raw))
	byteAtATime := parseWithChunkSize(1)
	require.NotNil(t, oneShot)
	require.NotNil(t, byteAtATime)
	assert.Equal(t, *oneShot, *byteAtATime)
}
