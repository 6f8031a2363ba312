package h2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameHeaderRoundTrip(t *testing.T) {
	fh := FrameHeader{Length: 42, Type: FrameData, Flags: FlagEndStream, StreamID: 7}
	buf := WriteFrameHeader(nil, fh)
	assert.Len(t, buf, frameHeaderLen)

	got := ParseFrameHeader(buf)
	assert.Equal(t, fh, got)
}

func TestFrameHeaderStreamIDMasksReservedBit(t *testing.T) {
	buf := WriteFrameHeader(nil, FrameHeader{StreamID: 0x80000005})
	got := ParseFrameHeader(buf)
	assert.EqualValues(t, 5, got.StreamID)
}

func TestFrameHasFlag(t *testing.T) {
	fh := FrameHeader{Flags: FlagEndHeaders | FlagPadded}
	assert.True(t, fh.hasFlag(FlagEndHeaders))
	assert.True(t, fh.hasFlag(FlagPadded))
	assert.False(t, fh.hasFlag(FlagEndStream))
}
