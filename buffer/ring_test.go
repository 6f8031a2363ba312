package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingReserveCommitAdvance(t *testing.T) {
	r := NewRing(4, 0)
	buf, err := r.Reserve(6)
	require.NoError(t, err)
	copy(buf, []byte("abcdef"))
	r.Commit(6)

	assert.Equal(t, 6, r.Len())
	assert.Equal(t, []byte("abcdef"), r.Peek())

	r.Advance(2)
	assert.Equal(t, []byte("cdef"), r.Peek())
}

func TestRingAdvanceToEmptyResetsOffsets(t *testing.T) {
	r := NewRing(8, 0)
	buf, _ := r.Reserve(3)
	copy(buf, []byte("xyz"))
	r.Commit(3)
	r.Advance(3)
	assert.Equal(t, 0, r.Len())

	buf2, _ := r.Reserve(3)
	copy(buf2, []byte("abc"))
	r.Commit(3)
	assert.Equal(t, []byte("abc"), r.Peek())
}

func TestRingSplitWritesStillParseContiguously(t *testing.T) {
	r := NewRing(4, 0)
	for _, part := range []string{"ab", "cd", "ef"} {
		buf, err := r.Reserve(len(part))
		require.NoError(t, err)
		copy(buf, part)
		r.Commit(len(part))
	}
	assert.Equal(t, "abcdef", string(r.Peek()))
}

func TestRingReserveTooLarge(t *testing.T) {
	r := NewRing(4, 10)
	_, err := r.Reserve(4)
	require.NoError(t, err)
	_, err = r.Reserve(100)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestChunkListVectoredAndAdvance(t *testing.T) {
	var cl ChunkList
	cl.Push(Chunk("hello"))
	cl.Push(Chunk("world"))
	assert.Equal(t, 10, cl.Len())

	iovs := make([][]byte, 2)
	n := cl.Vectored(iovs)
	require.Equal(t, 2, n)
	assert.Equal(t, []byte("hello"), iovs[0])

	cl.Advance(7)
	assert.Equal(t, 3, cl.Len())
	iovs2 := make([][]byte, 1)
	cl.Vectored(iovs2)
	assert.Equal(t, []byte("rld"), iovs2[0])
}
