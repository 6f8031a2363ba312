package buffer

// Chunk is an immutable, shared (copy-free) slice of body bytes.
type Chunk []byte

// ChunkList holds an ordered sequence of Chunks and implements the
// zero-copy scatter/gather operations spec §4.A calls for: Vectored fills an
// I/O-vector-shaped [][]byte from the head chunks without copying; Advance
// pops fully-consumed head chunks. No other package in this module uses it:
// h1.Encoder writes heads and body chunks through a bufio.Writer instead.
type ChunkList struct {
	chunks []Chunk
	// consumed is how many leading bytes of chunks[0] have already been
	// advanced past.
	consumed int
}

// Push appends a chunk to the tail of the list.
func (c *ChunkList) Push(chunk Chunk) {
	c.chunks = append(c.chunks, chunk)
}

// Len returns the total unconsumed byte length across all chunks.
func (c *ChunkList) Len() int {
	total := -c.consumed
	for _, ch := range c.chunks {
		total += len(ch)
	}
	if total < 0 {
		total = 0
	}
	return total
}

// Empty reports whether there is no unconsumed data.
func (c *ChunkList) Empty() bool { return len(c.chunks) == 0 }

// Vectored fills iovs (reused across calls by the caller) with up to
// len(iovs) head chunks' unconsumed bytes, without copying, and returns how
// many were filled.
func (c *ChunkList) Vectored(iovs [][]byte) int {
	n := 0
	for i := 0; i < len(c.chunks) && n < len(iovs); i++ {
		b := []byte(c.chunks[i])
		if i == 0 {
			b = b[c.consumed:]
		}
		if len(b) == 0 {
			continue
		}
		iovs[n] = b
		n++
	}
	return n
}

// Advance marks n bytes as consumed from the head of the list, dropping any
// chunk that becomes fully consumed.
func (c *ChunkList) Advance(n int) {
	for n > 0 && len(c.chunks) > 0 {
		remain := len(c.chunks[0]) - c.consumed
		if n < remain {
			c.consumed += n
			return
		}
		n -= remain
		c.chunks = c.chunks[1:]
		c.consumed = 0
	}
}
