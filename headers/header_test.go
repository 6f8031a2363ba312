package headers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderAddPreservesOrderAndDuplicates(t *testing.T) {
	h := New()
	h.Add("X-B", "1")
	h.Add("x-a", "2")
	h.Add("X-B", "3")

	assert.Equal(t, []string{"X-B", "X-A"}, h.Keys())
	assert.Equal(t, []string{"1", "3"}, h.Values("X-B"))
	assert.Equal(t, "1", h.Get("x-b"))
}

func TestHeaderSetReplaces(t *testing.T) {
	h := New()
	h.Add("Content-Length", "1")
	h.Add("Content-Length", "2")
	h.Set("Content-Length", "3")
	require.Equal(t, []string{"3"}, h.Values("Content-Length"))
	assert.Equal(t, 1, h.Len())
}

func TestHeaderDelRemovesFromOrder(t *testing.T) {
	h := New()
	h.Set("A", "1")
	h.Set("B", "2")
	h.Del("A")
	assert.False(t, h.Has("A"))
	assert.Equal(t, []string{"B"}, h.Keys())
}

func TestHeaderResetKeepsAllocation(t *testing.T) {
	h := New()
	h.Set("A", "1")
	h.Reset()
	assert.Equal(t, 0, h.Len())
	assert.False(t, h.Has("A"))
}

func TestHeaderCloneIsIndependent(t *testing.T) {
	h := New()
	h.Add("A", "1")
	clone := h.Clone()
	clone.Add("A", "2")
	assert.Equal(t, []string{"1"}, h.Values("A"))
	assert.Equal(t, []string{"1", "2"}, clone.Values("A"))
}

func TestCanonicalKey(t *testing.T) {
	assert.Equal(t, "Content-Type", CanonicalKey("content-type"))
	assert.Equal(t, "Content-Type", CanonicalKey("CONTENT-TYPE"))
}
