package tracehooks

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromReturnsZeroValueWhenUnset(t *testing.T) {
	h := From(context.Background())
	require.NotNil(t, h)
	assert.Nil(t, h.OnRequestHead)
}

func TestWithHooksRoundTrip(t *testing.T) {
	var fired bool
	ctx := WithHooks(context.Background(), &Hooks{
		OnRequestHead: func(id uuid.UUID) { fired = true },
	})

	h := From(ctx)
	require.NotNil(t, h.OnRequestHead)
	h.OnRequestHead(uuid.New())
	assert.True(t, fired)
}

func TestWithHooksComposesOuterFirst(t *testing.T) {
	var order []string
	ctx := WithHooks(context.Background(), &Hooks{
		OnConnClosed: func(id uuid.UUID, err error) { order = append(order, "inner") },
	})
	ctx = WithHooks(ctx, &Hooks{
		OnConnClosed: func(id uuid.UUID, err error) { order = append(order, "outer") },
	})

	h := From(ctx)
	h.OnConnClosed(uuid.New(), nil)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestNewIDProducesDistinctValues(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}
