package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_PutBlocksWhenFull(t *testing.T) {
	q := NewQueue(1)
	ctx := context.Background()
	require.NoError(t, q.Put(ctx, []byte("a")))
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, 1, q.Cap())

	timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := q.Put(timeoutCtx, []byte("b"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_CloseEndsStreamAfterDrain(t *testing.T) {
	q := NewQueue(4)
	ctx := context.Background()
	require.NoError(t, q.Put(ctx, []byte("a")))
	q.Close()
	q.Close()

	chunk, ok, err := q.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", string(chunk))

	_, ok, err = q.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueue_GetHonoursContext(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := q.Get(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewQueue_MinimumCapacity(t *testing.T) {
	assert.Equal(t, 1, NewQueue(0).Cap())
}
