package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnstile/internal/shared/constants"
)

func TestRedisLeaderLease(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	first := NewRedisLeaderLease(client, constants.KEY_SCHEDULER_LEAD, "instance-a", 30*time.Second)
	second := NewRedisLeaderLease(client, constants.KEY_SCHEDULER_LEAD, "instance-b", 30*time.Second)

	held, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, held)

	held, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, held)

	// Renewal keeps the holder in place past the original lease
	mr.FastForward(20 * time.Second)
	held, err = first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, held)
	mr.FastForward(20 * time.Second)
	held, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, held)

	// A release by the non-holder changes nothing
	require.NoError(t, second.Release(ctx))
	owner, err := mr.Get(constants.KEY_SCHEDULER_LEAD)
	require.NoError(t, err)
	assert.Equal(t, "instance-a", owner)

	require.NoError(t, first.Release(ctx))
	held, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, held)

	// An abandoned lease lapses
	mr.FastForward(31 * time.Second)
	held, err = first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, held)
}
