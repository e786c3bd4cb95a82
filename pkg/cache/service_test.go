package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnstile/pkg/logger"
)

type cachedEvent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestCache(t *testing.T) (Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(client, logger.Discard()), mr
}

func TestService_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	svc, mr := newTestCache(t)

	var got cachedEvent
	assert.ErrorIs(t, svc.Get(ctx, "turnstile:events:detail:EVT001", &got), ErrCacheMiss)

	require.NoError(t, svc.Set(ctx, "turnstile:events:detail:EVT001", cachedEvent{ID: "EVT001", Name: "Concert"}, time.Minute))
	require.NoError(t, svc.Get(ctx, "turnstile:events:detail:EVT001", &got))
	assert.Equal(t, "Concert", got.Name)
	assert.True(t, svc.Exists(ctx, "turnstile:events:detail:EVT001"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, svc.Exists(ctx, "turnstile:events:detail:EVT001"))

	require.NoError(t, svc.Set(ctx, "turnstile:events:detail:EVT001", cachedEvent{ID: "EVT001"}, time.Minute))
	require.NoError(t, svc.Set(ctx, "turnstile:events:detail:EVT002", cachedEvent{ID: "EVT002"}, time.Minute))
	require.NoError(t, svc.Set(ctx, "turnstile:events:list", []cachedEvent{}, time.Minute))
	require.NoError(t, svc.DeletePattern(ctx, "turnstile:events:detail:*"))
	assert.False(t, svc.Exists(ctx, "turnstile:events:detail:EVT002"))
	assert.True(t, svc.Exists(ctx, "turnstile:events:list"))

	require.NoError(t, svc.Delete(ctx, "turnstile:events:list"))
	assert.False(t, svc.Exists(ctx, "turnstile:events:list"))
	require.NoError(t, svc.Delete(ctx))
}

func TestService_GetOrSet(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCache(t)

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return cachedEvent{ID: "EVT001", Name: "Concert"}, nil
	}

	var first, second cachedEvent
	require.NoError(t, svc.GetOrSet(ctx, "k", time.Minute, fetch, &first))
	require.NoError(t, svc.GetOrSet(ctx, "k", time.Minute, fetch, &second))
	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	boom := errors.New("db down")
	var out cachedEvent
	err := svc.GetOrSet(ctx, "other", time.Minute, func() (interface{}, error) { return nil, boom }, &out)
	assert.ErrorIs(t, err, boom)
}

func TestService_GetOrSetSurvivesRedisOutage(t *testing.T) {
	ctx := context.Background()
	svc, mr := newTestCache(t)
	mr.Close()

	var out cachedEvent
	err := svc.GetOrSet(ctx, "k", time.Minute, func() (interface{}, error) {
		return cachedEvent{ID: "EVT001"}, nil
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "EVT001", out.ID)
	assert.Error(t, svc.Ping(ctx))
}
