package seats

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 2, 1, 19, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type lockStoreFactory struct {
	name  string
	build func(t *testing.T, ttl time.Duration) (LockStore, func(time.Duration))
}

func lockStoreFactories() []lockStoreFactory {
	return []lockStoreFactory{
		{
			name: "redis",
			build: func(t *testing.T, ttl time.Duration) (LockStore, func(time.Duration)) {
				mr := miniredis.RunT(t)
				client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				t.Cleanup(func() { _ = client.Close() })
				require.NoError(t, PreloadScripts(context.Background(), client))
				return NewRedisLockStore(client, ttl), mr.FastForward
			},
		},
		{
			name: "memory",
			build: func(t *testing.T, ttl time.Duration) (LockStore, func(time.Duration)) {
				clock := newFakeClock()
				return NewMemoryLockStore(ttl, WithClock(clock.Now)), clock.Advance
			},
		},
	}
}

func TestLockStore_Outcomes(t *testing.T) {
	for _, f := range lockStoreFactories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			store, advance := f.build(t, 300*time.Second)

			res, err := store.TryLock(ctx, "EVT001", "A-1-1", "U1")
			require.NoError(t, err)
			assert.Equal(t, LockSuccess, res)

			advance(100 * time.Second)

			res, err = store.TryLock(ctx, "EVT001", "A-1-1", "U1")
			require.NoError(t, err)
			assert.Equal(t, LockAlreadyOwned, res)

			// Re-entry does not extend the hold
			ttl, err := store.RemainingTTL(ctx, "EVT001", "A-1-1")
			require.NoError(t, err)
			assert.InDelta(t, 200, ttl.Seconds(), 1)

			res, err = store.TryLock(ctx, "EVT001", "A-1-1", "U2")
			require.NoError(t, err)
			assert.Equal(t, LockLocked, res)

			owner, ok, err := store.LockedBy(ctx, "EVT001", "A-1-1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "U1", owner)

			// Same seat id under another event is a different lock
			res, err = store.TryLock(ctx, "EVT002", "A-1-1", "U2")
			require.NoError(t, err)
			assert.Equal(t, LockSuccess, res)
		})
	}
}

func TestLockStore_UnlockChecksOwner(t *testing.T) {
	for _, f := range lockStoreFactories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			store, _ := f.build(t, 300*time.Second)

			_, err := store.TryLock(ctx, "EVT001", "A-1-1", "U1")
			require.NoError(t, err)

			ok, err := store.Unlock(ctx, "EVT001", "A-1-1", "U2")
			require.NoError(t, err)
			assert.False(t, ok, "non-owner must not release the lock")

			lockedBy, err := store.IsLockedBy(ctx, "EVT001", "A-1-1", "U1")
			require.NoError(t, err)
			assert.True(t, lockedBy)

			ok, err = store.Unlock(ctx, "EVT001", "A-1-1", "U1")
			require.NoError(t, err)
			assert.True(t, ok)

			locked, err := store.IsLocked(ctx, "EVT001", "A-1-1")
			require.NoError(t, err)
			assert.False(t, locked)

			// Round trip: a different user can now take it
			res, err := store.TryLock(ctx, "EVT001", "A-1-1", "U2")
			require.NoError(t, err)
			assert.Equal(t, LockSuccess, res)

			// Releasing a lock that no longer exists is a silent no-op
			ok, err = store.Unlock(ctx, "EVT001", "A-9-9", "U1")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestLockStore_ExpiryAndForceUnlock(t *testing.T) {
	for _, f := range lockStoreFactories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			store, advance := f.build(t, 300*time.Second)

			_, err := store.TryLock(ctx, "EVT001", "A-1-1", "U1")
			require.NoError(t, err)
			_, err = store.TryLock(ctx, "EVT001", "A-1-2", "U1")
			require.NoError(t, err)

			locked, err := store.LockedSeats(ctx, "EVT001", []string{"A-1-1", "A-1-2", "A-1-3"})
			require.NoError(t, err)
			assert.Equal(t, map[string]bool{"A-1-1": true, "A-1-2": true, "A-1-3": false}, locked)

			require.NoError(t, store.ForceUnlock(ctx, "EVT001", "A-1-1"))
			isLocked, err := store.IsLocked(ctx, "EVT001", "A-1-1")
			require.NoError(t, err)
			assert.False(t, isLocked)

			advance(301 * time.Second)

			isLocked, err = store.IsLocked(ctx, "EVT001", "A-1-2")
			require.NoError(t, err)
			assert.False(t, isLocked, "lock must lapse on its own")

			ttl, err := store.RemainingTTL(ctx, "EVT001", "A-1-2")
			require.NoError(t, err)
			assert.Zero(t, ttl)

			res, err := store.TryLock(ctx, "EVT001", "A-1-2", "U2")
			require.NoError(t, err)
			assert.Equal(t, LockSuccess, res)
		})
	}
}

func TestLockStore_ConcurrentTryLockHasOneWinner(t *testing.T) {
	for _, f := range lockStoreFactories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			store, _ := f.build(t, 300*time.Second)

			const contenders = 64
			var (
				wg        sync.WaitGroup
				successes atomic.Int32
				locked    atomic.Int32
				start     = make(chan struct{})
			)

			for i := 0; i < contenders; i++ {
				wg.Add(1)
				go func(userID string) {
					defer wg.Done()
					<-start
					res, err := store.TryLock(ctx, "EVT001", "A-1-1", userID)
					if !assert.NoError(t, err) {
						return
					}
					switch res {
					case LockSuccess:
						successes.Add(1)
					case LockLocked:
						locked.Add(1)
					}
				}("U" + strconv.Itoa(i))
			}
			close(start)
			wg.Wait()

			assert.Equal(t, int32(1), successes.Load())
			assert.Equal(t, int32(contenders-1), locked.Load())
		})
	}
}
