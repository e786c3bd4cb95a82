package queue

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnstile/internal/shared/constants"
)

var frozenNow = time.Date(2026, 2, 1, 19, 0, 0, 0, time.UTC)

func frozenClock() time.Time { return frozenNow }

// setSequence moves an event's arrival counter as if that many users had entered
type setSequence func(t *testing.T, eventID string, sequence int64)

type storeFactory struct {
	name  string
	build func(t *testing.T, now func() time.Time) (Store, setSequence)
}

func storeFactories() []storeFactory {
	return []storeFactory{
		{
			name: "redis",
			build: func(t *testing.T, now func() time.Time) (Store, setSequence) {
				mr := miniredis.RunT(t)
				client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				t.Cleanup(func() { _ = client.Close() })
				set := func(t *testing.T, eventID string, sequence int64) {
					require.NoError(t, mr.Set(constants.BuildQueueSequenceKey(eventID), strconv.FormatInt(sequence, 10)))
				}
				return NewRedisStore(client, WithClock(now)), set
			},
		},
		{
			name: "memory",
			build: func(t *testing.T, now func() time.Time) (Store, setSequence) {
				store := NewMemoryStore(WithClock(now)).(*memoryStore)
				set := func(t *testing.T, eventID string, sequence int64) {
					store.mu.Lock()
					defer store.mu.Unlock()
					store.queue(eventID).sequence = sequence
				}
				return store, set
			},
		},
	}
}

func userName(i int) string {
	return "U" + strconv.Itoa(i)
}

func TestStore_SameMillisecondArrivalsKeepOrder(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			store, _ := f.build(t, frozenClock)

			const n = 1000
			for i := 0; i < n; i++ {
				_, err := store.Enter(ctx, "EVT001", userName(i))
				require.NoError(t, err)
			}

			total, err := store.TotalWaiting(ctx, "EVT001")
			require.NoError(t, err)
			assert.Equal(t, int64(n), total)

			seen := make(map[int64]bool, n)
			for i := 0; i < n; i++ {
				rank, ok, err := store.Position(ctx, "EVT001", userName(i))
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, int64(i), rank)
				seen[rank] = true
			}
			assert.Len(t, seen, n)
		})
	}
}

func TestStore_EnterLeavePosition(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			store, _ := f.build(t, frozenClock)

			for i := 1; i <= 3; i++ {
				seq, err := store.Enter(ctx, "EVT001", userName(i))
				require.NoError(t, err)
				assert.Equal(t, int64(i), seq)
			}

			_, ok, err := store.Position(ctx, "EVT002", "U1")
			require.NoError(t, err)
			assert.False(t, ok, "queues are per event")

			left, err := store.Leave(ctx, "EVT001", "U2")
			require.NoError(t, err)
			assert.True(t, left)

			left, err = store.Leave(ctx, "EVT001", "U2")
			require.NoError(t, err)
			assert.False(t, left)

			rank, ok, err := store.Position(ctx, "EVT001", "U3")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, int64(1), rank)

			// Entering again re-scores the user behind everyone else
			_, err = store.Enter(ctx, "EVT001", "U1")
			require.NoError(t, err)
			front, err := store.PeekFront(ctx, "EVT001", 10)
			require.NoError(t, err)
			assert.Equal(t, []string{"U3", "U1"}, front)

			total, err := store.TotalWaiting(ctx, "EVT001")
			require.NoError(t, err)
			assert.Equal(t, int64(2), total)
		})
	}
}

func TestStore_PopFront(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			store, _ := f.build(t, frozenClock)

			for i := 1; i <= 5; i++ {
				_, err := store.Enter(ctx, "EVT001", userName(i))
				require.NoError(t, err)
			}

			peeked, err := store.PeekFront(ctx, "EVT001", 2)
			require.NoError(t, err)
			assert.Equal(t, []string{"U1", "U2"}, peeked)

			popped, err := store.PopFront(ctx, "EVT001", 2)
			require.NoError(t, err)
			assert.Equal(t, []string{"U1", "U2"}, popped)

			rank, ok, err := store.Position(ctx, "EVT001", "U3")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Zero(t, rank)

			popped, err = store.PopFront(ctx, "EVT001", 0)
			require.NoError(t, err)
			assert.Empty(t, popped)

			popped, err = store.PopFront(ctx, "EVT001", 10)
			require.NoError(t, err)
			assert.Equal(t, []string{"U3", "U4", "U5"}, popped)

			popped, err = store.PopFront(ctx, "EVT001", 10)
			require.NoError(t, err)
			assert.Empty(t, popped)
		})
	}
}

func TestStore_ConcurrentPopFrontNeverDuplicates(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			store, _ := f.build(t, frozenClock)

			const n = 200
			for i := 0; i < n; i++ {
				_, err := store.Enter(ctx, "EVT001", userName(i))
				require.NoError(t, err)
			}

			var (
				mu    sync.Mutex
				wg    sync.WaitGroup
				seen  = make(map[string]int)
				start = make(chan struct{})
			)
			for w := 0; w < 8; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					for {
						users, err := store.PopFront(ctx, "EVT001", 7)
						if !assert.NoError(t, err) || len(users) == 0 {
							return
						}
						mu.Lock()
						for _, u := range users {
							seen[u]++
						}
						mu.Unlock()
					}
				}()
			}
			close(start)
			wg.Wait()

			assert.Len(t, seen, n)
			for user, count := range seen {
				assert.Equal(t, 1, count, "user %s popped more than once", user)
			}
		})
	}
}

func TestStore_OrderSurvivesSequenceRollover(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			store, setSequence := f.build(t, frozenClock)

			// The next draws are 9999, 10000 and 10001, all in one millisecond
			setSequence(t, "EVT001", 9_998)
			for _, user := range []string{"first", "second", "third"} {
				_, err := store.Enter(ctx, "EVT001", user)
				require.NoError(t, err)
			}

			front, err := store.PeekFront(ctx, "EVT001", 10)
			require.NoError(t, err)
			assert.Equal(t, []string{"first", "second", "third"}, front)
		})
	}
}

func TestStore_OrderHoldsWhenClockStepsBack(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			now := frozenNow
			store, _ := f.build(t, func() time.Time { return now })

			_, err := store.Enter(ctx, "EVT001", "U1")
			require.NoError(t, err)

			// An instance with a slower clock enqueues after U1
			now = frozenNow.Add(-5 * time.Millisecond)
			_, err = store.Enter(ctx, "EVT001", "U2")
			require.NoError(t, err)

			now = frozenNow.Add(time.Millisecond)
			_, err = store.Enter(ctx, "EVT001", "U3")
			require.NoError(t, err)

			front, err := store.PeekFront(ctx, "EVT001", 10)
			require.NoError(t, err)
			assert.Equal(t, []string{"U1", "U2", "U3"}, front)
		})
	}
}

func TestArrivalScore(t *testing.T) {
	t.Parallel()

	base := arrivalBase(frozenNow)
	assert.Equal(t, base, arrivalScore(base, 0, false))
	assert.Equal(t, base+1, arrivalScore(base, base, true), "same millisecond takes the next slot")
	assert.Equal(t, base+10_000, arrivalScore(base, base+9_999, true), "a full millisecond spills into the next")
	assert.Equal(t, base+slotsPerMilli, arrivalScore(base+slotsPerMilli, base+3, true), "a later millisecond starts at its own base")

	// Twenty-five years out, neighbouring scores are still distinct float64 values
	far := arrivalBase(time.Date(2050, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.NotEqual(t, float64(far), float64(arrivalScore(far, far, true)))
}
