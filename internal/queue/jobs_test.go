package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnstile/internal/events"
	"turnstile/pkg/logger"
	"turnstile/pkg/metrics"
)

func enterAll(t *testing.T, svc Service, eventID string, users ...string) {
	t.Helper()
	for _, u := range users {
		_, err := svc.EnterQueue(context.Background(), eventID, u)
		require.NoError(t, err)
	}
}

func position(t *testing.T, store Store, eventID, userID string) int64 {
	t.Helper()
	rank, ok, err := store.Position(context.Background(), eventID, userID)
	require.NoError(t, err)
	require.True(t, ok, "%s should be queued", userID)
	return rank
}

func TestAdmissionScheduler_AdmitsUpToCapacity(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t, 2)
	scheduler := NewAdmissionScheduler(f.svc, f.events, f.tokens, nil, logger.Discard(), nil)

	enterAll(t, f.svc, "EVT001", "U1", "U2", "U3", "U4", "U5")

	scheduler.Tick(ctx)

	live, err := f.tokens.CountLive(ctx, "EVT001")
	require.NoError(t, err)
	assert.Equal(t, 2, live)
	for _, u := range []string{"U1", "U2"} {
		ok, err := f.tokens.Has(ctx, "EVT001", u)
		require.NoError(t, err)
		assert.True(t, ok, "%s should be admitted", u)
	}
	assert.Equal(t, int64(0), position(t, f.store, "EVT001", "U3"))
	assert.Equal(t, int64(1), position(t, f.store, "EVT001", "U4"))
	assert.Equal(t, int64(2), position(t, f.store, "EVT001", "U5"))

	// Full: nothing moves
	scheduler.Tick(ctx)
	assert.Equal(t, int64(0), position(t, f.store, "EVT001", "U3"))

	// A token consumed by a purchase frees exactly one slot
	_, err = f.tokens.Delete(ctx, "EVT001", "U1")
	require.NoError(t, err)
	scheduler.Tick(ctx)

	ok, err := f.tokens.Has(ctx, "EVT001", "U3")
	require.NoError(t, err)
	assert.True(t, ok)
	live, err = f.tokens.CountLive(ctx, "EVT001")
	require.NoError(t, err)
	assert.Equal(t, 2, live)
	assert.Equal(t, int64(0), position(t, f.store, "EVT001", "U4"))

	// Expired tokens free their slots without any cleanup
	f.clock.Advance(601 * time.Second)
	scheduler.Tick(ctx)
	total, err := f.store.TotalWaiting(ctx, "EVT001")
	require.NoError(t, err)
	assert.Zero(t, total)
	live, err = f.tokens.CountLive(ctx, "EVT001")
	require.NoError(t, err)
	assert.Equal(t, 2, live)
}

type stubEvents struct {
	events []events.Event
}

func (s *stubEvents) OpenEvents(context.Context) ([]events.Event, error) {
	return s.events, nil
}

type failingCounter struct {
	LiveTokenCounter
	failFor string
}

func (c *failingCounter) CountLive(ctx context.Context, eventID string) (int, error) {
	if eventID == c.failFor {
		return 0, errors.New("store unavailable")
	}
	return c.LiveTokenCounter.CountLive(ctx, eventID)
}

func TestAdmissionScheduler_EventFailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t, 2)
	reg := prometheus.NewRegistry()
	m := metrics.NewAdmissionMetricsWithRegisterer(reg)

	source := &stubEvents{events: []events.Event{
		{ID: "EVT000", MaxConcurrentUsers: 5, Status: events.EventStatusOpen},
		{ID: "EVT001", MaxConcurrentUsers: 2, Status: events.EventStatusOpen},
	}}
	counter := &failingCounter{LiveTokenCounter: f.tokens, failFor: "EVT000"}
	scheduler := NewAdmissionScheduler(f.svc, source, counter, nil, logger.Discard(), m)

	enterAll(t, f.svc, "EVT001", "U1")
	scheduler.Tick(ctx)

	ok, err := f.tokens.Has(ctx, "EVT001", "U1")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 1, testutil.CollectAndCount(reg, "turnstile_scheduler_errors_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "turnstile_admitted_users_total"))
}

type stubLease struct {
	held     bool
	released bool
}

func (l *stubLease) Acquire(context.Context) (bool, error) { return l.held, nil }
func (l *stubLease) Release(context.Context) error {
	l.released = true
	return nil
}

func TestAdmissionScheduler_SkipsTickWithoutLease(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t, 2)
	lease := &stubLease{}
	scheduler := NewAdmissionScheduler(f.svc, f.events, f.tokens,
		&SchedulerConfig{Interval: time.Hour, Lease: lease}, logger.Discard(), nil)

	enterAll(t, f.svc, "EVT001", "U1")

	scheduler.Tick(ctx)
	assert.Equal(t, int64(0), position(t, f.store, "EVT001", "U1"))

	lease.held = true
	scheduler.Tick(ctx)
	ok, err := f.tokens.Has(ctx, "EVT001", "U1")
	require.NoError(t, err)
	assert.True(t, ok)

	scheduler.Start(ctx)
	scheduler.Stop()
	scheduler.Stop()
	assert.True(t, lease.released)
}
