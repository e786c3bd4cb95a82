package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnstile/internal/shared/apperrors"
	"turnstile/pkg/cache"
	"turnstile/pkg/logger"
)

func seedEvents(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &Event{
		ID: "EVT001", Name: "2026 New Year Concert", Venue: "Olympic Gymnastics Arena",
		EventDate:          time.Date(2026, 2, 1, 19, 0, 0, 0, time.UTC),
		MaxConcurrentUsers: 100, Status: EventStatusOpen,
	}))
	require.NoError(t, repo.Save(ctx, &Event{
		ID: "EVT002", Name: "2026 Spring Music Festival", Venue: "Jamsil Sports Complex",
		EventDate:          time.Date(2026, 4, 15, 18, 0, 0, 0, time.UTC),
		MaxConcurrentUsers: 200, Status: EventStatusUpcoming,
	}))
}

func TestService_FindAndRequireOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepository()
	seedEvents(t, repo)
	svc := NewService(repo, logger.Discard())

	event, err := svc.RequireOpen(ctx, "EVT001")
	require.NoError(t, err)
	assert.Equal(t, 100, event.MaxConcurrentUsers)

	_, err = svc.RequireOpen(ctx, "EVT002")
	assert.True(t, apperrors.Has(err, apperrors.EventNotOpen))

	_, err = svc.FindEvent(ctx, "EVT999")
	assert.True(t, apperrors.Has(err, apperrors.EventNotFound))

	resp, err := svc.GetEvent(ctx, "EVT002")
	require.NoError(t, err)
	assert.Equal(t, "Upcoming", resp.StatusDescription)

	open, err := svc.OpenEvents(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "EVT001", open[0].ID)
}

func TestService_ListEventsOrdersByDate(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	seedEvents(t, repo)
	svc := NewService(repo, logger.Discard())

	list, err := svc.ListEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "EVT001", list[0].EventID)
	assert.Equal(t, "On sale", list[0].StatusDescription)
	assert.Equal(t, "EVT002", list[1].EventID)
}

func TestService_CachesEventDetail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := NewMemoryRepository()
	seedEvents(t, repo)
	svc := NewService(repo, logger.Discard())
	svc.SetCacheService(cache.NewService(client, logger.Discard()), time.Minute)

	first, err := svc.FindEvent(ctx, "EVT001")
	require.NoError(t, err)
	assert.Equal(t, EventStatusOpen, first.Status)

	// The cached copy is served until its TTL lapses
	require.NoError(t, repo.Save(ctx, &Event{ID: "EVT001", Name: "changed", MaxConcurrentUsers: 1, Status: EventStatusClosed}))
	cached, err := svc.FindEvent(ctx, "EVT001")
	require.NoError(t, err)
	assert.Equal(t, "2026 New Year Concert", cached.Name)

	mr.FastForward(2 * time.Minute)
	fresh, err := svc.FindEvent(ctx, "EVT001")
	require.NoError(t, err)
	assert.Equal(t, "changed", fresh.Name)

	_, err = svc.FindEvent(ctx, "EVT404")
	assert.True(t, apperrors.Has(err, apperrors.EventNotFound))
}
