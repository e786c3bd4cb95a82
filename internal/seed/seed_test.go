package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnstile/internal/events"
	"turnstile/internal/seats"
)

func TestSeats(t *testing.T) {
	all := Seats()
	require.Len(t, all, 50)

	bySection := map[string]int{}
	for _, s := range all {
		assert.Equal(t, "EVT001", s.EventID)
		bySection[s.Section]++
	}
	assert.Equal(t, map[string]int{"A": 10, "B": 20, "C": 20}, bySection)

	assert.Equal(t, "A-1-1", all[0].SeatID)
	assert.Equal(t, int64(200000), all[0].Price)
	assert.Equal(t, "C-4-5", all[len(all)-1].SeatID)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	eventRepo := events.NewMemoryRepository()
	seatRepo := seats.NewMemoryRepository()

	require.NoError(t, Load(ctx, eventRepo, seatRepo))

	open, err := eventRepo.GetByStatus(ctx, events.EventStatusOpen)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "EVT001", open[0].ID)
	assert.Equal(t, 100, open[0].MaxConcurrentUsers)

	festival, err := eventRepo.GetByID(ctx, "EVT002")
	require.NoError(t, err)
	assert.Equal(t, events.EventStatusUpcoming, festival.Status)

	vip, err := seatRepo.GetByEventIDAndSection(ctx, "EVT001", "A")
	require.NoError(t, err)
	assert.Len(t, vip, 10)

	seat, err := seatRepo.GetByID(ctx, "EVT001", "B-2-3")
	require.NoError(t, err)
	assert.Equal(t, seats.GradeR, seat.Grade)
	assert.Equal(t, seats.StatusAvailable, seat.Status)
}
