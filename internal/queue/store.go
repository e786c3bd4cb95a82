package queue

import (
	"context"
	"time"
)

// Store is the per-event arrival queue. Members are user ids ordered by arrival score;
// a user appears at most once per event.
type Store interface {
	// Enter queues userID and returns the sequence number it drew. Entering again
	// replaces the previous score.
	Enter(ctx context.Context, eventID, userID string) (int64, error)
	Leave(ctx context.Context, eventID, userID string) (bool, error)
	// Position is the 0-based rank; ok is false when the user is not queued
	Position(ctx context.Context, eventID, userID string) (rank int64, ok bool, err error)
	TotalWaiting(ctx context.Context, eventID string) (int64, error)
	// PopFront removes and returns up to n of the earliest arrivals as one atomic step
	PopFront(ctx context.Context, eventID string, n int) ([]string, error)
	// PeekFront returns up to n of the earliest arrivals without removing them
	PeekFront(ctx context.Context, eventID string, n int) ([]string, error)
}

// Option configures a queue store
type Option func(*storeOptions)

type storeOptions struct {
	now func() time.Time
}

// WithClock overrides the arrival time source
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) {
		o.now = now
	}
}

func applyOptions(opts []Option) storeOptions {
	o := storeOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

const (
	// scoreEpochMillis is 2025-01-01T00:00:00Z
	scoreEpochMillis int64 = 1735689600000
	// slotsPerMilli is how many arrivals one millisecond orders before borrowing
	// the slots of the next one
	slotsPerMilli int64 = 10_000
)

// arrivalBase is the first score of the millisecond at. Millis are taken relative
// to scoreEpochMillis so scores stay exact integers in a float64.
func arrivalBase(at time.Time) int64 {
	return (at.UnixMilli() - scoreEpochMillis) * slotsPerMilli
}

// arrivalScore hands out the next score of an event's queue: the millisecond base,
// or one past the previous score when that is already at or beyond it. Scores are
// therefore strictly increasing in enqueue order, same millisecond or not.
func arrivalScore(base int64, tail int64, hasTail bool) int64 {
	if hasTail && tail >= base {
		return tail + 1
	}
	return base
}
