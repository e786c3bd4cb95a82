package tokens

import (
	"context"
	"time"
)

// Store keeps entry tokens, the proof that a user was admitted to an event.
// At most one live token exists per (event, user); issuing again overwrites it.
type Store interface {
	// Issue creates a fresh token for the pair, replacing any previous one and resetting its TTL
	Issue(ctx context.Context, eventID, userID string) (string, error)
	// Get returns the live token, or ok=false when none exists
	Get(ctx context.Context, eventID, userID string) (token string, ok bool, err error)
	IsValid(ctx context.Context, eventID, userID, token string) (bool, error)
	Has(ctx context.Context, eventID, userID string) (bool, error)
	// RemainingTTL is zero when no token exists
	RemainingTTL(ctx context.Context, eventID, userID string) (time.Duration, error)
	Delete(ctx context.Context, eventID, userID string) (bool, error)
	// CountLive counts the event's non-expired tokens
	CountLive(ctx context.Context, eventID string) (int, error)
	// Extend adds extra to the remaining TTL; false when no token exists
	Extend(ctx context.Context, eventID, userID string, extra time.Duration) (bool, error)
}

// Option configures the in-memory store
type Option func(*memoryStore)

// WithClock overrides the time source, letting tests fast-forward expiry
func WithClock(now func() time.Time) Option {
	return func(s *memoryStore) {
		s.now = now
	}
}
