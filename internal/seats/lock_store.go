package seats

import (
	"context"
	"sync"
	"time"

	"turnstile/internal/shared/constants"
)

// LockResult is the outcome of a lock attempt
type LockResult string

const (
	LockSuccess      LockResult = "SUCCESS"
	LockAlreadyOwned LockResult = "ALREADY_OWNED"
	LockLocked       LockResult = "LOCKED"
)

// LockStore holds TTL-bound exclusive seat locks. TryLock and Unlock are single
// atomic check-and-set operations evaluated by the store.
type LockStore interface {
	// TryLock grants the lock when free. Re-locking one's own seat reports
	// ALREADY_OWNED and does not extend the TTL.
	TryLock(ctx context.Context, eventID, seatID, userID string) (LockResult, error)
	// Unlock deletes the lock only when userID owns it
	Unlock(ctx context.Context, eventID, seatID, userID string) (bool, error)
	LockedBy(ctx context.Context, eventID, seatID string) (owner string, ok bool, err error)
	IsLocked(ctx context.Context, eventID, seatID string) (bool, error)
	IsLockedBy(ctx context.Context, eventID, seatID, userID string) (bool, error)
	// RemainingTTL is zero when the seat is not locked
	RemainingTTL(ctx context.Context, eventID, seatID string) (time.Duration, error)
	// ForceUnlock deletes the lock regardless of owner
	ForceUnlock(ctx context.Context, eventID, seatID string) error
	// LockedSeats reports which of seatIDs hold a live lock, in one round trip
	LockedSeats(ctx context.Context, eventID string, seatIDs []string) (map[string]bool, error)
	TTL() time.Duration
}

// Option configures the in-memory lock store
type Option func(*memoryLockStore)

// WithClock overrides the time source, letting tests fast-forward expiry
func WithClock(now func() time.Time) Option {
	return func(s *memoryLockStore) {
		s.now = now
	}
}

type memoryLock struct {
	owner     string
	expiresAt time.Time
}

type memoryLockStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	locks map[string]memoryLock
}

// NewMemoryLockStore keeps locks in process behind one mutex
func NewMemoryLockStore(ttl time.Duration, opts ...Option) LockStore {
	if ttl <= 0 {
		ttl = constants.TTL_SEAT_LOCK
	}
	s := &memoryLockStore{
		ttl:   ttl,
		now:   time.Now,
		locks: make(map[string]memoryLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// live returns the lock under key if unexpired, evicting it otherwise. Caller holds mu.
func (s *memoryLockStore) live(key string) (memoryLock, bool) {
	l, ok := s.locks[key]
	if !ok {
		return memoryLock{}, false
	}
	if !s.now().Before(l.expiresAt) {
		delete(s.locks, key)
		return memoryLock{}, false
	}
	return l, true
}

func (s *memoryLockStore) TryLock(_ context.Context, eventID, seatID, userID string) (LockResult, error) {
	key := constants.BuildSeatLockKey(eventID, seatID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.live(key); ok {
		if l.owner == userID {
			return LockAlreadyOwned, nil
		}
		return LockLocked, nil
	}
	s.locks[key] = memoryLock{owner: userID, expiresAt: s.now().Add(s.ttl)}
	return LockSuccess, nil
}

func (s *memoryLockStore) Unlock(_ context.Context, eventID, seatID, userID string) (bool, error) {
	key := constants.BuildSeatLockKey(eventID, seatID)

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.live(key)
	if !ok || l.owner != userID {
		return false, nil
	}
	delete(s.locks, key)
	return true, nil
}

func (s *memoryLockStore) LockedBy(_ context.Context, eventID, seatID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.live(constants.BuildSeatLockKey(eventID, seatID))
	return l.owner, ok, nil
}

func (s *memoryLockStore) IsLocked(ctx context.Context, eventID, seatID string) (bool, error) {
	_, ok, err := s.LockedBy(ctx, eventID, seatID)
	return ok, err
}

func (s *memoryLockStore) IsLockedBy(ctx context.Context, eventID, seatID, userID string) (bool, error) {
	owner, ok, err := s.LockedBy(ctx, eventID, seatID)
	return ok && owner == userID, err
}

func (s *memoryLockStore) RemainingTTL(_ context.Context, eventID, seatID string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.live(constants.BuildSeatLockKey(eventID, seatID))
	if !ok {
		return 0, nil
	}
	return l.expiresAt.Sub(s.now()), nil
}

func (s *memoryLockStore) ForceUnlock(_ context.Context, eventID, seatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.locks, constants.BuildSeatLockKey(eventID, seatID))
	return nil
}

func (s *memoryLockStore) LockedSeats(_ context.Context, eventID string, seatIDs []string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[string]bool, len(seatIDs))
	for _, seatID := range seatIDs {
		_, ok := s.live(constants.BuildSeatLockKey(eventID, seatID))
		result[seatID] = ok
	}
	return result, nil
}

func (s *memoryLockStore) TTL() time.Duration {
	return s.ttl
}
