package tokens

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"turnstile/internal/shared/constants"
)

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]map[string]memoryEntry // eventId -> userId -> entry
}

// NewMemoryStore keeps tokens in process; used by single-instance deployments and tests
func NewMemoryStore(ttl time.Duration, opts ...Option) Store {
	if ttl <= 0 {
		ttl = constants.TTL_ENTRY_TOKEN
	}
	s := &memoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]map[string]memoryEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// live returns the entry if present and unexpired, evicting it otherwise. Caller holds mu.
func (s *memoryStore) live(eventID, userID string) (memoryEntry, bool) {
	users := s.entries[eventID]
	e, ok := users[userID]
	if !ok {
		return memoryEntry{}, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(users, userID)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *memoryStore) Issue(_ context.Context, eventID, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, ok := s.entries[eventID]
	if !ok {
		users = make(map[string]memoryEntry)
		s.entries[eventID] = users
	}
	token := uuid.NewString()
	users[userID] = memoryEntry{token: token, expiresAt: s.now().Add(s.ttl)}
	return token, nil
}

func (s *memoryStore) Get(_ context.Context, eventID, userID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(eventID, userID)
	return e.token, ok, nil
}

func (s *memoryStore) IsValid(ctx context.Context, eventID, userID, token string) (bool, error) {
	stored, ok, _ := s.Get(ctx, eventID, userID)
	return ok && stored == token, nil
}

func (s *memoryStore) Has(ctx context.Context, eventID, userID string) (bool, error) {
	_, ok, _ := s.Get(ctx, eventID, userID)
	return ok, nil
}

func (s *memoryStore) RemainingTTL(_ context.Context, eventID, userID string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(eventID, userID)
	if !ok {
		return 0, nil
	}
	return e.expiresAt.Sub(s.now()), nil
}

func (s *memoryStore) Delete(_ context.Context, eventID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.live(eventID, userID)
	delete(s.entries[eventID], userID)
	return ok, nil
}

func (s *memoryStore) CountLive(_ context.Context, eventID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for userID := range s.entries[eventID] {
		if _, ok := s.live(eventID, userID); ok {
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) Extend(_ context.Context, eventID, userID string, extra time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(eventID, userID)
	if !ok {
		return false, nil
	}
	e.expiresAt = e.expiresAt.Add(extra)
	s.entries[eventID][userID] = e
	return true, nil
}
