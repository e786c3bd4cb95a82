package queue

import (
	"context"
	"sort"
	"sync"
)

type memoryEntry struct {
	userID string
	score  float64
}

type memoryQueue struct {
	sequence int64
	tail     int64
	hasTail  bool
	// entries is kept sorted by score
	entries []memoryEntry
	scores  map[string]float64
}

type memoryStore struct {
	mu     sync.Mutex
	opts   storeOptions
	queues map[string]*memoryQueue
}

// NewMemoryStore is a single-process Store for tests and the memory backend
func NewMemoryStore(opts ...Option) Store {
	return &memoryStore{
		opts:   applyOptions(opts),
		queues: make(map[string]*memoryQueue),
	}
}

func (s *memoryStore) queue(eventID string) *memoryQueue {
	q, ok := s.queues[eventID]
	if !ok {
		q = &memoryQueue{scores: make(map[string]float64)}
		s.queues[eventID] = q
	}
	return q
}

func (q *memoryQueue) indexOf(userID string) int {
	score, ok := q.scores[userID]
	if !ok {
		return -1
	}
	i := sort.Search(len(q.entries), func(i int) bool { return q.entries[i].score >= score })
	for ; i < len(q.entries) && q.entries[i].score == score; i++ {
		if q.entries[i].userID == userID {
			return i
		}
	}
	return -1
}

func (q *memoryQueue) remove(userID string) bool {
	i := q.indexOf(userID)
	if i < 0 {
		return false
	}
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	delete(q.scores, userID)
	return true
}

func (q *memoryQueue) insert(userID string, score float64) {
	q.remove(userID)
	i := sort.Search(len(q.entries), func(i int) bool { return q.entries[i].score > score })
	q.entries = append(q.entries, memoryEntry{})
	copy(q.entries[i+1:], q.entries[i:])
	q.entries[i] = memoryEntry{userID: userID, score: score}
	q.scores[userID] = score
}

func (q *memoryQueue) front(n int) []string {
	if n > len(q.entries) {
		n = len(q.entries)
	}
	users := make([]string, n)
	for i := 0; i < n; i++ {
		users[i] = q.entries[i].userID
	}
	return users
}

func (s *memoryStore) Enter(_ context.Context, eventID, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.queue(eventID)
	q.sequence++
	score := arrivalScore(arrivalBase(s.opts.now()), q.tail, q.hasTail)
	q.tail, q.hasTail = score, true
	q.insert(userID, float64(score))
	return q.sequence, nil
}

func (s *memoryStore) Leave(_ context.Context, eventID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue(eventID).remove(userID), nil
}

func (s *memoryStore) Position(_ context.Context, eventID, userID string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.queue(eventID).indexOf(userID)
	if i < 0 {
		return 0, false, nil
	}
	return int64(i), true, nil
}

func (s *memoryStore) TotalWaiting(_ context.Context, eventID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.queue(eventID).entries)), nil
}

func (s *memoryStore) PopFront(_ context.Context, eventID string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.queue(eventID)
	users := q.front(n)
	q.entries = append(q.entries[:0], q.entries[len(users):]...)
	for _, userID := range users {
		delete(q.scores, userID)
	}
	return users, nil
}

func (s *memoryStore) PeekFront(_ context.Context, eventID string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue(eventID).front(n), nil
}
