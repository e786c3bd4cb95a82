package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"turnstile/internal/shared/constants"
)

// enterScript draws the sequence and places the user in one step, so concurrent
// entries can never hand out scores out of order. It mirrors arrivalScore.
// KEYS: queue, sequence, tail. ARGV: millisecond base, userId.
var enterScript = redis.NewScript(`
local sequence = redis.call('INCR', KEYS[2])
local score = tonumber(ARGV[1])
local tail = redis.call('GET', KEYS[3])
if tail then
	tail = tonumber(tail)
	if tail >= score then
		score = tail + 1
	end
end
local encoded = string.format('%.0f', score)
redis.call('SET', KEYS[3], encoded)
redis.call('ZADD', KEYS[1], encoded, ARGV[2])
return sequence
`)

type redisStore struct {
	client redis.UniversalClient
	opts   storeOptions
}

// NewRedisStore keeps each event's queue in a sorted set, queue:{eventId}, with the
// arrival counter in queue:sequence:{eventId} and the last score in queue:tail:{eventId}
func NewRedisStore(client redis.UniversalClient, opts ...Option) Store {
	return &redisStore{client: client, opts: applyOptions(opts)}
}

func (s *redisStore) Enter(ctx context.Context, eventID, userID string) (int64, error) {
	keys := []string{
		constants.BuildQueueKey(eventID),
		constants.BuildQueueSequenceKey(eventID),
		constants.BuildQueueTailKey(eventID),
	}
	base := strconv.FormatInt(arrivalBase(s.opts.now()), 10)

	sequence, err := enterScript.Run(ctx, s.client, keys, base, userID).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue user: %w", err)
	}
	return sequence, nil
}

func (s *redisStore) Leave(ctx context.Context, eventID, userID string) (bool, error) {
	removed, err := s.client.ZRem(ctx, constants.BuildQueueKey(eventID), userID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to remove user from queue: %w", err)
	}
	return removed > 0, nil
}

func (s *redisStore) Position(ctx context.Context, eventID, userID string) (int64, bool, error) {
	rank, err := s.client.ZRank(ctx, constants.BuildQueueKey(eventID), userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read queue position: %w", err)
	}
	return rank, true, nil
}

func (s *redisStore) TotalWaiting(ctx context.Context, eventID string) (int64, error) {
	total, err := s.client.ZCard(ctx, constants.BuildQueueKey(eventID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return total, nil
}

// PopFront uses ZPOPMIN, which reads and removes in one command
func (s *redisStore) PopFront(ctx context.Context, eventID string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	popped, err := s.client.ZPopMin(ctx, constants.BuildQueueKey(eventID), int64(n)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to pop queue front: %w", err)
	}
	return members(popped), nil
}

func (s *redisStore) PeekFront(ctx context.Context, eventID string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	users, err := s.client.ZRange(ctx, constants.BuildQueueKey(eventID), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read queue front: %w", err)
	}
	return users, nil
}

func members(zs []redis.Z) []string {
	users := make([]string, 0, len(zs))
	for _, z := range zs {
		if member, ok := z.Member.(string); ok {
			users = append(users, member)
		}
	}
	return users
}
