package seats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"turnstile/internal/shared/constants"
)

// Lua script for atomic seat locking - check and set in one step
const luaTryLock = `
-- KEYS[1] = seat lock key
-- ARGV[1] = user_id
-- ARGV[2] = ttl_seconds

local current = redis.call("GET", KEYS[1])
if current then
    if current == ARGV[1] then
        return "ALREADY_OWNED"
    end
    return "LOCKED"
end

redis.call("SET", KEYS[1], ARGV[1], "EX", tonumber(ARGV[2]))
return "SUCCESS"
`

// Lua script for owner-checked release
const luaUnlock = `
-- KEYS[1] = seat lock key
-- ARGV[1] = user_id

if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`

var (
	tryLockScript = redis.NewScript(luaTryLock)
	unlockScript  = redis.NewScript(luaUnlock)
)

type redisLockStore struct {
	redis redis.UniversalClient
	ttl   time.Duration
}

// NewRedisLockStore stores locks as seat:lock:{eventId}:{seatId} -> ownerId with a TTL
func NewRedisLockStore(redisClient redis.UniversalClient, ttl time.Duration) LockStore {
	if ttl <= 0 {
		ttl = constants.TTL_SEAT_LOCK
	}
	return &redisLockStore{redis: redisClient, ttl: ttl}
}

func (s *redisLockStore) TryLock(ctx context.Context, eventID, seatID, userID string) (LockResult, error) {
	if s.redis == nil {
		return "", fmt.Errorf("redis client not available")
	}

	keys := []string{constants.BuildSeatLockKey(eventID, seatID)}
	// Run tries EVALSHA first and falls back to EVAL when the script is not cached
	result, err := tryLockScript.Run(ctx, s.redis, keys, userID, int64(s.ttl.Seconds())).Text()
	if err != nil {
		return "", fmt.Errorf("failed to execute atomic seat lock: %w", err)
	}

	switch LockResult(result) {
	case LockSuccess, LockAlreadyOwned, LockLocked:
		return LockResult(result), nil
	default:
		return "", fmt.Errorf("unexpected seat lock result %q", result)
	}
}

func (s *redisLockStore) Unlock(ctx context.Context, eventID, seatID, userID string) (bool, error) {
	keys := []string{constants.BuildSeatLockKey(eventID, seatID)}
	n, err := unlockScript.Run(ctx, s.redis, keys, userID).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to execute atomic seat unlock: %w", err)
	}
	return n == 1, nil
}

func (s *redisLockStore) LockedBy(ctx context.Context, eventID, seatID string) (string, bool, error) {
	owner, err := s.redis.Get(ctx, constants.BuildSeatLockKey(eventID, seatID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read seat lock: %w", err)
	}
	return owner, true, nil
}

func (s *redisLockStore) IsLocked(ctx context.Context, eventID, seatID string) (bool, error) {
	n, err := s.redis.Exists(ctx, constants.BuildSeatLockKey(eventID, seatID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check seat lock: %w", err)
	}
	return n > 0, nil
}

func (s *redisLockStore) IsLockedBy(ctx context.Context, eventID, seatID, userID string) (bool, error) {
	owner, ok, err := s.LockedBy(ctx, eventID, seatID)
	if err != nil {
		return false, err
	}
	return ok && owner == userID, nil
}

func (s *redisLockStore) RemainingTTL(ctx context.Context, eventID, seatID string) (time.Duration, error) {
	ttl, err := s.redis.TTL(ctx, constants.BuildSeatLockKey(eventID, seatID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read seat lock ttl: %w", err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (s *redisLockStore) ForceUnlock(ctx context.Context, eventID, seatID string) error {
	if err := s.redis.Del(ctx, constants.BuildSeatLockKey(eventID, seatID)).Err(); err != nil {
		return fmt.Errorf("failed to force unlock seat: %w", err)
	}
	return nil
}

func (s *redisLockStore) LockedSeats(ctx context.Context, eventID string, seatIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(seatIDs))
	if len(seatIDs) == 0 {
		return result, nil
	}

	keys := make([]string, len(seatIDs))
	for i, seatID := range seatIDs {
		keys[i] = constants.BuildSeatLockKey(eventID, seatID)
	}

	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read seat locks: %w", err)
	}
	for i, seatID := range seatIDs {
		result[seatID] = values[i] != nil
	}
	return result, nil
}

func (s *redisLockStore) TTL() time.Duration {
	return s.ttl
}

// PreloadScripts loads the seat lock scripts into the script cache for better performance
func PreloadScripts(ctx context.Context, redisClient redis.UniversalClient) error {
	if err := tryLockScript.Load(ctx, redisClient).Err(); err != nil {
		return fmt.Errorf("failed to load seat lock script: %w", err)
	}
	if err := unlockScript.Load(ctx, redisClient).Err(); err != nil {
		return fmt.Errorf("failed to load seat unlock script: %w", err)
	}
	return nil
}
