package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"turnstile/internal/shared/constants"
)

// Extends a token only while it is still alive
// KEYS[1] = token key
// ARGV[1] = extra seconds
var extendScript = redis.NewScript(`
local ttl = redis.call("TTL", KEYS[1])
if ttl <= 0 then
    return 0
end
redis.call("EXPIRE", KEYS[1], ttl + tonumber(ARGV[1]))
return 1
`)

const scanCount = 100

type redisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore stores tokens as token:{eventId}:{userId} strings with a TTL
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = constants.TTL_ENTRY_TOKEN
	}
	return &redisStore{client: client, ttl: ttl}
}

func (s *redisStore) Issue(ctx context.Context, eventID, userID string) (string, error) {
	token := uuid.NewString()
	if err := s.client.Set(ctx, constants.BuildTokenKey(eventID, userID), token, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return token, nil
}

func (s *redisStore) Get(ctx context.Context, eventID, userID string) (string, bool, error) {
	token, err := s.client.Get(ctx, constants.BuildTokenKey(eventID, userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get token: %w", err)
	}
	return token, true, nil
}

func (s *redisStore) IsValid(ctx context.Context, eventID, userID, token string) (bool, error) {
	stored, ok, err := s.Get(ctx, eventID, userID)
	if err != nil || !ok {
		return false, err
	}
	return stored == token, nil
}

func (s *redisStore) Has(ctx context.Context, eventID, userID string) (bool, error) {
	n, err := s.client.Exists(ctx, constants.BuildTokenKey(eventID, userID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token: %w", err)
	}
	return n > 0, nil
}

func (s *redisStore) RemainingTTL(ctx context.Context, eventID, userID string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, constants.BuildTokenKey(eventID, userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read token ttl: %w", err)
	}
	// -2 missing, -1 no expiry
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (s *redisStore) Delete(ctx context.Context, eventID, userID string) (bool, error) {
	n, err := s.client.Del(ctx, constants.BuildTokenKey(eventID, userID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete token: %w", err)
	}
	return n > 0, nil
}

// CountLive walks token:{eventId}:* with SCAN; Redis never returns keys it has already expired
func (s *redisStore) CountLive(ctx context.Context, eventID string) (int, error) {
	pattern := constants.BuildTokenScanPattern(eventID)
	seen := make(map[string]struct{})

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to scan tokens: %w", err)
		}
		// SCAN may return a key more than once
		for _, k := range keys {
			seen[k] = struct{}{}
		}
		cursor = next
		if cursor == 0 {
			return len(seen), nil
		}
	}
}

func (s *redisStore) Extend(ctx context.Context, eventID, userID string, extra time.Duration) (bool, error) {
	res, err := extendScript.Run(ctx, s.client, []string{constants.BuildTokenKey(eventID, userID)}, int64(extra.Seconds())).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to extend token: %w", err)
	}
	return res == 1, nil
}

// PreloadScripts loads the token scripts into the script cache
func PreloadScripts(ctx context.Context, client redis.UniversalClient) error {
	if err := extendScript.Load(ctx, client).Err(); err != nil {
		return fmt.Errorf("failed to load token extend script: %w", err)
	}
	return nil
}
