package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LeaderLease decides whether this instance runs the current scheduler tick
type LeaderLease interface {
	// Acquire takes or renews the lease; false means another instance holds it
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// KEYS[1] lease key, ARGV[1] owner, ARGV[2] lease ms
const luaAcquireLease = `
local current = redis.call('GET', KEYS[1])
if not current then
    redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
    return 1
end
if current == ARGV[1] then
    redis.call('PEXPIRE', KEYS[1], ARGV[2])
    return 1
end
return 0
`

// KEYS[1] lease key, ARGV[1] owner
const luaReleaseLease = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

var (
	acquireLeaseScript = redis.NewScript(luaAcquireLease)
	releaseLeaseScript = redis.NewScript(luaReleaseLease)
)

type redisLeaderLease struct {
	client redis.UniversalClient
	key    string
	owner  string
	ttl    time.Duration
}

// NewRedisLeaderLease holds key for owner with a ttl lease renewed on every Acquire
func NewRedisLeaderLease(client redis.UniversalClient, key, owner string, ttl time.Duration) LeaderLease {
	return &redisLeaderLease{client: client, key: key, owner: owner, ttl: ttl}
}

func (l *redisLeaderLease) Acquire(ctx context.Context) (bool, error) {
	held, err := acquireLeaseScript.Run(ctx, l.client, []string{l.key}, l.owner, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to acquire scheduler lease: %w", err)
	}
	return held == 1, nil
}

func (l *redisLeaderLease) Release(ctx context.Context) error {
	if err := releaseLeaseScript.Run(ctx, l.client, []string{l.key}, l.owner).Err(); err != nil {
		return fmt.Errorf("failed to release scheduler lease: %w", err)
	}
	return nil
}
