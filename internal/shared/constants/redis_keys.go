package constants

import (
	"fmt"
	"time"
)

// Redis key layout
// Admission state uses the shared schema below; cache and rate-limit keys are namespaced
// under CACHE_PREFIX so they never collide with it.

// ================== ADMISSION STATE ==================

const (
	KEY_QUEUE          = "queue:"          // + eventId -> ZSET userId by arrival score
	KEY_QUEUE_SEQUENCE = "queue:sequence:" // + eventId -> INCR counter
	KEY_QUEUE_TAIL     = "queue:tail:"     // + eventId -> last arrival score handed out
	KEY_TOKEN          = "token:"          // + eventId:userId -> token, TTL
	KEY_SEAT_LOCK      = "seat:lock:"      // + eventId:seatId -> ownerId, TTL
	KEY_SCHEDULER_LEAD = "scheduler:leader"
)

// Default lifetimes of admission state
const (
	TTL_ENTRY_TOKEN = 600 * time.Second
	TTL_SEAT_LOCK   = 300 * time.Second
)

// ================== CACHE / RATE LIMIT ==================

const (
	CACHE_PREFIX = "turnstile"

	CACHE_KEY_EVENTS_LIST  = CACHE_PREFIX + ":events:list"
	CACHE_KEY_EVENT_DETAIL = CACHE_PREFIX + ":events:detail:" // + eventId
	CACHE_KEY_RATE_LIMIT   = CACHE_PREFIX + ":ratelimit:"     // + ip:class
)

// Catalog cache lifetimes
const (
	TTL_EVENT_DETAIL = 2 * time.Minute
	TTL_EVENTS_LIST  = 1 * time.Minute
)

// ================== KEY BUILDERS ==================

func BuildQueueKey(eventID string) string {
	return KEY_QUEUE + eventID
}

func BuildQueueSequenceKey(eventID string) string {
	return KEY_QUEUE_SEQUENCE + eventID
}

func BuildQueueTailKey(eventID string) string {
	return KEY_QUEUE_TAIL + eventID
}

func BuildTokenKey(eventID, userID string) string {
	return fmt.Sprintf("%s%s:%s", KEY_TOKEN, eventID, userID)
}

// BuildTokenScanPattern matches every token key of one event
func BuildTokenScanPattern(eventID string) string {
	return fmt.Sprintf("%s%s:*", KEY_TOKEN, eventID)
}

func BuildSeatLockKey(eventID, seatID string) string {
	return fmt.Sprintf("%s%s:%s", KEY_SEAT_LOCK, eventID, seatID)
}

func BuildEventDetailKey(eventID string) string {
	return CACHE_KEY_EVENT_DETAIL + eventID
}

func BuildRateLimitKey(ip, class string) string {
	return fmt.Sprintf("%s%s:%s", CACHE_KEY_RATE_LIMIT, ip, class)
}
