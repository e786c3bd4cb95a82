package notifications

import (
	"context"
	"sync"

	"turnstile/pkg/logger"
	"turnstile/pkg/metrics"
)

const defaultBuffer = 16

// Connection is one registered push channel for an (event, user) pair.
// Events are buffered; Done is closed once the connection is completed,
// replaced or dropped, after which nothing more is enqueued.
type Connection struct {
	EventID string
	UserID  string

	events chan PushEvent
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

func newConnection(eventID, userID string, buffer int) *Connection {
	return &Connection{
		EventID: eventID,
		UserID:  userID,
		events:  make(chan PushEvent, buffer),
		done:    make(chan struct{}),
	}
}

// Events yields pushed events in send order
func (c *Connection) Events() <-chan PushEvent {
	return c.events
}

// Done is closed when the server side ends the connection
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// offer enqueues ev without blocking; false when closed or the buffer is full
func (c *Connection) offer(ev PushEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.events <- ev:
		return true
	default:
		return false
	}
}

func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

type connKey struct {
	eventID string
	userID  string
}

// Hub tracks at most one push connection per (event, user) on this instance
type Hub struct {
	mu     sync.RWMutex
	conns  map[connKey]*Connection
	buffer int

	log     *logger.Logger
	metrics *metrics.AdmissionMetrics
}

func NewHub(buffer int, log *logger.Logger, m *metrics.AdmissionMetrics) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		conns:   make(map[connKey]*Connection),
		buffer:  buffer,
		log:     logger.OrDefault(log).WithComponent("push_hub"),
		metrics: m,
	}
}

// Register opens a connection for the pair, completing any connection it replaces
func (h *Hub) Register(eventID, userID string) *Connection {
	conn := newConnection(eventID, userID, h.buffer)
	key := connKey{eventID, userID}

	h.mu.Lock()
	old := h.conns[key]
	h.conns[key] = conn
	n := len(h.conns)
	h.mu.Unlock()

	if old != nil {
		old.close()
		h.log.Debug("Push connection replaced", "event_id", eventID, "user_id", userID)
	}
	h.metrics.SetPushConnections(n)
	h.log.Debug("Push connection registered", "event_id", eventID, "user_id", userID)
	return conn
}

// Send delivers ev best-effort. With no connection it is a no-op; when the
// connection cannot take the event it is dropped and unregistered.
func (h *Hub) Send(eventID, userID string, ev PushEvent) bool {
	key := connKey{eventID, userID}

	h.mu.RLock()
	conn := h.conns[key]
	h.mu.RUnlock()

	if conn == nil {
		h.log.Debug("No push connection", "event_id", eventID, "user_id", userID)
		return false
	}

	if conn.offer(ev) {
		return true
	}

	h.log.Warn("Failed to push event, dropping connection",
		"event_id", eventID, "user_id", userID, "event_type", ev.EventType)
	h.metrics.RecordPushDropped()
	h.Unregister(conn)
	conn.close()
	return false
}

// Complete ends the pair's connection after events already queued on it
func (h *Hub) Complete(eventID, userID string) {
	key := connKey{eventID, userID}

	h.mu.Lock()
	conn := h.conns[key]
	delete(h.conns, key)
	n := len(h.conns)
	h.mu.Unlock()

	if conn != nil {
		conn.close()
		h.metrics.SetPushConnections(n)
	}
}

// Unregister removes conn if it is still the registered connection for its pair
func (h *Hub) Unregister(conn *Connection) {
	key := connKey{conn.EventID, conn.UserID}

	h.mu.Lock()
	removed := false
	if h.conns[key] == conn {
		delete(h.conns, key)
		removed = true
	}
	n := len(h.conns)
	h.mu.Unlock()

	if removed {
		h.metrics.SetPushConnections(n)
	}
}

func (h *Hub) CountAll() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) CountByEvent(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for key := range h.conns {
		if key.eventID == eventID {
			n++
		}
	}
	return n
}

// CloseAll completes every connection; used on shutdown
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[connKey]*Connection)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.close()
	}
	h.metrics.SetPushConnections(0)
}

// Notify implements Notifier for single-instance deployments
func (h *Hub) Notify(_ context.Context, ev PushEvent) {
	h.Send(ev.EventID, ev.UserID, ev)
}

// Finish implements Notifier for single-instance deployments
func (h *Hub) Finish(_ context.Context, eventID, userID string) {
	h.Complete(eventID, userID)
}
