package notifications

import (
	"context"
	"time"

	"turnstile/pkg/logger"
)

// Notifier pushes status changes to waiting clients, best-effort
type Notifier interface {
	Notify(ctx context.Context, ev PushEvent)
	// Finish ends the client's push connection after queued events
	Finish(ctx context.Context, eventID, userID string)
}

// DomainPublisher publishes payment outcomes
type DomainPublisher interface {
	PublishDomainEvent(ctx context.Context, ev DomainEvent) error
}

// KafkaNotifier routes pushes through the push topic so that whichever instance
// holds the client's connection delivers it. A publish failure falls back to
// the local hub.
type KafkaNotifier struct {
	publisher  *KafkaPublisher
	local      *Hub
	instanceID string
	log        *logger.Logger
}

func NewKafkaNotifier(publisher *KafkaPublisher, local *Hub, instanceID string, log *logger.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		publisher:  publisher,
		local:      local,
		instanceID: instanceID,
		log:        logger.OrDefault(log).WithComponent("push_notifier"),
	}
}

func (n *KafkaNotifier) Notify(ctx context.Context, ev PushEvent) {
	env := &pushEnvelope{
		Kind:     envelopePush,
		EventID:  ev.EventID,
		UserID:   ev.UserID,
		Event:    &ev,
		Origin:   n.instanceID,
		IssuedAt: time.Now(),
	}
	if err := n.publisher.PublishPush(ctx, env); err != nil {
		n.log.WithError(err).Warn("Push fan-out failed, delivering locally",
			"event_id", ev.EventID, "user_id", ev.UserID)
		n.local.Send(ev.EventID, ev.UserID, ev)
	}
}

func (n *KafkaNotifier) Finish(ctx context.Context, eventID, userID string) {
	env := &pushEnvelope{
		Kind:     envelopeComplete,
		EventID:  eventID,
		UserID:   userID,
		Origin:   n.instanceID,
		IssuedAt: time.Now(),
	}
	if err := n.publisher.PublishPush(ctx, env); err != nil {
		n.log.WithError(err).Warn("Push completion fan-out failed, completing locally",
			"event_id", eventID, "user_id", userID)
		n.local.Complete(eventID, userID)
	}
}

// LogDomainPublisher records domain events in the log when Kafka is disabled
type LogDomainPublisher struct {
	log *logger.Logger
}

func NewLogDomainPublisher(log *logger.Logger) *LogDomainPublisher {
	return &LogDomainPublisher{log: logger.OrDefault(log).WithComponent("domain_events")}
}

func (p *LogDomainPublisher) PublishDomainEvent(ctx context.Context, ev DomainEvent) error {
	p.log.InfoWithContext(ctx, "Domain event", map[string]interface{}{
		"type":           ev.Type,
		"event_id":       ev.EventID,
		"seat_id":        ev.SeatID,
		"user_id":        ev.UserID,
		"payment_id":     ev.PaymentID,
		"reservation_id": ev.ReservationID,
		"amount":         ev.Amount,
	})
	return nil
}
