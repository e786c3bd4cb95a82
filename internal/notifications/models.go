package notifications

import (
	"encoding/json"
	"time"
)

// PushEventType names the server-push events sent to waiting clients
type PushEventType string

const (
	PushEventQueueUpdate PushEventType = "QUEUE_UPDATE"
	PushEventTokenIssued PushEventType = "TOKEN_ISSUED"
	PushEventQueueLeft   PushEventType = "QUEUE_LEFT"
)

const (
	MessageTokenIssued = "You may enter now. Please select a seat."
	MessageQueueLeft   = "You have left the queue."
)

// PushEvent is the payload of one server-push message
type PushEvent struct {
	EventType            PushEventType `json:"eventType"`
	EventID              string        `json:"eventId"`
	UserID               string        `json:"userId"`
	Position             *int64        `json:"position,omitempty"`
	TotalWaiting         *int64        `json:"totalWaiting,omitempty"`
	EstimatedWaitSeconds *int          `json:"estimatedWaitSeconds,omitempty"`
	CanEnter             *bool         `json:"canEnter,omitempty"`
	Token                string        `json:"token,omitempty"`
	Message              string        `json:"message,omitempty"`
}

// QueueUpdate reports a waiter's current rank and estimated wait
func QueueUpdate(eventID, userID string, position, totalWaiting int64, estimatedWaitSeconds int) PushEvent {
	canEnter := false
	return PushEvent{
		EventType:            PushEventQueueUpdate,
		EventID:              eventID,
		UserID:               userID,
		Position:             &position,
		TotalWaiting:         &totalWaiting,
		EstimatedWaitSeconds: &estimatedWaitSeconds,
		CanEnter:             &canEnter,
	}
}

// TokenIssued tells an admitted user they may proceed, carrying the entry token
func TokenIssued(eventID, userID, token string) PushEvent {
	var position int64
	canEnter := true
	return PushEvent{
		EventType: PushEventTokenIssued,
		EventID:   eventID,
		UserID:    userID,
		Position:  &position,
		CanEnter:  &canEnter,
		Token:     token,
		Message:   MessageTokenIssued,
	}
}

func QueueLeft(eventID, userID string) PushEvent {
	return PushEvent{
		EventType: PushEventQueueLeft,
		EventID:   eventID,
		UserID:    userID,
		Message:   MessageQueueLeft,
	}
}

// envelopeKind distinguishes deliveries from connection completions on the push topic
type envelopeKind string

const (
	envelopePush     envelopeKind = "PUSH"
	envelopeComplete envelopeKind = "COMPLETE"
)

// pushEnvelope is the Kafka record for cross-instance push fan-out
type pushEnvelope struct {
	Kind     envelopeKind `json:"kind"`
	EventID  string       `json:"eventId"`
	UserID   string       `json:"userId"`
	Event    *PushEvent   `json:"event,omitempty"`
	Origin   string       `json:"origin"`
	IssuedAt time.Time    `json:"issuedAt"`
}

func (e *pushEnvelope) partitionKey() string {
	return e.EventID + ":" + e.UserID
}

// DomainEventType names business facts published for downstream consumers
type DomainEventType string

const (
	DomainEventReservationConfirmed DomainEventType = "RESERVATION_CONFIRMED"
	DomainEventPaymentFailed        DomainEventType = "PAYMENT_FAILED"
)

// DomainEvent describes a payment outcome
type DomainEvent struct {
	Type          DomainEventType `json:"type"`
	EventID       string          `json:"eventId"`
	SeatID        string          `json:"seatId"`
	UserID        string          `json:"userId"`
	PaymentID     string          `json:"paymentId"`
	ReservationID string          `json:"reservationId,omitempty"`
	Amount        int64           `json:"amount"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

func (e *DomainEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PartitionKey keeps every event of one seat on one partition
func (e *DomainEvent) PartitionKey() string {
	return e.EventID + ":" + e.SeatID
}
