package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnstile/pkg/logger"
)

func newMockPublisher(t *testing.T) (*KafkaPublisher, *mocks.SyncProducer) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)
	t.Cleanup(func() { _ = producer.Close() })
	return NewKafkaPublisherWithProducer(producer, DefaultKafkaProducerConfig(), logger.Discard()), producer
}

func TestKafkaNotifier_PublishesEnvelope(t *testing.T) {
	publisher, producer := newMockPublisher(t)
	hub := newTestHub(4)
	notifier := NewKafkaNotifier(publisher, hub, "instance-a", logger.Discard())

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var env pushEnvelope
		if err := json.Unmarshal(val, &env); err != nil {
			return err
		}
		if env.Kind != envelopePush || env.EventID != "EVT001" || env.UserID != "U1" {
			return errors.New("unexpected envelope")
		}
		if env.Event == nil || env.Event.Token != "tok" || env.Origin != "instance-a" {
			return errors.New("unexpected payload")
		}
		return nil
	})

	notifier.Notify(context.Background(), TokenIssued("EVT001", "U1", "tok"))
}

func TestKafkaNotifier_FallsBackToLocalHub(t *testing.T) {
	publisher, producer := newMockPublisher(t)
	hub := newTestHub(4)
	conn := hub.Register("EVT001", "U1")
	notifier := NewKafkaNotifier(publisher, hub, "instance-a", logger.Discard())

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	notifier.Notify(context.Background(), QueueLeft("EVT001", "U1"))
	notifier.Finish(context.Background(), "EVT001", "U1")

	ev := <-conn.Events()
	assert.Equal(t, PushEventQueueLeft, ev.EventType)
	assert.True(t, isClosed(conn.Done()))
}

func TestKafkaPublisher_DomainEvent(t *testing.T) {
	publisher, producer := newMockPublisher(t)

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev DomainEvent
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.Type != DomainEventReservationConfirmed || ev.ReservationID != "RSV-1" {
			return errors.New("unexpected domain event")
		}
		return nil
	})

	err := publisher.PublishDomainEvent(context.Background(), DomainEvent{
		Type:          DomainEventReservationConfirmed,
		EventID:       "EVT001",
		SeatID:        "A-1-1",
		UserID:        "U1",
		PaymentID:     "PAY-1",
		ReservationID: "RSV-1",
		Amount:        200000,
		OccurredAt:    time.Now(),
	})
	require.NoError(t, err)
}

func TestPushHandler_ProcessMessage(t *testing.T) {
	t.Parallel()

	hub := newTestHub(4)
	conn := hub.Register("EVT001", "U1")
	handler := &pushHandler{hub: hub, log: logger.Discard(), maxAge: time.Minute}

	ev := QueueUpdate("EVT001", "U1", 3, 10, 9)
	push, err := json.Marshal(pushEnvelope{Kind: envelopePush, EventID: "EVT001", UserID: "U1", Event: &ev, IssuedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, handler.processMessage(&sarama.ConsumerMessage{Value: push}))

	got := <-conn.Events()
	require.NotNil(t, got.Position)
	assert.Equal(t, int64(3), *got.Position)

	stale, err := json.Marshal(pushEnvelope{Kind: envelopePush, EventID: "EVT001", UserID: "U1", Event: &ev, IssuedAt: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	require.NoError(t, handler.processMessage(&sarama.ConsumerMessage{Value: stale}))
	assert.Empty(t, conn.Events())

	complete, err := json.Marshal(pushEnvelope{Kind: envelopeComplete, EventID: "EVT001", UserID: "U1", IssuedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, handler.processMessage(&sarama.ConsumerMessage{Value: complete}))
	assert.True(t, isClosed(conn.Done()))

	assert.Error(t, handler.processMessage(&sarama.ConsumerMessage{Value: []byte("not json")}))
	unknown, _ := json.Marshal(pushEnvelope{Kind: "OTHER", IssuedAt: time.Now()})
	assert.Error(t, handler.processMessage(&sarama.ConsumerMessage{Value: unknown}))
}
