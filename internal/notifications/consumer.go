package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"turnstile/pkg/logger"
)

type ConsumerConfig struct {
	Brokers          []string
	GroupID          string
	Topics           []string
	SessionTimeoutMs int
	HeartbeatMs      int
	RetryBackoffMs   int
	// Push events older than this are stale and skipped
	MaxEventAge time.Duration
}

// DefaultConsumerConfig builds a per-instance group: every instance must see every push
func DefaultConsumerConfig(groupPrefix, instanceID string) *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:          []string{"localhost:9092"},
		GroupID:          groupPrefix + "-" + instanceID,
		Topics:           []string{"turnstile.queue-push"},
		SessionTimeoutMs: 30000,
		HeartbeatMs:      3000,
		RetryBackoffMs:   100,
		MaxEventAge:      time.Minute,
	}
}

// PushConsumer delivers pushes published by any instance to this instance's hub
type PushConsumer struct {
	consumerGroup sarama.ConsumerGroup
	config        *ConsumerConfig
	hub           *Hub
	log           *logger.Logger
	wg            sync.WaitGroup
	cancel        context.CancelFunc
}

func NewPushConsumer(config *ConsumerConfig, hub *Hub, log *logger.Logger) (*PushConsumer, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Consumer.Group.Session.Timeout = time.Duration(config.SessionTimeoutMs) * time.Millisecond
	saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(config.HeartbeatMs) * time.Millisecond
	saramaConfig.Consumer.Retry.Backoff = time.Duration(config.RetryBackoffMs) * time.Millisecond
	saramaConfig.Consumer.Return.Errors = true
	// Pushes published before this instance started are of no use to it
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = 1 * time.Second

	consumerGroup, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &PushConsumer{
		consumerGroup: consumerGroup,
		config:        config,
		hub:           hub,
		log:           logger.OrDefault(log).WithComponent("kafka_consumer"),
	}, nil
}

// Start consumes until Stop is called or ctx is cancelled
func (c *PushConsumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.log.Info("Starting push consumer", "group_id", c.config.GroupID, "topics", c.config.Topics)

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.handleErrors()
	}()
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()
}

func (c *PushConsumer) run(ctx context.Context) {
	handler := &pushHandler{hub: c.hub, log: c.log, maxAge: c.config.MaxEventAge}

	for {
		select {
		case <-ctx.Done():
			c.log.Info("Push consumer shutting down")
			return
		default:
			if err := c.consumerGroup.Consume(ctx, c.config.Topics, handler); err != nil {
				c.log.WithError(err).Warn("Error consuming push topic")
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (c *PushConsumer) handleErrors() {
	for err := range c.consumerGroup.Errors() {
		c.log.WithError(err).Warn("Consumer group error")
	}
}

func (c *PushConsumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	err := c.consumerGroup.Close()
	c.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}
	c.log.Info("Push consumer stopped")
	return nil
}

type pushHandler struct {
	hub    *Hub
	log    *logger.Logger
	maxAge time.Duration
}

func (h *pushHandler) Setup(sarama.ConsumerGroupSession) error {
	h.log.Debug("Consumer group session started")
	return nil
}

func (h *pushHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.log.Debug("Consumer group session ended")
	return nil
}

func (h *pushHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			if err := h.processMessage(message); err != nil {
				h.log.WithError(err).Warn("Skipping push message",
					"partition", message.Partition, "offset", message.Offset)
			}
			// Delivery is best-effort, so bad records are never redelivered
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *pushHandler) processMessage(message *sarama.ConsumerMessage) error {
	var env pushEnvelope
	if err := json.Unmarshal(message.Value, &env); err != nil {
		return fmt.Errorf("failed to unmarshal push envelope: %w", err)
	}

	if h.maxAge > 0 && !env.IssuedAt.IsZero() && time.Since(env.IssuedAt) > h.maxAge {
		h.log.Debug("Stale push skipped", "event_id", env.EventID, "user_id", env.UserID)
		return nil
	}

	switch env.Kind {
	case envelopePush:
		if env.Event == nil {
			return fmt.Errorf("push envelope without event")
		}
		h.hub.Send(env.EventID, env.UserID, *env.Event)
	case envelopeComplete:
		h.hub.Complete(env.EventID, env.UserID)
	default:
		return fmt.Errorf("unknown envelope kind %q", env.Kind)
	}
	return nil
}
