package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"turnstile/internal/events"
	"turnstile/pkg/logger"
	"turnstile/pkg/metrics"
)

// OpenEventSource lists the events currently on sale
type OpenEventSource interface {
	OpenEvents(ctx context.Context) ([]events.Event, error)
}

// LiveTokenCounter reports how many admitted users currently hold a token
type LiveTokenCounter interface {
	CountLive(ctx context.Context, eventID string) (int, error)
}

// SchedulerConfig contains configuration for the admission scheduler
type SchedulerConfig struct {
	Interval time.Duration
	// Lease is consulted before every tick when set
	Lease LeaderLease
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Interval: 10 * time.Second,
	}
}

// AdmissionScheduler periodically admits queued users into every open event,
// keeping the number of live tokens at or below the event's capacity
type AdmissionScheduler struct {
	service Service
	events  OpenEventSource
	tokens  LiveTokenCounter
	config  *SchedulerConfig
	log     *logger.Logger
	metrics *metrics.AdmissionMetrics

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewAdmissionScheduler(
	service Service,
	eventSource OpenEventSource,
	tokenCounter LiveTokenCounter,
	config *SchedulerConfig,
	log *logger.Logger,
	m *metrics.AdmissionMetrics,
) *AdmissionScheduler {
	if config == nil {
		config = DefaultSchedulerConfig()
	}
	return &AdmissionScheduler{
		service: service,
		events:  eventSource,
		tokens:  tokenCounter,
		config:  config,
		log:     logger.OrDefault(log).WithComponent("admission_scheduler"),
		metrics: m,
		done:    make(chan struct{}),
	}
}

// Start runs the tick loop until Stop is called or ctx ends
func (s *AdmissionScheduler) Start(ctx context.Context) {
	s.log.Info("Starting admission scheduler", "interval", s.config.Interval.String(), "leader_lease", s.config.Lease != nil)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop ends the tick loop and waits for an in-flight tick to finish
func (s *AdmissionScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.log.Info("Stopping admission scheduler")
		close(s.done)
		s.wg.Wait()

		if s.config.Lease != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := s.config.Lease.Release(ctx); err != nil {
				s.log.WithError(err).Warn("Failed to release scheduler lease")
			}
		}
		s.log.Info("Admission scheduler stopped")
	})
}

func (s *AdmissionScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick(ctx)
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Tick runs one admission pass over all open events. A failing event is logged
// and counted; the remaining events are still processed.
func (s *AdmissionScheduler) Tick(ctx context.Context) {
	start := time.Now()
	defer func() {
		s.metrics.RecordTick(time.Since(start).Seconds())
	}()

	if s.config.Lease != nil {
		leader, err := s.config.Lease.Acquire(ctx)
		if err != nil {
			s.log.WithError(err).Warn("Skipping tick, scheduler lease unavailable")
			return
		}
		if !leader {
			s.log.Debug("Skipping tick, another instance holds the scheduler lease")
			return
		}
	}

	openEvents, err := s.events.OpenEvents(ctx)
	if err != nil {
		s.log.WithError(err).Error("Failed to list open events")
		return
	}

	for i := range openEvents {
		event := &openEvents[i]
		if err := s.processEvent(ctx, event); err != nil {
			s.metrics.RecordSchedulerError(event.ID)
			s.log.ErrorWithContext(ctx, "Failed to process queue", err, map[string]interface{}{
				"event_id": event.ID,
			})
		}
	}
}

func (s *AdmissionScheduler) processEvent(ctx context.Context, event *events.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing %s: %v", event.ID, r)
		}
	}()

	live, err := s.tokens.CountLive(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("count live tokens: %w", err)
	}

	availableSlots := event.MaxConcurrentUsers - live
	if availableSlots <= 0 {
		s.log.WithEventID(event.ID).WithFields(map[string]interface{}{
			"max_concurrent": event.MaxConcurrentUsers,
			"live_tokens":    live,
		}).Debug("Queue full")
		return nil
	}

	admitted, err := s.service.ProcessQueue(ctx, event.ID, availableSlots)
	s.metrics.RecordAdmitted(event.ID, admitted)
	if admitted > 0 {
		s.log.LogAdmission(ctx, event.ID, admitted, live+admitted, event.MaxConcurrentUsers)
	}
	return err
}
