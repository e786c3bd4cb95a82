package queue

import (
	"context"
	"errors"
	"fmt"

	"turnstile/internal/events"
	"turnstile/internal/notifications"
	"turnstile/internal/shared/apperrors"
	"turnstile/internal/tokens"
	"turnstile/pkg/logger"
	"turnstile/pkg/metrics"
)

// EventLookup resolves events for queue operations
type EventLookup interface {
	RequireOpen(ctx context.Context, eventID string) (*events.Event, error)
}

// ConnectionCounter reports the push connections held for an event
type ConnectionCounter interface {
	CountByEvent(eventID string) int
}

type Service interface {
	// EnterQueue short-circuits to the admitted state when the user already holds a token
	EnterQueue(ctx context.Context, eventID, userID string) (*QueueStatus, error)
	GetQueueStatus(ctx context.Context, eventID, userID string) (*QueueStatus, error)
	LeaveQueue(ctx context.Context, eventID, userID string) error
	GetStats(ctx context.Context, eventID string) (*QueueStats, error)

	// Snapshot is the push event a freshly subscribed client receives; nil when the user is neither queued nor admitted
	Snapshot(ctx context.Context, eventID, userID string) (*notifications.PushEvent, error)

	// ProcessQueue admits up to count users: pop, issue tokens, notify, then re-broadcast ranks
	ProcessQueue(ctx context.Context, eventID string, count int) (int, error)
}

// ServiceConfig contains configuration for the queue service
type ServiceConfig struct {
	AvgProcessingSeconds int
	BroadcastLimit       int
}

// DefaultServiceConfig returns default service configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		AvgProcessingSeconds: 3,
		BroadcastLimit:       100,
	}
}

type service struct {
	store       Store
	tokens      tokens.Store
	events      EventLookup
	notifier    notifications.Notifier
	connections ConnectionCounter
	config      *ServiceConfig
	log         *logger.Logger
	metrics     *metrics.AdmissionMetrics
}

func NewService(
	store Store,
	tokenStore tokens.Store,
	eventLookup EventLookup,
	notifier notifications.Notifier,
	connections ConnectionCounter,
	config *ServiceConfig,
	log *logger.Logger,
	m *metrics.AdmissionMetrics,
) Service {
	if config == nil {
		config = DefaultServiceConfig()
	}
	return &service{
		store:       store,
		tokens:      tokenStore,
		events:      eventLookup,
		notifier:    notifier,
		connections: connections,
		config:      config,
		log:         logger.OrDefault(log).WithComponent("queue"),
		metrics:     m,
	}
}

func (s *service) estimatedWait(position int64) int {
	return int(position) * s.config.AvgProcessingSeconds
}

// ================== CLIENT OPERATIONS ==================

func (s *service) EnterQueue(ctx context.Context, eventID, userID string) (*QueueStatus, error) {
	if _, err := s.events.RequireOpen(ctx, eventID); err != nil {
		return nil, err
	}

	token, admitted, err := s.tokens.Get(ctx, eventID, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.QueueEntryFailed, userID, err)
	}
	if admitted {
		s.log.WithEventID(eventID).WithUserID(userID).InfoContext(ctx, "User already holds an entry token")
		return s.admittedStatus(ctx, eventID, userID, token)
	}

	_, queued, err := s.store.Position(ctx, eventID, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.QueueEntryFailed, userID, err)
	}
	if queued {
		return nil, apperrors.New(apperrors.AlreadyInQueue, userID)
	}

	sequence, err := s.store.Enter(ctx, eventID, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.QueueEntryFailed, userID, err)
	}
	s.metrics.RecordQueueEntered(eventID)
	s.log.WithEventID(eventID).WithUserID(userID).InfoContext(ctx, "User entered queue", "sequence", sequence)

	return s.GetQueueStatus(ctx, eventID, userID)
}

func (s *service) GetQueueStatus(ctx context.Context, eventID, userID string) (*QueueStatus, error) {
	token, admitted, err := s.tokens.Get(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if admitted {
		return s.admittedStatus(ctx, eventID, userID, token)
	}

	position, queued, err := s.store.Position(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if !queued {
		return notInQueueStatus(eventID, userID), nil
	}

	total, err := s.store.TotalWaiting(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return waitingStatus(eventID, userID, position, total, s.estimatedWait(position)), nil
}

// admittedStatus reports the held token with the seconds it has left
func (s *service) admittedStatus(ctx context.Context, eventID, userID, token string) (*QueueStatus, error) {
	remaining, err := s.tokens.RemainingTTL(ctx, eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("read token ttl: %w", err)
	}
	return canEnterStatus(eventID, userID, token, int(remaining.Seconds())), nil
}

func (s *service) LeaveQueue(ctx context.Context, eventID, userID string) error {
	removed, err := s.store.Leave(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return apperrors.New(apperrors.NotInQueue, userID)
	}

	s.metrics.RecordQueueLeft(eventID)
	s.log.WithEventID(eventID).WithUserID(userID).InfoContext(ctx, "User left queue")

	s.notifier.Notify(ctx, notifications.QueueLeft(eventID, userID))
	s.notifier.Finish(ctx, eventID, userID)
	return nil
}

func (s *service) GetStats(ctx context.Context, eventID string) (*QueueStats, error) {
	total, err := s.store.TotalWaiting(ctx, eventID)
	if err != nil {
		return nil, err
	}
	live, err := s.tokens.CountLive(ctx, eventID)
	if err != nil {
		return nil, err
	}

	stats := &QueueStats{
		EventID:      eventID,
		TotalWaiting: total,
		LiveTokens:   live,
	}
	if s.connections != nil {
		stats.SSEConnections = s.connections.CountByEvent(eventID)
	}
	return stats, nil
}

func (s *service) Snapshot(ctx context.Context, eventID, userID string) (*notifications.PushEvent, error) {
	status, err := s.GetQueueStatus(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}

	switch {
	case status.CanEnter:
		ev := notifications.TokenIssued(eventID, userID, status.Token)
		return &ev, nil
	case status.IsQueued():
		ev := notifications.QueueUpdate(eventID, userID, status.Position, status.TotalWaiting, status.EstimatedWaitSeconds)
		return &ev, nil
	default:
		return nil, nil
	}
}

// ================== ADMISSION ==================

func (s *service) ProcessQueue(ctx context.Context, eventID string, count int) (int, error) {
	users, err := s.store.PopFront(ctx, eventID, count)
	if err != nil {
		return 0, err
	}
	if len(users) == 0 {
		return 0, nil
	}

	var (
		admitted int
		errs     []error
	)
	for _, userID := range users {
		token, err := s.tokens.Issue(ctx, eventID, userID)
		if err != nil {
			errs = append(errs, fmt.Errorf("issue token for %s: %w", userID, err))
			s.requeue(ctx, eventID, userID)
			continue
		}
		admitted++
		s.log.WithEventID(eventID).WithUserID(userID).DebugContext(ctx, "Entry token issued")
		s.notifier.Notify(ctx, notifications.TokenIssued(eventID, userID, token))
	}

	if err := s.broadcastQueueUpdate(ctx, eventID); err != nil {
		errs = append(errs, err)
	}

	return admitted, errors.Join(errs...)
}

// requeue puts back a popped user whose token could not be issued, at the back of the line
func (s *service) requeue(ctx context.Context, eventID, userID string) {
	if _, err := s.store.Enter(ctx, eventID, userID); err != nil {
		s.log.WithError(err).Error("Failed to requeue user after token failure", "event_id", eventID, "user_id", userID)
	}
}

// broadcastQueueUpdate pushes fresh ranks to the head of the queue
func (s *service) broadcastQueueUpdate(ctx context.Context, eventID string) error {
	total, err := s.store.TotalWaiting(ctx, eventID)
	if err != nil {
		return fmt.Errorf("broadcast total: %w", err)
	}
	waiting, err := s.store.PeekFront(ctx, eventID, s.config.BroadcastLimit)
	if err != nil {
		return fmt.Errorf("broadcast peek: %w", err)
	}

	for i, userID := range waiting {
		position := int64(i)
		s.notifier.Notify(ctx, notifications.QueueUpdate(eventID, userID, position, total, s.estimatedWait(position)))
	}
	return nil
}
