package payments

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnstile/internal/events"
	"turnstile/internal/notifications"
	"turnstile/internal/queue"
	"turnstile/internal/seats"
	"turnstile/internal/shared/apperrors"
	"turnstile/internal/tokens"
	"turnstile/pkg/logger"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []notifications.DomainEvent
}

func (p *recordingPublisher) PublishDomainEvent(_ context.Context, ev notifications.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []notifications.DomainEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notifications.DomainEventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

// checkout wires the whole admission flow on in-memory stores
type checkout struct {
	queue     queue.Service
	scheduler *queue.AdmissionScheduler
	tokens    tokens.Store
	locks     seats.LockStore
	seats     seats.Service
	payments  Service
	gateway   *FixedGateway
	publisher *recordingPublisher
}

func newCheckout(t *testing.T, maxConcurrent int) *checkout {
	t.Helper()
	ctx := context.Background()
	log := logger.Discard()

	eventRepo := events.NewMemoryRepository()
	require.NoError(t, eventRepo.Save(ctx, &events.Event{
		ID: "EVT001", Name: "2026 New Year Concert", Venue: "Olympic Gymnastics Arena",
		EventDate:          time.Date(2026, 2, 1, 19, 0, 0, 0, time.UTC),
		MaxConcurrentUsers: maxConcurrent, Status: events.EventStatusOpen,
	}))
	eventService := events.NewService(eventRepo, log)

	seatRepo := seats.NewMemoryRepository()
	require.NoError(t, seatRepo.SaveAll(ctx, []seats.Seat{
		seats.NewSeat("EVT001", "A", 1, 1, seats.GradeVIP),
		seats.NewSeat("EVT001", "B", 2, 3, seats.GradeR),
	}))

	tokenStore := tokens.NewMemoryStore(600 * time.Second)
	lockStore := seats.NewMemoryLockStore(300 * time.Second)
	paymentRepo := NewMemoryRepository()
	hub := notifications.NewHub(8, log, nil)

	queueService := queue.NewService(queue.NewMemoryStore(), tokenStore, eventService, hub, hub, nil, log, nil)
	seatService := seats.NewService(seatRepo, lockStore, eventService, paymentRepo, log, nil)
	gateway := NewFixedGateway(true)
	publisher := &recordingPublisher{}

	return &checkout{
		queue:     queueService,
		scheduler: queue.NewAdmissionScheduler(queueService, eventService, tokenStore, nil, log, nil),
		tokens:    tokenStore,
		locks:     lockStore,
		seats:     seatService,
		payments:  NewService(paymentRepo, seatService, tokens.NewService(tokenStore), gateway, publisher, log, nil),
		gateway:   gateway,
		publisher: publisher,
	}
}

func TestCheckout_AdmitLockPayThenNextAdmission(t *testing.T) {
	ctx := context.Background()
	c := newCheckout(t, 2)

	for _, u := range []string{"U1", "U2", "U3", "U4", "U5"} {
		_, err := c.queue.EnterQueue(ctx, "EVT001", u)
		require.NoError(t, err)
	}
	c.scheduler.Tick(ctx)

	live, err := c.tokens.CountLive(ctx, "EVT001")
	require.NoError(t, err)
	assert.Equal(t, 2, live)

	for want, u := range []string{"U3", "U4", "U5"} {
		status, err := c.queue.GetQueueStatus(ctx, "EVT001", u)
		require.NoError(t, err)
		assert.Equal(t, int64(want), status.Position)
	}

	lock, err := c.seats.LockSeat(ctx, "EVT001", "A-1-1", "U1")
	require.NoError(t, err)
	assert.True(t, lock.Locked)

	_, err = c.seats.LockSeat(ctx, "EVT001", "A-1-1", "U2")
	assert.True(t, apperrors.Has(err, apperrors.SeatAlreadyLocked))

	payment, err := c.payments.ProcessPayment(ctx, &PaymentRequest{UserID: "U1", EventID: "EVT001", SeatID: "A-1-1"})
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusSuccess, payment.Status)
	assert.Equal(t, int64(200000), payment.Amount)
	require.NotNil(t, payment.ReservationID)
	assert.Regexp(t, `^PAY-[0-9A-F]{8}$`, payment.PaymentID)
	assert.Regexp(t, `^RSV-[0-9A-F]{8}$`, *payment.ReservationID)

	seat, err := c.seats.GetSeat(ctx, "EVT001", "A-1-1")
	require.NoError(t, err)
	assert.Equal(t, seats.StatusReserved, seat.Status)

	locked, err := c.locks.IsLocked(ctx, "EVT001", "A-1-1")
	require.NoError(t, err)
	assert.False(t, locked)

	hasToken, err := c.tokens.Has(ctx, "EVT001", "U1")
	require.NoError(t, err)
	assert.False(t, hasToken)

	_, err = c.seats.LockSeat(ctx, "EVT001", "A-1-1", "U2")
	assert.True(t, apperrors.Has(err, apperrors.SeatAlreadyReserved))

	c.scheduler.Tick(ctx)
	hasToken, err = c.tokens.Has(ctx, "EVT001", "U3")
	require.NoError(t, err)
	assert.True(t, hasToken)
	live, err = c.tokens.CountLive(ctx, "EVT001")
	require.NoError(t, err)
	assert.Equal(t, 2, live)

	reservations, err := c.payments.GetUserReservations(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, reservations, 1)
	assert.Equal(t, ReservationStatusConfirmed, reservations[0].Status)

	rsv, err := c.payments.GetReservation(ctx, *payment.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, payment.PaymentID, rsv.PaymentID)

	assert.Equal(t, []notifications.DomainEventType{notifications.DomainEventReservationConfirmed}, c.publisher.types())
}

func TestCheckout_FailedPaymentKeepsLockForRetry(t *testing.T) {
	ctx := context.Background()
	c := newCheckout(t, 2)

	_, err := c.seats.LockSeat(ctx, "EVT001", "B-2-3", "U1")
	require.NoError(t, err)

	c.gateway.Set(false)
	_, err = c.payments.ProcessPayment(ctx, &PaymentRequest{UserID: "U1", EventID: "EVT001", SeatID: "B-2-3"})
	require.True(t, apperrors.Has(err, apperrors.PaymentFailed))

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	failed, err := c.payments.GetPayment(ctx, appErr.Detail)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusFailed, failed.Status)
	assert.Nil(t, failed.ReservationID)
	assert.Nil(t, failed.PaidAt)

	owned, err := c.locks.IsLockedBy(ctx, "EVT001", "B-2-3", "U1")
	require.NoError(t, err)
	assert.True(t, owned, "a declined payment must leave the hold in place")

	c.gateway.Set(true)
	payment, err := c.payments.ProcessPayment(ctx, &PaymentRequest{UserID: "U1", EventID: "EVT001", SeatID: "B-2-3"})
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusSuccess, payment.Status)
	assert.Equal(t, int64(150000), payment.Amount)

	assert.Equal(t, []notifications.DomainEventType{
		notifications.DomainEventPaymentFailed,
		notifications.DomainEventReservationConfirmed,
	}, c.publisher.types())
}

func TestCheckout_PaymentRequiresOwnLock(t *testing.T) {
	ctx := context.Background()
	c := newCheckout(t, 2)

	_, err := c.payments.ProcessPayment(ctx, &PaymentRequest{UserID: "U1", EventID: "EVT001", SeatID: "A-1-1"})
	assert.True(t, apperrors.Has(err, apperrors.SeatLockExpired))

	_, err = c.seats.LockSeat(ctx, "EVT001", "A-1-1", "U2")
	require.NoError(t, err)

	_, err = c.payments.ProcessPayment(ctx, &PaymentRequest{UserID: "U1", EventID: "EVT001", SeatID: "A-1-1"})
	assert.True(t, apperrors.Has(err, apperrors.SeatNotLockedByUser))

	_, err = c.payments.GetPayment(ctx, "PAY-NOPE")
	assert.True(t, apperrors.Has(err, apperrors.PaymentNotFound))
	_, err = c.payments.GetReservation(ctx, "RSV-NOPE")
	assert.True(t, apperrors.Has(err, apperrors.ReservationNotFound))
}

func TestMemoryRepository_OneConfirmedReservationPerSeat(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepository()

	first := &Reservation{ID: NewReservationID(), EventID: "EVT001", SeatID: "A-1-1", UserID: "U1", Status: ReservationStatusConfirmed}
	require.NoError(t, repo.SaveConfirmed(ctx, &Payment{ID: NewPaymentID()}, first))

	second := &Reservation{ID: NewReservationID(), EventID: "EVT001", SeatID: "A-1-1", UserID: "U2", Status: ReservationStatusConfirmed}
	err := repo.SaveConfirmed(ctx, &Payment{ID: NewPaymentID()}, second)
	assert.ErrorIs(t, err, ErrDuplicateReservation)

	exists, err := repo.ExistsConfirmed(ctx, "EVT001", "A-1-1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsConfirmed(ctx, "EVT002", "A-1-1")
	require.NoError(t, err)
	assert.False(t, exists)
}
