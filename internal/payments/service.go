package payments

import (
	"context"
	"errors"
	"time"

	"turnstile/internal/notifications"
	"turnstile/internal/seats"
	"turnstile/internal/shared/apperrors"
	"turnstile/pkg/logger"
	"turnstile/pkg/metrics"
)

// SeatReserver is the part of the seat service checkout depends on
type SeatReserver interface {
	ValidateSeatLock(ctx context.Context, eventID, seatID, userID string) error
	FindSeat(ctx context.Context, eventID, seatID string) (*seats.Seat, error)
	ReserveSeat(ctx context.Context, eventID, seatID string) error
}

// TokenRevoker discards an entry token once its admission has been used
type TokenRevoker interface {
	DeleteToken(ctx context.Context, eventID, userID string) error
}

type Service interface {
	// ProcessPayment charges for a seat the caller holds. On success the seat is sold,
	// its lock released and the caller's entry token discarded. A declined charge
	// leaves the lock in place so the caller can retry until it lapses.
	ProcessPayment(ctx context.Context, req *PaymentRequest) (*PaymentResponse, error)
	GetPayment(ctx context.Context, paymentID string) (*PaymentResponse, error)
	GetUserReservations(ctx context.Context, userID string) ([]ReservationResponse, error)
	GetReservation(ctx context.Context, reservationID string) (*ReservationResponse, error)
}

type service struct {
	repo      Repository
	seats     SeatReserver
	tokens    TokenRevoker
	gateway   Gateway
	publisher notifications.DomainPublisher
	log       *logger.Logger
	metrics   *metrics.AdmissionMetrics
	now       func() time.Time
}

func NewService(
	repo Repository,
	seatReserver SeatReserver,
	tokenRevoker TokenRevoker,
	gateway Gateway,
	publisher notifications.DomainPublisher,
	log *logger.Logger,
	m *metrics.AdmissionMetrics,
) Service {
	return &service{
		repo:      repo,
		seats:     seatReserver,
		tokens:    tokenRevoker,
		gateway:   gateway,
		publisher: publisher,
		log:       logger.OrDefault(log).WithComponent("payments"),
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) ProcessPayment(ctx context.Context, req *PaymentRequest) (*PaymentResponse, error) {
	if err := s.seats.ValidateSeatLock(ctx, req.EventID, req.SeatID, req.UserID); err != nil {
		return nil, err
	}

	seat, err := s.seats.FindSeat(ctx, req.EventID, req.SeatID)
	if err != nil {
		return nil, err
	}

	// Guards a double submit that slipped past the lock check
	reserved, err := s.repo.ExistsConfirmed(ctx, req.EventID, req.SeatID)
	if err != nil {
		return nil, err
	}
	if reserved {
		return nil, apperrors.New(apperrors.SeatAlreadyReserved, req.SeatID)
	}

	paymentID := NewPaymentID()
	approved, err := s.gateway.Charge(ctx, paymentID, req.UserID, seat.Price)
	if err != nil {
		s.log.WithError(err).Warn("Payment gateway error", "payment_id", paymentID)
		approved = false
	}

	if !approved {
		return nil, s.recordFailure(ctx, paymentID, req, seat.Price, err)
	}
	return s.confirm(ctx, paymentID, req, seat.Price)
}

func (s *service) confirm(ctx context.Context, paymentID string, req *PaymentRequest, amount int64) (*PaymentResponse, error) {
	now := s.now()
	reservationID := NewReservationID()

	payment := &Payment{
		ID:            paymentID,
		UserID:        req.UserID,
		EventID:       req.EventID,
		SeatID:        req.SeatID,
		ReservationID: &reservationID,
		Amount:        amount,
		Status:        PaymentStatusSuccess,
		PaidAt:        &now,
		CreatedAt:     now,
	}
	reservation := &Reservation{
		ID:          reservationID,
		EventID:     req.EventID,
		SeatID:      req.SeatID,
		UserID:      req.UserID,
		PaymentID:   paymentID,
		Amount:      amount,
		Status:      ReservationStatusConfirmed,
		ConfirmedAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.SaveConfirmed(ctx, payment, reservation); err != nil {
		if errors.Is(err, ErrDuplicateReservation) {
			return nil, apperrors.New(apperrors.SeatAlreadyReserved, req.SeatID)
		}
		return nil, err
	}

	if err := s.seats.ReserveSeat(ctx, req.EventID, req.SeatID); err != nil {
		return nil, err
	}

	// The purchase is the terminal use of the admission
	if err := s.tokens.DeleteToken(ctx, req.EventID, req.UserID); err != nil {
		s.log.WithEventID(req.EventID).WithUserID(req.UserID).WithError(err).Warn("Failed to delete entry token after purchase")
	}

	s.metrics.RecordPayment(string(PaymentStatusSuccess))
	s.log.LogReservationConfirmed(ctx, reservationID, paymentID, req.EventID, req.SeatID, req.UserID)
	s.publish(ctx, notifications.DomainEvent{
		Type:          notifications.DomainEventReservationConfirmed,
		EventID:       req.EventID,
		SeatID:        req.SeatID,
		UserID:        req.UserID,
		PaymentID:     paymentID,
		ReservationID: reservationID,
		Amount:        amount,
		OccurredAt:    now,
	})

	return ToPaymentResponse(payment), nil
}

func (s *service) recordFailure(ctx context.Context, paymentID string, req *PaymentRequest, amount int64, cause error) error {
	now := s.now()
	payment := &Payment{
		ID:        paymentID,
		UserID:    req.UserID,
		EventID:   req.EventID,
		SeatID:    req.SeatID,
		Amount:    amount,
		Status:    PaymentStatusFailed,
		CreatedAt: now,
	}
	if err := s.repo.SavePayment(ctx, payment); err != nil {
		return err
	}

	s.metrics.RecordPayment(string(PaymentStatusFailed))
	s.log.LogPaymentFailed(ctx, paymentID, req.EventID, req.SeatID, req.UserID)
	s.publish(ctx, notifications.DomainEvent{
		Type:       notifications.DomainEventPaymentFailed,
		EventID:    req.EventID,
		SeatID:     req.SeatID,
		UserID:     req.UserID,
		PaymentID:  paymentID,
		Amount:     amount,
		OccurredAt: now,
	})

	if cause != nil {
		return apperrors.Wrap(apperrors.PaymentFailed, paymentID, cause)
	}
	return apperrors.New(apperrors.PaymentFailed, paymentID)
}

func (s *service) publish(ctx context.Context, ev notifications.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishDomainEvent(ctx, ev); err != nil {
		s.log.WithError(err).Warn("Failed to publish domain event", "type", ev.Type, "payment_id", ev.PaymentID)
	}
}

func (s *service) GetPayment(ctx context.Context, paymentID string) (*PaymentResponse, error) {
	payment, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return nil, apperrors.New(apperrors.PaymentNotFound, paymentID)
		}
		return nil, err
	}
	return ToPaymentResponse(payment), nil
}

func (s *service) GetUserReservations(ctx context.Context, userID string) ([]ReservationResponse, error) {
	reservations, err := s.repo.GetReservationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]ReservationResponse, 0, len(reservations))
	for i := range reservations {
		responses = append(responses, *ToReservationResponse(&reservations[i]))
	}
	return responses, nil
}

func (s *service) GetReservation(ctx context.Context, reservationID string) (*ReservationResponse, error) {
	reservation, err := s.repo.GetReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, ErrReservationNotFound) {
			return nil, apperrors.New(apperrors.ReservationNotFound, reservationID)
		}
		return nil, err
	}
	return ToReservationResponse(reservation), nil
}
