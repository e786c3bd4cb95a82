package seats

import (
	"context"
	"errors"
	"fmt"

	"turnstile/internal/events"
	"turnstile/internal/shared/apperrors"
	"turnstile/pkg/logger"
	"turnstile/pkg/metrics"
)

// EventGuard resolves events that must be on sale
type EventGuard interface {
	RequireOpen(ctx context.Context, eventID string) (*events.Event, error)
}

// ReservationLookup reports whether a seat already has a confirmed reservation
type ReservationLookup interface {
	ExistsConfirmed(ctx context.Context, eventID, seatID string) (bool, error)
}

type Service interface {
	// GetSeats lists an open event's seats with their effective status; section filters when set
	GetSeats(ctx context.Context, eventID, section string) ([]SeatResponse, error)
	GetSeat(ctx context.Context, eventID, seatID string) (*SeatResponse, error)
	FindSeat(ctx context.Context, eventID, seatID string) (*Seat, error)

	LockSeat(ctx context.Context, eventID, seatID, userID string) (*SeatLockResponse, error)
	UnlockSeat(ctx context.Context, eventID, seatID, userID string) error
	// ValidateSeatLock fails SEAT_NOT_LOCKED_BY_USER when someone else holds the seat
	// and SEAT_LOCK_EXPIRED when nobody does
	ValidateSeatLock(ctx context.Context, eventID, seatID, userID string) error
	// ReserveSeat marks the seat RESERVED and force-releases its lock
	ReserveSeat(ctx context.Context, eventID, seatID string) error
}

type service struct {
	repo         Repository
	locks        LockStore
	events       EventGuard
	reservations ReservationLookup
	log          *logger.Logger
	metrics      *metrics.AdmissionMetrics
}

func NewService(repo Repository, locks LockStore, eventGuard EventGuard, reservations ReservationLookup, log *logger.Logger, m *metrics.AdmissionMetrics) Service {
	return &service{
		repo:         repo,
		locks:        locks,
		events:       eventGuard,
		reservations: reservations,
		log:          logger.OrDefault(log).WithComponent("seats"),
		metrics:      m,
	}
}

// ================== QUERIES ==================

func (s *service) GetSeats(ctx context.Context, eventID, section string) ([]SeatResponse, error) {
	if _, err := s.events.RequireOpen(ctx, eventID); err != nil {
		return nil, err
	}

	var (
		seats []Seat
		err   error
	)
	if section != "" {
		seats, err = s.repo.GetByEventIDAndSection(ctx, eventID, section)
	} else {
		seats, err = s.repo.GetByEventID(ctx, eventID)
	}
	if err != nil {
		return nil, err
	}

	seatIDs := make([]string, len(seats))
	for i := range seats {
		seatIDs[i] = seats[i].SeatID
	}
	locked, err := s.locks.LockedSeats(ctx, eventID, seatIDs)
	if err != nil {
		return nil, err
	}

	responses := make([]SeatResponse, 0, len(seats))
	for i := range seats {
		responses = append(responses, toSeatResponse(&seats[i], EffectiveStatus(seats[i].Status, locked[seats[i].SeatID])))
	}
	return responses, nil
}

func (s *service) GetSeat(ctx context.Context, eventID, seatID string) (*SeatResponse, error) {
	seat, err := s.FindSeat(ctx, eventID, seatID)
	if err != nil {
		return nil, err
	}

	locked, err := s.locks.IsLocked(ctx, eventID, seatID)
	if err != nil {
		return nil, err
	}

	resp := toSeatResponse(seat, EffectiveStatus(seat.Status, locked))
	return &resp, nil
}

func (s *service) FindSeat(ctx context.Context, eventID, seatID string) (*Seat, error) {
	seat, err := s.repo.GetByID(ctx, eventID, seatID)
	if err != nil {
		if errors.Is(err, ErrSeatNotFound) {
			return nil, apperrors.New(apperrors.SeatNotFound, seatID)
		}
		return nil, err
	}
	return seat, nil
}

// ================== LOCKING ==================

func (s *service) LockSeat(ctx context.Context, eventID, seatID, userID string) (*SeatLockResponse, error) {
	if _, err := s.events.RequireOpen(ctx, eventID); err != nil {
		return nil, err
	}

	seat, err := s.FindSeat(ctx, eventID, seatID)
	if err != nil {
		return nil, err
	}

	if seat.IsReserved() {
		return nil, apperrors.New(apperrors.SeatAlreadyReserved, seatID)
	}
	reserved, err := s.reservations.ExistsConfirmed(ctx, eventID, seatID)
	if err != nil {
		return nil, fmt.Errorf("failed to check reservation for %s: %w", seatID, err)
	}
	if reserved {
		return nil, apperrors.New(apperrors.SeatAlreadyReserved, seatID)
	}

	result, err := s.locks.TryLock(ctx, eventID, seatID, userID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLockAttempt(string(result))

	switch result {
	case LockSuccess:
		s.log.LogSeatLocked(ctx, eventID, seatID, userID, s.locks.TTL())
		return &SeatLockResponse{
			EventID:          eventID,
			SeatID:           seatID,
			UserID:           userID,
			Locked:           true,
			ExpiresInSeconds: int(s.locks.TTL().Seconds()),
		}, nil

	case LockAlreadyOwned:
		remaining, err := s.locks.RemainingTTL(ctx, eventID, seatID)
		if err != nil {
			return nil, err
		}
		s.log.InfoContext(ctx, "Seat already held by caller", "event_id", eventID, "seat_id", seatID, "user_id", userID)
		return &SeatLockResponse{
			EventID:          eventID,
			SeatID:           seatID,
			UserID:           userID,
			Locked:           true,
			ExpiresInSeconds: int(remaining.Seconds()),
			Reason:           LockAlreadyOwned,
		}, nil

	default:
		s.log.InfoContext(ctx, "Seat held by another user", "event_id", eventID, "seat_id", seatID)
		return nil, apperrors.New(apperrors.SeatAlreadyLocked, seatID)
	}
}

func (s *service) UnlockSeat(ctx context.Context, eventID, seatID, userID string) error {
	if _, err := s.FindSeat(ctx, eventID, seatID); err != nil {
		return err
	}

	unlocked, err := s.locks.Unlock(ctx, eventID, seatID, userID)
	if err != nil {
		return err
	}
	if !unlocked {
		return apperrors.New(apperrors.SeatNotLockedByUser, seatID)
	}

	s.log.InfoContext(ctx, "Seat unlocked", "event_id", eventID, "seat_id", seatID, "user_id", userID)
	return nil
}

func (s *service) ValidateSeatLock(ctx context.Context, eventID, seatID, userID string) error {
	owner, locked, err := s.locks.LockedBy(ctx, eventID, seatID)
	if err != nil {
		return err
	}
	if !locked {
		return apperrors.New(apperrors.SeatLockExpired, seatID)
	}
	if owner != userID {
		return apperrors.New(apperrors.SeatNotLockedByUser, seatID)
	}
	return nil
}

func (s *service) ReserveSeat(ctx context.Context, eventID, seatID string) error {
	if err := s.repo.MarkReserved(ctx, eventID, seatID); err != nil {
		if errors.Is(err, ErrSeatNotFound) {
			return apperrors.New(apperrors.SeatNotFound, seatID)
		}
		return err
	}

	if err := s.locks.ForceUnlock(ctx, eventID, seatID); err != nil {
		// The seat is sold; a leftover lock only lapses with its TTL
		s.log.WithError(err).Warn("Failed to release lock of reserved seat", "event_id", eventID, "seat_id", seatID)
	}

	s.log.InfoContext(ctx, "Seat reserved", "event_id", eventID, "seat_id", seatID)
	return nil
}
