package payments

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"gorm.io/gorm"
)

var (
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrReservationNotFound = errors.New("reservation not found")
	// ErrDuplicateReservation means the seat already has a confirmed reservation
	ErrDuplicateReservation = errors.New("seat already has a confirmed reservation")
)

type Repository interface {
	SavePayment(ctx context.Context, payment *Payment) error
	GetPayment(ctx context.Context, id string) (*Payment, error)

	// SaveConfirmed stores a successful payment and its reservation together
	SaveConfirmed(ctx context.Context, payment *Payment, reservation *Reservation) error
	GetReservation(ctx context.Context, id string) (*Reservation, error)
	GetReservationsByUser(ctx context.Context, userID string) ([]Reservation, error)
	ExistsConfirmed(ctx context.Context, eventID, seatID string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SavePayment(ctx context.Context, payment *Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return fmt.Errorf("failed to save payment %s: %w", payment.ID, err)
	}
	return nil
}

func (r *repository) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var payment Payment
	err := r.db.WithContext(ctx).Where("payment_id = ?", id).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment %s: %w", id, err)
	}
	return &payment, nil
}

func (r *repository) SaveConfirmed(ctx context.Context, payment *Payment, reservation *Reservation) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payment).Error; err != nil {
			return err
		}
		return tx.Create(reservation).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateReservation
		}
		return fmt.Errorf("failed to save reservation %s: %w", reservation.ID, err)
	}
	return nil
}

func (r *repository) GetReservation(ctx context.Context, id string) (*Reservation, error) {
	var reservation Reservation
	err := r.db.WithContext(ctx).Where("reservation_id = ?", id).First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to get reservation %s: %w", id, err)
	}
	return &reservation, nil
}

func (r *repository) GetReservationsByUser(ctx context.Context, userID string) ([]Reservation, error) {
	var reservations []Reservation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&reservations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations of %s: %w", userID, err)
	}
	return reservations, nil
}

func (r *repository) ExistsConfirmed(ctx context.Context, eventID, seatID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Reservation{}).
		Where("event_id = ? AND seat_id = ? AND status = ?", eventID, seatID, ReservationStatusConfirmed).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check reservation of %s/%s: %w", eventID, seatID, err)
	}
	return count > 0, nil
}

type seatKey struct {
	eventID string
	seatID  string
}

type memoryRepository struct {
	mu           sync.RWMutex
	payments     map[string]Payment
	reservations map[string]Reservation
	confirmed    map[seatKey]string
	order        []string
}

// NewMemoryRepository keeps payments and reservations in process
func NewMemoryRepository() Repository {
	return &memoryRepository{
		payments:     make(map[string]Payment),
		reservations: make(map[string]Reservation),
		confirmed:    make(map[seatKey]string),
	}
}

func (r *memoryRepository) SavePayment(_ context.Context, payment *Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[payment.ID] = *payment
	return nil
}

func (r *memoryRepository) GetPayment(_ context.Context, id string) (*Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.payments[id]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return &p, nil
}

func (r *memoryRepository) SaveConfirmed(_ context.Context, payment *Payment, reservation *Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := seatKey{reservation.EventID, reservation.SeatID}
	if reservation.IsConfirmed() {
		if _, taken := r.confirmed[key]; taken {
			return ErrDuplicateReservation
		}
		r.confirmed[key] = reservation.ID
	}
	r.payments[payment.ID] = *payment
	r.reservations[reservation.ID] = *reservation
	r.order = append(r.order, reservation.ID)
	return nil
}

func (r *memoryRepository) GetReservation(_ context.Context, id string) (*Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rsv, ok := r.reservations[id]
	if !ok {
		return nil, ErrReservationNotFound
	}
	return &rsv, nil
}

func (r *memoryRepository) GetReservationsByUser(_ context.Context, userID string) ([]Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Reservation, 0)
	for _, id := range r.order {
		if rsv := r.reservations[id]; rsv.UserID == userID {
			result = append(result, rsv)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *memoryRepository) ExistsConfirmed(_ context.Context, eventID, seatID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.confirmed[seatKey{eventID, seatID}]
	return ok, nil
}
