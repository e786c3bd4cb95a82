package payments

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

func (s PaymentStatus) Description() string {
	switch s {
	case PaymentStatusSuccess:
		return "Paid"
	case PaymentStatusFailed:
		return "Payment failed"
	default:
		return string(s)
	}
}

type ReservationStatus string

const (
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

func (s ReservationStatus) Description() string {
	switch s {
	case ReservationStatusConfirmed:
		return "Confirmed"
	case ReservationStatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// Reservation is the record of a sold seat. At most one CONFIRMED reservation
// exists per (event, seat); the database enforces it with a partial unique index.
type Reservation struct {
	ID          string            `gorm:"column:reservation_id;type:varchar(32);primaryKey" json:"reservationId"`
	EventID     string            `gorm:"type:varchar(32);not null;index:idx_reservation_seat,priority:1" json:"eventId"`
	SeatID      string            `gorm:"type:varchar(32);not null;index:idx_reservation_seat,priority:2" json:"seatId"`
	UserID      string            `gorm:"type:varchar(64);not null;index" json:"userId"`
	PaymentID   string            `gorm:"type:varchar(32);not null;uniqueIndex" json:"paymentId"`
	Amount      int64             `gorm:"not null" json:"amount"`
	Status      ReservationStatus `gorm:"type:varchar(20);check:status IN ('CONFIRMED', 'CANCELLED');default:'CONFIRMED'" json:"status"`
	ConfirmedAt *time.Time        `json:"confirmedAt,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

func (Reservation) TableName() string {
	return "reservations"
}

func (r *Reservation) IsConfirmed() bool {
	return r.Status == ReservationStatusConfirmed
}

// Payment is an append-only record of one payment attempt. Failed attempts carry no reservation.
type Payment struct {
	ID            string        `gorm:"column:payment_id;type:varchar(32);primaryKey" json:"paymentId"`
	UserID        string        `gorm:"type:varchar(64);not null;index" json:"userId"`
	EventID       string        `gorm:"type:varchar(32);not null" json:"eventId"`
	SeatID        string        `gorm:"type:varchar(32);not null" json:"seatId"`
	ReservationID *string       `gorm:"type:varchar(32)" json:"reservationId"`
	Amount        int64         `gorm:"not null" json:"amount"`
	Status        PaymentStatus `gorm:"type:varchar(20);check:status IN ('SUCCESS', 'FAILED')" json:"status"`
	PaidAt        *time.Time    `json:"paidAt,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}

func (Payment) TableName() string {
	return "payments"
}

func newID(prefix string) string {
	return prefix + strings.ToUpper(uuid.NewString()[:8])
}

// NewPaymentID returns an id like PAY-1A2B3C4D
func NewPaymentID() string {
	return newID("PAY-")
}

// NewReservationID returns an id like RSV-1A2B3C4D
func NewReservationID() string {
	return newID("RSV-")
}
