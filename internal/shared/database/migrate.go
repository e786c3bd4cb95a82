package database

import (
	"gorm.io/gorm"

	"turnstile/internal/auth"
	"turnstile/internal/events"
	"turnstile/internal/payments"
	"turnstile/internal/seats"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&events.Event{},
		&seats.Seat{},
		&payments.Reservation{},
		&payments.Payment{},
		&auth.Client{},
	)
}
