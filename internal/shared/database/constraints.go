package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds the constraints AutoMigrate cannot express
func MigrateConstraints(db *gorm.DB) error {
	// At most one confirmed reservation per seat; cancelled rows may repeat
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uq_reservations_confirmed_seat
		ON reservations (event_id, seat_id)
		WHERE status = 'CONFIRMED';
	`).Error
	if err != nil {
		return err
	}

	// Payment history lookups by seat
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_payments_event_seat
		ON payments (event_id, seat_id);
	`).Error
	if err != nil {
		return err
	}

	return nil
}
