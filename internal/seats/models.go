package seats

import (
	"fmt"
	"time"
)

type Grade string

const (
	GradeVIP Grade = "VIP"
	GradeR   Grade = "R"
	GradeS   Grade = "S"
	GradeA   Grade = "A"
)

// DefaultPrice is the list price of the grade in KRW
func (g Grade) DefaultPrice() int64 {
	switch g {
	case GradeVIP:
		return 200000
	case GradeR:
		return 150000
	case GradeS:
		return 100000
	case GradeA:
		return 70000
	default:
		return 0
	}
}

func (g Grade) Description() string {
	switch g {
	case GradeVIP, GradeR, GradeS, GradeA:
		return string(g) + " seat"
	default:
		return string(g)
	}
}

type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusLocked    Status = "LOCKED"
	StatusReserved  Status = "RESERVED"
)

func (s Status) Description() string {
	switch s {
	case StatusAvailable:
		return "Available"
	case StatusLocked:
		return "On hold"
	case StatusReserved:
		return "Reserved"
	default:
		return string(s)
	}
}

// EffectiveStatus composes the persisted status with live lock presence.
// RESERVED is terminal and dominates; a live lock turns AVAILABLE into LOCKED.
func EffectiveStatus(persisted Status, locked bool) Status {
	if persisted == StatusReserved {
		return StatusReserved
	}
	if locked {
		return StatusLocked
	}
	return StatusAvailable
}

// Seat is a catalog seat. Status persists only AVAILABLE or RESERVED; holds live in the lock store.
type Seat struct {
	EventID   string    `json:"eventId" gorm:"primaryKey;size:64;index:idx_seat_event_section,priority:1"`
	SeatID    string    `json:"seatId" gorm:"primaryKey;size:32"`
	Section   string    `json:"section" gorm:"not null;size:8;index:idx_seat_event_section,priority:2"`
	RowNum    int       `json:"rowNum" gorm:"not null"`
	SeatNum   int       `json:"seatNum" gorm:"not null"`
	Grade     Grade     `json:"grade" gorm:"type:varchar(8);not null"`
	Price     int64     `json:"price" gorm:"not null;check:price >= 0"`
	Status    Status    `json:"status" gorm:"type:varchar(20);not null;default:'AVAILABLE';check:status IN ('AVAILABLE', 'RESERVED')"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName sets the table name for Seat
func (Seat) TableName() string {
	return "seats"
}

func (s *Seat) IsReserved() bool {
	return s.Status == StatusReserved
}

// BuildSeatID formats the SECTION-ROW-NUM identifier, e.g. A-1-1
func BuildSeatID(section string, row, num int) string {
	return fmt.Sprintf("%s-%d-%d", section, row, num)
}

// NewSeat builds an available seat priced at its grade's list price
func NewSeat(eventID, section string, row, num int, grade Grade) Seat {
	return Seat{
		EventID: eventID,
		SeatID:  BuildSeatID(section, row, num),
		Section: section,
		RowNum:  row,
		SeatNum: num,
		Grade:   grade,
		Price:   grade.DefaultPrice(),
		Status:  StatusAvailable,
	}
}
