package events

import "time"

type EventStatus string

const (
	EventStatusUpcoming EventStatus = "UPCOMING"
	EventStatusOpen     EventStatus = "OPEN"
	EventStatusClosed   EventStatus = "CLOSED"
	EventStatusSoldOut  EventStatus = "SOLD_OUT"
)

func (s EventStatus) Description() string {
	switch s {
	case EventStatusUpcoming:
		return "Upcoming"
	case EventStatusOpen:
		return "On sale"
	case EventStatusClosed:
		return "Sale closed"
	case EventStatusSoldOut:
		return "Sold out"
	default:
		return string(s)
	}
}

func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusUpcoming, EventStatusOpen, EventStatusClosed, EventStatusSoldOut:
		return true
	}
	return false
}

// Event is a ticketed show. MaxConcurrentUsers bounds how many admitted users may shop at once.
type Event struct {
	ID                 string      `json:"eventId" gorm:"primaryKey;size:64"`
	Name               string      `json:"name" gorm:"not null;size:255"`
	Venue              string      `json:"venue" gorm:"not null;size:255"`
	EventDate          time.Time   `json:"eventDate" gorm:"not null"`
	MaxConcurrentUsers int         `json:"maxConcurrentUsers" gorm:"not null;check:max_concurrent_users > 0"`
	Status             EventStatus `json:"status" gorm:"type:varchar(20);not null;default:'UPCOMING';index"`
	CreatedAt          time.Time   `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt          time.Time   `json:"updatedAt" gorm:"autoUpdateTime"`
}

// TableName sets the table name for Event
func (Event) TableName() string {
	return "events"
}

func (e *Event) IsOpen() bool {
	return e.Status == EventStatusOpen
}

type EventResponse struct {
	EventID            string      `json:"eventId"`
	Name               string      `json:"name"`
	Venue              string      `json:"venue"`
	EventDate          time.Time   `json:"eventDate"`
	Status             EventStatus `json:"status"`
	StatusDescription  string      `json:"statusDescription"`
	MaxConcurrentUsers int         `json:"maxConcurrentUsers"`
}

func ToResponse(e *Event) EventResponse {
	return EventResponse{
		EventID:            e.ID,
		Name:               e.Name,
		Venue:              e.Venue,
		EventDate:          e.EventDate,
		Status:             e.Status,
		StatusDescription:  e.Status.Description(),
		MaxConcurrentUsers: e.MaxConcurrentUsers,
	}
}
