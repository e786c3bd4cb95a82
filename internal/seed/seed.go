package seed

import (
	"context"
	"fmt"
	"time"

	"turnstile/internal/events"
	"turnstile/internal/seats"
)

// sectionLayout describes one block of seats
type sectionLayout struct {
	section string
	grade   seats.Grade
	rows    int
	perRow  int
}

type eventFixture struct {
	event    events.Event
	sections []sectionLayout
}

var kst = time.FixedZone("KST", 9*60*60)

func fixtures() []eventFixture {
	return []eventFixture{
		{
			event: events.Event{
				ID:                 "EVT001",
				Name:               "2026 New Year Concert",
				Venue:              "Olympic Gymnastics Arena",
				EventDate:          time.Date(2026, 2, 1, 19, 0, 0, 0, kst),
				MaxConcurrentUsers: 100,
				Status:             events.EventStatusOpen,
			},
			sections: []sectionLayout{
				{section: "A", grade: seats.GradeVIP, rows: 2, perRow: 5},
				{section: "B", grade: seats.GradeR, rows: 4, perRow: 5},
				{section: "C", grade: seats.GradeS, rows: 4, perRow: 5},
			},
		},
		{
			event: events.Event{
				ID:                 "EVT002",
				Name:               "2026 Spring Music Festival",
				Venue:              "Jamsil Sports Complex",
				EventDate:          time.Date(2026, 4, 15, 18, 0, 0, 0, kst),
				MaxConcurrentUsers: 200,
				Status:             events.EventStatusUpcoming,
			},
		},
	}
}

// Events returns the fixture events
func Events() []events.Event {
	fx := fixtures()
	out := make([]events.Event, 0, len(fx))
	for _, f := range fx {
		out = append(out, f.event)
	}
	return out
}

// Seats returns the fixture seats of every event, in section/row/seat order
func Seats() []seats.Seat {
	var out []seats.Seat
	for _, f := range fixtures() {
		for _, layout := range f.sections {
			for row := 1; row <= layout.rows; row++ {
				for num := 1; num <= layout.perRow; num++ {
					out = append(out, seats.NewSeat(f.event.ID, layout.section, row, num, layout.grade))
				}
			}
		}
	}
	return out
}

// Load writes the fixture catalog through the given repositories
func Load(ctx context.Context, eventRepo events.Repository, seatRepo seats.Repository) error {
	for _, event := range Events() {
		event := event
		if err := eventRepo.Save(ctx, &event); err != nil {
			return fmt.Errorf("save event %s: %w", event.ID, err)
		}
	}
	if err := seatRepo.SaveAll(ctx, Seats()); err != nil {
		return fmt.Errorf("save seats: %w", err)
	}
	return nil
}
