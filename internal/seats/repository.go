package seats

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrSeatNotFound = errors.New("seat not found")

type Repository interface {
	// SaveAll upserts seats; used by seeding
	SaveAll(ctx context.Context, seats []Seat) error
	GetByID(ctx context.Context, eventID, seatID string) (*Seat, error)
	GetByEventID(ctx context.Context, eventID string) ([]Seat, error)
	GetByEventIDAndSection(ctx context.Context, eventID, section string) ([]Seat, error)
	// MarkReserved flips the persisted status to RESERVED
	MarkReserved(ctx context.Context, eventID, seatID string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SaveAll(ctx context.Context, seats []Seat) error {
	if len(seats) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "seat_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"section", "row_num", "seat_num", "grade", "price", "updated_at"}),
		}).
		CreateInBatches(&seats, 100).Error
	if err != nil {
		return fmt.Errorf("failed to save seats: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, eventID, seatID string) (*Seat, error) {
	var seat Seat
	err := r.db.WithContext(ctx).Where("event_id = ? AND seat_id = ?", eventID, seatID).First(&seat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSeatNotFound
		}
		return nil, fmt.Errorf("failed to get seat %s/%s: %w", eventID, seatID, err)
	}
	return &seat, nil
}

func (r *repository) GetByEventID(ctx context.Context, eventID string) ([]Seat, error) {
	var seats []Seat
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("section ASC, row_num ASC, seat_num ASC").
		Find(&seats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list seats of %s: %w", eventID, err)
	}
	return seats, nil
}

func (r *repository) GetByEventIDAndSection(ctx context.Context, eventID, section string) ([]Seat, error) {
	var seats []Seat
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND section = ?", eventID, section).
		Order("row_num ASC, seat_num ASC").
		Find(&seats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list seats of %s section %s: %w", eventID, section, err)
	}
	return seats, nil
}

func (r *repository) MarkReserved(ctx context.Context, eventID, seatID string) error {
	result := r.db.WithContext(ctx).Model(&Seat{}).
		Where("event_id = ? AND seat_id = ?", eventID, seatID).
		Update("status", StatusReserved)
	if result.Error != nil {
		return fmt.Errorf("failed to reserve seat %s/%s: %w", eventID, seatID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSeatNotFound
	}
	return nil
}

type seatKey struct {
	eventID string
	seatID  string
}

type memoryRepository struct {
	mu    sync.RWMutex
	seats map[seatKey]Seat
}

// NewMemoryRepository keeps seats in process
func NewMemoryRepository() Repository {
	return &memoryRepository{seats: make(map[seatKey]Seat)}
}

func (r *memoryRepository) SaveAll(_ context.Context, seats []Seat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range seats {
		key := seatKey{s.EventID, s.SeatID}
		// Seeding never un-reserves a sold seat
		if existing, ok := r.seats[key]; ok && existing.IsReserved() {
			s.Status = StatusReserved
		}
		r.seats[key] = s
	}
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, eventID, seatID string) (*Seat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.seats[seatKey{eventID, seatID}]
	if !ok {
		return nil, ErrSeatNotFound
	}
	return &s, nil
}

func (r *memoryRepository) GetByEventID(_ context.Context, eventID string) ([]Seat, error) {
	return r.filter(func(s Seat) bool { return s.EventID == eventID }), nil
}

func (r *memoryRepository) GetByEventIDAndSection(_ context.Context, eventID, section string) ([]Seat, error) {
	return r.filter(func(s Seat) bool { return s.EventID == eventID && s.Section == section }), nil
}

func (r *memoryRepository) MarkReserved(_ context.Context, eventID, seatID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := seatKey{eventID, seatID}
	s, ok := r.seats[key]
	if !ok {
		return ErrSeatNotFound
	}
	s.Status = StatusReserved
	r.seats[key] = s
	return nil
}

func (r *memoryRepository) filter(keep func(Seat) bool) []Seat {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Seat, 0)
	for _, s := range r.seats {
		if keep(s) {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Section != b.Section {
			return a.Section < b.Section
		}
		if a.RowNum != b.RowNum {
			return a.RowNum < b.RowNum
		}
		return a.SeatNum < b.SeatNum
	})
	return result
}
