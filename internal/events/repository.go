package events

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrEventNotFound = errors.New("event not found")

type Repository interface {
	Save(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	GetAll(ctx context.Context) ([]Event, error)
	GetByStatus(ctx context.Context, status EventStatus) ([]Event, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Save inserts the event or overwrites the existing row with the same id
func (r *repository) Save(ctx context.Context, event *Event) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(event).Error
	if err != nil {
		return fmt.Errorf("failed to save event %s: %w", event.ID, err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Event, error) {
	var event Event
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event %s: %w", id, err)
	}
	return &event, nil
}

func (r *repository) GetAll(ctx context.Context) ([]Event, error) {
	var events []Event
	if err := r.db.WithContext(ctx).Order("event_date ASC, id ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (r *repository) GetByStatus(ctx context.Context, status EventStatus) ([]Event, error) {
	var events []Event
	err := r.db.WithContext(ctx).Where("status = ?", status).Order("event_date ASC, id ASC").Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s events: %w", status, err)
	}
	return events, nil
}

type memoryRepository struct {
	mu     sync.RWMutex
	events map[string]Event
}

// NewMemoryRepository keeps the catalog in process
func NewMemoryRepository() Repository {
	return &memoryRepository{events: make(map[string]Event)}
}

func (r *memoryRepository) Save(_ context.Context, event *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.ID] = *event
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	return &event, nil
}

func (r *memoryRepository) GetAll(_ context.Context) ([]Event, error) {
	return r.filter(func(Event) bool { return true }), nil
}

func (r *memoryRepository) GetByStatus(_ context.Context, status EventStatus) ([]Event, error) {
	return r.filter(func(e Event) bool { return e.Status == status }), nil
}

func (r *memoryRepository) filter(keep func(Event) bool) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Event, 0, len(r.events))
	for _, e := range r.events {
		if keep(e) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].EventDate.Equal(result[j].EventDate) {
			return result[i].EventDate.Before(result[j].EventDate)
		}
		return result[i].ID < result[j].ID
	})
	return result
}
