package auth

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrClientNotFound = errors.New("oauth client not found")

type Repository interface {
	GetByClientID(ctx context.Context, clientID string) (*Client, error)
	// Upsert creates the client or replaces the one with the same ClientID
	Upsert(ctx context.Context, client *Client) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{
		db: db,
	}
}

func (r *repository) GetByClientID(ctx context.Context, clientID string) (*Client, error) {
	var client Client
	err := r.db.WithContext(ctx).Where("client_id = ?", clientID).First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return &client, nil
}

func (r *repository) Upsert(ctx context.Context, client *Client) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "client_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"client_secret", "client_name", "scopes", "access_token_validity_seconds", "enabled", "description", "updated_at",
		}),
	}).Create(client).Error
}

type memoryRepository struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewMemoryRepository() Repository {
	return &memoryRepository{clients: make(map[string]Client)}
}

func (r *memoryRepository) GetByClientID(_ context.Context, clientID string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[clientID]
	if !ok {
		return nil, ErrClientNotFound
	}
	return &client, nil
}

func (r *memoryRepository) Upsert(_ context.Context, client *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[client.ClientID] = *client
	return nil
}
