package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"turnstile/internal/shared/apperrors"
	"turnstile/internal/shared/constants"
	"turnstile/pkg/cache"
	"turnstile/pkg/logger"
)

type Service interface {
	ListEvents(ctx context.Context) ([]EventResponse, error)
	GetEvent(ctx context.Context, id string) (*EventResponse, error)
	// FindEvent fails with EVENT_NOT_FOUND
	FindEvent(ctx context.Context, id string) (*Event, error)
	// RequireOpen fails with EVENT_NOT_FOUND or EVENT_NOT_OPEN
	RequireOpen(ctx context.Context, id string) (*Event, error)
	// OpenEvents reads the source of truth, bypassing the cache
	OpenEvents(ctx context.Context) ([]Event, error)
	SetCacheService(cacheService cache.Service, ttl time.Duration)
}

type service struct {
	repo         Repository
	cacheService cache.Service
	cacheTTL     time.Duration
	log          *logger.Logger
}

func NewService(repo Repository, log *logger.Logger) Service {
	return &service{
		repo:     repo,
		cacheTTL: constants.TTL_EVENT_DETAIL,
		log:      logger.OrDefault(log).WithComponent("events"),
	}
}

// SetCacheService injects the cache service dependency
func (s *service) SetCacheService(cacheService cache.Service, ttl time.Duration) {
	s.cacheService = cacheService
	if ttl > 0 {
		s.cacheTTL = ttl
	}
}

func (s *service) ListEvents(ctx context.Context) ([]EventResponse, error) {
	var events []Event
	fetch := func() (interface{}, error) {
		return s.repo.GetAll(ctx)
	}

	if s.cacheService != nil {
		if err := s.cacheService.GetOrSet(ctx, constants.CACHE_KEY_EVENTS_LIST, constants.TTL_EVENTS_LIST, fetch, &events); err != nil {
			return nil, err
		}
	} else {
		var err error
		if events, err = s.repo.GetAll(ctx); err != nil {
			return nil, err
		}
	}

	responses := make([]EventResponse, 0, len(events))
	for i := range events {
		responses = append(responses, ToResponse(&events[i]))
	}
	return responses, nil
}

func (s *service) GetEvent(ctx context.Context, id string) (*EventResponse, error) {
	event, err := s.FindEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToResponse(event)
	return &resp, nil
}

func (s *service) FindEvent(ctx context.Context, id string) (*Event, error) {
	var (
		event *Event
		err   error
	)

	if s.cacheService != nil {
		var cached Event
		err = s.cacheService.GetOrSet(ctx, constants.BuildEventDetailKey(id), s.cacheTTL, func() (interface{}, error) {
			return s.repo.GetByID(ctx, id)
		}, &cached)
		event = &cached
	} else {
		event, err = s.repo.GetByID(ctx, id)
	}

	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return nil, apperrors.New(apperrors.EventNotFound, id)
		}
		return nil, fmt.Errorf("failed to load event %s: %w", id, err)
	}
	return event, nil
}

func (s *service) RequireOpen(ctx context.Context, id string) (*Event, error) {
	event, err := s.FindEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !event.IsOpen() {
		return nil, apperrors.New(apperrors.EventNotOpen, id)
	}
	return event, nil
}

func (s *service) OpenEvents(ctx context.Context) ([]Event, error) {
	return s.repo.GetByStatus(ctx, EventStatusOpen)
}
