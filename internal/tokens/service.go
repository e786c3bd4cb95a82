package tokens

import (
	"context"
	"fmt"
	"strings"

	"turnstile/internal/shared/apperrors"
)

// Service validates entry tokens presented by clients
type Service interface {
	// ValidateToken fails with TOKEN_NOT_FOUND for a blank token, TOKEN_EXPIRED when no live
	// token exists and TOKEN_INVALID when the presented one does not match
	ValidateToken(ctx context.Context, eventID, userID, token string) error
	DeleteToken(ctx context.Context, eventID, userID string) error
}

type service struct {
	store Store
}

func NewService(store Store) Service {
	return &service{store: store}
}

func (s *service) ValidateToken(ctx context.Context, eventID, userID, token string) error {
	if strings.TrimSpace(token) == "" {
		return apperrors.New(apperrors.TokenNotFound, userID)
	}

	stored, ok, err := s.store.Get(ctx, eventID, userID)
	if err != nil {
		return fmt.Errorf("failed to read entry token: %w", err)
	}
	if !ok {
		return apperrors.New(apperrors.TokenExpired, userID)
	}
	if stored != token {
		return apperrors.New(apperrors.TokenInvalid, userID)
	}
	return nil
}

func (s *service) DeleteToken(ctx context.Context, eventID, userID string) error {
	if _, err := s.store.Delete(ctx, eventID, userID); err != nil {
		return fmt.Errorf("failed to delete entry token: %w", err)
	}
	return nil
}
