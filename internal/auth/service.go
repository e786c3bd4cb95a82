package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"turnstile/internal/shared/apperrors"
	"turnstile/pkg/logger"
)

type Service interface {
	// IssueToken runs the client credentials grant
	IssueToken(ctx context.Context, req *TokenRequest) (*TokenResponse, error)
	// ValidateToken parses a bearer token and returns its claims
	ValidateToken(tokenString string) (*AccessClaims, error)
	// RegisterClient stores a client, hashing its plain secret
	RegisterClient(ctx context.Context, client *Client, plainSecret string) error
}

type ServiceConfig struct {
	Secret string
	Issuer string
}

type service struct {
	repo   Repository
	config ServiceConfig
	log    *logger.Logger
	now    func() time.Time
}

func NewService(repo Repository, config ServiceConfig, log *logger.Logger) Service {
	if config.Issuer == "" {
		config.Issuer = "turnstile"
	}
	return &service{
		repo:   repo,
		config: config,
		log:    logger.OrDefault(log).WithComponent("auth"),
		now:    time.Now,
	}
}

func (s *service) IssueToken(ctx context.Context, req *TokenRequest) (*TokenResponse, error) {
	if req.GrantType != GrantTypeClientCredentials {
		return nil, apperrors.New(apperrors.UnsupportedGrantType, req.GrantType)
	}

	client, err := s.repo.GetByClientID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			s.log.Warn("Unknown oauth client", "client_id", req.ClientID)
			return nil, apperrors.New(apperrors.InvalidClient, req.ClientID)
		}
		return nil, err
	}

	if !client.Enabled {
		return nil, apperrors.New(apperrors.ClientDisabled, req.ClientID)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(client.Secret), []byte(req.ClientSecret)); err != nil {
		s.log.Warn("Invalid client secret", "client_id", req.ClientID)
		return nil, apperrors.New(apperrors.InvalidClient, req.ClientID)
	}

	scope, err := grantScope(client, req.Scope)
	if err != nil {
		return nil, err
	}

	validity := client.TokenValiditySeconds
	if validity <= 0 {
		validity = DefaultTokenValiditySeconds
	}

	now := s.now()
	claims := AccessClaims{
		ClientID: client.ClientID,
		Scope:    scope,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(validity) * time.Second)),
			Issuer:    s.config.Issuer,
			Subject:   client.ClientID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return nil, err
	}

	s.log.LogAuthSuccess(ctx, client.ClientID, scope)

	return &TokenResponse{
		AccessToken: signed,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   validity,
		Scope:       scope,
		IssuedAt:    now.Unix(),
	}, nil
}

// grantScope returns the requested scopes, or every client scope when none were requested.
// Asking for a scope the client does not hold fails the whole request.
func grantScope(client *Client, requested string) (string, error) {
	granted := client.ScopeList()
	wanted := ParseScopes(requested)
	if len(wanted) == 0 {
		return strings.Join(granted, " "), nil
	}

	var invalid []string
	for _, scope := range wanted {
		if !client.HasScope(scope) {
			invalid = append(invalid, scope)
		}
	}
	if len(invalid) > 0 {
		return "", apperrors.New(apperrors.InvalidScope, strings.Join(invalid, ", "))
	}
	return strings.Join(wanted, " "), nil
}

func (s *service) ValidateToken(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.New(apperrors.Unauthorized, "unexpected signing method")
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Unauthorized, "", err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, apperrors.New(apperrors.Unauthorized, "")
	}
	if claims.Issuer != s.config.Issuer {
		return nil, apperrors.New(apperrors.Unauthorized, "issuer")
	}
	return claims, nil
}

func (s *service) RegisterClient(ctx context.Context, client *Client, plainSecret string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plainSecret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	client.Secret = string(hashed)
	client.Scopes = strings.Join(ParseScopes(client.Scopes), " ")
	if client.TokenValiditySeconds <= 0 {
		client.TokenValiditySeconds = DefaultTokenValiditySeconds
	}
	if client.Name == "" {
		client.Name = client.ClientID
	}

	if err := s.repo.Upsert(ctx, client); err != nil {
		return err
	}
	s.log.Info("OAuth client registered", "client_id", client.ClientID, "scopes", client.Scopes, "enabled", client.Enabled)
	return nil
}
