package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	GrantTypeClientCredentials = "client_credentials"
	TokenTypeBearer            = "Bearer"

	// ScopeQueueAdmin guards the operational queue endpoints
	ScopeQueueAdmin = "queue:admin"

	DefaultTokenValiditySeconds = 3600
)

// Client is a machine caller allowed to request access tokens.
// Secret holds the bcrypt hash, never the plain secret.
type Client struct {
	ID                   uint      `json:"-" gorm:"primaryKey"`
	ClientID             string    `json:"clientId" gorm:"size:100;not null;uniqueIndex:idx_oauth_client_id"`
	Secret               string    `json:"-" gorm:"column:client_secret;not null"`
	Name                 string    `json:"name" gorm:"column:client_name;size:200;not null"`
	Scopes               string    `json:"scopes" gorm:"size:500;not null"`
	TokenValiditySeconds int       `json:"tokenValiditySeconds" gorm:"column:access_token_validity_seconds;not null;default:3600"`
	Enabled              bool      `json:"enabled" gorm:"not null;default:true"`
	Description          string    `json:"description,omitempty" gorm:"size:1000"`
	CreatedAt            time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt            time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// TableName sets the table name for Client
func (Client) TableName() string {
	return "oauth2_clients"
}

func (c *Client) ScopeList() []string {
	return ParseScopes(c.Scopes)
}

func (c *Client) HasScope(scope string) bool {
	for _, s := range c.ScopeList() {
		if s == scope {
			return true
		}
	}
	return false
}

// ParseScopes splits a space separated scope string, dropping blanks and duplicates
func ParseScopes(raw string) []string {
	fields := strings.Fields(raw)
	seen := make(map[string]struct{}, len(fields))
	scopes := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		scopes = append(scopes, f)
	}
	return scopes
}

// AccessClaims are the claims of an issued access token
type AccessClaims struct {
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) HasScope(scope string) bool {
	for _, s := range strings.Fields(c.Scope) {
		if s == scope {
			return true
		}
	}
	return false
}
