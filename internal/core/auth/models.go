package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type APIKey struct {
	ID          uuid.UUID  `json:"id"`
	TeamID      uuid.UUID  `json:"team_id"`
	Name        string     `json:"name"`
	KeyHash     string     `json:"-"`
	Permissions []string   `json:"permissions"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Claims are carried by bearer tokens issued in exchange for an API key.
type Claims struct {
	TeamID      uuid.UUID `json:"team_id"`
	KeyID       uuid.UUID `json:"key_id"`
	Permissions []string  `json:"permissions"`
	jwt.RegisteredClaims
}

// Request/Response types
type CreateAPIKeyRequest struct {
	TeamID      string   `json:"team_id" binding:"required,uuid"`
	Name        string   `json:"name" binding:"required"`
	Permissions []string `json:"permissions" binding:"dive,oneof=entity:read entity:write entity:delete"`
	ExpiresAt   *string  `json:"expires_at"`
}

type CreateAPIKeyResponse struct {
	APIKey *APIKey `json:"api_key"`
	Key    string  `json:"key"`
}

type TokenRequest struct {
	Key string `json:"key" binding:"required"`
}

type TokenResponse struct {
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
	TeamID      uuid.UUID `json:"team_id"`
	Permissions []string  `json:"permissions"`
}

// Permission constants
const (
	PermEntityRead   = "entity:read"
	PermEntityWrite  = "entity:write"
	PermEntityDelete = "entity:delete"
)

var AllPermissions = []string{PermEntityRead, PermEntityWrite, PermEntityDelete}

// DefaultPermissions are granted to keys created without an explicit list.
var DefaultPermissions = []string{PermEntityRead}

// HasPermission reports whether permission is in granted.
func HasPermission(granted []string, permission string) bool {
	for _, p := range granted {
		if p == permission {
			return true
		}
	}
	return false
}
