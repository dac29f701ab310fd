package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/baseplate/querykit/internal/core/auth"
)

const (
	ContextKeyID       = "key_id"
	ContextTeamID      = "team_id"
	ContextPermissions = "permissions"

	HeaderTeamID   = "X-Team-ID"
	HeaderAdminKey = "X-Admin-Key"
)

type AuthMiddleware struct {
	authService *auth.Service
}

func NewAuthMiddleware(authService *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Authenticate accepts "Bearer <token>" or "ApiKey <key>" and records the
// credential's team and permissions.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		switch strings.ToLower(parts[0]) {
		case "bearer":
			m.handleJWT(c, parts[1])
		case "apikey":
			m.handleAPIKey(c, parts[1])
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unsupported authorization type"})
			return
		}
	}
}

func (m *AuthMiddleware) handleJWT(c *gin.Context, token string) {
	claims, err := m.authService.ValidateToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	c.Set(ContextKeyID, claims.KeyID)
	c.Set(ContextTeamID, claims.TeamID)
	c.Set(ContextPermissions, claims.Permissions)
	c.Next()
}

func (m *AuthMiddleware) handleAPIKey(c *gin.Context, key string) {
	apiKey, err := m.authService.ValidateAPIKey(c.Request.Context(), key)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
		return
	}

	c.Set(ContextKeyID, apiKey.ID)
	c.Set(ContextTeamID, apiKey.TeamID)
	c.Set(ContextPermissions, apiKey.Permissions)
	c.Next()
}

// RequireTeam makes sure the request carries a team. An X-Team-ID header,
// when sent, must name the credential's team.
func (m *AuthMiddleware) RequireTeam() gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID, exists := GetTeamID(c)
		if !exists {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "team id required"})
			return
		}

		if header := c.GetHeader(HeaderTeamID); header != "" {
			requested, err := uuid.Parse(header)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid team id"})
				return
			}
			if requested != teamID {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
				return
			}
		}

		c.Next()
	}
}

func (m *AuthMiddleware) RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		perms, exists := c.Get(ContextPermissions)
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "no permissions found"})
			return
		}

		permissions, ok := perms.([]string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "invalid permission type"})
			return
		}

		if auth.HasPermission(permissions, permission) {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
	}
}

// RequireAdminKey guards key management with the configured admin key.
func (m *AuthMiddleware) RequireAdminKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.authService.VerifyAdminKey(c.GetHeader(HeaderAdminKey)); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin key"})
			return
		}
		c.Next()
	}
}

// Helper functions to get context values
func GetTeamID(c *gin.Context) (uuid.UUID, bool) {
	val, exists := c.Get(ContextTeamID)
	if !exists {
		return uuid.Nil, false
	}

	if id, ok := val.(uuid.UUID); ok && id != uuid.Nil {
		return id, true
	}

	return uuid.Nil, false
}

func GetPermissions(c *gin.Context) []string {
	val, exists := c.Get(ContextPermissions)
	if !exists {
		return nil
	}

	if perms, ok := val.([]string); ok {
		return perms
	}

	return nil
}
