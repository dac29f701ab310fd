package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/baseplate/querykit/config"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
)

type Service struct {
	repo   Repository
	jwt    *config.JWTConfig
	admin  *config.AuthConfig
	logger *slog.Logger
}

func NewService(repo Repository, jwtCfg *config.JWTConfig, authCfg *config.AuthConfig) *Service {
	return &Service{repo: repo, jwt: jwtCfg, admin: authCfg, logger: slog.Default()}
}

// VerifyAdminKey checks key against the configured bcrypt hash. Without a
// configured hash every key is rejected.
func (s *Service) VerifyAdminKey(key string) error {
	if s.admin == nil || s.admin.AdminKeyHash == "" || key == "" {
		return ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.admin.AdminKeyHash), []byte(key)); err != nil {
		return ErrUnauthorized
	}
	return nil
}

// HashAdminKey returns the bcrypt hash to configure for key.
func HashAdminKey(key string) (string, error) {
	if len(key) < 16 {
		return "", fmt.Errorf("%w: admin key must be at least 16 characters", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func hashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// API Key management
func (s *Service) CreateAPIKey(ctx context.Context, req *CreateAPIKeyRequest) (*CreateAPIKeyResponse, error) {
	teamID, err := uuid.Parse(req.TeamID)
	if err != nil {
		return nil, fmt.Errorf("%w: team_id: %v", ErrInvalidInput, err)
	}

	rawKey := make([]byte, 32)
	if _, err := rand.Read(rawKey); err != nil {
		return nil, err
	}
	keyString := "qk_" + hex.EncodeToString(rawKey)

	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid expiration date format: %v", ErrInvalidInput, err)
		}
		expiresAt = &t
	}

	permissions := req.Permissions
	if len(permissions) == 0 {
		permissions = DefaultPermissions
	}
	for _, p := range permissions {
		if !HasPermission(AllPermissions, p) {
			return nil, fmt.Errorf("%w: unknown permission %q", ErrInvalidInput, p)
		}
	}

	apiKey := &APIKey{
		ID:          uuid.New(),
		TeamID:      teamID,
		Name:        req.Name,
		KeyHash:     hashKey(keyString),
		Permissions: permissions,
		ExpiresAt:   expiresAt,
	}

	if err := s.repo.CreateAPIKey(ctx, apiKey); err != nil {
		return nil, err
	}

	return &CreateAPIKeyResponse{
		APIKey: apiKey,
		Key:    keyString,
	}, nil
}

func (s *Service) ValidateAPIKey(ctx context.Context, keyString string) (*APIKey, error) {
	apiKey, err := s.repo.GetAPIKeyByHash(ctx, hashKey(keyString))
	if err != nil {
		return nil, err
	}
	if apiKey == nil {
		return nil, ErrUnauthorized
	}

	if apiKey.ExpiresAt != nil && apiKey.ExpiresAt.Before(time.Now()) {
		return nil, ErrUnauthorized
	}

	// Update last used
	go func(id uuid.UUID) {
		if err := s.repo.UpdateAPIKeyLastUsed(context.Background(), id); err != nil {
			s.logger.Warn("failed to record api key use", "key_id", id, "error", err)
		}
	}(apiKey.ID)

	return apiKey, nil
}

func (s *Service) GetAPIKeys(ctx context.Context, teamID uuid.UUID) ([]*APIKey, error) {
	return s.repo.GetAPIKeysByTeamID(ctx, teamID)
}

func (s *Service) DeleteAPIKey(ctx context.Context, teamID, id uuid.UUID) error {
	deleted, err := s.repo.DeleteAPIKey(ctx, teamID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// IssueToken exchanges a valid API key for a bearer token carrying the key's
// team and permissions. The token never outlives the key.
func (s *Service) IssueToken(ctx context.Context, keyString string) (*TokenResponse, error) {
	apiKey, err := s.ValidateAPIKey(ctx, keyString)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiresAt := now.Add(s.jwt.ExpirationDuration())
	if apiKey.ExpiresAt != nil && apiKey.ExpiresAt.Before(expiresAt) {
		expiresAt = *apiKey.ExpiresAt
	}

	claims := Claims{
		TeamID:      apiKey.TeamID,
		KeyID:       apiKey.ID,
		Permissions: apiKey.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   apiKey.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwt.Secret))
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		Token:       token,
		ExpiresAt:   expiresAt,
		TeamID:      apiKey.TeamID,
		Permissions: apiKey.Permissions,
	}, nil
}

func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwt.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrUnauthorized
}
