package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baseplate/querykit/internal/storage/postgres"
)

// Repository stores API keys. Lookups return nil without an error when
// nothing matches.
type Repository interface {
	CreateAPIKey(ctx context.Context, key *APIKey) error
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*APIKey, error)
	GetAPIKeysByTeamID(ctx context.Context, teamID uuid.UUID) ([]*APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	// DeleteAPIKey removes a key of teamID and reports whether one existed.
	DeleteAPIKey(ctx context.Context, teamID, id uuid.UUID) (bool, error)
}

type PostgresRepository struct {
	db *postgres.Client
}

func NewPostgresRepository(db *postgres.Client) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateAPIKey(ctx context.Context, key *APIKey) error {
	permissions, err := json.Marshal(key.Permissions)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO api_keys (id, team_id, name, key_hash, permissions, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`
	return r.db.DB.QueryRowContext(ctx, query,
		key.ID, key.TeamID, key.Name, key.KeyHash, string(permissions), key.ExpiresAt,
	).Scan(&key.CreatedAt)
}

func (r *PostgresRepository) GetAPIKeyByHash(ctx context.Context, keyHash string) (*APIKey, error) {
	query := `SELECT id, team_id, name, key_hash, permissions, expires_at, last_used_at, created_at
		FROM api_keys WHERE key_hash = $1`
	key := &APIKey{}
	var permissions []byte
	err := r.db.DB.QueryRowContext(ctx, query, keyHash).Scan(
		&key.ID, &key.TeamID, &key.Name, &key.KeyHash,
		&permissions, &key.ExpiresAt, &key.LastUsedAt, &key.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(permissions, &key.Permissions); err != nil {
		return nil, err
	}
	return key, nil
}

func (r *PostgresRepository) GetAPIKeysByTeamID(ctx context.Context, teamID uuid.UUID) ([]*APIKey, error) {
	query := `SELECT id, team_id, name, permissions, expires_at, last_used_at, created_at
		FROM api_keys WHERE team_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.DB.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []*APIKey
	for rows.Next() {
		key := &APIKey{}
		var permissions []byte
		if err := rows.Scan(&key.ID, &key.TeamID, &key.Name,
			&permissions, &key.ExpiresAt, &key.LastUsedAt, &key.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(permissions, &key.Permissions); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (r *PostgresRepository) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE api_keys SET last_used_at = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := r.db.DB.ExecContext(ctx, query, id)
	return err
}

func (r *PostgresRepository) DeleteAPIKey(ctx context.Context, teamID, id uuid.UUID) (bool, error) {
	query := `DELETE FROM api_keys WHERE id = $1 AND team_id = $2`
	res, err := r.db.DB.ExecContext(ctx, query, id, teamID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MemoryRepository keeps API keys in process.
type MemoryRepository struct {
	mu   sync.RWMutex
	keys map[uuid.UUID]*APIKey
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{keys: make(map[uuid.UUID]*APIKey)}
}

func (r *MemoryRepository) CreateAPIKey(_ context.Context, key *APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key.CreatedAt = time.Now().UTC()
	cp := *key
	r.keys[key.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetAPIKeyByHash(_ context.Context, keyHash string) (*APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, key := range r.keys {
		if key.KeyHash == keyHash {
			cp := *key
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) GetAPIKeysByTeamID(_ context.Context, teamID uuid.UUID) ([]*APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var keys []*APIKey
	for _, key := range r.keys {
		if key.TeamID == teamID {
			cp := *key
			keys = append(keys, &cp)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].CreatedAt.After(keys[j].CreatedAt) })
	return keys, nil
}

func (r *MemoryRepository) UpdateAPIKeyLastUsed(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if key, ok := r.keys[id]; ok {
		now := time.Now().UTC()
		key.LastUsedAt = &now
	}
	return nil
}

func (r *MemoryRepository) DeleteAPIKey(_ context.Context, teamID, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.keys[id]
	if !ok || key.TeamID != teamID {
		return false, nil
	}
	delete(r.keys, id)
	return true, nil
}
