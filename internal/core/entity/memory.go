package entity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baseplate/querykit/internal/core/query"
)

// MemoryRepository keeps entities in process. Queries run over a snapshot
// taken when Query is called.
type MemoryRepository struct {
	mu       sync.RWMutex
	entities []*Entity
}

func NewMemoryRepository(seed ...*Entity) *MemoryRepository {
	r := &MemoryRepository{}
	for _, e := range seed {
		cp := *e
		r.entities = append(r.entities, &cp)
	}
	return r
}

func (r *MemoryRepository) Create(_ context.Context, entity *Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entities {
		if e.ID == entity.ID || (e.TeamID == entity.TeamID && e.BlueprintID == entity.BlueprintID && e.Identifier == entity.Identifier) {
			return ErrAlreadyExists
		}
	}

	now := time.Now().UTC()
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = now
	}
	entity.UpdatedAt = now

	cp := *entity
	r.entities = append(r.entities, &cp)
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entities {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) GetByIdentifier(_ context.Context, teamID uuid.UUID, blueprintID, identifier string) (*Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entities {
		if e.TeamID == teamID && e.BlueprintID == blueprintID && e.Identifier == identifier {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) Update(_ context.Context, entity *Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entities {
		if e.ID == entity.ID {
			entity.UpdatedAt = time.Now().UTC()
			cp := *entity
			r.entities[i] = &cp
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entities {
		if e.ID == id {
			r.entities = append(r.entities[:i], r.entities[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *MemoryRepository) Query(teamID uuid.UUID) query.Queryable[*Entity] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make([]*Entity, 0, len(r.entities))
	for _, e := range r.entities {
		cp := *e
		snapshot = append(snapshot, &cp)
	}
	return query.FromSlice(snapshot).Where(teamScope(teamID))
}
