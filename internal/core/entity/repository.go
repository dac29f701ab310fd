package entity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"reflect"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/baseplate/querykit/internal/core/query"
	"github.com/baseplate/querykit/internal/storage/postgres"
)

// Repository stores entities. Lookups return nil without an error when
// nothing matches.
type Repository interface {
	Create(ctx context.Context, entity *Entity) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entity, error)
	GetByIdentifier(ctx context.Context, teamID uuid.UUID, blueprintID, identifier string) (*Entity, error)
	Update(ctx context.Context, entity *Entity) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Query returns the entities of one team as a lazily evaluated source.
	Query(teamID uuid.UUID) query.Queryable[*Entity]
}

var entityType = reflect.TypeOf(Entity{})

// teamScope restricts a source to the entities of teamID.
func teamScope(teamID uuid.UUID) query.Node {
	path, err := query.ResolvePath(entityType, "TeamID")
	if err != nil {
		panic(err)
	}
	return query.Compare{Path: path, Op: query.OpEqual, Value: teamID}
}

var entityColumns = postgres.Columns{
	"ID":          {Expr: "id"},
	"TeamID":      {Expr: "team_id"},
	"BlueprintID": {Expr: "blueprint_id", Textual: true},
	"Identifier":  {Expr: "identifier", Textual: true},
	"Title":       {Expr: "title", Textual: true},
	"Status":      postgres.EnumColumn("status", statusNames),
	"Priority":    {Expr: "priority"},
	"Score":       {Expr: "score"},
	"Price":       {Expr: "price", Text: "trim_scale(price)::text"},
	"Owner":       {Expr: "owner"},
	"Owner.Name":  {Expr: "owner->>'name'", Textual: true},
	"Owner.Email": {Expr: "owner->>'email'", Textual: true},
	"Tags":        {Expr: "tags", Textual: true},
	"CreatedAt":   postgres.TimeColumn("created_at"),
	"UpdatedAt":   postgres.TimeColumn("updated_at"),
	"ArchivedAt":  postgres.TimeColumn("archived_at"),
}

var entitySelect = []string{
	"id", "team_id", "blueprint_id", "identifier", "title", "status", "priority",
	"score", "price", "owner", "tags", "created_at", "updated_at", "archived_at",
}

const selectEntity = `
	SELECT id, team_id, blueprint_id, identifier, title, status, priority,
	       score, price, owner, tags, created_at, updated_at, archived_at
	FROM entities`

type PostgresRepository struct {
	db    *postgres.Client
	table *postgres.Table[*Entity]
}

func NewPostgresRepository(db *postgres.Client) *PostgresRepository {
	return &PostgresRepository{
		db: db,
		table: &postgres.Table[*Entity]{
			DB:      db.DB,
			Name:    "entities",
			Select:  entitySelect,
			Columns: entityColumns,
			Scan: func(rows *sql.Rows) (*Entity, error) {
				return scanEntity(rows)
			},
		},
	}
}

func (r *PostgresRepository) Create(ctx context.Context, entity *Entity) error {
	owner, err := marshalOwner(entity.Owner)
	if err != nil {
		return err
	}

	stmt := `
		INSERT INTO entities (id, team_id, blueprint_id, identifier, title, status, priority, score, price, owner, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	err = r.db.DB.QueryRowContext(ctx, stmt,
		entity.ID, entity.TeamID, entity.BlueprintID, entity.Identifier, entity.Title,
		int(entity.Status), entity.Priority, entity.Score, entity.Price, owner, entity.Tags,
	).Scan(&entity.CreatedAt, &entity.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrAlreadyExists
	}
	return err
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Entity, error) {
	entity, err := scanEntity(r.db.DB.QueryRowContext(ctx, selectEntity+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return entity, err
}

func (r *PostgresRepository) GetByIdentifier(ctx context.Context, teamID uuid.UUID, blueprintID, identifier string) (*Entity, error) {
	row := r.db.DB.QueryRowContext(ctx,
		selectEntity+` WHERE team_id = $1 AND blueprint_id = $2 AND identifier = $3`,
		teamID, blueprintID, identifier)
	entity, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return entity, err
}

func (r *PostgresRepository) Update(ctx context.Context, entity *Entity) error {
	owner, err := marshalOwner(entity.Owner)
	if err != nil {
		return err
	}

	stmt := `
		UPDATE entities
		SET title = $2, status = $3, priority = $4, score = $5, price = $6, owner = $7,
		    tags = $8, archived_at = $9, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`

	return r.db.DB.QueryRowContext(ctx, stmt,
		entity.ID, entity.Title, int(entity.Status), entity.Priority, entity.Score,
		entity.Price, owner, entity.Tags, entity.ArchivedAt,
	).Scan(&entity.UpdatedAt)
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.DB.ExecContext(ctx, `DELETE FROM entities WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) Query(teamID uuid.UUID) query.Queryable[*Entity] {
	return r.table.Query().Where(teamScope(teamID))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntity(row scanner) (*Entity, error) {
	entity := &Entity{}
	var owner []byte

	if err := row.Scan(
		&entity.ID, &entity.TeamID, &entity.BlueprintID, &entity.Identifier,
		&entity.Title, &entity.Status, &entity.Priority, &entity.Score, &entity.Price,
		&owner, &entity.Tags, &entity.CreatedAt, &entity.UpdatedAt, &entity.ArchivedAt,
	); err != nil {
		return nil, err
	}

	if len(owner) > 0 {
		entity.Owner = &Owner{}
		if err := json.Unmarshal(owner, entity.Owner); err != nil {
			return nil, err
		}
	}
	return entity, nil
}

// marshalOwner returns the jsonb parameter for owner, or nil for NULL.
func marshalOwner(owner *Owner) (any, error) {
	if owner == nil {
		return nil, nil
	}
	b, err := json.Marshal(owner)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
