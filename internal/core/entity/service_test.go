package entity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseplate/querykit/config"
	"github.com/baseplate/querykit/internal/core/query"
	"github.com/baseplate/querykit/internal/core/validation"
)

var (
	teamID  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	otherID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr[T any](v T) *T { return &v }

func seed() []*Entity {
	return []*Entity{
		{
			ID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), TeamID: teamID, BlueprintID: "service",
			Identifier: "api-gateway", Title: "API Gateway", Status: StatusActive, Priority: 3, Score: 4.5,
			Price: decimal.RequireFromString("120.00"), Owner: &Owner{Name: "ann", Email: "ann@example.com"},
			Tags: "infra,edge", CreatedAt: at("2024-03-01 10:00"),
		},
		{
			ID: uuid.MustParse("00000000-0000-0000-0000-00000000000b"), TeamID: teamID, BlueprintID: "service",
			Identifier: "billing", Title: "Billing", Status: StatusDraft, Priority: 1, Score: 2,
			Price: decimal.RequireFromString("15.5"), Tags: "payments",
			CreatedAt: at("2024-03-02 08:30"), ArchivedAt: ptr(at("2024-04-01 00:00")),
		},
		{
			ID: uuid.MustParse("00000000-0000-0000-0000-00000000000c"), TeamID: teamID, BlueprintID: "service",
			Identifier: "catalog", Title: "Catalog", Status: StatusArchived, Priority: 5, Score: 3.25,
			Price: decimal.RequireFromString("0.99"), Owner: &Owner{Name: "bob", Email: "bob@example.com"},
			Tags: "commerce", CreatedAt: at("2024-02-28 23:00"),
		},
		{
			ID: uuid.MustParse("00000000-0000-0000-0000-00000000000d"), TeamID: teamID, BlueprintID: "service",
			Identifier: "search", Title: "Search", Status: StatusActive, Priority: 2, Score: 1,
			Price: decimal.RequireFromString("42"), Owner: &Owner{Name: "ann"},
			Tags: "edge", CreatedAt: at("2024-03-01 18:45"),
		},
		{
			ID: uuid.MustParse("00000000-0000-0000-0000-00000000000e"), TeamID: otherID, BlueprintID: "service",
			Identifier: "api-gateway", Title: "Other Gateway", Status: StatusActive, Priority: 3,
			Tags: "edge", CreatedAt: at("2024-03-01 11:00"),
		},
	}
}

func newTestService(cfg config.QueryConfig) (*Service, *MemoryRepository) {
	repo := NewMemoryRepository(seed()...)
	return NewService(repo, validation.NewValidator(), cfg, nil), repo
}

func defaultQueryConfig() config.QueryConfig {
	return config.QueryConfig{MaxPageSize: 50, DefaultPageSize: 10, DefaultOrder: "ascending", Policy: "strict"}
}

func identifiers(resp *ListEntitiesResponse) []string {
	var ids []string
	for _, e := range resp.Entities {
		ids = append(ids, e.Identifier)
	}
	return ids
}

func TestService_Search(t *testing.T) {
	svc, _ := newTestService(defaultQueryConfig())

	tests := []struct {
		name string
		req  SearchRequest
		want []string
	}{
		{
			name: "no criteria",
			req:  SearchRequest{},
			want: []string{"api-gateway", "billing", "catalog", "search"},
		},
		{
			name: "status by name",
			req:  SearchRequest{Filter: map[string]any{"status": "active"}},
			want: []string{"api-gateway", "search"},
		},
		{
			name: "status by number",
			req:  SearchRequest{Filter: map[string]any{"status": float64(0)}},
			want: []string{"billing"},
		},
		{
			name: "full text",
			req:  SearchRequest{Q: "edge"},
			want: []string{"api-gateway", "search"},
		},
		{
			name: "created on day",
			req:  SearchRequest{Filter: map[string]any{"created_at": "2024-03-01"}},
			want: []string{"api-gateway", "search"},
		},
		{
			name: "created from day",
			req: SearchRequest{Filter: map[string]any{
				"created_at": "2024-03-01",
				"date_modes": []any{"gte"},
			}},
			want: []string{"api-gateway", "billing", "search"},
		},
		{
			name: "nested owner",
			req:  SearchRequest{Filter: map[string]any{"owner_name": "ann"}},
			want: []string{"api-gateway", "search"},
		},
		{
			name: "archived range",
			req:  SearchRequest{Filter: map[string]any{"archived": map[string]any{"from": "2024-03-15"}}},
			want: []string{"billing"},
		},
		{
			name: "decimal bound",
			req:  SearchRequest{Filter: map[string]any{"max_price": "20"}},
			want: []string{"billing", "catalog"},
		},
		{
			name: "or connective",
			req: SearchRequest{
				Filter:     map[string]any{"status": "archived", "priority": float64(1)},
				Connective: "OR",
			},
			want: []string{"billing", "catalog"},
		},
		{
			name: "sorted descending",
			req: SearchRequest{
				Filter: map[string]any{"min_priority": float64(2)},
				Sort:   "priority",
				Order:  "desc",
			},
			want: []string{"catalog", "api-gateway", "search"},
		},
		{
			name: "sorted by nested field",
			req:  SearchRequest{Filter: map[string]any{"owner_name": "b"}, Sort: "owner.name"},
			want: []string{"catalog"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			resp, err := svc.Search(context.Background(), teamID, &req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, identifiers(resp))
			assert.Equal(t, len(tt.want), resp.Total)
		})
	}
}

func TestService_Search_Paging(t *testing.T) {
	svc, _ := newTestService(defaultQueryConfig())

	resp, err := svc.Search(context.Background(), teamID, &SearchRequest{
		Filter: map[string]any{"min_priority": float64(2)},
		Sort:   "priority",
		Order:  "desc",
		Page:   2,
		Size:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"search"}, identifiers(resp))
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 2, resp.Size)
	assert.Equal(t, 2, resp.TotalPages)
}

func TestService_Search_ClampsSize(t *testing.T) {
	svc, _ := newTestService(config.QueryConfig{MaxPageSize: 2, DefaultPageSize: 1})

	resp, err := svc.Search(context.Background(), teamID, &SearchRequest{Size: 100})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Size)
	assert.Len(t, resp.Entities, 2)
	assert.Equal(t, 4, resp.Total)

	resp, err = svc.Search(context.Background(), teamID, &SearchRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Size)
	assert.Equal(t, []string{"api-gateway"}, identifiers(resp))
}

func TestService_Search_EmptyResult(t *testing.T) {
	svc, _ := newTestService(defaultQueryConfig())

	resp, err := svc.Search(context.Background(), teamID, &SearchRequest{Q: "nothing-matches"})
	require.NoError(t, err)
	assert.NotNil(t, resp.Entities)
	assert.Empty(t, resp.Entities)
	assert.Equal(t, 0, resp.TotalPages)
}

func TestService_Search_InvalidFilter(t *testing.T) {
	svc, _ := newTestService(defaultQueryConfig())

	_, err := svc.Search(context.Background(), teamID, &SearchRequest{Filter: map[string]any{"color": "red"}})
	require.Error(t, err)
	assert.True(t, validation.IsValidationError(err))

	_, err = svc.Search(context.Background(), teamID, &SearchRequest{Filter: map[string]any{"priority": "high"}})
	require.Error(t, err)
	assert.True(t, validation.IsValidationError(err))
}

func TestService_Search_UnknownSortField(t *testing.T) {
	svc, _ := newTestService(defaultQueryConfig())

	_, err := svc.Search(context.Background(), teamID, &SearchRequest{Sort: "colour"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidQuery)
	assert.ErrorIs(t, err, query.ErrUnknownField)
}

func TestService_Search_InvertedRange(t *testing.T) {
	svc, _ := newTestService(defaultQueryConfig())

	_, err := svc.Search(context.Background(), teamID, &SearchRequest{Filter: map[string]any{
		"archived": map[string]any{"from": "2024-05-01", "to": "2024-04-01"},
	}})
	assert.ErrorIs(t, err, query.ErrInvalidDateRange)
}

func TestService_Search_LenientPolicyDropsCriterion(t *testing.T) {
	cfg := defaultQueryConfig()
	cfg.Policy = "lenient"
	svc, _ := newTestService(cfg)

	resp, err := svc.Search(context.Background(), teamID, &SearchRequest{Filter: map[string]any{
		"status":   "active",
		"archived": map[string]any{"from": "2024-05-01", "to": "2024-04-01"},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"api-gateway", "search"}, identifiers(resp))
}

func TestService_List(t *testing.T) {
	svc, _ := newTestService(defaultQueryConfig())

	tests := []struct {
		name string
		q    ListQuery
		want []string
	}{
		{"status and order", ListQuery{Status: "active", Sort: "title", Order: "desc"}, []string{"search", "api-gateway"}},
		{"date ranges", ListQuery{DateRanges: "CreatedAt,2024-03-01,2024-03-01"}, []string{"api-gateway", "search"}},
		{"date modes", ListQuery{CreatedAt: "2024-03-01", DateModes: "lt"}, []string{"catalog"}},
		{"owner email", ListQuery{OwnerEmail: "bob@example.com"}, []string{"catalog"}},
		{"min score", ListQuery{MinScore: "3", Sort: "score"}, []string{"catalog", "api-gateway"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.q
			resp, err := svc.List(context.Background(), teamID, &q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, identifiers(resp))
		})
	}
}

func TestService_List_BadLiteral(t *testing.T) {
	svc, _ := newTestService(defaultQueryConfig())

	_, err := svc.List(context.Background(), teamID, &ListQuery{Priority: "x"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
	assert.ErrorIs(t, err, query.ErrConversion)
}

func TestService_Create(t *testing.T) {
	svc, repo := newTestService(defaultQueryConfig())
	ctx := context.Background()

	created, err := svc.Create(ctx, teamID, &CreateEntityRequest{
		BlueprintID: "service",
		Identifier:  "inventory",
		Title:       "Inventory",
		Priority:    4,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, teamID, created.TeamID)
	assert.False(t, created.CreatedAt.IsZero())

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Inventory", stored.Title)

	_, err = svc.Create(ctx, teamID, &CreateEntityRequest{BlueprintID: "service", Identifier: "inventory"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = svc.Create(ctx, otherID, &CreateEntityRequest{BlueprintID: "service", Identifier: "inventory"})
	assert.NoError(t, err)
}

func TestService_Get_OtherTeam(t *testing.T) {
	svc, _ := newTestService(defaultQueryConfig())
	id := uuid.MustParse("00000000-0000-0000-0000-00000000000e")

	_, err := svc.Get(context.Background(), teamID, id)
	assert.ErrorIs(t, err, ErrNotFound)

	e, err := svc.Get(context.Background(), otherID, id)
	require.NoError(t, err)
	assert.Equal(t, "Other Gateway", e.Title)
}

func TestService_Update(t *testing.T) {
	svc, _ := newTestService(defaultQueryConfig())
	ctx := context.Background()
	id := uuid.MustParse("00000000-0000-0000-0000-00000000000a")

	updated, err := svc.Update(ctx, teamID, id, &UpdateEntityRequest{
		Title:    ptr("Edge Gateway"),
		Status:   ptr(StatusArchived),
		Archived: ptr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "Edge Gateway", updated.Title)
	assert.Equal(t, StatusArchived, updated.Status)
	require.NotNil(t, updated.ArchivedAt)

	got, err := svc.Get(ctx, teamID, id)
	require.NoError(t, err)
	assert.Equal(t, "Edge Gateway", got.Title)
	assert.Equal(t, 3, got.Priority)

	updated, err = svc.Update(ctx, teamID, id, &UpdateEntityRequest{Archived: ptr(false)})
	require.NoError(t, err)
	assert.Nil(t, updated.ArchivedAt)
}

func TestService_Delete(t *testing.T) {
	svc, _ := newTestService(defaultQueryConfig())
	ctx := context.Background()
	id := uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	assert.ErrorIs(t, svc.Delete(ctx, otherID, id), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, teamID, id))

	_, err := svc.Get(ctx, teamID, id)
	assert.True(t, errors.Is(err, ErrNotFound))
}
