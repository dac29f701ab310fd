package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseplate/querykit/config"
	"github.com/baseplate/querykit/internal/api/middleware"
	"github.com/baseplate/querykit/internal/core/entity"
	"github.com/baseplate/querykit/internal/core/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.RegisterBindings()
}

var (
	teamID    = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	gatewayID = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	foreignID = uuid.MustParse("00000000-0000-0000-0000-00000000000e")
)

func seed() []*entity.Entity {
	day := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return []*entity.Entity{
		{ID: gatewayID, TeamID: teamID, BlueprintID: "service", Identifier: "api-gateway", Status: entity.StatusActive, Priority: 3, Owner: &entity.Owner{Name: "ann"}, CreatedAt: day},
		{ID: uuid.New(), TeamID: teamID, BlueprintID: "service", Identifier: "billing", Status: entity.StatusDraft, Priority: 1, CreatedAt: day.Add(time.Hour)},
		{ID: uuid.New(), TeamID: teamID, BlueprintID: "service", Identifier: "search", Status: entity.StatusActive, Priority: 2, Owner: &entity.Owner{Name: "ann"}, CreatedAt: day.Add(2 * time.Hour)},
		{ID: foreignID, TeamID: uuid.New(), BlueprintID: "service", Identifier: "api-gateway", Status: entity.StatusActive, CreatedAt: day},
	}
}

// newEntityRouter mounts the handler behind a stub that authenticates every
// request as teamID.
func newEntityRouter() *gin.Engine {
	svc := entity.NewService(
		entity.NewMemoryRepository(seed()...),
		validation.NewValidator(),
		config.QueryConfig{MaxPageSize: 50, DefaultPageSize: 10, DefaultOrder: "ascending", Policy: "strict"},
		nil,
	)
	h := NewEntityHandler(svc)

	r := gin.New()
	g := r.Group("/api/entities", func(c *gin.Context) {
		if c.GetHeader("X-Anonymous") == "" {
			c.Set(middleware.ContextTeamID, teamID)
		}
		c.Next()
	})
	g.POST("", h.Create)
	g.GET("", h.List)
	g.POST("/search", h.Search)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	return r
}

func do(t *testing.T, r http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequestWithContext(context.Background(), method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) ([]string, entity.ListEntitiesResponse) {
	t.Helper()

	var resp entity.ListEntitiesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	var ids []string
	for _, e := range resp.Entities {
		ids = append(ids, e.Identifier)
	}
	return ids, resp
}

func TestEntityHandler_List(t *testing.T) {
	r := newEntityRouter()

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{"all of the team", "/api/entities", []string{"api-gateway", "billing", "search"}},
		{"status and sort", "/api/entities?status=active&sort=priority&order=desc", []string{"api-gateway", "search"}},
		{"full text", "/api/entities?q=bill", []string{"billing"}},
		{"or connective", "/api/entities?status=draft&priority=2&connective=or", []string{"billing", "search"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodGet, tt.target, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			ids, resp := decodeList(t, w)
			assert.Equal(t, tt.want, ids)
			assert.Equal(t, len(tt.want), resp.Total)
		})
	}
}

func TestEntityHandler_List_Paging(t *testing.T) {
	w := do(t, newEntityRouter(), http.MethodGet, "/api/entities?sort=identifier&page=2&size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	ids, resp := decodeList(t, w)
	assert.Equal(t, []string{"search"}, ids)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.TotalPages)
}

func TestEntityHandler_List_BadRequest(t *testing.T) {
	r := newEntityRouter()

	for _, target := range []string{
		"/api/entities?order=sideways",
		"/api/entities?connective=xor",
		"/api/entities?date_modes=between",
		"/api/entities?priority=high",
		"/api/entities?sort=colour",
	} {
		t.Run(target, func(t *testing.T) {
			w := do(t, r, http.MethodGet, target, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestEntityHandler_Search(t *testing.T) {
	w := do(t, newEntityRouter(), http.MethodPost, "/api/entities/search", gin.H{
		"filter": gin.H{"owner_name": "ann", "min_priority": 3},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	ids, _ := decodeList(t, w)
	assert.Equal(t, []string{"api-gateway"}, ids)
}

func TestEntityHandler_Search_ValidationDetails(t *testing.T) {
	w := do(t, newEntityRouter(), http.MethodPost, "/api/entities/search", gin.H{
		"filter": gin.H{"priority": "high"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation failed", body["error"])
	assert.NotNil(t, body["details"])
}

func TestEntityHandler_Get(t *testing.T) {
	r := newEntityRouter()

	w := do(t, r, http.MethodGet, "/api/entities/"+gatewayID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"active"`)

	w = do(t, r, http.MethodGet, "/api/entities/"+foreignID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/api/entities/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEntityHandler_Create(t *testing.T) {
	r := newEntityRouter()

	w := do(t, r, http.MethodPost, "/api/entities", gin.H{
		"blueprint_id": "service",
		"identifier":   "inventory",
		"status":       "draft",
		"price":        "9.90",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created entity.Entity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, teamID, created.TeamID)
	assert.Equal(t, "9.9", created.Price.String())

	w = do(t, r, http.MethodPost, "/api/entities", gin.H{"blueprint_id": "service", "identifier": "inventory"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodPost, "/api/entities", gin.H{"identifier": "missing-blueprint"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEntityHandler_UpdateAndDelete(t *testing.T) {
	r := newEntityRouter()
	target := "/api/entities/" + gatewayID.String()

	w := do(t, r, http.MethodPatch, target, gin.H{"title": "Edge Gateway", "archived": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated entity.Entity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Edge Gateway", updated.Title)
	assert.NotNil(t, updated.ArchivedAt)

	w = do(t, r, http.MethodDelete, target, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodGet, target, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodDelete, "/api/entities/"+foreignID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEntityHandler_TeamRequired(t *testing.T) {
	r := newEntityRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/entities", nil)
	req.Header.Set("X-Anonymous", "1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
