package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/baseplate/querykit/internal/core/query"
)

type Status int

const (
	StatusDraft Status = iota
	StatusActive
	StatusArchived
)

var statusNames = []string{"draft", "active", "archived"}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return strconv.Itoa(int(s))
}

// ParseStatus accepts a status name (any case) or its number.
func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(s)
	for i, name := range statusNames {
		if strings.EqualFold(name, s) {
			return Status(i), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < len(statusNames) {
		return Status(n), nil
	}
	return 0, fmt.Errorf("unknown status %q", s)
}

func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts either the name or the number.
func (s *Status) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		return s.UnmarshalText([]byte(name))
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("status must be a name or a number: %w", err)
	}
	return s.UnmarshalText([]byte(strconv.Itoa(n)))
}

type Owner struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty" binding:"omitempty,email"`
}

type Entity struct {
	ID          uuid.UUID       `json:"id"`
	TeamID      uuid.UUID       `json:"team_id" query:"-"`
	BlueprintID string          `json:"blueprint_id"`
	Identifier  string          `json:"identifier"`
	Title       string          `json:"title,omitempty"`
	Status      Status          `json:"status"`
	Priority    int             `json:"priority"`
	Score       float64         `json:"score"`
	Price       decimal.Decimal `json:"price"`
	Owner       *Owner          `json:"owner,omitempty"`
	Tags        string          `json:"tags,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	ArchivedAt  *time.Time      `json:"archived_at,omitempty"`
}

// Filter is the set of criteria accepted by list and search. Every populated
// field becomes one criterion; date-time criteria take their mode from
// DateModes in declaration order.
type Filter struct {
	ID          uuid.UUID        `json:"id"`
	BlueprintID string           `json:"blueprint_id" query:"BlueprintID,op=="`
	Identifier  string           `json:"identifier"`
	Title       string           `json:"title"`
	Status      *Status          `json:"status"`
	Priority    *int             `json:"priority"`
	MinPriority *int             `json:"min_priority" query:"Priority,op=>="`
	MaxPriority *int             `json:"max_priority" query:"Priority,op=<="`
	MinScore    *float64         `json:"min_score" query:"Score,op=>="`
	MaxPrice    *decimal.Decimal `json:"max_price" query:"Price,op=<="`
	OwnerName   string           `json:"owner_name" query:"Owner.Name"`
	OwnerEmail  string           `json:"owner_email" query:"Owner.Email,op=="`
	Tags        string           `json:"tags"`
	CreatedAt   *time.Time       `json:"created_at"`
	UpdatedAt   *time.Time       `json:"updated_at"`
	DateModes   query.DateModes  `json:"date_modes"`
	Archived    *query.DateRange `json:"archived" query:"ArchivedAt"`
	DateRanges  query.DateRanges `json:"date_ranges"`
}

type CreateEntityRequest struct {
	BlueprintID string          `json:"blueprint_id" binding:"required"`
	Identifier  string          `json:"identifier" binding:"required"`
	Title       string          `json:"title"`
	Status      Status          `json:"status"`
	Priority    int             `json:"priority" binding:"gte=0"`
	Score       float64         `json:"score"`
	Price       decimal.Decimal `json:"price"`
	Owner       *Owner          `json:"owner"`
	Tags        string          `json:"tags"`
}

type UpdateEntityRequest struct {
	Title    *string          `json:"title"`
	Status   *Status          `json:"status"`
	Priority *int             `json:"priority" binding:"omitempty,gte=0"`
	Score    *float64         `json:"score"`
	Price    *decimal.Decimal `json:"price"`
	Owner    *Owner           `json:"owner"`
	Tags     *string          `json:"tags"`
	Archived *bool            `json:"archived"`
}

// SearchRequest is the body of a search. Filter is validated against the
// schema of Filter before it is decoded.
type SearchRequest struct {
	Filter     map[string]any `json:"filter"`
	Connective string         `json:"connective" binding:"omitempty,connective"`
	Q          string         `json:"q"`
	Sort       string         `json:"sort"`
	Order      string         `json:"order" binding:"omitempty,sortorder"`
	Page       int            `json:"page"`
	Size       int            `json:"size"`
}

// ListQuery is the query string of a list request. Criteria use the json
// names of Filter; date_modes is a comma list and date_ranges reads
// "field,from,to;field,from,to".
type ListQuery struct {
	ID          string `form:"id"`
	BlueprintID string `form:"blueprint_id"`
	Identifier  string `form:"identifier"`
	Title       string `form:"title"`
	Status      string `form:"status"`
	Priority    string `form:"priority"`
	MinPriority string `form:"min_priority"`
	MaxPriority string `form:"max_priority"`
	MinScore    string `form:"min_score"`
	MaxPrice    string `form:"max_price"`
	OwnerName   string `form:"owner_name"`
	OwnerEmail  string `form:"owner_email"`
	Tags        string `form:"tags"`
	CreatedAt   string `form:"created_at"`
	UpdatedAt   string `form:"updated_at"`
	DateModes   string `form:"date_modes" binding:"omitempty,datemodes"`
	DateRanges  string `form:"date_ranges"`

	Connective string `form:"connective" binding:"omitempty,connective"`
	Q          string `form:"q"`
	Sort       string `form:"sort"`
	Order      string `form:"order" binding:"omitempty,sortorder"`
	Page       int    `form:"page"`
	Size       int    `form:"size"`
}

// Criteria returns the non-empty filter parameters keyed by json name.
func (q *ListQuery) Criteria() map[string]any {
	criteria := map[string]any{}
	for name, value := range map[string]string{
		"id":           q.ID,
		"blueprint_id": q.BlueprintID,
		"identifier":   q.Identifier,
		"title":        q.Title,
		"status":       q.Status,
		"priority":     q.Priority,
		"min_priority": q.MinPriority,
		"max_priority": q.MaxPriority,
		"min_score":    q.MinScore,
		"max_price":    q.MaxPrice,
		"owner_name":   q.OwnerName,
		"owner_email":  q.OwnerEmail,
		"tags":         q.Tags,
		"created_at":   q.CreatedAt,
		"updated_at":   q.UpdatedAt,
		"date_modes":   q.DateModes,
		"date_ranges":  q.DateRanges,
	} {
		if strings.TrimSpace(value) != "" {
			criteria[name] = value
		}
	}
	return criteria
}

type ListEntitiesResponse struct {
	Entities   []*Entity `json:"entities"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	Size       int       `json:"size"`
	TotalPages int       `json:"total_pages"`
}
