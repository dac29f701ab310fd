package query

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type status int

const (
	statusDraft status = iota
	statusActive
	statusArchived
)

func (s status) String() string {
	switch s {
	case statusDraft:
		return "draft"
	case statusActive:
		return "active"
	case statusArchived:
		return "archived"
	}
	return "unknown"
}

type owner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type record struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Count     int             `json:"count"`
	Score     float64         `json:"score"`
	Price     decimal.Decimal `json:"price"`
	Active    bool            `json:"active"`
	State     status          `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
	ClosedAt  *time.Time      `json:"closed_at"`
	Owner     *owner          `json:"owner"`
	Labels    []string        `json:"labels"`
}

var recordType = reflect.TypeOf(record{})

func ptr[V any](v V) *V { return &v }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, time.UTC)
}

// sampleRecords is a small fixed dataset shared by the engine tests.
func sampleRecords() []record {
	return []record{
		{
			ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Name: "alpha",
			Count: 3, Score: 1.5, Price: decimal.RequireFromString("10.50"), Active: true,
			State: statusActive, CreatedAt: at(2024, 3, 1, 0, 0, 0),
			Owner: &owner{Name: "ann", Email: "ann@example.com"},
		},
		{
			ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Name: "beta",
			Count: 7, Score: 2.25, Price: decimal.RequireFromString("3"), Active: false,
			State: statusDraft, CreatedAt: at(2024, 3, 1, 23, 59, 59),
			ClosedAt: ptr(at(2024, 3, 5, 12, 0, 0)),
		},
		{
			ID: uuid.MustParse("00000000-0000-0000-0000-000000000003"), Name: "gamma",
			Count: 12, Score: 0.75, Price: decimal.RequireFromString("99.99"), Active: true,
			State: statusArchived, CreatedAt: at(2024, 3, 2, 0, 0, 0),
			Owner: &owner{Name: "bob", Email: "bob@example.com"},
		},
		{
			ID: uuid.MustParse("00000000-0000-0000-0000-000000000004"), Name: "alphabet",
			Count: 7, Score: 3, Price: decimal.RequireFromString("0.01"), Active: false,
			State: statusActive, CreatedAt: at(2024, 1, 31, 18, 30, 0),
			ClosedAt: ptr(at(2024, 2, 1, 9, 0, 0)),
		},
	}
}

func names(items []record) []string {
	var out []string
	for _, r := range items {
		out = append(out, r.Name)
	}
	return out
}

func list(t *testing.T, q Queryable[record]) []record {
	t.Helper()
	items, err := q.List(context.Background())
	require.NoError(t, err)
	return items
}

func evalAll(n Node, items []record) []string {
	match := Compile[record](n)
	var out []string
	for _, r := range items {
		if match(r) {
			out = append(out, r.Name)
		}
	}
	return out
}
