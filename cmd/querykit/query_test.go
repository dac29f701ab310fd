package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/baseplate/querykit/internal/core/entity"
)

const entitiesJSON = `[
  {"blueprint_id": "service", "identifier": "api-gateway", "status": "active", "priority": 3, "price": "120", "created_at": "2024-03-01T10:00:00Z"},
  {"blueprint_id": "service", "identifier": "billing", "status": "draft", "priority": 1, "price": "15.5", "created_at": "2024-03-02T08:30:00Z"},
  {"blueprint_id": "service", "identifier": "catalog", "status": "archived", "priority": 5, "price": "0.99", "created_at": "2024-02-28T23:00:00Z"},
  {"blueprint_id": "service", "identifier": "search", "status": "active", "priority": 2, "price": "42", "created_at": "2024-03-01T18:45:00Z"}
]`

func writeEntities(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "entities.json")
	if err := os.WriteFile(path, []byte(entitiesJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func resetQueryFlags(file string) {
	queryFlags.file = file
	queryFlags.team = ""
	queryFlags.filters = nil
	queryFlags.connective = ""
	queryFlags.q = ""
	queryFlags.sort = ""
	queryFlags.order = ""
	queryFlags.page = 1
	queryFlags.size = 50
	queryFlags.lenient = false
}

func execQuery(t *testing.T) (*entity.ListEntitiesResponse, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})

	if err := runQuery(cmd, nil); err != nil {
		return nil, err
	}

	var resp entity.ListEntitiesResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("output is not a list response: %v\n%s", err, out.String())
	}
	return &resp, nil
}

func identifiers(resp *entity.ListEntitiesResponse) string {
	ids := make([]string, 0, len(resp.Entities))
	for _, e := range resp.Entities {
		ids = append(ids, e.Identifier)
	}
	return strings.Join(ids, ",")
}

func TestRunQuery(t *testing.T) {
	file := writeEntities(t)

	tests := []struct {
		name  string
		setup func()
		want  string
	}{
		{
			name:  "everything",
			setup: func() {},
			want:  "api-gateway,billing,catalog,search",
		},
		{
			name: "status sorted descending",
			setup: func() {
				queryFlags.filters = []string{"status=active"}
				queryFlags.sort = "priority"
				queryFlags.order = "desc"
			},
			want: "api-gateway,search",
		},
		{
			name: "numbers parse as json",
			setup: func() {
				queryFlags.filters = []string{"min_priority=3"}
				queryFlags.sort = "priority"
			},
			want: "api-gateway,catalog",
		},
		{
			name: "date with mode",
			setup: func() {
				queryFlags.filters = []string{"created_at=2024-03-01", "date_modes=gte"}
			},
			want: "api-gateway,billing,search",
		},
		{
			name: "paged",
			setup: func() {
				queryFlags.sort = "identifier"
				queryFlags.page = 2
				queryFlags.size = 3
			},
			want: "search",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetQueryFlags(file)
			tt.setup()

			resp, err := execQuery(t)
			if err != nil {
				t.Fatalf("runQuery() error = %v", err)
			}
			if got := identifiers(resp); got != tt.want {
				t.Errorf("identifiers = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRunQuery_Errors(t *testing.T) {
	file := writeEntities(t)

	tests := []struct {
		name  string
		setup func()
	}{
		{"unknown field", func() { queryFlags.filters = []string{"colour=red"} }},
		{"malformed pair", func() { queryFlags.filters = []string{"status"} }},
		{"bad order", func() { queryFlags.order = "sideways" }},
		{"bad team", func() { queryFlags.team = "team-a" }},
		{"missing file", func() { queryFlags.file = filepath.Join(t.TempDir(), "none.json") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetQueryFlags(file)
			tt.setup()

			if _, err := execQuery(t); err == nil {
				t.Error("runQuery() should fail")
			}
		})
	}
}

func TestParseFilters(t *testing.T) {
	got, err := parseFilters([]string{"priority=2", "title=a=b", "owner_name=ann"})
	if err != nil {
		t.Fatalf("parseFilters() error = %v", err)
	}
	if got["priority"] != float64(2) {
		t.Errorf("priority = %#v, want 2", got["priority"])
	}
	if got["title"] != "a=b" {
		t.Errorf("title = %#v, want %q", got["title"], "a=b")
	}
	if got["owner_name"] != "ann" {
		t.Errorf("owner_name = %#v, want %q", got["owner_name"], "ann")
	}
}

func TestHashAdminKey(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("a-long-enough-admin-key\n"))

	if err := hashAdminKey(cmd, nil); err != nil {
		t.Fatalf("hashAdminKey() error = %v", err)
	}

	hash := strings.TrimSpace(out.String())
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("a-long-enough-admin-key")); err != nil {
		t.Errorf("printed hash does not match the key: %v", err)
	}

	if err := hashAdminKey(cmd, []string{"short"}); err == nil {
		t.Error("short keys should be rejected")
	}
}

func TestExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	got, err := expiry("24h", now)
	if err != nil || got == nil || *got != "2025-01-02T00:00:00Z" {
		t.Errorf("expiry(24h) = %v, %v", got, err)
	}

	got, err = expiry("2025-06-01T00:00:00Z", now)
	if err != nil || got == nil || *got != "2025-06-01T00:00:00Z" {
		t.Errorf("expiry(rfc3339) = %v, %v", got, err)
	}

	if got, err := expiry("", now); err != nil || got != nil {
		t.Errorf("expiry(\"\") = %v, %v", got, err)
	}
	if _, err := expiry("soon", now); err == nil {
		t.Error("expiry(soon) should fail")
	}
}
