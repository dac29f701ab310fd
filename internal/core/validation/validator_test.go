package validation

import (
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseplate/querykit/internal/core/query"
)

type searchSpec struct {
	Title     string          `json:"title"`
	MinCount  *int            `json:"min_count"`
	CreatedAt *time.Time      `json:"created_at"`
	DateModes query.DateModes `json:"date_modes"`
}

var searchSpecType = reflect.TypeOf(searchSpec{})

func TestValidator_ValidateFilter_Valid(t *testing.T) {
	v := NewValidator()

	err := v.ValidateFilter(map[string]any{
		"title":      "alpha",
		"min_count":  3,
		"created_at": "2024-03-01",
		"date_modes": []any{"gte"},
	}, searchSpecType)
	assert.NoError(t, err)

	assert.NoError(t, v.ValidateFilter(nil, searchSpecType))
}

func TestValidator_ValidateFilter_Invalid(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name string
		data map[string]any
	}{
		{"unknown field", map[string]any{"owner": "ann"}},
		{"wrong type", map[string]any{"min_count": "three"}},
		{"fractional integer", map[string]any{"min_count": 2.5}},
		{"empty date", map[string]any{"created_at": ""}},
		{"unknown date mode", map[string]any{"date_modes": []any{"soon"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateFilter(tt.data, searchSpecType)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.NotEmpty(t, GetValidationErrors(err).Errors)
		})
	}
}

func TestValidator_ValidateFilter_Message(t *testing.T) {
	v := NewValidator()

	err := v.ValidateFilter(map[string]any{"owner": "ann"}, searchSpecType)
	ve := GetValidationErrors(err)
	require.NotNil(t, ve)
	assert.Contains(t, ve.Error(), "owner")
}

func TestGetValidationErrors_OtherError(t *testing.T) {
	assert.Nil(t, GetValidationErrors(assert.AnError))
	assert.False(t, IsValidationError(assert.AnError))
}

func TestRegister_Tags(t *testing.T) {
	v := validator.New()
	Register(v)

	type params struct {
		Order      string `validate:"omitempty,sortorder"`
		Connective string `validate:"omitempty,connective"`
		DateModes  string `validate:"omitempty,datemodes"`
	}

	assert.NoError(t, v.Struct(params{Order: "DESC", Connective: "or", DateModes: "gte,,lt"}))
	assert.NoError(t, v.Struct(params{}))
	assert.Error(t, v.Struct(params{Order: "sideways"}))
	assert.Error(t, v.Struct(params{Connective: "xor"}))
	assert.Error(t, v.Struct(params{DateModes: "gte,soon"}))
}

func TestIsSortOrder(t *testing.T) {
	for _, s := range []string{"asc", "ASC", "ascending", "desc", "Descending"} {
		assert.True(t, IsSortOrder(s), s)
	}
	assert.False(t, IsSortOrder("up"))
}
