package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFullTextSearch(t *testing.T) {
	src := FromSlice(sampleRecords())

	tests := []struct {
		term string
		want []string
	}{
		{"amm", []string{"gamma"}},
		{"12", []string{"beta", "gamma"}},
		{"99.99", []string{"gamma"}},
		{"0.01", []string{"alphabet"}},
		{"2.25", []string{"beta"}},
		{"-000000000004", []string{"alphabet"}},
		{"2024-01-31 18:30", []string{"alphabet"}},
		{"2024-03-05", []string{"beta"}},
		{"nothing-like-this", nil},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, names(list(t, FullTextSearch[record](src, tt.term))))
		})
	}
}

func TestFullTextSearch_SkipsBooleansAndEnums(t *testing.T) {
	src := FromSlice(sampleRecords())
	assert.Empty(t, list(t, FullTextSearch[record](src, "true")))
	assert.Empty(t, list(t, FullTextSearch[record](src, "archived")))
}

func TestFullTextSearch_NoOps(t *testing.T) {
	src := FromSlice(sampleRecords())
	assert.Same(t, src, FullTextSearch[record](src, ""))

	type flags struct {
		On  bool
		Off bool
	}
	flagSrc := FromSlice([]flags{{On: true}})
	assert.Same(t, flagSrc, FullTextSearch[flags](flagSrc, "true"))
}

func TestFullTextSearch_DateTimeTextIsUTC(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*60*60)
	src := FromSlice([]record{{Name: "offset", CreatedAt: time.Date(2024, 6, 1, 1, 30, 0, 0, zone)}})

	assert.Equal(t, []string{"offset"}, names(list(t, FullTextSearch[record](src, "2024-05-31 23:30"))))
	assert.Empty(t, list(t, FullTextSearch[record](src, "2024-06-01 01:30")))
}
