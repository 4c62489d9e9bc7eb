package domain

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		value string
		max   int
		want  string
	}{
		{name: "under limit", value: "short", max: 10, want: "short"},
		{name: "at limit", value: "exactlyten", max: 10, want: "exactlyten"},
		{name: "over limit", value: strings.Repeat("x", 20), max: 10, want: strings.Repeat("x", 10)},
		{name: "empty", value: "", max: 10, want: ""},
		// "é" is 2 bytes; a cut at 5 would land mid-rune.
		{name: "multibyte cut backs off to rune boundary", value: strings.Repeat("é", 4), max: 5, want: strings.Repeat("é", 2)},
		{name: "multibyte cut on rune boundary", value: strings.Repeat("é", 4), max: 6, want: strings.Repeat("é", 3)},
		// 4-byte rune with only its first byte inside the limit.
		{name: "wide rune dropped entirely", value: "ab\U0001F600", max: 3, want: "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.value, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestDay(t *testing.T) {
	// Any instant within a day maps to that day's UTC midnight.
	loc := time.FixedZone("UTC+5", 5*3600)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "midday UTC",
			in:   time.Date(2025, 6, 15, 13, 45, 30, 0, time.UTC),
			want: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "already midnight",
			in:   time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "non-UTC zone normalizes to the UTC day",
			in:   time.Date(2025, 6, 15, 3, 0, 0, 0, loc), // 2025-06-14T22:00Z
			want: time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Day(tt.in)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}
