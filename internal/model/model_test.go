package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInWindow(t *testing.T) {
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	from, to := day, day.Add(24*time.Hour)
	at := func(h int) time.Time { return day.Add(time.Duration(h) * time.Hour) }

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"inside", at(9), at(12), true},
		{"ends at window start", at(-2), from, false},
		{"starts at window end", to, at(26), false},
		{"straddles window start", at(-2), at(1), true},
		{"straddles window end", at(23), at(25), true},
		{"covers window", at(-5), at(30), true},
		{"zero length at window start", from, from, true},
		{"zero length at window end", to, to, false},
		{"zero length before window", at(-1), at(-1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InWindow(tt.start, tt.end, from, to))
		})
	}
}
