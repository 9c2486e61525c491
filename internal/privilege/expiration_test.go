package privilege

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextExpiry(t *testing.T) {
	day := func(h, m int) time.Time {
		return time.Date(2024, 3, 3, h, m, 0, 0, time.UTC)
	}

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"morning grant expires today at noon", day(9, 0), day(12, 0)},
		{"just before the mark", day(11, 59), day(12, 0)},
		{"exactly at the mark rolls to tomorrow", day(12, 0), day(12, 0).AddDate(0, 0, 1)},
		{"afternoon grant expires tomorrow", day(13, 0), day(12, 0).AddDate(0, 0, 1)},
		{"midnight grant expires same day", day(0, 0), day(12, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextExpiry(tt.now, 12, 0))
		})
	}
}

func TestNextExpiry_CustomMark(t *testing.T) {
	now := time.Date(2024, 3, 3, 18, 30, 0, 0, time.UTC)
	got := NextExpiry(now, 18, 0)
	assert.Equal(t, time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC), got)
}

func TestNextExpiry_KeepsLocation(t *testing.T) {
	loc := time.FixedZone("GMT+1", 3600)
	now := time.Date(2024, 3, 3, 9, 0, 0, 0, loc)
	got := NextExpiry(now, 12, 0)
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, 12, got.Hour())
}

func TestNextExpiry_MonthBoundary(t *testing.T) {
	now := time.Date(2024, 2, 29, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), NextExpiry(now, 12, 0))
}
