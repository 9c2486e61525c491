package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystem_Now(t *testing.T) {
	before := time.Now()
	got := System{}.Now()
	after := time.Now()

	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}

func TestFake_AdvanceAndSet(t *testing.T) {
	base := time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC)
	f := NewFake(base)

	assert.Equal(t, base, f.Now())

	f.Advance(5 * time.Second)
	assert.Equal(t, base.Add(5*time.Second), f.Now())

	// Negative advance is a no-op, the clock never rewinds this way.
	f.Advance(-time.Hour)
	assert.Equal(t, base.Add(5*time.Second), f.Now())

	later := base.Add(3 * time.Hour)
	f.Set(later)
	assert.Equal(t, later, f.Now())
}
