package supervise

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAbendBudgetGivesUpAfterLimit(t *testing.T) {
	b := newAbendBudget(2, 60*time.Second)
	start := time.Date(2021, time.May, 6, 12, 0, 0, 0, time.UTC)

	assert.True(t, b.record(start))
	assert.True(t, b.record(start.Add(3*time.Second)))
	assert.False(t, b.record(start.Add(9*time.Second)))
	assert.Equal(t, 3, b.count)
}

func TestAbendBudgetWindowExpires(t *testing.T) {
	b := newAbendBudget(1, 60*time.Second)
	start := time.Date(2021, time.May, 6, 12, 0, 0, 0, time.UTC)

	assert.True(t, b.record(start))

	// More than the expiry later: a fresh window, count back at 1.
	assert.True(t, b.record(start.Add(61*time.Second)))
	assert.Equal(t, 1, b.count)
	assert.Equal(t, start.Add(61*time.Second), b.windowStart)

	// Inside the new window the second abend exceeds the limit.
	assert.False(t, b.record(start.Add(70*time.Second)))
}

func TestAbendBudgetExactExpiryStaysInWindow(t *testing.T) {
	b := newAbendBudget(1, 60*time.Second)
	start := time.Date(2021, time.May, 6, 12, 0, 0, 0, time.UTC)

	assert.True(t, b.record(start))
	assert.False(t, b.record(start.Add(60*time.Second)))
}

func TestAbendBudgetZeroLimit(t *testing.T) {
	b := newAbendBudget(0, 300*time.Second)

	assert.False(t, b.record(time.Now()))
}

func TestAbendBudgetWindowAnchoredAtFirstAbend(t *testing.T) {
	b := newAbendBudget(3, 10*time.Second)
	start := time.Date(2021, time.May, 6, 12, 0, 0, 0, time.UTC)

	assert.True(t, b.record(start))
	assert.True(t, b.record(start.Add(6*time.Second)))
	assert.True(t, b.record(start.Add(9*time.Second)))

	// 11s after the window start: the window expired although the last
	// abend was only 2s ago.
	assert.True(t, b.record(start.Add(11*time.Second)))
	assert.Equal(t, 1, b.count)
}
