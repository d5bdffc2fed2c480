package complain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComplainFirstCallAlwaysReports(t *testing.T) {
	c := New()
	var calls int
	c.Complain(func(level int, msg string) { calls++ }, 3, "boom %d", 1)
	assert.Equal(t, 1, calls)
}

func TestComplainSuppressesWithinBackoffWindow(t *testing.T) {
	c := New()
	var calls int
	log := func(level int, msg string) { calls++ }
	c.Complain(log, 3, "boom")
	c.Complain(log, 3, "boom")
	c.Complain(log, 3, "boom")
	assert.Equal(t, 1, calls)
}

func TestReleaseOnlyFiresWhenOutstanding(t *testing.T) {
	c := New()
	var calls int
	log := func(level int, msg string) { calls++ }

	// No prior complaint: release is a no-op.
	assert.False(t, c.WouldRelease())
	c.Release(log, 5, "back to normal")
	assert.Equal(t, 0, calls)

	c.Complain(log, 3, "boom")
	assert.True(t, c.WouldRelease())
	c.Release(log, 5, "back to normal")
	assert.Equal(t, 2, calls)
	assert.False(t, c.WouldRelease())
}
