package cache

import (
	"testing"
	"time"

	"github.com/smallbiznis/affiliate/internal/clock"
	"github.com/stretchr/testify/assert"
)

func TestTTLCacheExpires(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewTTLCache[string, int](clk)

	c.Set("a", 1, time.Minute)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	clk.Advance(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestTTLCacheIgnoresNonPositiveTTL(t *testing.T) {
	c := NewTTLCache[string, int](nil)
	c.Set("a", 1, 0)
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("b", 2, time.Hour)
	c.Delete("b")
	_, ok = c.Get("b")
	assert.False(t, ok)
}
