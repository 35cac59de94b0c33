package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestLRUCache_TTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](4, time.Minute, WithClock(clock.Now))

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	clock.Advance(time.Minute)
	_, ok = c.Get("a")
	assert.True(t, ok, "entry is fresh up to and including its expiry instant")

	clock.Advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)

	v, fresh, ok := c.GetStale("a")
	assert.True(t, ok)
	assert.False(t, fresh)
	assert.Equal(t, 1, v)

	assert.Equal(t, 1, c.CleanExpired())
	_, _, ok = c.GetStale("a")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := NewLRUCache[string](2, time.Hour)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	assert.Equal(t, 2, c.Size())
	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)

	c.Delete("a")
	assert.Equal(t, 1, c.Size())
}

func TestLRUCache_Overwrite(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](2, time.Minute, WithClock(clock.Now))

	c.Set("a", 1)
	clock.Advance(2 * time.Minute)
	c.Set("a", 2)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Size())
}
