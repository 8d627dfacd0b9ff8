package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(ttl time.Duration) (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(ttl)
	c.now = clock.Now
	return c, clock
}

func TestCache_GetSetExpire(t *testing.T) {
	c, clock := newTestCache(10 * time.Second)

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	clock.Advance(10 * time.Second)
	_, ok = c.Get("a")
	require.False(t, ok, "entry must expire exactly at its ttl")
	require.Equal(t, 0, c.Len())
}

func TestCache_SetWithTTL(t *testing.T) {
	c, clock := newTestCache(time.Second)

	c.SetWithTTL("long", "x", time.Minute)
	c.SetWithTTL("ignored", "y", 0)

	clock.Advance(30 * time.Second)

	_, ok := c.Get("long")
	require.True(t, ok)
	_, ok = c.Get("ignored")
	require.False(t, ok)
}

func TestCache_SweepAndClear(t *testing.T) {
	c, clock := newTestCache(time.Second)

	c.Set("a", 1)
	c.Set("b", 2)
	c.SetWithTTL("c", 3, time.Hour)

	clock.Advance(2 * time.Second)
	require.Equal(t, 2, c.Sweep())
	require.Equal(t, 1, c.Len())

	c.Delete("c")
	require.Equal(t, 0, c.Len())

	c.Set("d", 4)
	c.Clear()
	require.Equal(t, 0, c.Len())
}

func TestNew_DefaultTTL(t *testing.T) {
	c := New(0)
	require.Equal(t, 5*time.Second, c.ttl)
}
