package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
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

func newClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func TestTTLCacheRoundTripAndExpiry(t *testing.T) {
	clock := newClock()
	c := New[string](10, time.Minute, WithClock[string](clock.Now))

	c.Put("k", "v")
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	clock.Advance(59 * time.Second)
	_, ok = c.Get("k")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry must expire exactly at ttl")
	assert.Equal(t, 0, c.Len(), "expired entry is dropped on read")
}

func TestTTLCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int](2, time.Hour)
	c.Put("a", 1)
	c.Put("b", 2)
	_, _ = c.Get("a")
	c.Put("c", 3)

	_, okB := c.Get("b")
	_, okA := c.Get("a")
	_, okC := c.Get("c")
	assert.False(t, okB)
	assert.True(t, okA)
	assert.True(t, okC)
	assert.Equal(t, 2, c.Len())
}

func TestTTLCachePutSweepsExpired(t *testing.T) {
	clock := newClock()
	c := New[int](10, time.Second, WithClock[int](clock.Now))
	c.Put("a", 1)
	c.Put("b", 2)
	clock.Advance(2 * time.Second)

	c.Put("c", 3)
	assert.Equal(t, 1, c.Len())

	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 0, c.Len())
}

func TestTTLCacheOverwriteRefreshesExpiry(t *testing.T) {
	clock := newClock()
	c := New[string](4, 10*time.Second, WithClock[string](clock.Now))
	c.Put("k", "old")
	clock.Advance(8 * time.Second)
	c.Put("k", "new")
	clock.Advance(8 * time.Second)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", got)

	c.Delete("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestTTLCacheConcurrentAccess(t *testing.T) {
	c := New[int](64, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := string(rune('a' + (i+j)%26))
				c.Put(key, j)
				_, _ = c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 26)
}

func TestNewClampsCapacity(t *testing.T) {
	c := New[int](0, time.Minute)
	c.Put("a", 1)
	c.Put("b", 2)
	assert.Equal(t, 1, c.Len())
}
