package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newTTLCache[string, int](func() time.Time { return now })

	c.Set("a", 1, time.Minute)
	c.Set("forever", 2, 0)

	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	now = now.Add(time.Minute)
	_, ok = c.Get("a")
	require.False(t, ok)

	v, ok = c.Get("forever")
	require.True(t, ok)
	require.Equal(t, 2, v)

	c.Delete("forever")
	_, ok = c.Get("forever")
	require.False(t, ok)
}

func TestTTLCachePurge(t *testing.T) {
	c := NewTTLCache[string, string]()
	c.Set("k", "v", time.Hour)
	c.Purge()
	_, ok := c.Get("k")
	require.False(t, ok)
}

func TestCacheKey(t *testing.T) {
	require.Equal(t, "plan|abc", cacheKey(" Plan ", "", "ABC"))
}
