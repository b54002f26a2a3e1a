package segcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPutThenGetRoundTrips(t *testing.T) {
	c := New(Config{MaxBytes: 1 << 20, MaxEntries: 100})
	c.Put("s1", "v/0.0.m4s", []byte("hello"))

	data, ok := c.Get("s1", "v/0.0.m4s")
	require.True(t, ok)
	require.Equal(t, []byte("hello"), data)
}

func TestGetMissReturnsFalse(t *testing.T) {
	c := New(Config{MaxBytes: 1 << 20, MaxEntries: 100})
	_, ok := c.Get("s1", "v/0.0.m4s")
	require.False(t, ok)
}

func TestDistinctStreamsDoNotCollide(t *testing.T) {
	c := New(Config{MaxBytes: 1 << 20, MaxEntries: 100})
	c.Put("s1", "v/0.0.m4s", []byte("one"))
	c.Put("s2", "v/0.0.m4s", []byte("two"))

	a, _ := c.Get("s1", "v/0.0.m4s")
	b, _ := c.Get("s2", "v/0.0.m4s")
	require.Equal(t, []byte("one"), a)
	require.Equal(t, []byte("two"), b)
}

func TestGetExpiredByTTLIsEvictedAsMiss(t *testing.T) {
	c := New(Config{MaxBytes: 1 << 20, MaxEntries: 100, TTL: 10 * time.Millisecond})
	c.Put("s1", "v/0.0.m4s", []byte("hello"))

	time.Sleep(25 * time.Millisecond)
	_, ok := c.Get("s1", "v/0.0.m4s")
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestRemoveStreamClearsAllItsEntries(t *testing.T) {
	c := New(Config{MaxBytes: 1 << 20, MaxEntries: 100})
	c.Put("s1", "v/0.0.m4s", []byte("a"))
	c.Put("s1", "v/0.1.m4s", []byte("b"))
	c.Put("s2", "v/0.0.m4s", []byte("c"))

	c.RemoveStream("s1")

	require.Equal(t, 1, c.Len())
	_, ok := c.Get("s2", "v/0.0.m4s")
	require.True(t, ok)
}

func TestPutEnforcesMaxEntriesByEvictingLeastRecentlyUsed(t *testing.T) {
	c := New(Config{MaxBytes: 1 << 20, MaxEntries: 4})

	c.Put("s1", "a", []byte("1"))
	c.Put("s1", "b", []byte("1"))
	c.Put("s1", "c", []byte("1"))
	c.Put("s1", "d", []byte("1"))

	// touch "a" so it is more recently used than b/c/d
	_, _ = c.Get("s1", "a")

	// crossing MaxEntries triggers an LRU pass down to half the budget (2)
	c.Put("s1", "e", []byte("1"))

	require.LessOrEqual(t, c.Len(), 4)
	_, ok := c.Get("s1", "a")
	require.True(t, ok, "recently touched entry should survive eviction")
	_, ok = c.Get("s1", "e")
	require.True(t, ok, "just-inserted entry should survive eviction")
}

func TestPutEnforcesMaxBytesByEvictingDownToHalf(t *testing.T) {
	c := New(Config{MaxBytes: 10, MaxEntries: 1000})

	c.Put("s1", "a", []byte("12345")) // 5 bytes
	c.Put("s1", "b", []byte("12345")) // 5 bytes, total 10, at budget not over
	c.Put("s1", "c", []byte("12345")) // 5 bytes, total 15, over budget -> evict to <=5

	require.LessOrEqual(t, c.TotalBytes(), int64(5))
}

func TestReplacingAnEntryUpdatesTotalBytesCorrectly(t *testing.T) {
	c := New(Config{MaxBytes: 1 << 20, MaxEntries: 100})
	c.Put("s1", "a", []byte("12345"))
	require.EqualValues(t, 5, c.TotalBytes())

	c.Put("s1", "a", []byte("ab"))
	require.EqualValues(t, 2, c.TotalBytes())
	require.Equal(t, 1, c.Len())
}
