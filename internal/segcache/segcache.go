// Package segcache is the process-wide rendered-segment byte cache spec
// §4.K describes: keyed by stream id and URL, bounded by both a total byte
// budget and an entry count budget, evicted first by TTL and then by
// least-recently-used. The map/mutex shape mirrors
// internal/relay.Manager's sessions map (internal/registry adapts the same
// idiom for the session registry); the eviction policy itself is bespoke
// to this spec and has no equivalent third-party library in the
// example pack to ground it on (see DESIGN.md) — hashicorp/golang-lru
// implements a single-policy LRU, not this TTL-then-half-budget-LRU dual
// pass over two independent limits, so adopting it would mean fighting its
// API rather than using it.
package segcache

import (
	"sync"
	"time"
)

// Entry is one cached rendering: the bytes plus the bookkeeping spec
// §4.K's eviction policy reads.
type Entry struct {
	Bytes        []byte
	CreatedAt    time.Time
	LastAccessed time.Time
	AccessCount  int
}

// Config bounds the cache (spec §4.K: "two limits: max total bytes and max
// entry count; both are enforced on insert").
type Config struct {
	MaxBytes   int64
	MaxEntries int
	TTL        time.Duration
}

// Cache is the concurrent media-segment byte cache.
type Cache struct {
	cfg Config

	mu         sync.Mutex
	entries    map[string]*Entry
	streamKeys map[string]map[string]struct{} // stream_id -> set of its cache keys
	totalBytes int64
}

// New creates a Cache bounded by cfg.
func New(cfg Config) *Cache {
	return &Cache{
		cfg:        cfg,
		entries:    make(map[string]*Entry),
		streamKeys: make(map[string]map[string]struct{}),
	}
}

// key builds the cache key spec §4.K defines: "{stream_id}:{url_string}".
func key(streamID, url string) string {
	return streamID + ":" + url
}

// Get looks up a cached rendering, touching its last_accessed/access_count
// on a hit. A hit whose TTL has expired is treated as a miss and evicted.
func (c *Cache) Get(streamID, url string) ([]byte, bool) {
	k := key(streamID, url)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[k]
	if !ok {
		return nil, false
	}
	if c.cfg.TTL > 0 && time.Since(e.CreatedAt) > c.cfg.TTL {
		c.removeLocked(streamID, k)
		return nil, false
	}

	e.LastAccessed = time.Now()
	e.AccessCount++
	return e.Bytes, true
}

// Put inserts or replaces a cached rendering for (streamID, url), then
// enforces both budgets (spec §4.K: "both are enforced on insert").
func (c *Cache) Put(streamID, url string, data []byte) {
	k := key(streamID, url)
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[k]; ok {
		c.totalBytes -= int64(len(old.Bytes))
	} else {
		if c.streamKeys[streamID] == nil {
			c.streamKeys[streamID] = make(map[string]struct{})
		}
		c.streamKeys[streamID][k] = struct{}{}
	}

	c.entries[k] = &Entry{
		Bytes:        data,
		CreatedAt:    now,
		LastAccessed: now,
		AccessCount:  1,
	}
	c.totalBytes += int64(len(data))

	c.enforceBudgetsLocked()
}

// RemoveStream drops every cached entry belonging to streamID (spec §4.K:
// "Removing a stream id removes all its entries").
func (c *Cache) RemoveStream(streamID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.streamKeys[streamID] {
		if e, ok := c.entries[k]; ok {
			c.totalBytes -= int64(len(e.Bytes))
			delete(c.entries, k)
		}
	}
	delete(c.streamKeys, streamID)
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// TotalBytes returns the current total cached byte count.
func (c *Cache) TotalBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalBytes
}

func (c *Cache) removeLocked(streamID, k string) {
	if e, ok := c.entries[k]; ok {
		c.totalBytes -= int64(len(e.Bytes))
		delete(c.entries, k)
	}
	if set, ok := c.streamKeys[streamID]; ok {
		delete(set, k)
		if len(set) == 0 {
			delete(c.streamKeys, streamID)
		}
	}
}

// enforceBudgetsLocked implements spec §4.K's eviction policy: first an
// expired-by-TTL pass, then — if still over either budget — a
// least-recently-used pass until half the budget is freed. Must be called
// with c.mu held.
func (c *Cache) enforceBudgetsLocked() {
	if c.cfg.TTL > 0 {
		now := time.Now()
		for k, e := range c.entries {
			if now.Sub(e.CreatedAt) > c.cfg.TTL {
				c.removeEntryLocked(k, e)
			}
		}
	}

	if !c.overBudget() {
		return
	}

	candidates := make([]evictionCandidate, 0, len(c.entries))
	for k, e := range c.entries {
		candidates = append(candidates, evictionCandidate{k, e})
	}
	sortByLeastRecentlyUsed(candidates)

	targetBytes := c.cfg.MaxBytes / 2
	targetEntries := c.cfg.MaxEntries / 2

	for _, cand := range candidates {
		if (c.cfg.MaxBytes <= 0 || c.totalBytes <= targetBytes) &&
			(c.cfg.MaxEntries <= 0 || len(c.entries) <= targetEntries) {
			break
		}
		c.removeEntryLocked(cand.key, cand.e)
	}
}

func (c *Cache) overBudget() bool {
	if c.cfg.MaxBytes > 0 && c.totalBytes > c.cfg.MaxBytes {
		return true
	}
	if c.cfg.MaxEntries > 0 && len(c.entries) > c.cfg.MaxEntries {
		return true
	}
	return false
}

func (c *Cache) removeEntryLocked(k string, e *Entry) {
	delete(c.entries, k)
	c.totalBytes -= int64(len(e.Bytes))
	for streamID, set := range c.streamKeys {
		if _, ok := set[k]; ok {
			delete(set, k)
			if len(set) == 0 {
				delete(c.streamKeys, streamID)
			}
			break
		}
	}
}

// evictionCandidate pairs a cache key with its entry for the
// least-recently-used eviction pass.
type evictionCandidate struct {
	key string
	e   *Entry
}

func sortByLeastRecentlyUsed(candidates []evictionCandidate) {
	for i := 1; i < len(candidates); i++ {
		j := i
		for j > 0 && candidates[j-1].e.LastAccessed.After(candidates[j].e.LastAccessed) {
			candidates[j-1], candidates[j] = candidates[j], candidates[j-1]
			j--
		}
	}
}
