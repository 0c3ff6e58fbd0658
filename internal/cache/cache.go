// Package cache provides short-TTL memoization in front of store reads and
// owns the latest-snapshot set. Entries never outlive the caller-supplied
// max age; the cache itself imposes no freshness policy.
package cache

import (
	"sync"
	"time"

	"github.com/Memetrix/holder-price-bot/internal/types"
)

type entry[V any] struct {
	val V
	at  time.Time
}

// TTL is a freshness-checked memoization map. Callers pass the maximum
// acceptable age on every Get: prices want seconds, stats want minutes.
// The keyspace is bounded (one entry per source/query shape), so there is
// no LRU eviction.
type TTL[V any] struct {
	mu sync.RWMutex
	m  map[string]entry[V]

	now func() time.Time // overridable in tests
}

func NewTTL[V any]() *TTL[V] {
	return &TTL[V]{m: make(map[string]entry[V], 8), now: time.Now}
}

// Get returns the cached value if present and no older than maxAge.
func (c *TTL[V]) Get(key string, maxAge time.Duration) (V, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.at) > maxAge {
		c.evictIfUnchanged(key, e.at)
		return zero, false
	}
	return e.val, true
}

// evictIfUnchanged deletes key only while it still holds the entry observed
// under the read lock. A Set that lands between the stale read and the delete
// must not lose its fresh entry.
func (c *TTL[V]) evictIfUnchanged(key string, at time.Time) {
	c.mu.Lock()
	if cur, ok := c.m[key]; ok && cur.at.Equal(at) {
		delete(c.m, key)
	}
	c.mu.Unlock()
}

// Set stores val with the current timestamp.
func (c *TTL[V]) Set(key string, val V) {
	c.mu.Lock()
	c.m[key] = entry[V]{val: val, at: c.now()}
	c.mu.Unlock()
}

func (c *TTL[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
}

// Snapshots owns the latest PriceRecord per source plus the stats memo whose
// entries depend on those records. A write for one source invalidates only
// that source's stats entry.
type Snapshots struct {
	mu   sync.RWMutex
	snap types.Snapshot

	stats *TTL[*types.AggregateStats]
}

func NewSnapshots() *Snapshots {
	return &Snapshots{
		snap:  make(types.Snapshot, 4),
		stats: NewTTL[*types.AggregateStats](),
	}
}

// Update records rec as the latest observation for its source. An older
// timestamp never overwrites a newer one. Returns the previous record, if any.
func (s *Snapshots) Update(rec types.PriceRecord) (prev types.PriceRecord, had bool) {
	s.mu.Lock()
	prev, had = s.snap[rec.Source]
	if !had || !rec.Timestamp.Before(prev.Timestamp) {
		s.snap[rec.Source] = rec
	}
	s.mu.Unlock()

	s.stats.Invalidate(string(rec.Source))
	return prev, had
}

// Latest returns the record for src and whether it is no older than maxAge.
func (s *Snapshots) Latest(src types.Source, maxAge time.Duration) (types.PriceRecord, bool) {
	s.mu.RLock()
	rec, ok := s.snap[src]
	s.mu.RUnlock()
	if !ok || time.Since(rec.Timestamp) > maxAge {
		return types.PriceRecord{}, false
	}
	return rec, true
}

// All returns a copy of the current snapshot set regardless of age; the
// detector applies its own staleness bound.
func (s *Snapshots) All() types.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(types.Snapshot, len(s.snap))
	for k, v := range s.snap {
		out[k] = v
	}
	return out
}

// Stats exposes the per-source stats memo.
func (s *Snapshots) Stats() *TTL[*types.AggregateStats] { return s.stats }
