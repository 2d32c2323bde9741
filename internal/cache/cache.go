// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache provides the TTL-keyed query result cache. Entries map a
// query fingerprint to an ordered result-id list; expired entries count as
// misses and are deleted lazily on read or in bulk by Sweep. Put replaces an
// entry wholesale — entries are never merged.
package cache

import (
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pdiddy/signal-engine/pkg/types"
)

// Fingerprint derives the cache key from normalized query parameters. The
// pairs are hashed in sorted key order, so equivalent queries with parameters
// in a different order hit the same entry.
func Fingerprint(params map[string]string) uint64 {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := fnv.New64a()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(params[k]))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// entry is one cached result set.
type entry struct {
	resultIDs []string
	createdAt time.Time
	expiresAt time.Time
	hitCount  uint64
}

// Stats holds cache counters for observability.
type Stats struct {
	Hits    uint64 `json:"hits" yaml:"hits"`
	Misses  uint64 `json:"misses" yaml:"misses"`
	Entries int    `json:"entries" yaml:"entries"`
}

// EntryStats describes one live cache entry.
type EntryStats struct {
	Hits      uint64    `json:"hits" yaml:"hits"`
	Results   int       `json:"results" yaml:"results"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at"`
}

// Manager is the thread-safe TTL cache. Get, Put, Sweep, and Invalidate are
// safe under concurrent access; Put is last-writer-wins since staleness is
// self-healing via TTL.
type Manager struct {
	mu      sync.RWMutex
	entries map[uint64]*entry
	cfg     types.CacheConfig

	hits   uint64
	misses uint64

	// Now is the clock, overridable in tests.
	Now func() time.Time
}

// New returns an empty cache manager. Zero config values fall back to the
// documented defaults.
func New(cfg types.CacheConfig) *Manager {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = types.DefaultCacheConfig().DefaultTTL
	}
	if cfg.BreakingTTL <= 0 {
		cfg.BreakingTTL = types.DefaultCacheConfig().BreakingTTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = types.DefaultCacheConfig().MaxEntries
	}
	return &Manager{
		entries: make(map[uint64]*entry),
		cfg:     cfg,
		Now:     time.Now,
	}
}

// TTLForClass returns the TTL for a query class: the short breaking TTL for
// queries scoped to the breaking window, the default otherwise.
func (m *Manager) TTLForClass(breaking bool) time.Duration {
	if breaking {
		return m.cfg.BreakingTTL
	}
	return m.cfg.DefaultTTL
}

// Get returns the cached result ids for fingerprint, or a miss when absent
// or expired. Expired entries are deleted on the way out.
func (m *Manager) Get(fingerprint uint64) ([]string, bool) {
	now := m.Now()

	m.mu.RLock()
	e, ok := m.entries[fingerprint]
	m.mu.RUnlock()

	if !ok {
		atomic.AddUint64(&m.misses, 1)
		return nil, false
	}

	if !now.Before(e.expiresAt) {
		m.mu.Lock()
		// Re-check under the write lock; a concurrent Put may have replaced
		// the entry with a fresh one.
		if cur, ok := m.entries[fingerprint]; ok && !now.Before(cur.expiresAt) {
			delete(m.entries, fingerprint)
		}
		m.mu.Unlock()
		atomic.AddUint64(&m.misses, 1)
		return nil, false
	}

	atomic.AddUint64(&e.hitCount, 1)
	atomic.AddUint64(&m.hits, 1)

	ids := make([]string, len(e.resultIDs))
	copy(ids, e.resultIDs)
	return ids, true
}

// Put stores result ids under fingerprint with the given TTL, replacing any
// existing entry wholesale. A non-positive ttl uses the default.
func (m *Manager) Put(fingerprint uint64, resultIDs []string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.cfg.DefaultTTL
	}
	now := m.Now()

	ids := make([]string, len(resultIDs))
	copy(ids, resultIDs)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[fingerprint]; !exists && len(m.entries) >= m.cfg.MaxEntries {
		m.evictSoonestExpiring()
	}

	m.entries[fingerprint] = &entry{
		resultIDs: ids,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
}

// Sweep deletes all entries expired as of now and returns how many were
// removed. Safe to run concurrently with Get and Put.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for fp, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, fp)
			removed++
		}
	}
	return removed
}

// Invalidate eagerly drops every entry whose result set intersects the given
// item ids. Called on purge so cache entries never reference purged items.
func (m *Manager) Invalidate(itemIDs []string) int {
	if len(itemIDs) == 0 {
		return 0
	}
	purged := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		purged[id] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for fp, e := range m.entries {
		for _, id := range e.resultIDs {
			if purged[id] {
				delete(m.entries, fp)
				removed++
				break
			}
		}
	}
	return removed
}

// EntryStats returns the per-entry counters for fingerprint. The second
// return is false when the entry is absent; expired entries still report
// until a Get or Sweep removes them.
func (m *Manager) EntryStats(fingerprint uint64) (EntryStats, bool) {
	m.mu.RLock()
	e, ok := m.entries[fingerprint]
	m.mu.RUnlock()

	if !ok {
		return EntryStats{}, false
	}
	return EntryStats{
		Hits:      atomic.LoadUint64(&e.hitCount),
		Results:   len(e.resultIDs),
		CreatedAt: e.createdAt,
		ExpiresAt: e.expiresAt,
	}, true
}

// Stats returns the hit/miss counters and current entry count.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	entries := len(m.entries)
	m.mu.RUnlock()

	return Stats{
		Hits:    atomic.LoadUint64(&m.hits),
		Misses:  atomic.LoadUint64(&m.misses),
		Entries: entries,
	}
}

// evictSoonestExpiring drops the entry closest to expiry to make room.
// Caller must hold the write lock.
func (m *Manager) evictSoonestExpiring() {
	var victim uint64
	var earliest time.Time
	first := true
	for fp, e := range m.entries {
		if first || e.expiresAt.Before(earliest) {
			victim, earliest, first = fp, e.expiresAt, false
		}
	}
	if !first {
		delete(m.entries, victim)
	}
}
