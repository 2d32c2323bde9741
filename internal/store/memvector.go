// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryVectorIndex is an in-process VectorStore using exact cosine
// similarity. It stands in for an external vector index behind the same
// narrow interface.
type MemoryVectorIndex struct {
	mu      sync.RWMutex
	entries map[string]vectorEntry
}

type vectorEntry struct {
	embedding []float32
	meta      Metadata
}

// NewMemoryVectorIndex returns an empty index.
func NewMemoryVectorIndex() *MemoryVectorIndex {
	return &MemoryVectorIndex{entries: make(map[string]vectorEntry)}
}

// Upsert implements VectorStore. Replacing an existing id never duplicates
// the entry; the map key is the identity.
func (v *MemoryVectorIndex) Upsert(_ context.Context, itemID string, embedding []float32, meta Metadata) error {
	stored := make([]float32, len(embedding))
	copy(stored, embedding)

	v.mu.Lock()
	v.entries[itemID] = vectorEntry{embedding: stored, meta: meta}
	v.mu.Unlock()
	return nil
}

// Search implements VectorStore. Results are ordered by similarity
// descending, then item id ascending for determinism.
func (v *MemoryVectorIndex) Search(ctx context.Context, embedding []float32, filters Filters, k int) ([]VectorHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v.mu.RLock()
	hits := make([]VectorHit, 0, len(v.entries))
	for id, e := range v.entries {
		if !matchesVectorFilters(filters, e.meta) {
			continue
		}
		hits = append(hits, VectorHit{ItemID: id, Score: similarity(embedding, e.embedding)})
	}
	v.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ItemID < hits[j].ItemID
	})

	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Delete implements VectorStore.
func (v *MemoryVectorIndex) Delete(_ context.Context, itemIDs []string) error {
	v.mu.Lock()
	for _, id := range itemIDs {
		delete(v.entries, id)
	}
	v.mu.Unlock()
	return nil
}

// Len returns the number of indexed entries.
func (v *MemoryVectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}

func matchesVectorFilters(f Filters, meta Metadata) bool {
	if !matchesPropertyFilters(f, meta.PublishedAt, meta.Sentiment) {
		return false
	}
	if f.MarketImpact != "" && meta.MarketImpact != f.MarketImpact {
		return false
	}
	if len(f.SubjectTags) > 0 && !anyTagMatch(f.SubjectTags, meta.SubjectTags) {
		return false
	}
	return true
}

func anyTagMatch(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}

// similarity maps cosine similarity from [-1, 1] to [0, 1]. A zero-magnitude
// vector on either side scores 0.
func similarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, magA, magB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}

	cos := dot / (math.Sqrt(magA) * math.Sqrt(magB))
	return (cos + 1) / 2
}
