package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryVectorIndexSearchOrdering(t *testing.T) {
	idx := NewMemoryVectorIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "near", []float32{1, 0}, Metadata{}))
	require.NoError(t, idx.Upsert(ctx, "far", []float32{-1, 0}, Metadata{}))
	require.NoError(t, idx.Upsert(ctx, "mid", []float32{0, 1}, Metadata{}))

	hits, err := idx.Search(ctx, []float32{1, 0}, Filters{}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "near", hits[0].ItemID)
	assert.Equal(t, "mid", hits[1].ItemID)
	assert.Equal(t, "far", hits[2].ItemID)

	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.InDelta(t, 0.5, hits[1].Score, 1e-9)
	assert.InDelta(t, 0.0, hits[2].Score, 1e-9)
}

func TestMemoryVectorIndexTieBreakByID(t *testing.T) {
	idx := NewMemoryVectorIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "bbb", []float32{1, 0}, Metadata{}))
	require.NoError(t, idx.Upsert(ctx, "aaa", []float32{1, 0}, Metadata{}))

	for i := 0; i < 10; i++ {
		hits, err := idx.Search(ctx, []float32{1, 0}, Filters{}, 0)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "aaa", hits[0].ItemID)
		assert.Equal(t, "bbb", hits[1].ItemID)
	}
}

func TestMemoryVectorIndexUpsertReplaces(t *testing.T) {
	idx := NewMemoryVectorIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0}, Metadata{}))
	require.NoError(t, idx.Upsert(ctx, "a", []float32{0, 1}, Metadata{}))

	assert.Equal(t, 1, idx.Len())

	hits, err := idx.Search(ctx, []float32{0, 1}, Filters{}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
}

func TestMemoryVectorIndexFilters(t *testing.T) {
	idx := NewMemoryVectorIndex()
	ctx := context.Background()

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	negative := -0.8

	require.NoError(t, idx.Upsert(ctx, "btc-high", []float32{1, 0}, Metadata{
		SubjectTags: []string{"btc"}, PublishedAt: recent,
		Sentiment: 0.4, MarketImpact: "high",
	}))
	require.NoError(t, idx.Upsert(ctx, "btc-old", []float32{1, 0}, Metadata{
		SubjectTags: []string{"btc"}, PublishedAt: old,
		Sentiment: 0.4, MarketImpact: "high",
	}))
	require.NoError(t, idx.Upsert(ctx, "eth-low", []float32{1, 0}, Metadata{
		SubjectTags: []string{"eth"}, PublishedAt: recent,
		Sentiment: negative, MarketImpact: "low",
	}))

	tests := []struct {
		name    string
		filters Filters
		wantIDs []string
	}{
		{"no filters", Filters{}, []string{"btc-high", "btc-old", "eth-low"}},
		{"by tag", Filters{SubjectTags: []string{"btc"}}, []string{"btc-high", "btc-old"}},
		{"by since", Filters{Since: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}, []string{"btc-high", "eth-low"}},
		{"by impact", Filters{MarketImpact: "low"}, []string{"eth-low"}},
		{"by min sentiment", Filters{MinSentiment: ptr(0.0)}, []string{"btc-high", "btc-old"}},
		{"tag and since", Filters{SubjectTags: []string{"btc"}, Since: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}, []string{"btc-high"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hits, err := idx.Search(ctx, []float32{1, 0}, tc.filters, 0)
			require.NoError(t, err)

			got := make([]string, len(hits))
			for i, h := range hits {
				got[i] = h.ItemID
			}
			assert.ElementsMatch(t, tc.wantIDs, got)
		})
	}
}

func TestMemoryVectorIndexTruncatesToK(t *testing.T) {
	idx := NewMemoryVectorIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0}, Metadata{}))
	require.NoError(t, idx.Upsert(ctx, "b", []float32{0.9, 0.1}, Metadata{}))
	require.NoError(t, idx.Upsert(ctx, "c", []float32{0, 1}, Metadata{}))

	hits, err := idx.Search(ctx, []float32{1, 0}, Filters{}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ItemID)
	assert.Equal(t, "b", hits[1].ItemID)
}

func TestMemoryVectorIndexDelete(t *testing.T) {
	idx := NewMemoryVectorIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0}, Metadata{}))
	require.NoError(t, idx.Upsert(ctx, "b", []float32{0, 1}, Metadata{}))

	require.NoError(t, idx.Delete(ctx, []string{"a", "missing"}))
	assert.Equal(t, 1, idx.Len())
}

func TestSimilarityZeroMagnitude(t *testing.T) {
	assert.Equal(t, 0.0, similarity([]float32{0, 0}, []float32{1, 0}))
	assert.Equal(t, 0.0, similarity([]float32{1, 0}, nil))
}

func ptr(f float64) *float64 { return &f }
