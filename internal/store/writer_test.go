package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/signal-engine/pkg/types"
)

func writableItem(id string) *types.ContentItem {
	return &types.ContentItem{
		ID:          id,
		SourceID:    "newsapi",
		ExternalKey: "https://example.com/" + id,
		SubjectTags: []string{"btc"},
		Title:       "Title " + id,
		Body:        "Body " + id,
		PublishedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Quality:     &types.QualityScore{OverallScore: 0.8},
		Temporal:    &types.TemporalScore{TimeCategory: types.TimeRecent},
		Enrichment: &types.Enrichment{
			Sentiment:    0.4,
			MarketImpact: "high",
		},
	}
}

func TestWriterProjectsIntoBothStores(t *testing.T) {
	vectors := NewMemoryVectorIndex()
	graph := newTestGraph(t)
	w := NewWriter(vectors, graph)
	ctx := context.Background()

	require.NoError(t, w.Write(ctx, writableItem("a"), []float32{1, 0}))

	assert.Equal(t, 1, vectors.Len())

	candidates, err := graph.Traverse(ctx, Filters{SubjectTags: []string{"btc"}})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "a", candidates[0].ItemID)
}

func TestWriterIsIdempotent(t *testing.T) {
	vectors := NewMemoryVectorIndex()
	graph := newTestGraph(t)
	w := NewWriter(vectors, graph)
	ctx := context.Background()

	item := writableItem("a")
	require.NoError(t, w.Write(ctx, item, []float32{1, 0}))
	require.NoError(t, w.Write(ctx, item, []float32{1, 0}))

	assert.Equal(t, 1, vectors.Len())

	candidates, err := graph.Traverse(ctx, Filters{SubjectTags: []string{"btc"}, MarketImpact: "high"})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.InDelta(t, 1.0, candidates[0].Score, 1e-9)
}

func TestWriterNilEmbeddingSkipsVectorStore(t *testing.T) {
	vectors := NewMemoryVectorIndex()
	graph := newTestGraph(t)
	w := NewWriter(vectors, graph)
	ctx := context.Background()

	require.NoError(t, w.Write(ctx, writableItem("a"), nil))

	assert.Equal(t, 0, vectors.Len())

	// The item must still be findable through the graph branch.
	candidates, err := graph.Traverse(ctx, Filters{SubjectTags: []string{"btc"}})
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}

func TestWriterRemove(t *testing.T) {
	vectors := NewMemoryVectorIndex()
	graph := newTestGraph(t)
	w := NewWriter(vectors, graph)
	ctx := context.Background()

	require.NoError(t, w.Write(ctx, writableItem("a"), []float32{1, 0}))
	require.NoError(t, w.Write(ctx, writableItem("b"), []float32{0, 1}))

	require.NoError(t, w.Remove(ctx, []string{"a"}))

	assert.Equal(t, 1, vectors.Len())

	candidates, err := graph.Traverse(ctx, Filters{SubjectTags: []string{"btc"}})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "b", candidates[0].ItemID)
}

type failingVectorStore struct{}

func (failingVectorStore) Upsert(context.Context, string, []float32, Metadata) error {
	return errors.New("index offline")
}

func (failingVectorStore) Search(context.Context, []float32, Filters, int) ([]VectorHit, error) {
	return nil, errors.New("index offline")
}

func (failingVectorStore) Delete(context.Context, []string) error {
	return errors.New("index offline")
}

func TestWriterSurfacesVectorFailure(t *testing.T) {
	graph := newTestGraph(t)
	w := NewWriter(failingVectorStore{}, graph)

	err := w.Write(context.Background(), writableItem("a"), []float32{1, 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector upsert")
}
