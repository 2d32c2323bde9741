package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/signal-engine/pkg/types"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	c, err := NewCatalog(db)
	require.NoError(t, err)
	return c
}

func testItem(id string) *types.ContentItem {
	return &types.ContentItem{
		ID:          id,
		SourceID:    "newsapi",
		ExternalKey: "https://example.com/" + id,
		SubjectTags: []string{"btc"},
		Title:       "Title " + id,
		Body:        "Body text for " + id,
		PublishedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		ContentHash: "hash-" + id,
		Quality: &types.QualityScore{
			SourceReliability: 0.9,
			ContentScore:      0.5,
			ClickbaitScore:    0.1,
			RelevanceScore:    1.0,
			OverallScore:      0.82,
		},
		Temporal: &types.TemporalScore{
			RecencyScore: 0.98,
			UrgencyScore: 0.95,
			TimeCategory: types.TimeRecent,
		},
		Enrichment: types.NeutralEnrichment(),
	}
}

func TestCatalogSaveAndGet(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	item := testItem("item-1")
	require.NoError(t, c.Save(ctx, item))

	got, err := c.Get(ctx, "item-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, item.ExternalKey, got.ExternalKey)
	assert.Equal(t, item.SubjectTags, got.SubjectTags)
	assert.True(t, got.PublishedAt.Equal(item.PublishedAt))
	require.NotNil(t, got.Quality)
	assert.Equal(t, item.Quality.OverallScore, got.Quality.OverallScore)
	require.NotNil(t, got.Temporal)
	assert.Equal(t, types.TimeRecent, got.Temporal.TimeCategory)
	require.NotNil(t, got.Enrichment)
	assert.True(t, got.Enrichment.Defaulted)
}

func TestCatalogGetMissing(t *testing.T) {
	c := newTestCatalog(t)

	got, err := c.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCatalogSaveIsIdempotent(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	item := testItem("item-1")
	require.NoError(t, c.Save(ctx, item))

	item.Title = "Updated title"
	require.NoError(t, c.Save(ctx, item))

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := c.Get(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, "Updated title", got.Title)
}

func TestCatalogGetManyPreservesOrderAndSkipsMissing(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, c.Save(ctx, testItem(id)))
	}

	items, err := c.GetMany(ctx, []string{"c", "missing", "a"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "c", items[0].ID)
	assert.Equal(t, "a", items[1].ID)
}

func TestCatalogDelete(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, testItem("a")))
	require.NoError(t, c.Save(ctx, testItem("b")))

	require.NoError(t, c.Delete(ctx, []string{"a", "missing"}))

	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCatalogExternalKeyUnique(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	first := testItem("a")
	require.NoError(t, c.Save(ctx, first))

	// Different id, same external key: the unique constraint must hold.
	conflict := testItem("b")
	conflict.ExternalKey = first.ExternalKey
	err := c.Save(ctx, conflict)
	assert.Error(t, err)
}
