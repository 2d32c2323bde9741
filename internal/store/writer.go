// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"

	"github.com/pdiddy/signal-engine/pkg/types"
)

// Writer projects one accepted, scored item into the two index
// representations. It owns no retry logic — that belongs to the store
// adapters — but every projection is idempotent: re-writing the same item id
// replaces, never duplicates.
type Writer struct {
	vectors VectorStore
	graph   GraphStore
}

// NewWriter returns a writer over the two injected index boundaries.
func NewWriter(vectors VectorStore, graph GraphStore) *Writer {
	return &Writer{vectors: vectors, graph: graph}
}

// Write upserts the item into both indexes. A nil embedding skips the vector
// entry (the embedding service was unavailable); the graph projection still
// proceeds so the item remains findable relationally.
func (w *Writer) Write(ctx context.Context, item *types.ContentItem, embedding []float32) error {
	if embedding != nil {
		if err := w.vectors.Upsert(ctx, item.ID, embedding, MetadataFor(item)); err != nil {
			return fmt.Errorf("vector upsert %s: %w", item.ID, err)
		}
	}

	props := NodeProps{
		Title:       item.Title,
		SourceID:    item.SourceID,
		PublishedAt: item.PublishedAt,
	}
	if item.Temporal != nil {
		props.TimeCategory = item.Temporal.TimeCategory
	}
	if item.Enrichment != nil {
		props.Sentiment = item.Enrichment.Sentiment
		props.MarketImpact = item.Enrichment.MarketImpact
	}

	if err := w.graph.UpsertNode(ctx, item.ID, props); err != nil {
		return fmt.Errorf("graph node upsert %s: %w", item.ID, err)
	}
	if err := w.graph.UpsertEdges(ctx, item.ID, RelationsFor(item)); err != nil {
		return fmt.Errorf("graph edge upsert %s: %w", item.ID, err)
	}
	return nil
}

// Remove deletes the item ids from both indexes.
func (w *Writer) Remove(ctx context.Context, itemIDs []string) error {
	if err := w.vectors.Delete(ctx, itemIDs); err != nil {
		return fmt.Errorf("vector delete: %w", err)
	}
	if err := w.graph.Delete(ctx, itemIDs); err != nil {
		return fmt.Errorf("graph delete: %w", err)
	}
	return nil
}
