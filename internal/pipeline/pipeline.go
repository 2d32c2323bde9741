// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates ingestion: normalize, dedup, quality gate,
// temporal scoring, enrichment, and the dual-store write. One bad item never
// aborts the batch; every outcome lands in the batch report.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/signal-engine/internal/cache"
	"github.com/pdiddy/signal-engine/internal/dedup"
	"github.com/pdiddy/signal-engine/internal/enrich"
	"github.com/pdiddy/signal-engine/internal/normalize"
	"github.com/pdiddy/signal-engine/internal/quality"
	"github.com/pdiddy/signal-engine/internal/store"
	"github.com/pdiddy/signal-engine/internal/temporal"
	"github.com/pdiddy/signal-engine/pkg/types"
)

// Engine wires the ingestion stages together.
type Engine struct {
	normalizer *normalize.Normalizer
	registry   dedup.Registry
	scorer     *quality.Scorer
	enricher   enrich.Enricher
	writer     *store.Writer
	catalog    *store.Catalog
	cache      *cache.Manager

	// Now is the clock, overridable in tests.
	Now func() time.Time
}

// NewEngine returns an ingestion engine over the given stages.
func NewEngine(n *normalize.Normalizer, r dedup.Registry, s *quality.Scorer, e enrich.Enricher, w *store.Writer, c *store.Catalog, qc *cache.Manager) *Engine {
	return &Engine{
		normalizer: n,
		registry:   r,
		scorer:     s,
		enricher:   e,
		writer:     w,
		catalog:    c,
		cache:      qc,
		Now:        time.Now,
	}
}

// IngestBatch runs every raw item through the full pipeline. Per-item
// progress goes to w. The returned report covers every input item; the error
// is non-nil only when the batch itself cannot proceed (context cancelled).
func (e *Engine) IngestBatch(ctx context.Context, sourceID string, rawItems []json.RawMessage, w io.Writer) (BatchReport, error) {
	if w == nil {
		w = io.Discard
	}

	report := BatchReport{
		SourceID:  sourceID,
		StartedAt: e.Now().UTC(),
	}

	for i, raw := range rawItems {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		entry := e.ingestOne(ctx, sourceID, raw, w)
		if entry.Status == StatusAccepted {
			report.Accepted++
		} else {
			report.Rejected++
		}
		if entry.ItemID == "" {
			entry.ItemID = fmt.Sprintf("input[%d]", i)
		}
		report.Items = append(report.Items, entry)
	}

	report.FinishedAt = e.Now().UTC()
	fmt.Fprintf(w, "batch complete: %d accepted, %d rejected of %d\n",
		report.Accepted, report.Rejected, report.Total())
	return report, nil
}

// ingestOne runs a single item through the stages and returns its report
// entry. Failures reject the item; they never propagate.
func (e *Engine) ingestOne(ctx context.Context, sourceID string, raw json.RawMessage, w io.Writer) ReportItem {
	item, err := e.normalizer.Normalize(sourceID, raw)
	if err != nil {
		fmt.Fprintf(w, "rejected: %v\n", err)
		return ReportItem{Status: StatusRejected, Reason: types.ReasonMalformedInput, Detail: err.Error()}
	}

	entry := ReportItem{
		ItemID:      item.ID,
		ExternalKey: item.ExternalKey,
		Title:       item.Title,
	}

	fresh, err := e.registry.CheckAndRegister(ctx, item.ExternalKey, item.ContentHash)
	if err != nil {
		fmt.Fprintf(w, "rejected %s: dedup registry: %v\n", item.ID, err)
		return entry.rejected(types.ReasonStoreWriteFailed, err.Error())
	}
	if !fresh {
		fmt.Fprintf(w, "rejected %s: duplicate\n", item.ID)
		return entry.rejected(types.ReasonDuplicate, "external key or content hash already seen")
	}

	q := e.scorer.Score(item)
	item.Quality = &q
	entry.Quality = &q
	if !e.scorer.Approved(q) {
		fmt.Fprintf(w, "rejected %s: quality %.2f (clickbait %.2f)\n", item.ID, q.OverallScore, q.ClickbaitScore)
		return entry.rejected(types.ReasonQualityRejected,
			fmt.Sprintf("overall %.3f, clickbait %.3f", q.OverallScore, q.ClickbaitScore))
	}

	ts := temporal.Score(item.PublishedAt, e.Now())
	item.Temporal = &ts
	entry.TimeCategory = ts.TimeCategory

	enrichment, err := e.enricher.Enrich(ctx, item)
	if err != nil {
		fmt.Fprintf(w, "  warning: enrichment unavailable for %s, using neutral defaults: %v\n", item.ID, err)
		enrichment = types.NeutralEnrichment()
		entry.EnrichmentDefaulted = true
	}
	item.Enrichment = enrichment

	var embedding []float32
	if emb, err := e.enricher.Embed(ctx, item.Title+"\n"+item.Body); err != nil {
		fmt.Fprintf(w, "  warning: embedding unavailable for %s, graph-only projection: %v\n", item.ID, err)
	} else {
		embedding = emb
	}

	if err := e.catalog.Save(ctx, item); err != nil {
		fmt.Fprintf(w, "rejected %s: catalog write: %v\n", item.ID, err)
		e.release(ctx, item, w)
		return entry.rejected(types.ReasonStoreWriteFailed, err.Error())
	}
	if err := e.writer.Write(ctx, item, embedding); err != nil {
		fmt.Fprintf(w, "rejected %s: index write: %v\n", item.ID, err)
		e.release(ctx, item, w)
		return entry.rejected(types.ReasonStoreWriteFailed, err.Error())
	}

	fmt.Fprintf(w, "accepted %s: %s\n", item.ID, item.Title)
	entry.Status = StatusAccepted
	return entry
}

// release undoes the dedup registration after a failed store write so the
// item stays re-ingestible instead of being reported as a duplicate forever.
func (e *Engine) release(ctx context.Context, item *types.ContentItem, w io.Writer) {
	if err := e.registry.Unregister(ctx, item.ExternalKey, item.ContentHash); err != nil {
		fmt.Fprintf(w, "  warning: releasing dedup registration for %s: %v\n", item.ID, err)
	}
}

// Purge removes items from the catalog and both indexes, then drops every
// cache entry referencing them.
func (e *Engine) Purge(ctx context.Context, itemIDs []string, w io.Writer) error {
	if w == nil {
		w = io.Discard
	}
	if len(itemIDs) == 0 {
		return nil
	}

	if err := e.catalog.Delete(ctx, itemIDs); err != nil {
		return fmt.Errorf("purging catalog entries: %w", err)
	}
	if err := e.writer.Remove(ctx, itemIDs); err != nil {
		return fmt.Errorf("purging index entries: %w", err)
	}
	invalidated := e.cache.Invalidate(itemIDs)

	fmt.Fprintf(w, "purged %d items, invalidated %d cache entries\n", len(itemIDs), invalidated)
	return nil
}
