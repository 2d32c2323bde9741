// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieval answers queries by fanning out to the semantic and graph
// branches concurrently, merging the candidate sets, and re-ranking with a
// weighted blend of similarity, relationship density, and recency.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/signal-engine/internal/cache"
	"github.com/pdiddy/signal-engine/internal/enrich"
	"github.com/pdiddy/signal-engine/internal/store"
	"github.com/pdiddy/signal-engine/internal/temporal"
	"github.com/pdiddy/signal-engine/pkg/types"
)

// ErrUnavailable reports that neither retrieval branch produced candidates
// because both failed. An empty result from healthy branches is not an error.
var ErrUnavailable = errors.New("retrieval unavailable: all branches failed")

// Query holds the normalized retrieval parameters.
type Query struct {
	Text         string
	Tags         []string
	Since        time.Time
	Until        time.Time
	MinSentiment *float64
	MarketImpact string
	Limit        int
}

// IsEmpty reports whether the query has no searchable terms.
func (q Query) IsEmpty() bool {
	return q.Text == "" && len(q.Tags) == 0 && q.MarketImpact == ""
}

// filters converts the query into the shared store filter shape.
func (q Query) filters() store.Filters {
	return store.Filters{
		SubjectTags:  q.Tags,
		Since:        q.Since,
		Until:        q.Until,
		MinSentiment: q.MinSentiment,
		MarketImpact: q.MarketImpact,
	}
}

// params flattens the query for fingerprinting. Tags are sorted so queries
// differing only in tag order share a cache entry.
func (q Query) params() map[string]string {
	p := map[string]string{"text": q.Text}

	if len(q.Tags) > 0 {
		tags := make([]string, len(q.Tags))
		copy(tags, q.Tags)
		sort.Strings(tags)
		p["tags"] = strings.Join(tags, ",")
	}
	if !q.Since.IsZero() {
		p["since"] = q.Since.UTC().Format(time.RFC3339)
	}
	if !q.Until.IsZero() {
		p["until"] = q.Until.UTC().Format(time.RFC3339)
	}
	if q.MinSentiment != nil {
		p["min_sentiment"] = strconv.FormatFloat(*q.MinSentiment, 'f', -1, 64)
	}
	if q.MarketImpact != "" {
		p["impact"] = q.MarketImpact
	}
	if q.Limit > 0 {
		p["limit"] = strconv.Itoa(q.Limit)
	}
	return p
}

// ItemSource loads item payloads for ranked ids.
type ItemSource interface {
	GetMany(ctx context.Context, ids []string) ([]*types.ContentItem, error)
}

// Output is one answered query.
type Output struct {
	Results []types.RetrievalResult

	// CacheHit is true when the ordered ids came from the query cache.
	CacheHit bool

	// Degraded is true when exactly one branch failed and the results come
	// from the surviving branch alone.
	Degraded bool

	// BranchErrors lists the failed branches, e.g. "semantic: ...".
	BranchErrors []string
}

// Engine wires the two branches, the item catalog, and the query cache.
type Engine struct {
	vectors  store.VectorStore
	graph    store.GraphStore
	items    ItemSource
	cache    *cache.Manager
	enricher enrich.Enricher
	cfg      types.RetrievalConfig

	// Now is the clock, overridable in tests.
	Now func() time.Time
}

// NewEngine returns a retrieval engine. Zero config values fall back to the
// documented defaults.
func NewEngine(vectors store.VectorStore, graph store.GraphStore, items ItemSource, c *cache.Manager, enricher enrich.Enricher, cfg types.RetrievalConfig) *Engine {
	def := types.DefaultRetrievalConfig()
	if cfg.SemanticWeight == 0 && cfg.GraphWeight == 0 && cfg.TemporalWeight == 0 {
		cfg.SemanticWeight = def.SemanticWeight
		cfg.GraphWeight = def.GraphWeight
		cfg.TemporalWeight = def.TemporalWeight
	}
	if cfg.BranchTimeout <= 0 {
		cfg.BranchTimeout = def.BranchTimeout
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = def.MaxResults
	}
	return &Engine{
		vectors:  vectors,
		graph:    graph,
		items:    items,
		cache:    c,
		enricher: enricher,
		cfg:      cfg,
		Now:      time.Now,
	}
}

// candidate accumulates per-branch scores for one item id.
type candidate struct {
	semantic float64
	graph    float64
}

// Retrieve answers the query. Warnings for failed branches go to w.
func (e *Engine) Retrieve(ctx context.Context, q Query, w io.Writer) (Output, error) {
	if w == nil {
		w = io.Discard
	}
	if q.IsEmpty() {
		return Output{}, fmt.Errorf("query is empty: provide text, tags, or an impact class")
	}
	limit := q.Limit
	if limit <= 0 || limit > e.cfg.MaxResults {
		limit = e.cfg.MaxResults
	}

	fingerprint := cache.Fingerprint(q.params())
	if ids, ok := e.cache.Get(fingerprint); ok {
		results, err := e.load(ctx, ids)
		if err != nil {
			return Output{}, err
		}
		return Output{Results: results, CacheHit: true}, nil
	}

	candidates, branchErrors, err := e.fanOut(ctx, q, w)
	if err != nil {
		return Output{}, err
	}

	results, err := e.rank(ctx, candidates, limit)
	if err != nil {
		return Output{}, err
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ItemID
	}

	// Only full answers are cached. A degraded set would be replayed for the
	// whole TTL after the branch recovers, and the hit path has no way to
	// report it as degraded.
	if len(branchErrors) == 0 {
		// Queries scoped into the breaking window get the short TTL so fresh
		// items surface quickly.
		breaking := !q.Since.IsZero() && e.Now().Sub(q.Since) <= temporal.BreakingWindow()
		e.cache.Put(fingerprint, ids, e.cache.TTLForClass(breaking))
	}

	return Output{
		Results:      results,
		Degraded:     len(branchErrors) > 0,
		BranchErrors: branchErrors,
	}, nil
}

// fanOut runs both branches concurrently, each under its own timeout. One
// failed branch degrades the answer; two failed branches are ErrUnavailable.
func (e *Engine) fanOut(ctx context.Context, q Query, w io.Writer) (map[string]*candidate, []string, error) {
	type branchResult struct {
		name string
		ids  []string
		// scores aligns with ids.
		scores []float64
		err    error
	}

	ch := make(chan branchResult, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		bctx, cancel := context.WithTimeout(ctx, e.cfg.BranchTimeout)
		defer cancel()

		embedding, err := e.enricher.Embed(bctx, q.Text)
		if err != nil {
			ch <- branchResult{name: "semantic", err: fmt.Errorf("embedding query: %w", err)}
			return
		}
		hits, err := e.vectors.Search(bctx, embedding, q.filters(), e.cfg.MaxResults*3)
		if err != nil {
			ch <- branchResult{name: "semantic", err: err}
			return
		}
		br := branchResult{name: "semantic"}
		for _, h := range hits {
			br.ids = append(br.ids, h.ItemID)
			br.scores = append(br.scores, h.Score)
		}
		ch <- br
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		bctx, cancel := context.WithTimeout(ctx, e.cfg.BranchTimeout)
		defer cancel()

		found, err := e.graph.Traverse(bctx, q.filters())
		if err != nil {
			ch <- branchResult{name: "graph", err: err}
			return
		}
		br := branchResult{name: "graph"}
		for _, c := range found {
			br.ids = append(br.ids, c.ItemID)
			br.scores = append(br.scores, c.Score)
		}
		ch <- br
	}()

	go func() {
		wg.Wait()
		close(ch)
	}()

	candidates := make(map[string]*candidate)
	var branchErrors []string
	for br := range ch {
		if br.err != nil {
			branchErrors = append(branchErrors, fmt.Sprintf("%s: %v", br.name, br.err))
			fmt.Fprintf(w, "warning: %s branch failed: %v\n", br.name, br.err)
			continue
		}
		for i, id := range br.ids {
			c := candidates[id]
			if c == nil {
				c = &candidate{}
				candidates[id] = c
			}
			switch br.name {
			case "semantic":
				c.semantic = br.scores[i]
			case "graph":
				c.graph = br.scores[i]
			}
		}
	}

	if len(branchErrors) == 2 {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnavailable, strings.Join(branchErrors, "; "))
	}
	return candidates, branchErrors, nil
}

// rank loads the candidate payloads, blends the three signals, and orders the
// results deterministically: final score descending, then published_at
// descending, then item id ascending.
func (e *Engine) rank(ctx context.Context, candidates map[string]*candidate, limit int) ([]types.RetrievalResult, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	items, err := e.items.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading candidates: %w", err)
	}

	now := e.Now()
	results := make([]types.RetrievalResult, 0, len(items))
	for _, item := range items {
		c := candidates[item.ID]
		recency := temporal.Score(item.PublishedAt, now).RecencyScore

		final := e.cfg.SemanticWeight*c.semantic +
			e.cfg.GraphWeight*c.graph +
			e.cfg.TemporalWeight*recency

		results = append(results, types.RetrievalResult{
			ItemID:        item.ID,
			SemanticScore: c.semantic,
			GraphScore:    c.graph,
			TemporalScore: recency,
			FinalScore:    final,
			Item:          item,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		if !results[i].Item.PublishedAt.Equal(results[j].Item.PublishedAt) {
			return results[i].Item.PublishedAt.After(results[j].Item.PublishedAt)
		}
		return results[i].ItemID < results[j].ItemID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

// load materializes a cached id list. Missing ids are skipped; ranks are
// reassigned over the surviving items.
func (e *Engine) load(ctx context.Context, ids []string) ([]types.RetrievalResult, error) {
	items, err := e.items.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading cached results: %w", err)
	}

	now := e.Now()
	results := make([]types.RetrievalResult, 0, len(items))
	for i, item := range items {
		results = append(results, types.RetrievalResult{
			ItemID:        item.ID,
			TemporalScore: temporal.Score(item.PublishedAt, now).RecencyScore,
			Rank:          i + 1,
			Item:          item,
		})
	}
	return results, nil
}
