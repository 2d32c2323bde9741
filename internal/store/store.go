// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store holds the durable item catalog and the two narrow index
// boundaries: a vector store for semantic search and a graph store for
// relational search. Both indexes are mutated only through the Writer, which
// projects an accepted item into the two storage-specific shapes.
package store

import (
	"context"
	"time"

	"github.com/pdiddy/signal-engine/pkg/types"
)

// Metadata is the vector-entry payload: the score and enrichment fields
// downstream filtering needs.
type Metadata struct {
	SubjectTags  []string           `json:"subject_tags"`
	SourceID     string             `json:"source_id"`
	PublishedAt  time.Time          `json:"published_at"`
	OverallScore float64            `json:"overall_score"`
	Sentiment    float64            `json:"sentiment"`
	MarketImpact string             `json:"market_impact"`
	TimeCategory types.TimeCategory `json:"time_category"`
}

// VectorHit is one ranked result from the vector branch.
type VectorHit struct {
	ItemID string
	// Score is the similarity in [0, 1].
	Score float64
}

// Filters narrows both retrieval branches. Zero-valued fields are unset.
type Filters struct {
	// SubjectTags requires at least one matching tag.
	SubjectTags []string

	// Since and Until bound the publication time window.
	Since time.Time
	Until time.Time

	// MinSentiment excludes items below the threshold when set.
	MinSentiment *float64

	// MarketImpact requires an exact impact class match.
	MarketImpact string
}

// RelationDimensions counts the filter dimensions expressible as graph
// relations: each subject tag is one dimension, the impact class another.
// The time window and sentiment are property filters, not relations.
func (f Filters) RelationDimensions() int {
	n := len(f.SubjectTags)
	if f.MarketImpact != "" {
		n++
	}
	return n
}

// VectorStore is the narrow semantic-index boundary.
type VectorStore interface {
	// Upsert stores or replaces the embedding and metadata for itemID.
	// Re-upserting the same id must not create a duplicate entry.
	Upsert(ctx context.Context, itemID string, embedding []float32, meta Metadata) error

	// Search returns up to k hits ranked by similarity, restricted by filters.
	Search(ctx context.Context, embedding []float32, filters Filters, k int) ([]VectorHit, error)

	// Delete removes the entries for the given ids. Missing ids are ignored.
	Delete(ctx context.Context, itemIDs []string) error
}

// Relation is one typed edge from an item node.
type Relation struct {
	// Type is the relation name: "mentions", "published_by", "has_impact",
	// or "time_period".
	Type string

	// Target is the related value (tag, source id, impact class, category).
	Target string
}

// GraphCandidate is one item found by the graph branch with its
// relationship-density score.
type GraphCandidate struct {
	ItemID string
	// Score is matched relation dimensions / total relation dimensions.
	Score float64
}

// NodeProps are the properties stored on an item node.
type NodeProps struct {
	Title        string             `json:"title"`
	SourceID     string             `json:"source_id"`
	PublishedAt  time.Time          `json:"published_at"`
	Sentiment    float64            `json:"sentiment"`
	MarketImpact string             `json:"market_impact"`
	TimeCategory types.TimeCategory `json:"time_category"`
}

// GraphStore is the narrow relational-index boundary.
type GraphStore interface {
	// UpsertNode stores or replaces the node for itemID.
	UpsertNode(ctx context.Context, itemID string, props NodeProps) error

	// UpsertEdges stores the item's relations. Re-upserting the same id
	// must not create duplicate edges.
	UpsertEdges(ctx context.Context, itemID string, relations []Relation) error

	// Traverse returns candidates matching at least one relation dimension
	// of filters, with property filters (time window, sentiment) applied.
	// An empty candidate set is a valid result, not an error.
	Traverse(ctx context.Context, filters Filters) ([]GraphCandidate, error)

	// Delete removes the nodes and edges for the given ids.
	Delete(ctx context.Context, itemIDs []string) error
}

// RelationsFor builds the graph edges for an accepted, scored item.
func RelationsFor(item *types.ContentItem) []Relation {
	relations := make([]Relation, 0, len(item.SubjectTags)+3)
	for _, tag := range item.SubjectTags {
		relations = append(relations, Relation{Type: "mentions", Target: tag})
	}
	relations = append(relations, Relation{Type: "published_by", Target: item.SourceID})
	if item.Enrichment != nil && item.Enrichment.MarketImpact != "" {
		relations = append(relations, Relation{Type: "has_impact", Target: item.Enrichment.MarketImpact})
	}
	if item.Temporal != nil {
		relations = append(relations, Relation{Type: "time_period", Target: string(item.Temporal.TimeCategory)})
	}
	return relations
}

// MetadataFor builds the vector-entry metadata for an accepted, scored item.
func MetadataFor(item *types.ContentItem) Metadata {
	meta := Metadata{
		SubjectTags: item.SubjectTags,
		SourceID:    item.SourceID,
		PublishedAt: item.PublishedAt,
	}
	if item.Quality != nil {
		meta.OverallScore = item.Quality.OverallScore
	}
	if item.Temporal != nil {
		meta.TimeCategory = item.Temporal.TimeCategory
	}
	if item.Enrichment != nil {
		meta.Sentiment = item.Enrichment.Sentiment
		meta.MarketImpact = item.Enrichment.MarketImpact
	}
	return meta
}

// matchesPropertyFilters applies the non-relational filters shared by both
// index implementations.
func matchesPropertyFilters(f Filters, publishedAt time.Time, sentiment float64) bool {
	if !f.Since.IsZero() && publishedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && publishedAt.After(f.Until) {
		return false
	}
	if f.MinSentiment != nil && sentiment < *f.MinSentiment {
		return false
	}
	return true
}
