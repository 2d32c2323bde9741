// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the signal-engine pipeline:
// the canonical ContentItem, its attached quality/temporal/enrichment scores,
// retrieval results, and per-stage configuration.
package types

import "time"

// TimeCategory buckets an item by age at scoring time.
type TimeCategory string

const (
	// TimeBreaking marks items no older than two hours.
	TimeBreaking TimeCategory = "breaking"

	// TimeRecent marks items no older than 24 hours.
	TimeRecent TimeCategory = "recent"

	// TimeNormal marks items between 24 hours and seven days old.
	TimeNormal TimeCategory = "normal"

	// TimeHistorical marks items older than seven days.
	TimeHistorical TimeCategory = "historical"
)

// RejectReason classifies why an item was dropped on the write path or why a
// query could not be served. Reasons are stable strings suitable for batch
// reports and caller-side audit.
type RejectReason string

const (
	ReasonMalformedInput        RejectReason = "MALFORMED_INPUT"
	ReasonDuplicate             RejectReason = "DUPLICATE"
	ReasonQualityRejected       RejectReason = "QUALITY_REJECTED"
	ReasonEnrichmentUnavailable RejectReason = "ENRICHMENT_UNAVAILABLE"
	ReasonStoreWriteFailed      RejectReason = "STORE_WRITE_FAILED"
	ReasonRetrievalUnavailable  RejectReason = "RETRIEVAL_UNAVAILABLE"
)

// ContentItem is one ingested unit in canonical form. The normalizer creates
// it; after acceptance only the Quality, Temporal, and Enrichment attachments
// are set, never the base fields.
type ContentItem struct {
	// ID is a stable slug derived from the external key, used as the item
	// identifier in both indexes and the cache.
	ID string `json:"id" yaml:"id"`

	// SourceID names the origin provider (e.g. "newsapi").
	SourceID string `json:"source_id" yaml:"source_id"`

	// ExternalKey is the provider-assigned unique identifier (e.g. the
	// canonical URL). Primary dedup key.
	ExternalKey string `json:"external_key" yaml:"external_key"`

	// SubjectTags lists the subjects (e.g. asset symbols) the item is about.
	SubjectTags []string `json:"subject_tags" yaml:"subject_tags"`

	// Title is the item headline.
	Title string `json:"title" yaml:"title"`

	// Body is the item text.
	Body string `json:"body" yaml:"body"`

	// PublishedAt is the publication timestamp, normalized to UTC.
	PublishedAt time.Time `json:"published_at" yaml:"published_at"`

	// DateImputed is true when the source date could not be parsed and
	// PublishedAt was set to the ingestion time instead.
	DateImputed bool `json:"date_imputed,omitempty" yaml:"date_imputed,omitempty"`

	// ContentHash is a stable hash over a normalized prefix of the body,
	// used for near-duplicate detection.
	ContentHash string `json:"content_hash" yaml:"content_hash"`

	// Quality is attached once by the quality scorer.
	Quality *QualityScore `json:"quality,omitempty" yaml:"quality,omitempty"`

	// Temporal is attached at write time and may be recomputed at read time;
	// it depends only on PublishedAt and the caller-supplied clock.
	Temporal *TemporalScore `json:"temporal,omitempty" yaml:"temporal,omitempty"`

	// Enrichment holds scores from the external AI service, or neutral
	// defaults when the service was unavailable.
	Enrichment *Enrichment `json:"enrichment,omitempty" yaml:"enrichment,omitempty"`
}

// QualityScore holds the multi-factor acceptance scores. All values are in
// [0, 1]. Attached once, immutable.
type QualityScore struct {
	// SourceReliability comes from the configured allow-list of known
	// origins; unknown origins receive the configured default.
	SourceReliability float64 `json:"source_reliability" yaml:"source_reliability"`

	// ContentScore reflects body length and structural completeness.
	ContentScore float64 `json:"content_score" yaml:"content_score"`

	// ClickbaitScore is higher for more clickbait-like titles.
	ClickbaitScore float64 `json:"clickbait_score" yaml:"clickbait_score"`

	// RelevanceScore is the fraction of subject tags present in title+body.
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`

	// OverallScore is the weighted combination used for the acceptance gate.
	OverallScore float64 `json:"overall_score" yaml:"overall_score"`
}

// TemporalScore holds recency/urgency decay values and the age bucket.
type TemporalScore struct {
	// RecencyScore decays linearly over a seven-day window, floored at 0.01.
	RecencyScore float64 `json:"recency_score" yaml:"recency_score"`

	// UrgencyScore decays exponentially over 48 hours with fresh-item
	// bonuses, clamped to (0, 1].
	UrgencyScore float64 `json:"urgency_score" yaml:"urgency_score"`

	// TimeCategory is the discrete age bucket.
	TimeCategory TimeCategory `json:"time_category" yaml:"time_category"`
}

// Enrichment holds the external AI service's analysis of an item. When the
// service is unavailable the item is stored with NeutralEnrichment values and
// Defaulted set.
type Enrichment struct {
	// Sentiment is in [-1, 1]: negative to positive.
	Sentiment float64 `json:"sentiment" yaml:"sentiment"`

	// Trust is the service's confidence in the source, in [0, 1].
	Trust float64 `json:"trust" yaml:"trust"`

	// Categories are fine-grained topic labels.
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`

	// MacroCategory is the single coarse topic label.
	MacroCategory string `json:"macro_category,omitempty" yaml:"macro_category,omitempty"`

	// Summary is a short abstract of the body.
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`

	// UrgencyScore is the service's own urgency estimate, in [0, 1].
	UrgencyScore float64 `json:"urgency_score" yaml:"urgency_score"`

	// MarketImpact classifies expected market effect: "high", "medium", "low".
	MarketImpact string `json:"market_impact,omitempty" yaml:"market_impact,omitempty"`

	// TimeRelevance is the service's estimate of how time-bound the item is.
	TimeRelevance float64 `json:"time_relevance" yaml:"time_relevance"`

	// Defaulted is true when these values are neutral fallbacks rather than
	// a real service response.
	Defaulted bool `json:"defaulted,omitempty" yaml:"defaulted,omitempty"`
}

// NeutralEnrichment returns the fallback values used when the enrichment
// service is unavailable. Storage proceeds with these rather than blocking.
func NeutralEnrichment() *Enrichment {
	return &Enrichment{
		Sentiment:     0,
		Trust:         0.5,
		MacroCategory: "uncategorized",
		UrgencyScore:  0.5,
		MarketImpact:  "medium",
		TimeRelevance: 0.5,
		Defaulted:     true,
	}
}

// RetrievalResult is one ranked entry in a query response.
type RetrievalResult struct {
	// ItemID identifies the matched item.
	ItemID string `json:"item_id" yaml:"item_id"`

	// SemanticScore is the vector-branch similarity, 0 when the item was
	// found only by the graph branch.
	SemanticScore float64 `json:"semantic_score" yaml:"semantic_score"`

	// GraphScore is the relationship-density score from the graph branch,
	// 0 when the item was found only by the vector branch.
	GraphScore float64 `json:"graph_score" yaml:"graph_score"`

	// TemporalScore is the recency contribution computed at query time.
	TemporalScore float64 `json:"temporal_score" yaml:"temporal_score"`

	// FinalScore is the weighted combination the ranking is based on.
	FinalScore float64 `json:"final_score" yaml:"final_score"`

	// Rank is the 1-indexed position in the response.
	Rank int `json:"rank" yaml:"rank"`

	// Item is the full stored item, populated from the catalog.
	Item *ContentItem `json:"item,omitempty" yaml:"item,omitempty"`
}
