package types

import (
	"fmt"
	"math"
	"time"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "signal-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// QualityWeights holds the weighted-combination coefficients for the overall
// quality score. The four weights must sum to 1 so scores stay comparable.
type QualityWeights struct {
	Reliability   float64 `json:"reliability" yaml:"reliability"`
	Content       float64 `json:"content" yaml:"content"`
	AntiClickbait float64 `json:"anti_clickbait" yaml:"anti_clickbait"`
	Relevance     float64 `json:"relevance" yaml:"relevance"`
}

// Validate reports an error when the weights do not sum to 1.
func (w QualityWeights) Validate() error {
	sum := w.Reliability + w.Content + w.AntiClickbait + w.Relevance
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("quality weights sum to %.6f, want 1.0", sum)
	}
	return nil
}

// QualityConfig holds settings for the quality scorer.
type QualityConfig struct {
	// Weights are the overall-score coefficients.
	Weights QualityWeights `json:"weights" yaml:"weights"`

	// SourceReliability maps known origins to reliability scores in [0,1].
	SourceReliability map[string]float64 `json:"source_reliability" yaml:"source_reliability"`

	// DefaultReliability is used for origins not in SourceReliability (default 0.5).
	DefaultReliability float64 `json:"default_reliability" yaml:"default_reliability"`

	// MinBodyChars is the body length below which the content score is 0 (default 100).
	MinBodyChars int `json:"min_body_chars" yaml:"min_body_chars"`

	// FullScoreChars is the body length at which the content score reaches 1.0 (default 2000).
	FullScoreChars int `json:"full_score_chars" yaml:"full_score_chars"`

	// TargetLanguage is the expected content language code (e.g. "en").
	TargetLanguage string `json:"target_language" yaml:"target_language"`

	// ClickbaitPhrases is the lexical pattern list for the clickbait score.
	// Empty means use the built-in list.
	ClickbaitPhrases []string `json:"clickbait_phrases,omitempty" yaml:"clickbait_phrases,omitempty"`

	// Synonyms maps subject tags to alternate spellings counted as matches
	// by the relevance scorer (e.g. "btc" -> ["bitcoin"]).
	Synonyms map[string][]string `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`

	// QualityThreshold is the minimum overall score for acceptance (default 0.6).
	QualityThreshold float64 `json:"quality_threshold" yaml:"quality_threshold"`

	// ClickbaitCeiling is the maximum clickbait score for acceptance (default 0.7).
	ClickbaitCeiling float64 `json:"clickbait_ceiling" yaml:"clickbait_ceiling"`
}

// DefaultQualityConfig returns the documented default quality configuration.
// Tests pin their expectations to these values.
func DefaultQualityConfig() QualityConfig {
	return QualityConfig{
		Weights: QualityWeights{
			Reliability:   0.25,
			Content:       0.25,
			AntiClickbait: 0.25,
			Relevance:     0.25,
		},
		SourceReliability: map[string]float64{
			"reuters.com":   0.9,
			"apnews.com":    0.9,
			"bloomberg.com": 0.85,
			"ft.com":        0.85,
			"wsj.com":       0.8,
			"coindesk.com":  0.7,
		},
		DefaultReliability: 0.5,
		MinBodyChars:       100,
		FullScoreChars:     2000,
		TargetLanguage:     "en",
		Synonyms: map[string][]string{
			"btc": {"bitcoin"},
			"eth": {"ethereum", "ether"},
		},
		QualityThreshold: 0.6,
		ClickbaitCeiling: 0.7,
	}
}

// CacheConfig holds settings for the query result cache.
type CacheConfig struct {
	// DefaultTTL applies to entries without a more specific query class (default 24h).
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl"`

	// BreakingTTL applies to queries scoped to the breaking-news window;
	// new breaking items invalidate relevance quickly (default 10m).
	BreakingTTL time.Duration `json:"breaking_ttl" yaml:"breaking_ttl"`

	// MaxEntries bounds the cache size (default 1000).
	MaxEntries int `json:"max_entries" yaml:"max_entries"`
}

// DefaultCacheConfig returns the default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		DefaultTTL:  24 * time.Hour,
		BreakingTTL: 10 * time.Minute,
		MaxEntries:  1000,
	}
}

// RetrievalConfig holds settings for the hybrid retrieval engine.
type RetrievalConfig struct {
	// SemanticWeight, GraphWeight, and TemporalWeight combine branch scores
	// into the final score. They must sum to 1.
	SemanticWeight float64 `json:"semantic_weight" yaml:"semantic_weight"`
	GraphWeight    float64 `json:"graph_weight" yaml:"graph_weight"`
	TemporalWeight float64 `json:"temporal_weight" yaml:"temporal_weight"`

	// BranchTimeout bounds each branch query; a timed-out branch counts as
	// failed and the engine degrades (default 3s).
	BranchTimeout time.Duration `json:"branch_timeout" yaml:"branch_timeout"`

	// MaxResults is the default result limit when the caller passes none (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// Validate reports an error when the branch weights do not sum to 1.
func (c RetrievalConfig) Validate() error {
	sum := c.SemanticWeight + c.GraphWeight + c.TemporalWeight
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("retrieval weights sum to %.6f, want 1.0", sum)
	}
	return nil
}

// DefaultRetrievalConfig returns the default retrieval configuration.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		SemanticWeight: 0.5,
		GraphWeight:    0.3,
		TemporalWeight: 0.2,
		BranchTimeout:  3 * time.Second,
		MaxResults:     20,
	}
}

// EnrichmentConfig holds settings for the external enrichment service adapter.
type EnrichmentConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the enrichment service endpoint.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey authenticates requests. Usually loaded from .secrets/.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts on rate limiting (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// StoreConfig holds settings for the durable stores.
type StoreConfig struct {
	// DataDir is the base directory for durable state (contains catalog.db
	// and graph/).
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Quality    QualityConfig    `json:"quality" yaml:"quality"`
	Cache      CacheConfig      `json:"cache" yaml:"cache"`
	Retrieval  RetrievalConfig  `json:"retrieval" yaml:"retrieval"`
	Enrichment EnrichmentConfig `json:"enrichment" yaml:"enrichment"`
	Store      StoreConfig      `json:"store" yaml:"store"`
}

// DefaultPipelineConfig returns a fully populated default configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Quality:   DefaultQualityConfig(),
		Cache:     DefaultCacheConfig(),
		Retrieval: DefaultRetrievalConfig(),
		Enrichment: EnrichmentConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "signal-engine/0.1",
			},
			MaxRetries: 3,
		},
		Store: StoreConfig{DataDir: "data"},
	}
}
