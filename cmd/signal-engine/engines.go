// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/signal-engine/internal/cache"
	"github.com/pdiddy/signal-engine/internal/dedup"
	"github.com/pdiddy/signal-engine/internal/enrich"
	"github.com/pdiddy/signal-engine/internal/normalize"
	"github.com/pdiddy/signal-engine/internal/pipeline"
	"github.com/pdiddy/signal-engine/internal/quality"
	"github.com/pdiddy/signal-engine/internal/retrieval"
	"github.com/pdiddy/signal-engine/internal/store"
	"github.com/pdiddy/signal-engine/pkg/types"
)

const defaultUserAgent = "signal-engine/0.1"

// engines bundles the opened stores and the two engines built on them.
type engines struct {
	db    *sql.DB
	index *badger.DB

	catalog *store.Catalog
	cache   *cache.Manager

	pipeline  *pipeline.Engine
	retrieval *retrieval.Engine
}

// openEngines opens the catalog and index stores under --data-dir and wires
// the full pipeline and retrieval engines.
func openEngines(cmd *cobra.Command) (*engines, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dataDir, err)
	}

	db, err := store.OpenDB(filepath.Join(dataDir, "catalog.db"))
	if err != nil {
		return nil, err
	}

	catalog, err := store.NewCatalog(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	registry, err := dedup.NewSQLite(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	index, err := store.OpenBadger(filepath.Join(dataDir, "index"))
	if err != nil {
		db.Close()
		return nil, err
	}
	vectors := store.NewBadgerVectorIndex(index)
	graph := store.NewBadgerGraphOn(index)

	scorer, err := quality.NewScorer(qualityConfig(), nil)
	if err != nil {
		db.Close()
		index.Close()
		return nil, err
	}

	enricher := buildEnricher()
	queryCache := cache.New(cacheConfig())
	writer := store.NewWriter(vectors, graph)

	return &engines{
		db:      db,
		index:   index,
		catalog: catalog,
		cache:   queryCache,
		pipeline: pipeline.NewEngine(
			normalize.New(), registry, scorer, enricher, writer, catalog, queryCache),
		retrieval: retrieval.NewEngine(
			vectors, graph, catalog, queryCache, enricher, retrievalConfig()),
	}, nil
}

// Close releases both store handles.
func (e *engines) Close() {
	e.db.Close()
	e.index.Close()
}

// buildEnricher returns the HTTP enricher when a service is configured, the
// disabled stand-in otherwise.
func buildEnricher() enrich.Enricher {
	baseURL := viper.GetString("enrichment.base_url")
	if baseURL == "" {
		return enrich.Disabled{}
	}

	timeout := viper.GetDuration("enrichment.timeout")
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	cfg := types.EnrichmentConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		BaseURL:    baseURL,
		APIKey:     secretDefault("enrichment-api-key", viper.GetString("enrichment.api_key")),
		MaxRetries: viper.GetInt("enrichment.max_retries"),
	}
	return enrich.NewHTTP(cfg, os.Stderr)
}

func qualityConfig() types.QualityConfig {
	cfg := types.DefaultQualityConfig()
	if v := viper.GetFloat64("quality.threshold"); v > 0 {
		cfg.QualityThreshold = v
	}
	if v := viper.GetFloat64("quality.clickbait_ceiling"); v > 0 {
		cfg.ClickbaitCeiling = v
	}
	for source, score := range viper.GetStringMap("quality.source_reliability") {
		if f, ok := score.(float64); ok {
			cfg.SourceReliability[source] = f
		}
	}
	return cfg
}

func cacheConfig() types.CacheConfig {
	cfg := types.DefaultCacheConfig()
	if v := viper.GetDuration("cache.default_ttl"); v > 0 {
		cfg.DefaultTTL = v
	}
	if v := viper.GetDuration("cache.breaking_ttl"); v > 0 {
		cfg.BreakingTTL = v
	}
	if v := viper.GetInt("cache.max_entries"); v > 0 {
		cfg.MaxEntries = v
	}
	return cfg
}

func retrievalConfig() types.RetrievalConfig {
	cfg := types.DefaultRetrievalConfig()
	if v := viper.GetDuration("retrieval.branch_timeout"); v > 0 {
		cfg.BranchTimeout = v
	}
	if v := viper.GetInt("retrieval.max_results"); v > 0 {
		cfg.MaxResults = v
	}
	return cfg
}
