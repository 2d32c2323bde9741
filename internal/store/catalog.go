// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/signal-engine/pkg/types"
)

// Catalog is the durable table of accepted items with their attached scores.
// Every stored item carries exactly one quality score and one temporal score.
type Catalog struct {
	db *sql.DB
}

// OpenDB opens the catalog SQLite database at path with WAL journaling. The
// returned handle is shared with the dedup registry.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening catalog database: %w", err)
	}
	return db, nil
}

// NewCatalog creates the schema if needed and returns a catalog on db. The
// handle's lifecycle belongs to the caller.
func NewCatalog(db *sql.DB) (*Catalog, error) {
	_, err := db.Exec(
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			source_id TEXT NOT NULL,
			external_key TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			body TEXT,
			published_at TEXT NOT NULL,
			date_imputed INTEGER NOT NULL DEFAULT 0,
			content_hash TEXT NOT NULL,
			subject_tags TEXT,
			quality TEXT,
			temporal TEXT,
			enrichment TEXT
		)`)
	if err != nil {
		return nil, fmt.Errorf("creating items table: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Save upserts one accepted item with its scores.
func (c *Catalog) Save(ctx context.Context, item *types.ContentItem) error {
	tagsJSON, _ := json.Marshal(item.SubjectTags)
	qualityJSON, _ := json.Marshal(item.Quality)
	temporalJSON, _ := json.Marshal(item.Temporal)
	enrichmentJSON, _ := json.Marshal(item.Enrichment)

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO items (id, source_id, external_key, title, body, published_at,
			date_imputed, content_hash, subject_tags, quality, temporal, enrichment)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			source_id=excluded.source_id, title=excluded.title, body=excluded.body,
			published_at=excluded.published_at, date_imputed=excluded.date_imputed,
			content_hash=excluded.content_hash, subject_tags=excluded.subject_tags,
			quality=excluded.quality, temporal=excluded.temporal,
			enrichment=excluded.enrichment`,
		item.ID, item.SourceID, item.ExternalKey, item.Title, item.Body,
		item.PublishedAt.UTC().Format(time.RFC3339Nano), boolToInt(item.DateImputed),
		item.ContentHash, string(tagsJSON), string(qualityJSON),
		string(temporalJSON), string(enrichmentJSON),
	)
	if err != nil {
		return fmt.Errorf("saving item %s: %w", item.ID, err)
	}
	return nil
}

// Get returns the stored item for id, or (nil, nil) when absent.
func (c *Catalog) Get(ctx context.Context, id string) (*types.ContentItem, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, source_id, external_key, title, body, published_at,
			date_imputed, content_hash, subject_tags, quality, temporal, enrichment
		 FROM items WHERE id = ?`, id)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading item %s: %w", id, err)
	}
	return item, nil
}

// GetMany returns the stored items for ids, preserving the input order.
// Missing ids are skipped — the caller treats them as lazily invalidated.
func (c *Catalog) GetMany(ctx context.Context, ids []string) ([]*types.ContentItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT id, source_id, external_key, title, body, published_at,
			date_imputed, content_hash, subject_tags, quality, temporal, enrichment
		 FROM items WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*types.ContentItem, len(ids))
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		byID[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items := make([]*types.ContentItem, 0, len(ids))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// Delete removes the items with the given ids. Missing ids are not an error.
func (c *Catalog) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := c.db.ExecContext(ctx, `DELETE FROM items WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("deleting items: %w", err)
	}
	return nil
}

// Count returns the number of stored items.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return n, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*types.ContentItem, error) {
	var (
		item           types.ContentItem
		publishedAt    string
		dateImputed    int
		tagsJSON       sql.NullString
		qualityJSON    sql.NullString
		temporalJSON   sql.NullString
		enrichmentJSON sql.NullString
	)

	if err := s.Scan(
		&item.ID, &item.SourceID, &item.ExternalKey, &item.Title, &item.Body,
		&publishedAt, &dateImputed, &item.ContentHash,
		&tagsJSON, &qualityJSON, &temporalJSON, &enrichmentJSON,
	); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, publishedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing published_at %q: %w", publishedAt, err)
	}
	item.PublishedAt = t.UTC()
	item.DateImputed = dateImputed != 0

	if tagsJSON.Valid && tagsJSON.String != "null" {
		json.Unmarshal([]byte(tagsJSON.String), &item.SubjectTags)
	}
	if qualityJSON.Valid && qualityJSON.String != "null" {
		json.Unmarshal([]byte(qualityJSON.String), &item.Quality)
	}
	if temporalJSON.Valid && temporalJSON.String != "null" {
		json.Unmarshal([]byte(temporalJSON.String), &item.Temporal)
	}
	if enrichmentJSON.Valid && enrichmentJSON.String != "null" {
		json.Unmarshal([]byte(enrichmentJSON.String), &item.Enrichment)
	}

	return &item, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
