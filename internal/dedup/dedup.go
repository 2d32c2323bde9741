// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup rejects items already seen, by exact external key and by
// near-duplicate content hash. The seen-sets live behind a Registry handle
// injected into the pipeline; the check and the registration are a single
// atomic operation so concurrent workers cannot both accept the same item.
package dedup

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

const (
	kindKey  = "key"
	kindHash = "hash"
)

// Registry is the durable seen-key/seen-hash set.
type Registry interface {
	// CheckAndRegister reports whether the (externalKey, contentHash) pair
	// is new. When new, both values are registered before returning, so a
	// concurrent call with either value observes a duplicate. When either
	// value was already seen nothing is registered.
	CheckAndRegister(ctx context.Context, externalKey, contentHash string) (bool, error)

	// Unregister removes the pair so the item can be ingested again. The
	// pipeline calls it when a store write fails after registration;
	// otherwise the item would be reported as a duplicate forever without
	// ever having been stored. Missing values are not an error.
	Unregister(ctx context.Context, externalKey, contentHash string) error
}

// SQLiteRegistry is a Registry backed by a SQLite table, giving cross-batch
// durability. The insert-if-absent primary key closes the read-then-write
// race under concurrent ingestion.
type SQLiteRegistry struct {
	db *sql.DB
}

// NewSQLite creates the seen-set table if needed and returns a registry on
// the given database handle. The handle is shared with the catalog; its
// lifecycle belongs to the caller.
func NewSQLite(db *sql.DB) (*SQLiteRegistry, error) {
	_, err := db.Exec(
		`CREATE TABLE IF NOT EXISTS seen (
			kind TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (kind, value)
		)`)
	if err != nil {
		return nil, fmt.Errorf("creating seen table: %w", err)
	}
	return &SQLiteRegistry{db: db}, nil
}

// CheckAndRegister implements Registry. Both inserts run in one transaction;
// if either value was present the transaction rolls back and nothing is
// registered.
func (r *SQLiteRegistry) CheckAndRegister(ctx context.Context, externalKey, contentHash string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning dedup transaction: %w", err)
	}
	defer tx.Rollback()

	for _, pair := range [][2]string{{kindKey, externalKey}, {kindHash, contentHash}} {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO seen (kind, value) VALUES (?, ?)`, pair[0], pair[1])
		if err != nil {
			return false, fmt.Errorf("registering %s: %w", pair[0], err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("checking %s insert: %w", pair[0], err)
		}
		if n == 0 {
			// Already seen; the deferred rollback undoes any partial insert.
			return false, nil
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing dedup registration: %w", err)
	}
	return true, nil
}

// Unregister implements Registry.
func (r *SQLiteRegistry) Unregister(ctx context.Context, externalKey, contentHash string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM seen WHERE (kind = ? AND value = ?) OR (kind = ? AND value = ?)`,
		kindKey, externalKey, kindHash, contentHash)
	if err != nil {
		return fmt.Errorf("unregistering seen pair: %w", err)
	}
	return nil
}

// MemoryRegistry is an in-process Registry for tests and dry runs. Dedup is
// batch-local: state does not survive the process.
type MemoryRegistry struct {
	mu     sync.Mutex
	keys   map[string]bool
	hashes map[string]bool
}

// NewMemory returns an empty in-process registry.
func NewMemory() *MemoryRegistry {
	return &MemoryRegistry{
		keys:   make(map[string]bool),
		hashes: make(map[string]bool),
	}
}

// CheckAndRegister implements Registry.
func (r *MemoryRegistry) CheckAndRegister(_ context.Context, externalKey, contentHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.keys[externalKey] || r.hashes[contentHash] {
		return false, nil
	}
	r.keys[externalKey] = true
	r.hashes[contentHash] = true
	return true, nil
}

// Unregister implements Registry.
func (r *MemoryRegistry) Unregister(_ context.Context, externalKey, contentHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.keys, externalKey)
	delete(r.hashes, contentHash)
	return nil
}
