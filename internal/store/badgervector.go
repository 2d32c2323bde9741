// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerVectorIndex is a VectorStore persisted in a Badger keyspace
// (`vec:<id>`), sharing the database with the graph store. Search is an exact
// full scan; item counts here stay small enough that an approximate index is
// not worth its dependencies.
type BadgerVectorIndex struct {
	db *badger.DB
}

// vectorRecord is the stored per-item payload.
type vectorRecord struct {
	Embedding []float32 `json:"embedding"`
	Meta      Metadata  `json:"meta"`
}

// NewBadgerVectorIndex returns a vector index on an already-open database.
func NewBadgerVectorIndex(db *badger.DB) *BadgerVectorIndex {
	return &BadgerVectorIndex{db: db}
}

// Upsert implements VectorStore.
func (v *BadgerVectorIndex) Upsert(ctx context.Context, itemID string, embedding []float32, meta Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(vectorRecord{Embedding: embedding, Meta: meta})
	if err != nil {
		return fmt.Errorf("encoding vector %s: %w", itemID, err)
	}
	err = v.db.Update(func(txn *badger.Txn) error {
		return txn.Set(vecKey(itemID), data)
	})
	if err != nil {
		return fmt.Errorf("upserting vector %s: %w", itemID, err)
	}
	return nil
}

// Search implements VectorStore. Results are ordered by similarity
// descending, then item id ascending.
func (v *BadgerVectorIndex) Search(ctx context.Context, embedding []float32, filters Filters, k int) ([]VectorHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var hits []VectorHit
	prefix := []byte("vec:")
	err := v.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			id := strings.TrimPrefix(string(it.Item().Key()), "vec:")

			var rec vectorRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("decoding vector %s: %w", id, err)
			}
			if !matchesVectorFilters(filters, rec.Meta) {
				continue
			}
			hits = append(hits, VectorHit{ItemID: id, Score: similarity(embedding, rec.Embedding)})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning vectors: %w", err)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ItemID < hits[j].ItemID
	})

	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Delete implements VectorStore.
func (v *BadgerVectorIndex) Delete(ctx context.Context, itemIDs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := v.db.Update(func(txn *badger.Txn) error {
		for _, id := range itemIDs {
			if err := txn.Delete(vecKey(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting vectors: %w", err)
	}
	return nil
}

func vecKey(id string) []byte {
	return []byte("vec:" + id)
}
