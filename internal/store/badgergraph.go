// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerGraph is a GraphStore backed by a Badger key-value store.
//
// Keyspace:
//
//	node:<id>                  → NodeProps JSON
//	rel:<type>:<target>:<id>   → nil  (forward index, scanned by Traverse)
//	item:<id>:<type>:<target>  → nil  (reverse index, used for edge replacement and delete)
//
// Edge identity is the key itself, so re-upserting an item cannot create
// duplicate edges.
type BadgerGraph struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the shared index database in dir. The graph
// store and the persistent vector index live in disjoint keyspaces of the
// same database.
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening index store: %w", err)
	}
	return db, nil
}

// NewBadgerGraph opens (or creates) the graph store in dir, owning the
// database handle.
func NewBadgerGraph(dir string) (*BadgerGraph, error) {
	db, err := OpenBadger(dir)
	if err != nil {
		return nil, err
	}
	return &BadgerGraph{db: db}, nil
}

// NewBadgerGraphOn returns a graph store on an already-open database whose
// lifecycle belongs to the caller.
func NewBadgerGraphOn(db *badger.DB) *BadgerGraph {
	return &BadgerGraph{db: db}
}

// Close releases the underlying store.
func (g *BadgerGraph) Close() error {
	return g.db.Close()
}

// UpsertNode implements GraphStore.
func (g *BadgerGraph) UpsertNode(ctx context.Context, itemID string, props NodeProps) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("encoding node %s: %w", itemID, err)
	}
	err = g.db.Update(func(txn *badger.Txn) error {
		return txn.Set(nodeKey(itemID), data)
	})
	if err != nil {
		return fmt.Errorf("upserting node %s: %w", itemID, err)
	}
	return nil
}

// UpsertEdges implements GraphStore. Existing edges for the item are removed
// first, so a re-upsert reflects exactly the given relations — an item whose
// time category has advanced loses its old time_period edge.
func (g *BadgerGraph) UpsertEdges(ctx context.Context, itemID string, relations []Relation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := g.db.Update(func(txn *badger.Txn) error {
		if err := deleteEdgesInTxn(txn, itemID); err != nil {
			return err
		}
		for _, rel := range relations {
			if err := txn.Set(relKey(rel.Type, rel.Target, itemID), nil); err != nil {
				return err
			}
			if err := txn.Set(itemKey(itemID, rel.Type, rel.Target), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upserting edges for %s: %w", itemID, err)
	}
	return nil
}

// Traverse implements GraphStore. Each subject tag and the impact class form
// one relation dimension; a candidate's score is the fraction of dimensions
// it matches. With no relation dimensions the graph branch has nothing to
// traverse and returns no candidates.
func (g *BadgerGraph) Traverse(ctx context.Context, filters Filters) ([]GraphCandidate, error) {
	dims := filters.RelationDimensions()
	if dims == 0 {
		return nil, nil
	}

	matches := make(map[string]int)
	err := g.db.View(func(txn *badger.Txn) error {
		for _, tag := range filters.SubjectTags {
			if err := ctx.Err(); err != nil {
				return err
			}
			collectRelMatches(txn, "mentions", tag, matches)
		}
		if filters.MarketImpact != "" {
			collectRelMatches(txn, "has_impact", filters.MarketImpact, matches)
		}

		// Apply property filters against node records.
		for id := range matches {
			props, err := loadNode(txn, id)
			if err != nil {
				return err
			}
			if props == nil || !matchesPropertyFilters(filters, props.PublishedAt, props.Sentiment) {
				delete(matches, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("traversing graph: %w", err)
	}

	candidates := make([]GraphCandidate, 0, len(matches))
	for id, n := range matches {
		candidates = append(candidates, GraphCandidate{
			ItemID: id,
			Score:  float64(n) / float64(dims),
		})
	}
	return candidates, nil
}

// Delete implements GraphStore.
func (g *BadgerGraph) Delete(ctx context.Context, itemIDs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := g.db.Update(func(txn *badger.Txn) error {
		for _, id := range itemIDs {
			if err := deleteEdgesInTxn(txn, id); err != nil {
				return err
			}
			if err := txn.Delete(nodeKey(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting graph entries: %w", err)
	}
	return nil
}

func nodeKey(id string) []byte {
	return []byte("node:" + id)
}

func relKey(relType, target, id string) []byte {
	return []byte("rel:" + relType + ":" + target + ":" + id)
}

func itemKey(id, relType, target string) []byte {
	return []byte("item:" + id + ":" + relType + ":" + target)
}

// collectRelMatches counts items carrying the given relation. The item id is
// the final key segment and contains no separator.
func collectRelMatches(txn *badger.Txn, relType, target string, matches map[string]int) {
	prefix := []byte("rel:" + relType + ":" + target + ":")

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		id := strings.TrimPrefix(string(it.Item().Key()), string(prefix))
		matches[id]++
	}
}

// deleteEdgesInTxn removes both directions of every edge of the item.
func deleteEdgesInTxn(txn *badger.Txn, itemID string) error {
	prefix := []byte("item:" + itemID + ":")

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix

	var keys [][]byte
	it := txn.NewIterator(opts)
	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range keys {
		rest := strings.TrimPrefix(string(key), string(prefix))
		parts := strings.SplitN(rest, ":", 2)
		if len(parts) == 2 {
			if err := txn.Delete(relKey(parts[0], parts[1], itemID)); err != nil {
				return err
			}
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// loadNode returns the node properties, or nil when the node is absent.
func loadNode(txn *badger.Txn, id string) (*NodeProps, error) {
	item, err := txn.Get(nodeKey(id))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var props NodeProps
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &props)
	})
	if err != nil {
		return nil, err
	}
	return &props, nil
}
