// Package planstore is an OPTIONAL overlay, not part of Cambium's core:
// it persists planner.Plan results across process runs, keyed by a hash
// of the planning inputs, backed by BadgerDB. Nothing in cambium/planner
// or cambium/executor imports this package; content-addressed caching is
// deliberately kept out of the core and lives here instead.
package planstore

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/dustin/go-humanize"

	"github.com/cambium/cambium"
	"github.com/cambium/cambium/planner"
)

// Store is a BadgerDB-backed, content-addressed cache of planner.Plan
// values.
type Store struct {
	db *badger.DB
}

// Open opens (creating if needed) a Store at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's own logging is not part of Cambium's observe seam

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("planstore: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying BadgerDB handles.
func (s *Store) Close() error { return s.db.Close() }

// Put persists plan under key (typically a planner.Cache-style content
// hash of the planning inputs; planner.Plan.Fingerprint hashes only a
// plan's converter-id sequence).
func (s *Store) Put(key string, plan *planner.Plan) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(record{
		Steps:           plan.Steps,
		FinalProperties: plan.FinalProperties,
		Score:           plan.Score,
	}); err != nil {
		return fmt.Errorf("planstore: encode: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), buf.Bytes())
	})
}

// Get retrieves a previously stored plan for key.
func (s *Store) Get(key string) (*planner.Plan, bool, error) {
	var rec record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&rec)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("planstore: get: %w", err)
	}
	return &planner.Plan{Steps: rec.Steps, FinalProperties: rec.FinalProperties, Score: rec.Score}, true, nil
}

// Size reports the on-disk size of the store, as a human-readable string
// (e.g. "4.2 MB").
func (s *Store) Size() string {
	lsm, vlog := s.db.Size()
	return humanize.Bytes(uint64(lsm + vlog))
}

// record is the gob-serializable shape of a planner.Plan.
type record struct {
	Steps           []planner.PlanStep
	FinalProperties cambium.Properties
	Score           float64
}
