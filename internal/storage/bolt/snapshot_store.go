package bolt

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"solana-tx-monitor/internal/storage"
)

var snapshotBucket = []byte("snapshots")

// SnapshotStore is a bbolt-backed implementation of storage.SnapshotStore.
// One file, no server; the default backend for single-process deployments.
type SnapshotStore struct {
	db *bbolt.DB
}

// NewSnapshotStore opens (or creates) the database file at path.
func NewSnapshotStore(path string) (*SnapshotStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(snapshotBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create snapshot bucket: %w", err)
	}

	return &SnapshotStore{db: db}, nil
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Get retrieves the blob stored under key. Returns ErrNotFound if the key
// has never been written.
func (s *SnapshotStore) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, storage.ErrInvalidInput
	}

	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(snapshotBucket).Get([]byte(key))
		if v == nil {
			return storage.ErrNotFound
		}
		// Bolt values are only valid for the lifetime of the transaction.
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Set stores value under key, replacing any previous value.
func (s *SnapshotStore) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(snapshotBucket).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("put snapshot %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying database file.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}
