package postgres

import (
	"context"
	"fmt"

	"solana-tx-monitor/internal/storage"
)

// SnapshotStore is a Postgres-backed implementation of storage.SnapshotStore.
// A snapshot is one row per tracker instance, so a keyed table with upsert
// semantics is all this needs.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a snapshot store backed by the given pool.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Get retrieves the blob stored under key. Returns ErrNotFound if the key
// has never been written.
func (s *SnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `SELECT value FROM tracker_snapshots WHERE key = $1`

	var value []byte
	err := s.pool.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot %s: %w", key, err)
	}

	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *SnapshotStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tracker_snapshots (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := s.pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("set snapshot %s: %w", key, err)
	}

	return nil
}
