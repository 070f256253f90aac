package storage

import (
	"context"

	"solana-tx-monitor/internal/domain"
)

// SnapshotStore is a keyed blob store for tracker state. The tracker
// serializes its history as a single JSON array and writes it under one
// key, replacing the previous snapshot on every flush.
type SnapshotStore interface {
	// Get retrieves the blob stored under key. Returns ErrNotFound if the
	// key has never been written.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
}

// ArchiveStore provides access to the terminal-transaction archive.
// Entries are written once, after a transaction reaches CONFIRMED, FAILED
// or EXPIRED, and queried for offline analysis.
type ArchiveStore interface {
	// Insert adds a single archived entry. Returns ErrDuplicateKey if an
	// entry with the same ID was already archived.
	Insert(ctx context.Context, e *domain.TransactionEntry) error

	// InsertBulk adds multiple entries in one batch. Fails the entire
	// batch if any entry ID was already archived.
	InsertBulk(ctx context.Context, entries []*domain.TransactionEntry) error

	// GetBySignature retrieves archived entries for a signature, newest first.
	// The same signature may have been tracked more than once.
	GetBySignature(ctx context.Context, signature string) ([]*domain.TransactionEntry, error)

	// GetByTimeRange retrieves entries created within [start, end] (inclusive,
	// Unix milliseconds), ordered by creation time ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TransactionEntry, error)

	// CountByStatus returns the number of archived entries per terminal status.
	CountByStatus(ctx context.Context) (map[domain.TxStatus]int64, error)
}
