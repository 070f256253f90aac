package clickhouse

import (
	"context"
	"fmt"

	"solana-tx-monitor/internal/domain"
	"solana-tx-monitor/internal/storage"
)

// ArchiveStore implements storage.ArchiveStore using ClickHouse.
type ArchiveStore struct {
	conn *Conn
}

// NewArchiveStore creates a new ArchiveStore.
func NewArchiveStore(conn *Conn) *ArchiveStore {
	return &ArchiveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ArchiveStore = (*ArchiveStore)(nil)

// Insert adds a single archived entry. Returns ErrDuplicateKey if an entry
// with the same ID was already archived.
func (s *ArchiveStore) Insert(ctx context.Context, e *domain.TransactionEntry) error {
	if e == nil || e.ID == "" {
		return storage.ErrInvalidInput
	}

	// Check if exists (MergeTree does not enforce uniqueness at insert time)
	exists, err := s.exists(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO transactions_archive (
			id, signature, type, status, created_at, from_address,
			to_address, amount, token, fee,
			slot, confirmations, error, confirmed_at
		) VALUES (
			?, ?, ?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?
		)
	`

	err = s.conn.Exec(ctx, query,
		e.ID, e.Signature, string(e.Type), string(e.Status), e.CreatedAt, e.From,
		e.To, e.Amount, e.Token, e.Fee,
		e.Slot, e.Confirmations, e.Error, e.ConfirmedAt,
	)
	if err != nil {
		return fmt.Errorf("insert archive entry: %w", err)
	}
	return nil
}

// InsertBulk adds multiple entries in one batch. Fails the entire batch if
// any entry ID was already archived.
func (s *ArchiveStore) InsertBulk(ctx context.Context, entries []*domain.TransactionEntry) error {
	if len(entries) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{})
	for _, e := range entries {
		if e == nil || e.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[e.ID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[e.ID] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, e := range entries {
		exists, err := s.exists(ctx, e.ID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO transactions_archive (
			id, signature, type, status, created_at, from_address,
			to_address, amount, token, fee,
			slot, confirmations, error, confirmed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range entries {
		err = batch.Append(
			e.ID, e.Signature, string(e.Type), string(e.Status), e.CreatedAt, e.From,
			e.To, e.Amount, e.Token, e.Fee,
			e.Slot, e.Confirmations, e.Error, e.ConfirmedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySignature retrieves archived entries for a signature, newest first.
func (s *ArchiveStore) GetBySignature(ctx context.Context, signature string) ([]*domain.TransactionEntry, error) {
	if signature == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT
			id, signature, type, status, created_at, from_address,
			to_address, amount, token, fee,
			slot, confirmations, error, confirmed_at
		FROM transactions_archive
		WHERE signature = ?
		ORDER BY created_at DESC
	`

	rows, err := s.conn.Query(ctx, query, signature)
	if err != nil {
		return nil, fmt.Errorf("query by signature: %w", err)
	}
	defer rows.Close()

	return scanArchiveEntries(rows)
}

// GetByTimeRange retrieves entries created within [start, end] (inclusive),
// ordered by creation time ASC.
func (s *ArchiveStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TransactionEntry, error) {
	query := `
		SELECT
			id, signature, type, status, created_at, from_address,
			to_address, amount, token, fee,
			slot, confirmations, error, confirmed_at
		FROM transactions_archive
		WHERE created_at >= ? AND created_at <= ?
		ORDER BY created_at ASC
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanArchiveEntries(rows)
}

// CountByStatus returns the number of archived entries per terminal status.
func (s *ArchiveStore) CountByStatus(ctx context.Context) (map[domain.TxStatus]int64, error) {
	query := `SELECT status, count(*) FROM transactions_archive GROUP BY status`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.TxStatus]int64)
	for rows.Next() {
		var (
			status string
			count  uint64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count row: %w", err)
		}
		counts[domain.TxStatus(status)] = int64(count)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate count rows: %w", err)
	}

	return counts, nil
}

// exists checks if an entry with the given ID was already archived.
func (s *ArchiveStore) exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT count(*) FROM transactions_archive WHERE id = ?`

	var count uint64
	err := s.conn.QueryRow(ctx, query, id).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanArchiveEntries scans multiple rows into a slice.
func scanArchiveEntries(rows chRows) ([]*domain.TransactionEntry, error) {
	var entries []*domain.TransactionEntry

	for rows.Next() {
		var (
			e      domain.TransactionEntry
			txType string
			status string
		)
		err := rows.Scan(
			&e.ID, &e.Signature, &txType, &status, &e.CreatedAt, &e.From,
			&e.To, &e.Amount, &e.Token, &e.Fee,
			&e.Slot, &e.Confirmations, &e.Error, &e.ConfirmedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		e.Type = domain.TxType(txType)
		e.Status = domain.TxStatus(status)
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive rows: %w", err)
	}

	return entries, nil
}
