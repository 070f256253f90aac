package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"solana-tx-monitor/internal/domain"
	"solana-tx-monitor/internal/errreport"
	"solana-tx-monitor/internal/storage"
)

// runPersistence flushes the history snapshot on a fixed period until
// Dispose, which then performs the final flush itself.
func (t *Tracker) runPersistence() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.opts.PersistInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			_ = t.flush(ctx) // flush reports its own failures
			cancel()
		}
	}
}

// Flush writes the current history snapshot immediately, outside the
// periodic schedule.
func (t *Tracker) Flush(ctx context.Context) error {
	return t.flush(ctx)
}

// flush persists the retained history as one JSON array under the
// snapshot key, replacing the previous snapshot wholesale. When the map
// has grown past the retention cap the oldest entries are evicted
// first, from memory as well as from the snapshot.
func (t *Tracker) flush(ctx context.Context) error {
	start := time.Now()

	t.mu.Lock()
	t.evictLocked()
	entries := make([]*domain.TransactionEntry, 0, len(t.entries))
	for _, e := range t.entries {
		entries = append(entries, e.Clone())
	}
	t.mu.Unlock()

	// Newest first, matching the default history read order.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt != entries[j].CreatedAt {
			return entries[i].CreatedAt > entries[j].CreatedAt
		}
		return entries[i].ID < entries[j].ID
	})

	data, err := json.Marshal(entries)
	if err == nil {
		err = t.snapshots.Set(ctx, t.opts.SnapshotKey, data)
	}

	if t.metrics != nil {
		t.metrics.RecordSnapshot(time.Since(start).Seconds(), len(entries), err)
	}
	if err != nil {
		t.reporter.Report(err, errreport.KindSystem, errreport.SeverityMedium, map[string]string{
			"stage": "snapshot",
		})
		t.log.Errorw("snapshot flush failed",
			"entries", len(entries),
			"error", err,
		)
		return fmt.Errorf("flush snapshot: %w", err)
	}
	t.log.Debugw("snapshot flushed",
		"entries", len(entries),
		"tookMs", time.Since(start).Milliseconds(),
	)
	return nil
}

// evictLocked drops the oldest entries once the map exceeds the
// retention cap. Evicted PENDING entries are disarmed along the way.
// Callers hold t.mu.
func (t *Tracker) evictLocked() {
	excess := len(t.entries) - t.opts.MaxHistorySize
	if excess <= 0 {
		return
	}

	byAge := make([]*domain.TransactionEntry, 0, len(t.entries))
	for _, e := range t.entries {
		byAge = append(byAge, e)
	}
	sort.Slice(byAge, func(i, j int) bool {
		if byAge[i].CreatedAt != byAge[j].CreatedAt {
			return byAge[i].CreatedAt < byAge[j].CreatedAt
		}
		return byAge[i].ID < byAge[j].ID
	})

	for _, e := range byAge[:excess] {
		delete(t.entries, e.ID)
		delete(t.polls, e.ID)
		t.counts[e.Status]--
	}
	t.syncGaugesLocked()
	t.log.Infow("history cap enforced",
		"evicted", excess,
		"cap", t.opts.MaxHistorySize,
	)
}

// load restores the history from the snapshot store. A missing snapshot
// is a clean first start. An unreadable store fails the start; an
// undecodable snapshot is reported and skipped, since refusing to start
// would not bring the data back. Restored PENDING entries stay disarmed
// until RetryPending.
func (t *Tracker) load(ctx context.Context) error {
	data, err := t.snapshots.Get(ctx, t.opts.SnapshotKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	var entries []*domain.TransactionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.reporter.Report(err, errreport.KindSystem, errreport.SeverityHigh, map[string]string{
			"stage": "snapshot",
		})
		t.log.Errorw("snapshot is not valid JSON, starting empty", "error", err)
		return nil
	}

	t.mu.Lock()
	for _, e := range entries {
		if e == nil || e.ID == "" {
			continue
		}
		t.entries[e.ID] = e
		t.counts[e.Status]++
	}
	t.syncGaugesLocked()
	total := len(t.entries)
	pending := t.counts[domain.TxStatusPending]
	t.mu.Unlock()

	t.log.Infow("snapshot loaded",
		"entries", total,
		"pending", pending,
	)
	return nil
}

// archiveEntry mirrors a terminal entry to the archive store, when one
// is configured. Archive writes are best-effort: failures are reported
// and never touch the tracker's own state.
func (t *Tracker) archiveEntry(e *domain.TransactionEntry) {
	if t.archive == nil || e == nil {
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()

		err := t.archive.Insert(ctx, e)
		if t.metrics != nil {
			t.metrics.RecordArchiveWrite(err)
		}
		if err != nil {
			t.reporter.Report(err, errreport.KindSystem, errreport.SeverityLow, map[string]string{
				"stage": "archive",
				"id":    e.ID,
			})
			t.log.Warnw("archive write failed",
				"id", e.ID,
				"error", err,
			)
		}
	}()
}
