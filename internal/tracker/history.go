package tracker

import (
	"context"
	"sort"
	"time"

	"solana-tx-monitor/internal/domain"
	"solana-tx-monitor/internal/reporting"
)

// Get returns a snapshot of the entry with the given id, or nil when no
// such entry is tracked.
func (t *Tracker) Get(id string) *domain.TransactionEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[id].Clone()
}

// History returns filtered, sorted snapshots of the tracked entries.
// A nil filter matches everything and nil sort options order by creation
// time descending. Pagination applies after sorting; limit <= 0 means no
// limit, and an offset past the end yields an empty result.
func (t *Tracker) History(filter *domain.TransactionFilter, sortOpts *domain.SortOptions, limit, offset int) []*domain.TransactionEntry {
	t.mu.RLock()
	matched := make([]*domain.TransactionEntry, 0, len(t.entries))
	for _, e := range t.entries {
		if filter.Matches(e) {
			matched = append(matched, e.Clone())
		}
	}
	t.mu.RUnlock()

	sortEntries(matched, sortOpts)

	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []*domain.TransactionEntry{}
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end]
}

// Statistics aggregates the filtered history. PENDING entries count
// toward the totals, so successful + failed + pending == total.
func (t *Tracker) Statistics(filter *domain.TransactionFilter) *domain.TransactionStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	matched := make([]*domain.TransactionEntry, 0, len(t.entries))
	for _, e := range t.entries {
		if filter.Matches(e) {
			matched = append(matched, e)
		}
	}
	return domain.ComputeStats(matched)
}

// ExportCSV renders the filtered history as CSV, newest first. An empty
// history still yields the header line.
func (t *Tracker) ExportCSV(filter *domain.TransactionFilter) string {
	return reporting.RenderCSV(t.History(filter, nil, 0, 0))
}

// ClearHistory removes entries created before olderThan, or every entry
// when olderThan is the zero time, then flushes the shrunken snapshot
// immediately. Polling stops for any removed PENDING entry. It returns
// the number of entries removed.
func (t *Tracker) ClearHistory(ctx context.Context, olderThan time.Time) (int, error) {
	var cutoff int64
	if !olderThan.IsZero() {
		cutoff = olderThan.UnixMilli()
	}

	t.mu.Lock()
	removed := 0
	for id, e := range t.entries {
		if cutoff > 0 && e.CreatedAt >= cutoff {
			continue
		}
		delete(t.entries, id)
		delete(t.polls, id)
		t.counts[e.Status]--
		removed++
	}
	t.syncGaugesLocked()
	t.mu.Unlock()

	if removed > 0 {
		t.log.Infow("history cleared", "removed", removed)
	}
	if err := t.flush(ctx); err != nil {
		return removed, err
	}
	return removed, nil
}

// sortEntries orders entries in place. Ties and entries missing the
// sort field fall back to newest-first creation order, which keeps
// paginated windows stable.
func sortEntries(entries []*domain.TransactionEntry, opts *domain.SortOptions) {
	field := domain.SortFieldTimestamp
	direction := domain.SortDesc
	if opts != nil {
		if opts.Field != "" {
			field = opts.Field
		}
		if opts.Direction != "" {
			direction = opts.Direction
		}
	}

	less := func(a, b *domain.TransactionEntry) bool {
		switch field {
		case domain.SortFieldAmount:
			return ltFloat(a.Amount, b.Amount)
		case domain.SortFieldFee:
			return ltFloat(a.Fee, b.Fee)
		case domain.SortFieldStatus:
			return a.Status < b.Status
		case domain.SortFieldType:
			return a.Type < b.Type
		default:
			return a.CreatedAt < b.CreatedAt
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if direction == domain.SortAsc {
			if less(a, b) {
				return true
			}
			if less(b, a) {
				return false
			}
		} else {
			if less(b, a) {
				return true
			}
			if less(a, b) {
				return false
			}
		}
		return a.CreatedAt > b.CreatedAt
	})
}

// ltFloat orders nullable floats with unknown values first, placing
// them at the bottom of a descending sort.
func ltFloat(a, b *float64) bool {
	switch {
	case a == nil && b == nil:
		return false
	case a == nil:
		return true
	case b == nil:
		return false
	default:
		return *a < *b
	}
}
