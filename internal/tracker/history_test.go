package tracker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-tx-monitor/internal/domain"
	"solana-tx-monitor/internal/solana/stub"
	"solana-tx-monitor/internal/storage/memory"
)

// newQueryTracker builds an unstarted tracker pre-seeded with entries for
// exercising the read-side APIs without any polling.
func newQueryTracker(t *testing.T, entries ...*domain.TransactionEntry) *Tracker {
	t.Helper()
	tr, err := NewTracker(idleOptions(), stub.NewRPCClient(), memory.NewSnapshotStore(), nil, nil, nil, nil)
	require.NoError(t, err)

	tr.mu.Lock()
	for _, e := range entries {
		tr.entries[e.ID] = e
		tr.counts[e.Status]++
	}
	tr.mu.Unlock()
	return tr
}

func histEntry(id string, createdAt int64) *domain.TransactionEntry {
	return &domain.TransactionEntry{
		ID:        id,
		Signature: "sig-" + id,
		Type:      domain.TxTypeTransfer,
		Status:    domain.TxStatusPending,
		CreatedAt: createdAt,
		From:      "sender",
	}
}

func TestHistory_DefaultOrderNewestFirst(t *testing.T) {
	tr := newQueryTracker(t,
		histEntry("a", 1000),
		histEntry("b", 3000),
		histEntry("c", 2000),
	)

	got := tr.History(nil, nil, 0, 0)
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
	assert.Equal(t, "a", got[2].ID)
}

func TestHistory_FilterIsConjunctive(t *testing.T) {
	confirmedSwap := histEntry("a", 1000)
	confirmedSwap.Type = domain.TxTypeSwap
	confirmedSwap.Status = domain.TxStatusConfirmed

	failedSwap := histEntry("b", 2000)
	failedSwap.Type = domain.TxTypeSwap
	failedSwap.Status = domain.TxStatusFailed

	tr := newQueryTracker(t, confirmedSwap, failedSwap, histEntry("c", 3000))

	got := tr.History(&domain.TransactionFilter{
		Types:    []domain.TxType{domain.TxTypeSwap},
		Statuses: []domain.TxStatus{domain.TxStatusConfirmed},
	}, nil, 0, 0)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestHistory_FilterByStatus(t *testing.T) {
	entries := []*domain.TransactionEntry{
		histEntry("a", 1000), histEntry("b", 2000), histEntry("c", 3000),
		histEntry("d", 4000), histEntry("e", 5000),
	}
	for _, e := range entries {
		e.Status = domain.TxStatusConfirmed
	}
	entries[0].Status = domain.TxStatusFailed
	entries[3].Status = domain.TxStatusFailed

	tr := newQueryTracker(t, entries...)

	got := tr.History(&domain.TransactionFilter{
		Statuses: []domain.TxStatus{domain.TxStatusFailed},
	}, nil, 0, 0)
	require.Len(t, got, 2)
	assert.Equal(t, "d", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestHistory_FilterByAddress(t *testing.T) {
	sent := histEntry("a", 1000)
	sent.From = "bob"

	received := histEntry("b", 2000)
	to := "bob"
	received.To = &to

	tr := newQueryTracker(t, sent, received, histEntry("c", 3000))

	got := tr.History(&domain.TransactionFilter{Address: "bob"}, nil, 0, 0)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestHistory_FilterByTimeRange(t *testing.T) {
	tr := newQueryTracker(t,
		histEntry("a", 1000),
		histEntry("b", 2000),
		histEntry("c", 3000),
	)

	got := tr.History(&domain.TransactionFilter{StartTime: 2000, EndTime: 3000}, nil, 0, 0)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestHistory_FilterByAmountRange(t *testing.T) {
	small := histEntry("a", 1000)
	one := 1.0
	small.Amount = &one

	large := histEntry("b", 2000)
	five := 5.0
	large.Amount = &five

	// No amount recorded, so amount bounds never match it.
	unknown := histEntry("c", 3000)

	tr := newQueryTracker(t, small, large, unknown)

	min := 2.0
	got := tr.History(&domain.TransactionFilter{MinAmount: &min}, nil, 0, 0)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)

	max := 2.0
	got = tr.History(&domain.TransactionFilter{MaxAmount: &max}, nil, 0, 0)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestHistory_SortByAmountNilsFirst(t *testing.T) {
	small := histEntry("a", 1000)
	one := 1.0
	small.Amount = &one

	large := histEntry("b", 2000)
	five := 5.0
	large.Amount = &five

	unknown := histEntry("c", 3000)

	tr := newQueryTracker(t, small, large, unknown)

	got := tr.History(nil, &domain.SortOptions{Field: domain.SortFieldAmount, Direction: domain.SortAsc}, 0, 0)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, "b", got[2].ID)

	got = tr.History(nil, &domain.SortOptions{Field: domain.SortFieldAmount, Direction: domain.SortDesc}, 0, 0)
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, "c", got[2].ID)
}

func TestHistory_Pagination(t *testing.T) {
	tr := newQueryTracker(t,
		histEntry("a", 1000),
		histEntry("b", 2000),
		histEntry("c", 3000),
		histEntry("d", 4000),
	)

	page := tr.History(nil, nil, 2, 0)
	require.Len(t, page, 2)
	assert.Equal(t, "d", page[0].ID)
	assert.Equal(t, "c", page[1].ID)

	page = tr.History(nil, nil, 2, 2)
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].ID)
	assert.Equal(t, "a", page[1].ID)

	assert.Empty(t, tr.History(nil, nil, 2, 10))
	assert.Len(t, tr.History(nil, nil, 0, 0), 4)
	assert.Len(t, tr.History(nil, nil, 0, 3), 1)
}

func TestHistory_ReturnsClones(t *testing.T) {
	tr := newQueryTracker(t, histEntry("a", 1000))

	got := tr.History(nil, nil, 0, 0)
	require.Len(t, got, 1)
	got[0].From = "tampered"

	assert.Equal(t, "sender", tr.Get("a").From)
}

func TestGet(t *testing.T) {
	tr := newQueryTracker(t, histEntry("a", 1000))

	assert.Nil(t, tr.Get("missing"))

	got := tr.Get("a")
	require.NotNil(t, got)
	got.From = "tampered"
	assert.Equal(t, "sender", tr.Get("a").From)
}

func TestStatistics_PartitionConservation(t *testing.T) {
	confirmed := histEntry("a", 1000)
	confirmed.Status = domain.TxStatusConfirmed
	amt := 2.5
	confirmed.Amount = &amt

	failed := histEntry("b", 2000)
	failed.Status = domain.TxStatusFailed

	expired := histEntry("c", 3000)
	expired.Status = domain.TxStatusExpired

	tr := newQueryTracker(t, confirmed, failed, expired, histEntry("d", 4000))

	stats := tr.Statistics(nil)
	assert.Equal(t, 4, stats.TotalTransactions)
	assert.Equal(t, stats.TotalTransactions,
		stats.SuccessfulTransactions+stats.FailedTransactions+stats.PendingTransactions)
	assert.Equal(t, 1, stats.SuccessfulTransactions)
	assert.Equal(t, 2, stats.FailedTransactions) // FAILED and EXPIRED both count
	assert.Equal(t, 1, stats.PendingTransactions)
	assert.Equal(t, 2.5, stats.TotalVolume)

	// Filtered statistics stay conserved over the subset.
	sub := tr.Statistics(&domain.TransactionFilter{
		Statuses: []domain.TxStatus{domain.TxStatusFailed, domain.TxStatusExpired},
	})
	assert.Equal(t, 2, sub.TotalTransactions)
	assert.Equal(t, sub.TotalTransactions,
		sub.SuccessfulTransactions+sub.FailedTransactions+sub.PendingTransactions)
}

func TestExportCSV(t *testing.T) {
	tr := newQueryTracker(t)

	out := tr.ExportCSV(nil)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.True(t, strings.HasPrefix(out, `"id","signature"`))

	tr = newQueryTracker(t, histEntry("a", 1000), histEntry("b", 2000))
	out = tr.ExportCSV(nil)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)

	// Rows follow the default newest-first ordering.
	assert.Contains(t, lines[1], `"b"`)
	assert.Contains(t, lines[2], `"a"`)
}
