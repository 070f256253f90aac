// Package tracker follows submitted Solana transactions from PENDING to
// exactly one terminal status by polling signature statuses against the
// node, keeps a bounded in-memory history with query and export APIs,
// and snapshots the history for restart recovery.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-tx-monitor/internal/domain"
	"solana-tx-monitor/internal/errreport"
	"solana-tx-monitor/internal/idhash"
	"solana-tx-monitor/internal/observability"
	"solana-tx-monitor/internal/solana"
	"solana-tx-monitor/internal/storage"
)

// ErrNotRunning is returned for calls made before Start or after Dispose.
var ErrNotRunning = errors.New("tracker is not running")

// RPC is the subset of the Solana client the tracker needs. Both the
// raw HTTP client and the connection manager satisfy it.
type RPC interface {
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*solana.SignatureStatus, error)
	GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error)
}

// Listener receives a snapshot clone after every status transition,
// including the initial PENDING one. Listeners run synchronously on the
// tracker's goroutine; a panicking listener is isolated and logged.
type Listener func(e *domain.TransactionEntry)

// listenerReg gives each registration an identity so OnTransition can
// hand back a working unsubscribe even when the same func is registered
// twice.
type listenerReg struct {
	fn Listener
}

// pollState is the polling bookkeeping for one PENDING entry. It is
// deliberately not persisted: a reloaded entry gets a fresh attempt
// budget when RetryPending re-arms it.
type pollState struct {
	attempts int
}

// trackedStatuses drives the per-status gauge updates.
var trackedStatuses = []domain.TxStatus{
	domain.TxStatusPending,
	domain.TxStatusConfirmed,
	domain.TxStatusFailed,
	domain.TxStatusExpired,
}

// Tracker owns the tracked-transaction map and its single polling
// scheduler. One scheduler tick polls every armed entry in one batched
// status call rather than running a timer per transaction, which keeps
// the timer count constant regardless of load.
type Tracker struct {
	opts      Options
	rpc       RPC
	snapshots storage.SnapshotStore
	archive   storage.ArchiveStore // optional terminal-entry mirror
	reporter  errreport.Reporter
	metrics   *observability.Metrics
	log       *zap.SugaredLogger

	mu        sync.RWMutex
	entries   map[string]*domain.TransactionEntry
	polls     map[string]*pollState
	listeners []*listenerReg
	counts    map[domain.TxStatus]int
	nonce     uint64
	started   bool
	disposed  bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewTracker creates a tracker around the given collaborators. The
// archive store, reporter, metrics, and logger may be nil; archiving is
// skipped when no archive store is configured. No I/O happens until
// Start.
func NewTracker(opts Options, rpc RPC, snapshots storage.SnapshotStore, archive storage.ArchiveStore, reporter errreport.Reporter, metrics *observability.Metrics, log *zap.SugaredLogger) (*Tracker, error) {
	if rpc == nil {
		return nil, fmt.Errorf("rpc client is required")
	}
	if snapshots == nil {
		return nil, fmt.Errorf("snapshot store is required")
	}
	opts = opts.withDefaults()
	if reporter == nil {
		reporter = errreport.Nop{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Tracker{
		opts:      opts,
		rpc:       rpc,
		snapshots: snapshots,
		archive:   archive,
		reporter:  reporter,
		metrics:   metrics,
		log:       log,
		entries:   make(map[string]*domain.TransactionEntry),
		polls:     make(map[string]*pollState),
		counts:    make(map[domain.TxStatus]int),
		done:      make(chan struct{}),
	}, nil
}

// Start loads the persisted snapshot and then launches the polling
// scheduler and the periodic snapshot flusher. The load completes
// before the tracker accepts transactions. Reloaded PENDING entries are
// not polled until RetryPending re-arms them, because poll timers are
// not part of the snapshot.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return ErrNotRunning
	}
	if t.started {
		t.mu.Unlock()
		return fmt.Errorf("tracker already started")
	}
	t.mu.Unlock()

	if err := t.load(ctx); err != nil {
		return err
	}

	t.mu.Lock()
	t.started = true
	t.mu.Unlock()

	t.wg.Add(2)
	go t.runScheduler()
	go t.runPersistence()

	t.log.Infow("tracker started",
		"pollInterval", t.opts.PollInterval,
		"maxPollAttempts", t.opts.MaxPollAttempts,
		"persistInterval", t.opts.PersistInterval,
		"maxHistorySize", t.opts.MaxHistorySize,
	)
	return nil
}

// AddTransaction registers a transaction for confirmation tracking and
// returns a snapshot of the created PENDING entry. Listeners observe
// the PENDING state synchronously before AddTransaction returns; the
// first status poll happens on the next scheduler tick.
func (t *Tracker) AddTransaction(signature string, txType domain.TxType, from string, metadata *domain.Metadata) (*domain.TransactionEntry, error) {
	if err := solana.ValidateSignature(signature); err != nil {
		return nil, fmt.Errorf("invalid signature: %w", err)
	}
	if !txType.IsValid() {
		return nil, fmt.Errorf("invalid transaction type %q", txType)
	}

	t.mu.Lock()
	if !t.started || t.disposed {
		t.mu.Unlock()
		return nil, ErrNotRunning
	}
	now := time.Now().UnixMilli()
	t.nonce++
	entry := &domain.TransactionEntry{
		ID:        idhash.ComputeEntryID(signature, now, t.nonce),
		Signature: signature,
		Type:      txType,
		Status:    domain.TxStatusPending,
		CreatedAt: now,
		From:      from,
		Metadata:  metadata.Clone(),
	}
	t.entries[entry.ID] = entry
	t.polls[entry.ID] = &pollState{}
	t.counts[domain.TxStatusPending]++
	if t.metrics != nil {
		t.metrics.RecordTransition(entry.Type.String(), entry.Status.String())
	}
	t.syncGaugesLocked()
	clone := entry.Clone()
	t.mu.Unlock()

	t.log.Debugw("transaction tracked",
		"id", clone.ID,
		"signature", signature,
		"type", txType.String(),
	)
	t.notify(clone)
	return clone, nil
}

// OnTransition registers a listener for every subsequent status
// transition and returns an unsubscribe function. Unsubscribe is safe
// to call more than once; transitions dispatched after it returns no
// longer reach the listener.
func (t *Tracker) OnTransition(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	reg := &listenerReg{fn: fn}
	t.mu.Lock()
	t.listeners = append(t.listeners, reg)
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, r := range t.listeners {
			if r == reg {
				t.listeners = append(t.listeners[:i], t.listeners[i+1:]...)
				return
			}
		}
	}
}

// RetryPending re-arms polling for every PENDING entry that has no
// active poll, typically after a snapshot reload. Entries already being
// polled and terminal entries are left alone, so repeated calls are
// harmless. It returns the number of entries re-armed.
func (t *Tracker) RetryPending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started || t.disposed {
		return 0
	}

	n := 0
	for id, e := range t.entries {
		if e.Status != domain.TxStatusPending {
			continue
		}
		if _, armed := t.polls[id]; armed {
			continue
		}
		t.polls[id] = &pollState{}
		n++
	}
	if n > 0 {
		t.log.Infow("re-armed pending transactions", "count", n)
	}
	return n
}

// Dispose stops the scheduler and flusher, waits for in-flight work,
// and writes a final snapshot. Repeat calls are no-ops.
func (t *Tracker) Dispose() error {
	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return nil
	}
	t.disposed = true
	started := t.started
	t.mu.Unlock()

	close(t.done)
	t.wg.Wait()

	if !started {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := t.flush(ctx); err != nil {
		return fmt.Errorf("final snapshot: %w", err)
	}
	t.log.Infow("tracker disposed")
	return nil
}

// notify hands a per-listener clone to every registered listener, in
// registration order. Per-listener clones keep one listener's mutations
// invisible to the next.
func (t *Tracker) notify(e *domain.TransactionEntry) {
	t.mu.RLock()
	regs := make([]*listenerReg, len(t.listeners))
	copy(regs, t.listeners)
	t.mu.RUnlock()

	for _, r := range regs {
		t.invoke(r.fn, e.Clone())
	}
}

// invoke runs one listener, recovering a panic so the remaining
// listeners and the scheduler keep running.
func (t *Tracker) invoke(fn Listener, e *domain.TransactionEntry) {
	defer func() {
		if r := recover(); r != nil {
			if t.metrics != nil {
				t.metrics.ListenerPanics.Inc()
			}
			t.log.Errorw("transaction listener panicked",
				"id", e.ID,
				"panic", r,
			)
		}
	}()
	fn(e)
}

// syncGaugesLocked pushes the per-status entry counts to the metrics
// gauges. Callers hold t.mu.
func (t *Tracker) syncGaugesLocked() {
	if t.metrics == nil {
		return
	}
	for _, s := range trackedStatuses {
		t.metrics.SetTrackedTransactions(s.String(), t.counts[s])
	}
}
