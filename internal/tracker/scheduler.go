package tracker

import (
	"context"
	"fmt"
	"time"

	"solana-tx-monitor/internal/domain"
	"solana-tx-monitor/internal/errreport"
	"solana-tx-monitor/internal/solana"
)

// lamportsPerSOL converts lamport amounts to SOL.
const lamportsPerSOL = 1e9

// logExcerptMax caps how many log lines enrichment copies onto an entry.
const logExcerptMax = 5

// runScheduler drives confirmation polling until Dispose.
func (t *Tracker) runScheduler() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.pollCycle()
		}
	}
}

// pollCycle polls every armed PENDING entry once, in a single batched
// status call.
func (t *Tracker) pollCycle() {
	if t.metrics != nil {
		t.metrics.PollCyclesTotal.Inc()
	}

	t.mu.Lock()
	ids := make([]string, 0, len(t.polls))
	sigs := make([]string, 0, len(t.polls))
	for id := range t.polls {
		e, ok := t.entries[id]
		if !ok || e.Status != domain.TxStatusPending {
			// Cleared or already terminal; drop the stale poll.
			delete(t.polls, id)
			continue
		}
		ids = append(ids, id)
		sigs = append(sigs, e.Signature)
	}
	t.mu.Unlock()

	if len(ids) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()

	statuses, err := t.rpc.GetSignatureStatuses(ctx, sigs)
	if err != nil {
		for i, id := range ids {
			t.applyPollError(id, sigs[i], err)
		}
		return
	}

	for i, id := range ids {
		var status *solana.SignatureStatus
		if i < len(statuses) {
			status = statuses[i]
		}
		t.applyPoll(ctx, id, sigs[i], status)
	}
}

// applyPoll advances one entry by one poll result. A nil status means
// the node has no record of the signature yet.
func (t *Tracker) applyPoll(ctx context.Context, id, sig string, status *solana.SignatureStatus) {
	switch {
	case status == nil:
		t.applyNoRecord(id, sig)
	case status.Failed():
		t.applyFailed(id, sig, status)
	default:
		t.applyConfirmed(ctx, id, sig, status)
	}
}

// applyNoRecord consumes one attempt; at the cap the entry expires.
func (t *Tracker) applyNoRecord(id, sig string) {
	t.mu.Lock()
	e, ps := t.pollTargetLocked(id)
	if e == nil {
		t.mu.Unlock()
		return
	}
	ps.attempts++
	if ps.attempts < t.opts.MaxPollAttempts {
		t.mu.Unlock()
		return
	}
	clone := t.expireLocked(e, ps.attempts)
	t.mu.Unlock()

	t.log.Warnw("transaction expired",
		"id", id,
		"signature", sig,
		"polls", t.opts.MaxPollAttempts,
	)
	t.notify(clone)
	t.archiveEntry(clone)
}

// applyFailed settles a node-reported execution failure.
func (t *Tracker) applyFailed(id, sig string, status *solana.SignatureStatus) {
	t.mu.Lock()
	e, _ := t.pollTargetLocked(id)
	if e == nil {
		t.mu.Unlock()
		return
	}
	msg := fmt.Sprintf("transaction failed: %v", status.Err)
	e.Error = &msg
	e.Confirmations = cloneInt64(status.Confirmations)
	t.transitionLocked(e, domain.TxStatusFailed)
	clone := e.Clone()
	t.mu.Unlock()

	t.log.Infow("transaction failed",
		"id", id,
		"signature", sig,
		"error", msg,
	)
	t.notify(clone)
	t.archiveEntry(clone)
}

// applyConfirmed settles the entry as CONFIRMED, notifies listeners,
// and then enriches it best-effort with fee and transfer detail.
// Enrichment never reverts the confirmed status and never re-notifies.
func (t *Tracker) applyConfirmed(ctx context.Context, id, sig string, status *solana.SignatureStatus) {
	now := time.Now().UnixMilli()

	t.mu.Lock()
	e, _ := t.pollTargetLocked(id)
	if e == nil {
		t.mu.Unlock()
		return
	}
	slot := status.Slot
	e.Slot = &slot
	e.Confirmations = cloneInt64(status.Confirmations)
	e.ConfirmedAt = &now
	t.transitionLocked(e, domain.TxStatusConfirmed)
	clone := e.Clone()
	latency, _ := e.ConfirmationLatencyMs()
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.ConfirmationLatency.Observe(float64(latency) / 1000)
	}
	t.log.Infow("transaction confirmed",
		"id", id,
		"signature", sig,
		"slot", slot,
		"latencyMs", latency,
	)
	t.notify(clone)
	t.enrich(ctx, id, sig)

	t.mu.RLock()
	final := t.entries[id].Clone()
	t.mu.RUnlock()
	if final == nil {
		// Cleared during enrichment; archive the pre-enrichment state.
		final = clone
	}
	t.archiveEntry(final)
}

// applyPollError accounts one errored poll for one entry. The failure
// is reported with severity scaled to the transaction type, and the
// attempt still counts: a node that keeps erroring must not keep an
// entry PENDING past the timeout budget.
func (t *Tracker) applyPollError(id, sig string, err error) {
	t.mu.Lock()
	e, ps := t.pollTargetLocked(id)
	if e == nil {
		t.mu.Unlock()
		return
	}
	severity := errreport.SeverityMedium
	if e.Type.Critical() {
		severity = errreport.SeverityHigh
	}
	ps.attempts++
	expired := ps.attempts >= t.opts.MaxPollAttempts
	var clone *domain.TransactionEntry
	if expired {
		clone = t.expireLocked(e, ps.attempts)
	}
	t.mu.Unlock()

	t.reporter.Report(err, errreport.KindRPC, severity, map[string]string{
		"stage":     "poll",
		"signature": sig,
	})
	if expired {
		t.log.Warnw("transaction expired",
			"id", id,
			"signature", sig,
			"polls", t.opts.MaxPollAttempts,
		)
		t.notify(clone)
		t.archiveEntry(clone)
	}
}

// enrich fills fee, amount, and log detail from the full transaction
// record. Failures are reported at low severity and swallowed: a
// confirmed transaction with missing detail beats a reverted one.
func (t *Tracker) enrich(ctx context.Context, id, sig string) {
	tx, err := t.rpc.GetTransaction(ctx, sig)
	if err != nil {
		t.reporter.Report(err, errreport.KindRPC, errreport.SeverityLow, map[string]string{
			"stage":     "enrichment",
			"signature": sig,
		})
		t.log.Warnw("transaction detail enrichment failed",
			"id", id,
			"signature", sig,
			"error", err,
		)
		return
	}
	if tx == nil || tx.Meta == nil {
		return
	}

	fee := float64(tx.Meta.Fee) / lamportsPerSOL
	var amount *float64
	if len(tx.Meta.PreBalances) > 0 && len(tx.Meta.PostBalances) > 0 {
		// The fee payer's balance delta approximates the moved amount.
		// Composite transactions have no single exact amount without
		// instruction parsing, and the delta includes the fee.
		delta := (float64(tx.Meta.PreBalances[0]) - float64(tx.Meta.PostBalances[0])) / lamportsPerSOL
		amount = &delta
	}
	var logs []string
	if n := len(tx.Meta.LogMessages); n > 0 {
		if n > logExcerptMax {
			n = logExcerptMax
		}
		logs = append(logs, tx.Meta.LogMessages[:n]...)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return
	}
	e.Fee = &fee
	if amount != nil {
		e.Amount = amount
	}
	if len(logs) > 0 {
		if e.Metadata == nil {
			e.Metadata = &domain.Metadata{}
		}
		e.Metadata.Logs = logs
	}
}

// pollTargetLocked returns the armed PENDING entry for id, or nil if it
// was cleared or resolved since the poll batch was collected. Callers
// hold t.mu.
func (t *Tracker) pollTargetLocked(id string) (*domain.TransactionEntry, *pollState) {
	ps, ok := t.polls[id]
	if !ok {
		return nil, nil
	}
	e, ok := t.entries[id]
	if !ok || e.Status != domain.TxStatusPending {
		delete(t.polls, id)
		return nil, nil
	}
	return e, ps
}

// transitionLocked moves a PENDING entry to a terminal status and
// disarms its poll. The guard keeps terminal statuses final even if a
// stray late poll result slips through. Callers hold t.mu.
func (t *Tracker) transitionLocked(e *domain.TransactionEntry, next domain.TxStatus) {
	if !e.Status.CanTransition(next) {
		t.log.Errorw("illegal status transition dropped",
			"id", e.ID,
			"from", e.Status.String(),
			"to", next.String(),
		)
		return
	}
	t.counts[e.Status]--
	e.Status = next
	t.counts[next]++
	delete(t.polls, e.ID)
	if t.metrics != nil {
		t.metrics.RecordTransition(e.Type.String(), next.String())
	}
	t.syncGaugesLocked()
}

// expireLocked transitions e to EXPIRED after its attempt budget is
// spent and returns the clone to notify with. Callers hold t.mu.
func (t *Tracker) expireLocked(e *domain.TransactionEntry, attempts int) *domain.TransactionEntry {
	msg := fmt.Sprintf("confirmation timeout: no status after %d polls", attempts)
	e.Error = &msg
	t.transitionLocked(e, domain.TxStatusExpired)
	return e.Clone()
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
