package domain

// TransactionEntry represents one tracked transaction and its observed
// outcome. Entries are persisted as a JSON array snapshot, so every field
// carries a json tag.
type TransactionEntry struct {
	ID            string    `json:"id"`                      // unique, generated at creation, never reused
	Signature     string    `json:"signature"`               // Solana transaction signature, immutable
	Type          TxType    `json:"type"`                    // SWAP | TRANSFER | STAKE | ...
	Status        TxStatus  `json:"status"`                  // PENDING until exactly one terminal transition
	CreatedAt     int64     `json:"createdAt"`               // Unix timestamp in milliseconds, immutable
	From          string    `json:"from"`                    // sender address
	To            *string   `json:"to,omitempty"`            // recipient address (nullable)
	Amount        *float64  `json:"amount,omitempty"`        // transferred amount (nullable, heuristic for composite txs)
	Token         *string   `json:"token,omitempty"`         // token symbol or mint (nullable)
	Fee           *float64  `json:"fee,omitempty"`           // fee in SOL (nullable, filled on enrichment)
	Slot          *int64    `json:"slot,omitempty"`          // slot of inclusion (nullable)
	Confirmations *int64    `json:"confirmations,omitempty"` // confirmation count (nullable)
	Error         *string   `json:"error,omitempty"`         // node-reported or timeout error (nullable)
	ConfirmedAt   *int64    `json:"confirmedAt,omitempty"`   // Unix ms of the CONFIRMED transition (nullable)
	Metadata      *Metadata `json:"metadata,omitempty"`      // per-type payload (nullable)
}

// ConfirmationLatencyMs returns the observed creation-to-confirmation
// latency, or false if the entry never recorded a confirmation time.
func (e *TransactionEntry) ConfirmationLatencyMs() (int64, bool) {
	if e.ConfirmedAt == nil {
		return 0, false
	}
	return *e.ConfirmedAt - e.CreatedAt, true
}

// Clone returns a deep copy of the entry. Callers hand clones to listeners
// and stores so later mutations by the polling task stay invisible.
func (e *TransactionEntry) Clone() *TransactionEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.To = clonePtr(e.To)
	c.Amount = clonePtr(e.Amount)
	c.Token = clonePtr(e.Token)
	c.Fee = clonePtr(e.Fee)
	c.Slot = clonePtr(e.Slot)
	c.Confirmations = clonePtr(e.Confirmations)
	c.Error = clonePtr(e.Error)
	c.ConfirmedAt = clonePtr(e.ConfirmedAt)
	c.Metadata = e.Metadata.Clone()
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
