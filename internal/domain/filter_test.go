package domain

import "testing"

func ptrF(v float64) *float64 { return &v }
func ptrS(v string) *string   { return &v }

func TestTransactionFilter_NilMatchesEverything(t *testing.T) {
	var f *TransactionFilter
	e := &TransactionEntry{ID: "tx-1", Status: TxStatusPending, Type: TxTypeSwap}
	if !f.Matches(e) {
		t.Error("nil filter should match any entry")
	}
}

func TestTransactionFilter_StatusSet(t *testing.T) {
	f := &TransactionFilter{Statuses: []TxStatus{TxStatusFailed, TxStatusExpired}}

	if !f.Matches(&TransactionEntry{Status: TxStatusFailed}) {
		t.Error("FAILED should match")
	}
	if !f.Matches(&TransactionEntry{Status: TxStatusExpired}) {
		t.Error("EXPIRED should match")
	}
	if f.Matches(&TransactionEntry{Status: TxStatusConfirmed}) {
		t.Error("CONFIRMED should not match")
	}
}

func TestTransactionFilter_ConjunctionSemantics(t *testing.T) {
	// All set fields must hold at once.
	f := &TransactionFilter{
		Types:     []TxType{TxTypeSwap},
		Statuses:  []TxStatus{TxStatusConfirmed},
		StartTime: 1000,
		EndTime:   2000,
	}

	e := &TransactionEntry{Type: TxTypeSwap, Status: TxStatusConfirmed, CreatedAt: 1500}
	if !f.Matches(e) {
		t.Error("entry satisfying every condition should match")
	}

	e.CreatedAt = 2500
	if f.Matches(e) {
		t.Error("entry outside the date range should not match")
	}

	e.CreatedAt = 1500
	e.Type = TxTypeTransfer
	if f.Matches(e) {
		t.Error("entry with wrong type should not match")
	}
}

func TestTransactionFilter_DateRangeInclusive(t *testing.T) {
	f := &TransactionFilter{StartTime: 1000, EndTime: 2000}

	if !f.Matches(&TransactionEntry{CreatedAt: 1000}) {
		t.Error("lower bound should be inclusive")
	}
	if !f.Matches(&TransactionEntry{CreatedAt: 2000}) {
		t.Error("upper bound should be inclusive")
	}
	if f.Matches(&TransactionEntry{CreatedAt: 999}) {
		t.Error("entry before the range should not match")
	}
}

func TestTransactionFilter_AddressMatchesFromOrTo(t *testing.T) {
	f := &TransactionFilter{Address: "AddrX"}

	if !f.Matches(&TransactionEntry{From: "AddrX"}) {
		t.Error("sender match expected")
	}
	if !f.Matches(&TransactionEntry{From: "AddrA", To: ptrS("AddrX")}) {
		t.Error("recipient match expected")
	}
	if f.Matches(&TransactionEntry{From: "AddrA", To: ptrS("AddrB")}) {
		t.Error("unrelated entry should not match")
	}
	if f.Matches(&TransactionEntry{From: "AddrA"}) {
		t.Error("entry without recipient should not match")
	}
}

func TestTransactionFilter_AmountRangeExcludesUnknownAmounts(t *testing.T) {
	f := &TransactionFilter{MinAmount: ptrF(1.0), MaxAmount: ptrF(10.0)}

	if !f.Matches(&TransactionEntry{Amount: ptrF(5.0)}) {
		t.Error("in-range amount should match")
	}
	if f.Matches(&TransactionEntry{Amount: ptrF(0.5)}) {
		t.Error("amount below minimum should not match")
	}
	if f.Matches(&TransactionEntry{Amount: ptrF(11.0)}) {
		t.Error("amount above maximum should not match")
	}
	// Entries that never recorded an amount are excluded when a bound is set.
	if f.Matches(&TransactionEntry{}) {
		t.Error("entry without amount should not match an amount-bounded filter")
	}
}

func TestTxStatus_Transitions(t *testing.T) {
	terminals := []TxStatus{TxStatusConfirmed, TxStatusFailed, TxStatusExpired}

	for _, next := range terminals {
		if !TxStatusPending.CanTransition(next) {
			t.Errorf("PENDING -> %s should be legal", next)
		}
	}
	for _, from := range terminals {
		for _, next := range []TxStatus{TxStatusPending, TxStatusConfirmed, TxStatusFailed, TxStatusExpired} {
			if from.CanTransition(next) {
				t.Errorf("%s -> %s should be illegal", from, next)
			}
		}
	}
	if TxStatusPending.CanTransition(TxStatusPending) {
		t.Error("PENDING -> PENDING should be illegal")
	}
}

func TestTransactionEntry_CloneIsDeep(t *testing.T) {
	e := &TransactionEntry{
		ID:        "tx-1",
		Signature: "SIG1",
		Type:      TxTypeSwap,
		Status:    TxStatusConfirmed,
		Amount:    ptrF(2.5),
		Metadata: &Metadata{
			Swap: &SwapDetails{InputToken: "SOL", OutputToken: "USDC"},
			Logs: []string{"Program log: ok"},
		},
	}

	c := e.Clone()
	*c.Amount = 9.9
	c.Metadata.Swap.InputToken = "BONK"
	c.Metadata.Logs[0] = "mutated"

	if *e.Amount != 2.5 {
		t.Errorf("clone mutation leaked into original amount: %f", *e.Amount)
	}
	if e.Metadata.Swap.InputToken != "SOL" {
		t.Errorf("clone mutation leaked into original metadata: %s", e.Metadata.Swap.InputToken)
	}
	if e.Metadata.Logs[0] != "Program log: ok" {
		t.Errorf("clone mutation leaked into original logs: %s", e.Metadata.Logs[0])
	}
}
