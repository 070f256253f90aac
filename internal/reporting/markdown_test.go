package reporting

import (
	"strings"
	"testing"
	"time"

	"solana-tx-monitor/internal/domain"
)

func TestRenderMarkdown_SummaryAndBreakdowns(t *testing.T) {
	entries := []*domain.TransactionEntry{
		{ID: "a", Type: domain.TxTypeSwap, Status: domain.TxStatusConfirmed, Amount: f64Ptr(2), Fee: f64Ptr(0.001)},
		{ID: "b", Type: domain.TxTypeTransfer, Status: domain.TxStatusFailed},
		{ID: "c", Type: domain.TxTypeSwap, Status: domain.TxStatusPending},
	}
	stats := domain.ComputeStats(entries)

	out := RenderMarkdown(stats, time.UnixMilli(1714566645123))

	for _, want := range []string{
		"# Transaction Report",
		"Generated: 2024-05-01T12:30:45Z",
		"| Total Transactions | 3 |",
		"| Successful | 1 |",
		"| Failed | 1 |",
		"| Pending | 1 |",
		"| Success Rate | 50.00% |",
		"| SWAP | 2 | 2.000000 |",
		"| TRANSFER | 1 | 0.000000 |",
		"| CONFIRMED | 1 |",
		"| FAILED | 1 |",
		"| PENDING | 1 |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
}

func TestRenderMarkdown_TypeRowsSorted(t *testing.T) {
	entries := []*domain.TransactionEntry{
		{ID: "a", Type: domain.TxTypeTransfer, Status: domain.TxStatusConfirmed},
		{ID: "b", Type: domain.TxTypeLiquidityAdd, Status: domain.TxStatusConfirmed},
		{ID: "c", Type: domain.TxTypeSwap, Status: domain.TxStatusConfirmed},
	}
	stats := domain.ComputeStats(entries)

	out := RenderMarkdown(stats, time.Now())

	liquidity := strings.Index(out, "| LIQUIDITY_ADD |")
	swap := strings.Index(out, "| SWAP |")
	transfer := strings.Index(out, "| TRANSFER |")
	if liquidity < 0 || swap < 0 || transfer < 0 {
		t.Fatalf("missing type rows\n%s", out)
	}
	if !(liquidity < swap && swap < transfer) {
		t.Errorf("type rows not in lexical order: LIQUIDITY_ADD=%d SWAP=%d TRANSFER=%d", liquidity, swap, transfer)
	}
}

func TestRenderMarkdown_Empty(t *testing.T) {
	out := RenderMarkdown(domain.ComputeStats(nil), time.Now())

	if !strings.Contains(out, "| Total Transactions | 0 |") {
		t.Errorf("expected zero totals\n%s", out)
	}
	if strings.Count(out, "No transactions recorded.") != 2 {
		t.Errorf("expected empty-breakdown placeholders\n%s", out)
	}
}
