package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"solana-tx-monitor/internal/domain"
)

// RenderMarkdown renders aggregate statistics as a Markdown summary.
func RenderMarkdown(stats *domain.TransactionStats, generatedAt time.Time) string {
	var sb strings.Builder

	sb.WriteString("# Transaction Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", generatedAt.UTC().Format(time.RFC3339)))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Transactions | %d |\n", stats.TotalTransactions))
	sb.WriteString(fmt.Sprintf("| Successful | %d |\n", stats.SuccessfulTransactions))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", stats.FailedTransactions))
	sb.WriteString(fmt.Sprintf("| Pending | %d |\n", stats.PendingTransactions))
	sb.WriteString(fmt.Sprintf("| Success Rate | %.2f%% |\n", stats.SuccessRate*100))
	sb.WriteString(fmt.Sprintf("| Total Volume (SOL) | %.6f |\n", stats.TotalVolume))
	sb.WriteString(fmt.Sprintf("| Total Fees (SOL) | %.6f |\n", stats.TotalFees))
	sb.WriteString(fmt.Sprintf("| Avg Confirmation (ms) | %.0f |\n", stats.AverageConfirmationMs))
	sb.WriteString("\n")

	// Per-type breakdown
	sb.WriteString("## By Type\n\n")
	if len(stats.ByType) > 0 {
		sb.WriteString("| Type | Count | Volume (SOL) |\n")
		sb.WriteString("|------|-------|--------------|\n")
		for _, t := range sortedTypes(stats.ByType) {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.6f |\n", t, stats.ByType[t], stats.VolumeByType[t]))
		}
	} else {
		sb.WriteString("No transactions recorded.\n")
	}
	sb.WriteString("\n")

	// Per-status breakdown
	sb.WriteString("## By Status\n\n")
	if len(stats.ByStatus) > 0 {
		sb.WriteString("| Status | Count |\n")
		sb.WriteString("|--------|-------|\n")
		for _, s := range sortedStatuses(stats.ByStatus) {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", s, stats.ByStatus[s]))
		}
	} else {
		sb.WriteString("No transactions recorded.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// sortedTypes returns map keys in lexical order so the rendered report
// is deterministic.
func sortedTypes(m map[domain.TxType]int) []domain.TxType {
	keys := make([]domain.TxType, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedStatuses(m map[domain.TxStatus]int) []domain.TxStatus {
	keys := make([]domain.TxStatus, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
