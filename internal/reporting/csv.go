// Package reporting renders tracked transaction history as CSV and
// Markdown documents.
package reporting

import (
	"strconv"
	"strings"
	"time"

	"solana-tx-monitor/internal/domain"
)

// csvHeader is the fixed column set consumers key on. Order is part of
// the export contract.
var csvHeader = []string{
	"id", "signature", "type", "status", "timestamp",
	"from", "to", "amount", "token", "fee", "confirmations", "error",
}

// RenderCSV renders entries as a CSV document. Every field, header
// included, is double-quoted so downstream parsers never have to guess;
// unknown nullable fields render as empty strings.
func RenderCSV(entries []*domain.TransactionEntry) string {
	var sb strings.Builder

	writeRow(&sb, csvHeader)
	for _, e := range entries {
		writeRow(&sb, []string{
			e.ID,
			e.Signature,
			e.Type.String(),
			e.Status.String(),
			isoTimestamp(e.CreatedAt),
			e.From,
			strValue(e.To),
			floatValue(e.Amount),
			strValue(e.Token),
			floatValue(e.Fee),
			intValue(e.Confirmations),
			strValue(e.Error),
		})
	}

	return sb.String()
}

func writeRow(sb *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('"')
		sb.WriteString(strings.ReplaceAll(f, `"`, `""`))
		sb.WriteByte('"')
	}
	sb.WriteByte('\n')
}

// isoTimestamp formats a Unix-millisecond timestamp as ISO-8601 UTC with
// millisecond precision, e.g. 2024-05-01T12:30:45.123Z.
func isoTimestamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func strValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func floatValue(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func intValue(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}
