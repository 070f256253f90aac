// Package main renders a persisted transaction snapshot as CSV or a
// Markdown summary report, without talking to a node. It reads the same
// snapshot backends the monitor writes.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"solana-tx-monitor/internal/domain"
	"solana-tx-monitor/internal/reporting"
	"solana-tx-monitor/internal/storage"
	boltstore "solana-tx-monitor/internal/storage/bolt"
	pgstore "solana-tx-monitor/internal/storage/postgres"
)

func main() {
	storeKind := flag.String("store", "bolt", "Snapshot store backend: bolt or postgres")
	boltPath := flag.String("bolt-path", "monitor.db", "BoltDB file path for -store=bolt")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for -store=postgres")
	snapshotKey := flag.String("snapshot-key", "tracker:history", "Storage key the monitor persists under")
	format := flag.String("format", "csv", "Output format: csv or markdown")
	output := flag.String("output", "", "Output file path (default stdout)")
	types := flag.String("type", "", "Comma-separated transaction types to include")
	statuses := flag.String("status", "", "Comma-separated statuses to include")
	address := flag.String("address", "", "Include only entries sent from or to this address")
	fromTime := flag.String("from-time", "", "Inclusive lower bound on creation time (RFC3339)")
	toTime := flag.String("to-time", "", "Inclusive upper bound on creation time (RFC3339)")
	flag.Parse()

	ctx := context.Background()

	entries, err := loadSnapshot(ctx, *storeKind, *boltPath, *postgresDSN, *snapshotKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading snapshot: %v\n", err)
		os.Exit(1)
	}

	filter, err := buildFilter(*types, *statuses, *address, *fromTime, *toTime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	selected := make([]*domain.TransactionEntry, 0, len(entries))
	for _, e := range entries {
		if filter.Matches(e) {
			selected = append(selected, e)
		}
	}
	sort.Slice(selected, func(i, j int) bool {
		return selected[i].CreatedAt > selected[j].CreatedAt
	})

	var rendered string
	switch *format {
	case "csv":
		rendered = reporting.RenderCSV(selected)
	case "markdown":
		rendered = reporting.RenderMarkdown(domain.ComputeStats(selected), time.Now().UTC())
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown format %q (expected csv or markdown)\n", *format)
		os.Exit(1)
	}

	if *output == "" {
		fmt.Print(rendered)
		return
	}
	if err := os.WriteFile(*output, []byte(rendered), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *output, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d entries to %s\n", len(selected), *output)
}

// loadSnapshot reads and decodes the persisted history. A missing
// snapshot is an empty history, not an error.
func loadSnapshot(ctx context.Context, kind, boltPath, postgresDSN, key string) ([]*domain.TransactionEntry, error) {
	var (
		data []byte
		err  error
	)

	switch kind {
	case "bolt":
		s, serr := boltstore.NewSnapshotStore(boltPath)
		if serr != nil {
			return nil, serr
		}
		defer s.Close()
		data, err = s.Get(ctx, key)
	case "postgres":
		if postgresDSN == "" {
			return nil, fmt.Errorf("-postgres-dsn is required for -store=postgres")
		}
		pool, perr := pgstore.NewPool(ctx, postgresDSN)
		if perr != nil {
			return nil, perr
		}
		defer pool.Close()
		data, err = pgstore.NewSnapshotStore(pool).Get(ctx, key)
	default:
		return nil, fmt.Errorf("unknown store %q (expected bolt or postgres)", kind)
	}

	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []*domain.TransactionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return entries, nil
}

func buildFilter(types, statuses, address, fromTime, toTime string) (*domain.TransactionFilter, error) {
	f := &domain.TransactionFilter{Address: address}

	for _, v := range splitList(types) {
		t := domain.TxType(strings.ToUpper(v))
		if !t.IsValid() {
			return nil, fmt.Errorf("unknown transaction type %q", v)
		}
		f.Types = append(f.Types, t)
	}
	for _, v := range splitList(statuses) {
		s := domain.TxStatus(strings.ToUpper(v))
		if !s.IsValid() {
			return nil, fmt.Errorf("unknown status %q", v)
		}
		f.Statuses = append(f.Statuses, s)
	}

	if fromTime != "" {
		t, err := time.Parse(time.RFC3339, fromTime)
		if err != nil {
			return nil, fmt.Errorf("parse from-time: %w", err)
		}
		f.StartTime = t.UnixMilli()
	}
	if toTime != "" {
		t, err := time.Parse(time.RFC3339, toTime)
		if err != nil {
			return nil, fmt.Errorf("parse to-time: %w", err)
		}
		f.EndTime = t.UnixMilli()
	}
	return f, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
