// Package main runs the transaction monitor service: one health-monitored
// RPC connection, the confirmation tracker, and an HTTP surface exposing
// health, metrics, status, and the tracker's track/query/export operations.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"solana-tx-monitor/internal/config"
	"solana-tx-monitor/internal/connection"
	"solana-tx-monitor/internal/domain"
	"solana-tx-monitor/internal/errreport"
	"solana-tx-monitor/internal/health"
	"solana-tx-monitor/internal/logx"
	"solana-tx-monitor/internal/observability"
	"solana-tx-monitor/internal/solana"
	"solana-tx-monitor/internal/storage"
	boltstore "solana-tx-monitor/internal/storage/bolt"
	chstore "solana-tx-monitor/internal/storage/clickhouse"
	"solana-tx-monitor/internal/storage/memory"
	"solana-tx-monitor/internal/storage/migrations"
	pgstore "solana-tx-monitor/internal/storage/postgres"
	"solana-tx-monitor/internal/tracker"
)

func main() {
	storeKind := flag.String("store", "memory", "Snapshot store backend: memory, bolt, or postgres")
	boltPath := flag.String("bolt-path", "monitor.db", "BoltDB file path for -store=bolt")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for -store=postgres")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for terminal-transaction archiving (empty to disable)")
	flag.Parse()

	logx.Init()
	log := logx.Get()
	defer func() { _ = logx.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}

	metrics := observability.NewMetrics("")
	reporter := errreport.Multi{
		errreport.NewLogReporter(log),
		errreport.NewMetricsReporter(metrics),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, closeStore, err := openSnapshotStore(ctx, *storeKind, *boltPath, *postgresDSN)
	if err != nil {
		log.Fatalw("open snapshot store", "store", *storeKind, "error", err)
	}
	defer closeStore()

	var archive storage.ArchiveStore
	if *clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			log.Fatalw("clickhouse migrations", "error", err)
		}
		defer conn.Close()
		archive = chstore.NewArchiveStore(conn)
		log.Infow("archive mirroring enabled")
	}

	rpc := solana.NewHTTPClient(cfg.Endpoint,
		solana.WithTimeout(cfg.RequestTimeout),
		solana.WithCommitment(solana.Commitment(cfg.CommitmentLevel)),
	)
	manager := connection.NewManager(connection.OptionsFromConfig(cfg), rpc, reporter, metrics, log)

	tr, err := tracker.NewTracker(tracker.OptionsFromConfig(cfg), manager, snapshots, archive, reporter, metrics, log)
	if err != nil {
		log.Fatalw("create tracker", "error", err)
	}

	reg := health.NewRegistry(log)
	manager.RegisterHealth(reg)

	server := startHTTP(cfg.MetricsAddr, reg, manager, tr, log)

	// A failed initial probe is not fatal: the manager keeps probing in
	// the background and the tracker picks up once the node answers.
	if err := manager.Connect(ctx); err != nil {
		log.Warnw("starting degraded", "error", err)
	}
	if err := tr.Start(ctx); err != nil {
		log.Fatalw("start tracker", "error", err)
	}
	if n := tr.RetryPending(); n > 0 {
		log.Infow("re-armed pending transactions from snapshot", "count", n)
	}

	waitForSignal(log)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnw("http shutdown", "error", err)
	}
	if err := tr.Dispose(); err != nil {
		log.Errorw("dispose tracker", "error", err)
	}
	if err := manager.Disconnect(); err != nil {
		log.Errorw("disconnect", "error", err)
	}
	log.Infow("shutdown complete")
}

// openSnapshotStore builds the snapshot backend selected by -store.
func openSnapshotStore(ctx context.Context, kind, boltPath, postgresDSN string) (storage.SnapshotStore, func(), error) {
	switch kind {
	case "memory":
		return memory.NewSnapshotStore(), func() {}, nil
	case "bolt":
		s, err := boltstore.NewSnapshotStore(boltPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "postgres":
		if postgresDSN == "" {
			return nil, nil, fmt.Errorf("-postgres-dsn is required for -store=postgres")
		}
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pgstore.NewSnapshotStore(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q (expected memory, bolt, or postgres)", kind)
	}
}

// waitForSignal blocks until the first shutdown signal, then arms a
// watchdog: a second signal or a stalled drain forces exit.
func waitForSignal(log *zap.SugaredLogger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Infow("shutting down", "signal", sig.String())

	go func() {
		select {
		case sig := <-sigCh:
			log.Errorw("forcing immediate shutdown", "signal", sig.String())
		case <-time.After(30 * time.Second):
			log.Errorw("graceful shutdown timed out after 30s, forcing exit")
		}
		os.Exit(1)
	}()
}

func startHTTP(addr string, reg *health.Registry, manager *connection.Manager, tr *tracker.Tracker, log *zap.SugaredLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/health", reg.Handler())
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", handleStatus(manager, tr))
	mux.HandleFunc("/track", handleTrack(tr))
	mux.HandleFunc("/transactions", handleTransactions(tr))
	mux.HandleFunc("/export.csv", handleExport(tr))

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Infow("http server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("http server", "error", err)
		}
	}()
	return server
}

// statusResponse is the JSON body of the /status endpoint.
type statusResponse struct {
	Connection connection.Stats         `json:"connection"`
	Tracker    *domain.TransactionStats `json:"tracker"`
}

func handleStatus(manager *connection.Manager, tr *tracker.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, statusResponse{
			Connection: manager.Stats(),
			Tracker:    tr.Statistics(nil),
		})
	}
}

// trackRequest is the JSON body accepted by POST /track.
type trackRequest struct {
	Signature string           `json:"signature"`
	Type      domain.TxType    `json:"type"`
	From      string           `json:"from"`
	Metadata  *domain.Metadata `json:"metadata,omitempty"`
}

func handleTrack(tr *tracker.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req trackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Type == "" {
			req.Type = domain.TxTypeUnknown
		}

		entry, err := tr.AddTransaction(req.Signature, req.Type, req.From, req.Metadata)
		if err != nil {
			code := http.StatusBadRequest
			if errors.Is(err, tracker.ErrNotRunning) {
				code = http.StatusServiceUnavailable
			}
			http.Error(w, err.Error(), code)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	}
}

func handleTransactions(tr *tracker.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := filterFromQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sortOpts := &domain.SortOptions{
			Field:     domain.SortField(r.URL.Query().Get("sort")),
			Direction: domain.SortDirection(r.URL.Query().Get("dir")),
		}
		limit := intParam(r, "limit", 100)
		offset := intParam(r, "offset", 0)
		writeJSON(w, http.StatusOK, tr.History(filter, sortOpts, limit, offset))
	}
}

func handleExport(tr *tracker.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := filterFromQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(tr.ExportCSV(filter)))
	}
}

// filterFromQuery maps query parameters onto a transaction filter:
// type and status accept comma-separated lists, from-time/to-time RFC3339.
func filterFromQuery(r *http.Request) (*domain.TransactionFilter, error) {
	q := r.URL.Query()
	f := &domain.TransactionFilter{Address: q.Get("address")}

	for _, v := range splitList(q.Get("type")) {
		t := domain.TxType(strings.ToUpper(v))
		if !t.IsValid() {
			return nil, fmt.Errorf("unknown transaction type %q", v)
		}
		f.Types = append(f.Types, t)
	}
	for _, v := range splitList(q.Get("status")) {
		s := domain.TxStatus(strings.ToUpper(v))
		if !s.IsValid() {
			return nil, fmt.Errorf("unknown status %q", v)
		}
		f.Statuses = append(f.Statuses, s)
	}

	var err error
	if f.StartTime, err = timeParam(q.Get("from-time")); err != nil {
		return nil, err
	}
	if f.EndTime, err = timeParam(q.Get("to-time")); err != nil {
		return nil, err
	}
	return f, nil
}

func timeParam(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return 0, fmt.Errorf("parse time %q: %w", v, err)
	}
	return t.UnixMilli(), nil
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

func intParam(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Get().Errorw("encode response", "error", err)
	}
}
