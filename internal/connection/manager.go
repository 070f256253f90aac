// Package connection provides a single health-monitored handle to a
// Solana RPC endpoint with instrumented read operations.
package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-tx-monitor/internal/errreport"
	"solana-tx-monitor/internal/health"
	"solana-tx-monitor/internal/observability"
	"solana-tx-monitor/internal/retry"
	"solana-tx-monitor/internal/solana"
)

// Sentinel errors for the manager's caller-visible failure classes.
// Both wrap the underlying cause, so errors.Is and errors.As see
// through them.
var (
	// ErrUnavailable is returned by Connect when the liveness probe
	// fails. The manager keeps reconnecting in the background.
	ErrUnavailable = errors.New("connection unavailable")

	// ErrRPCFailed wraps every failed read operation, whether the retry
	// budget ran out or the node rejected the call outright.
	ErrRPCFailed = errors.New("rpc call failed")
)

// Stats is a point-in-time snapshot of connection counters.
type Stats struct {
	Connected             bool    `json:"connected"`
	Endpoint              string  `json:"endpoint"`
	LastPingAt            int64   `json:"lastPingAt"` // unix ms, 0 if never
	LastError             string  `json:"lastError,omitempty"`
	ReconnectAttempts     int     `json:"reconnectAttempts"`
	TotalRequests         int64   `json:"totalRequests"`
	FailedRequests        int64   `json:"failedRequests"`
	AverageResponseTimeMs float64 `json:"averageResponseTimeMs"`
	StreamReconnects      int64   `json:"streamReconnects"`
}

// Manager owns the RPC connection lifecycle: an initial liveness probe,
// periodic ping monitoring, capped exponential-backoff reconnection, and
// an optional best-effort streaming channel. Every read operation is
// wrapped with the retry executor and feeds the stats counters.
type Manager struct {
	opts     Options
	rpc      solana.RPCClient
	exec     *retry.Executor
	reporter errreport.Reporter
	metrics  *observability.Metrics
	log      *zap.SugaredLogger

	// dialStream opens the streaming channel; replaced in tests
	dialStream func(ctx context.Context) (solana.StreamClient, error)

	mu                sync.Mutex
	connected         bool
	lastError         error
	lastPingAt        time.Time
	reconnectAttempts int
	totalRequests     int64
	failedRequests    int64
	avgResponseMs     float64
	reconnectTimer    *time.Timer
	stream            solana.StreamClient
	streamHandlers    []func(message []byte)
	closed            bool

	pingOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewManager creates a manager around the given RPC client. No I/O
// happens until Connect. Reporter, metrics, and logger may be nil.
func NewManager(opts Options, rpc solana.RPCClient, reporter errreport.Reporter, metrics *observability.Metrics, log *zap.SugaredLogger) *Manager {
	opts = opts.withDefaults()
	if reporter == nil {
		reporter = errreport.Nop{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	m := &Manager{
		opts:     opts,
		rpc:      rpc,
		reporter: reporter,
		metrics:  metrics,
		log:      log,
		done:     make(chan struct{}),
	}

	m.exec = retry.NewExecutor(retry.Policy{
		MaxAttempts: opts.RetryAttempts,
		Delay:       opts.RetryDelay,
	}, log)

	m.dialStream = func(ctx context.Context) (solana.StreamClient, error) {
		cfg := solana.DefaultStreamConfig()
		cfg.ReconnectDelay = opts.StreamReconnectDelay
		if metrics != nil {
			cfg.OnReconnect = func() { metrics.StreamReconnects.Inc() }
		}
		return solana.NewWSStream(ctx, opts.StreamEndpoint, &cfg, log)
	}

	return m
}

// Connect issues the initial liveness probe. On success it starts ping
// monitoring and, if configured, opens the streaming channel. On failure
// it records the error, schedules a reconnect, and returns the error —
// the manager stays usable in its degraded state.
func (m *Manager) Connect(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, m.opts.RequestTimeout)
	_, err := m.rpc.GetSlot(probeCtx)
	cancel()

	if err != nil {
		m.mu.Lock()
		m.connected = false
		m.lastError = err
		m.mu.Unlock()

		if m.metrics != nil {
			m.metrics.SetConnectionUp(false)
		}
		m.log.Warnw("initial liveness probe failed",
			"endpoint", m.opts.Endpoint,
			"error", err,
		)
		m.scheduleReconnect()
		return fmt.Errorf("%w: liveness probe: %w", ErrUnavailable, err)
	}

	now := time.Now()
	m.mu.Lock()
	m.connected = true
	m.lastPingAt = now
	m.reconnectAttempts = 0
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SetConnectionUp(true)
		m.metrics.LastPingTimestamp.Set(float64(now.Unix()))
	}
	m.log.Infow("connected",
		"endpoint", m.opts.Endpoint,
		"commitment", m.opts.Commitment,
	)

	m.startPing()
	if m.opts.StreamEndpoint != "" {
		m.openStream()
	}
	return nil
}

// Client returns the raw RPC handle for callers that need direct,
// uninstrumented access.
func (m *Manager) Client() solana.RPCClient {
	return m.rpc
}

// startPing launches the ping monitor exactly once.
func (m *Manager) startPing() {
	m.pingOnce.Do(func() {
		m.wg.Add(1)
		go m.pingLoop()
	})
}

func (m *Manager) pingLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.ping()
		}
	}
}

// ping repeats the liveness probe. Failures are handled internally and
// never surface to callers.
func (m *Manager) ping() {
	ctx, cancel := context.WithTimeout(context.Background(), m.opts.RequestTimeout)
	_, err := m.rpc.GetSlot(ctx)
	cancel()

	now := time.Now()
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if err != nil {
		m.connected = false
		m.lastError = err
		m.mu.Unlock()

		if m.metrics != nil {
			m.metrics.SetConnectionUp(false)
		}
		m.log.Warnw("liveness ping failed",
			"endpoint", m.opts.Endpoint,
			"error", err,
		)
		m.scheduleReconnect()
		return
	}
	m.connected = true
	m.lastPingAt = now
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SetConnectionUp(true)
		m.metrics.LastPingTimestamp.Set(float64(now.Unix()))
	}
}

// scheduleReconnect arms a single backoff timer. Once the attempt budget
// is exhausted the connection stays down until external intervention.
func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.reconnectTimer != nil {
		return
	}
	if m.reconnectAttempts >= m.opts.MaxReconnectAttempts {
		m.log.Errorw("critical: reconnect attempts exhausted, connection permanently degraded",
			"endpoint", m.opts.Endpoint,
			"attempts", m.reconnectAttempts,
		)
		return
	}

	delay := reconnectDelay(m.opts.RetryDelay, m.reconnectAttempts)
	m.reconnectAttempts++
	if m.metrics != nil {
		m.metrics.ReconnectAttempts.Inc()
	}
	m.log.Warnw("scheduling reconnect",
		"endpoint", m.opts.Endpoint,
		"attempt", m.reconnectAttempts,
		"delay", delay,
	)
	m.reconnectTimer = time.AfterFunc(delay, m.reconnect)
}

func (m *Manager) reconnect() {
	m.mu.Lock()
	m.reconnectTimer = nil
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.opts.RequestTimeout)
	_, err := m.rpc.GetSlot(ctx)
	cancel()

	now := time.Now()
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if err != nil {
		m.connected = false
		m.lastError = err
		m.mu.Unlock()

		m.log.Warnw("reconnect probe failed",
			"endpoint", m.opts.Endpoint,
			"error", err,
		)
		m.scheduleReconnect()
		return
	}
	m.connected = true
	m.lastPingAt = now
	m.reconnectAttempts = 0
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SetConnectionUp(true)
		m.metrics.LastPingTimestamp.Set(float64(now.Unix()))
	}
	m.log.Infow("reconnected", "endpoint", m.opts.Endpoint)
	m.startPing()
}

// instrument wraps one read operation: retry budget, latency blend into
// the rolling average, request counters, and failure reporting.
func (m *Manager) instrument(ctx context.Context, method string, op func(ctx context.Context) error) error {
	wrapped := func(ctx context.Context) error {
		err := op(ctx)
		var rpcErr *solana.RPCError
		if errors.As(err, &rpcErr) {
			// The node answered; retrying the identical request is pointless.
			return retry.Permanent(err)
		}
		return err
	}

	start := time.Now()
	err := m.exec.Run(ctx, method, wrapped)
	elapsed := time.Since(start)
	if err != nil {
		err = fmt.Errorf("%s: %w: %w", method, ErrRPCFailed, err)
	}

	m.mu.Lock()
	m.totalRequests++
	sample := float64(elapsed.Milliseconds())
	if m.totalRequests == 1 {
		m.avgResponseMs = sample
	} else {
		m.avgResponseMs = (m.avgResponseMs + sample) / 2
	}
	if err != nil {
		m.failedRequests++
		m.lastError = err
	}
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordRPCCall(method, elapsed.Seconds(), err)
	}
	if err != nil {
		m.reporter.Report(err, errreport.KindRPC, errreport.SeverityMedium, map[string]string{
			"method":   method,
			"endpoint": m.opts.Endpoint,
		})
	}
	return err
}

// GetBalance returns the lamport balance for an address.
func (m *Manager) GetBalance(ctx context.Context, address string) (uint64, error) {
	var balance uint64
	err := m.instrument(ctx, "getBalance", func(ctx context.Context) error {
		var err error
		balance, err = m.rpc.GetBalance(ctx, address)
		return err
	})
	return balance, err
}

// GetAccountInfo returns account info, nil if the account does not exist.
func (m *Manager) GetAccountInfo(ctx context.Context, address string) (*solana.AccountInfo, error) {
	var info *solana.AccountInfo
	err := m.instrument(ctx, "getAccountInfo", func(ctx context.Context) error {
		var err error
		info, err = m.rpc.GetAccountInfo(ctx, address)
		return err
	})
	return info, err
}

// GetTokenAccounts returns SPL token accounts for an owner, optionally
// filtered by token program.
func (m *Manager) GetTokenAccounts(ctx context.Context, owner, program string) ([]solana.TokenAccount, error) {
	var accounts []solana.TokenAccount
	err := m.instrument(ctx, "getTokenAccountsByOwner", func(ctx context.Context) error {
		var err error
		accounts, err = m.rpc.GetTokenAccountsByOwner(ctx, owner, program)
		return err
	})
	return accounts, err
}

// GetSlot returns the current slot.
func (m *Manager) GetSlot(ctx context.Context) (int64, error) {
	var slot int64
	err := m.instrument(ctx, "getSlot", func(ctx context.Context) error {
		var err error
		slot, err = m.rpc.GetSlot(ctx)
		return err
	})
	return slot, err
}

// GetBlockHeight returns the current block height.
func (m *Manager) GetBlockHeight(ctx context.Context) (int64, error) {
	var height int64
	err := m.instrument(ctx, "getBlockHeight", func(ctx context.Context) error {
		var err error
		height, err = m.rpc.GetBlockHeight(ctx)
		return err
	})
	return height, err
}

// GetSignatureStatuses returns per-signature confirmation status,
// index-aligned with the input; nil means the node has no record.
func (m *Manager) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	var statuses []*solana.SignatureStatus
	err := m.instrument(ctx, "getSignatureStatuses", func(ctx context.Context) error {
		var err error
		statuses, err = m.rpc.GetSignatureStatuses(ctx, signatures)
		return err
	})
	return statuses, err
}

// GetTransaction returns full transaction detail, nil if unknown.
func (m *Manager) GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	var tx *solana.Transaction
	err := m.instrument(ctx, "getTransaction", func(ctx context.Context) error {
		var err error
		tx, err = m.rpc.GetTransaction(ctx, signature)
		return err
	})
	return tx, err
}

// IsHealthy reports whether the connection is usable: connected, pinged
// within the last minute, and under a 10% request failure rate. Computed
// fresh on every call.
func (m *Manager) IsHealthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return false
	}
	if time.Since(m.lastPingAt) >= healthPingMaxAge {
		return false
	}

	total := m.totalRequests
	if total < 1 {
		total = 1
	}
	return float64(m.failedRequests)/float64(total) < healthMaxFailureRate
}

// Stats returns a snapshot of the connection counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		Connected:             m.connected,
		Endpoint:              m.opts.Endpoint,
		ReconnectAttempts:     m.reconnectAttempts,
		TotalRequests:         m.totalRequests,
		FailedRequests:        m.failedRequests,
		AverageResponseTimeMs: m.avgResponseMs,
	}
	if !m.lastPingAt.IsZero() {
		s.LastPingAt = m.lastPingAt.UnixMilli()
	}
	if m.lastError != nil {
		s.LastError = m.lastError.Error()
	}
	if rc, ok := m.stream.(interface{ Reconnects() int64 }); ok {
		s.StreamReconnects = rc.Reconnects()
	}
	return s
}

// RegisterHealth exposes the manager's health state through the shared
// registry as a critical probe.
func (m *Manager) RegisterHealth(reg *health.Registry) {
	reg.Register("rpc", m.opts.Endpoint, m.opts.RequestTimeout, func(ctx context.Context) error {
		if m.IsHealthy() {
			return nil
		}
		s := m.Stats()
		if !s.Connected {
			if s.LastError != "" {
				return fmt.Errorf("disconnected: %s", s.LastError)
			}
			return fmt.Errorf("disconnected")
		}
		return fmt.Errorf("degraded: %d/%d requests failed", s.FailedRequests, s.TotalRequests)
	}, true)
}

// openStream dials the streaming endpoint. If the first dial fails it
// keeps retrying in the background at the fixed stream delay — the
// stream is best-effort and never gives up.
func (m *Manager) openStream() {
	ctx, cancel := context.WithTimeout(context.Background(), m.opts.RequestTimeout)
	stream, err := m.dialStream(ctx)
	cancel()

	if err == nil {
		m.attachStream(stream)
		return
	}

	m.log.Warnw("stream connect failed, retrying",
		"endpoint", m.opts.StreamEndpoint,
		"delay", m.opts.StreamReconnectDelay,
		"error", err,
	)
	m.wg.Add(1)
	go m.streamRetryLoop()
}

func (m *Manager) streamRetryLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.done:
			return
		case <-time.After(m.opts.StreamReconnectDelay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), m.opts.RequestTimeout)
		stream, err := m.dialStream(ctx)
		cancel()

		if err != nil {
			m.log.Warnw("stream connect failed, retrying",
				"endpoint", m.opts.StreamEndpoint,
				"delay", m.opts.StreamReconnectDelay,
				"error", err,
			)
			continue
		}

		m.attachStream(stream)
		return
	}
}

// attachStream installs the stream and registers every handler queued
// before it came up. After this point the stream's own reconnect loop
// keeps it alive.
func (m *Manager) attachStream(stream solana.StreamClient) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		stream.Close()
		return
	}
	m.stream = stream
	handlers := m.streamHandlers
	m.mu.Unlock()

	for _, fn := range handlers {
		stream.OnMessage(fn)
	}
	m.log.Infow("stream connected", "endpoint", m.opts.StreamEndpoint)
}

// SendStreamMessage writes a JSON message to the streaming channel.
func (m *Manager) SendStreamMessage(ctx context.Context, v interface{}) error {
	m.mu.Lock()
	stream := m.stream
	m.mu.Unlock()

	if stream == nil {
		return fmt.Errorf("stream not connected")
	}
	return stream.Send(ctx, v)
}

// OnStreamMessage registers a callback for every raw stream message.
// Callbacks registered before the stream comes up are queued.
func (m *Manager) OnStreamMessage(fn func(message []byte)) {
	m.mu.Lock()
	m.streamHandlers = append(m.streamHandlers, fn)
	stream := m.stream
	m.mu.Unlock()

	if stream != nil {
		stream.OnMessage(fn)
	}
}

// Disconnect stops ping monitoring, cancels any pending reconnect,
// closes the stream, and marks the connection down. Safe to call twice.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.connected = false
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	stream := m.stream
	m.stream = nil
	m.mu.Unlock()

	close(m.done)
	if stream != nil {
		stream.Close()
	}
	m.wg.Wait()

	if m.metrics != nil {
		m.metrics.SetConnectionUp(false)
	}
	m.log.Infow("disconnected", "endpoint", m.opts.Endpoint)
	return nil
}
