package connection

import (
	"time"

	"solana-tx-monitor/internal/config"
	"solana-tx-monitor/internal/solana"
)

// Default option values.
const (
	DefaultPingInterval         = 30 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultStreamReconnectDelay = 5 * time.Second
)

// Health thresholds.
const (
	healthPingMaxAge     = 60 * time.Second
	healthMaxFailureRate = 0.10
)

// Options configures a Manager.
type Options struct {
	Endpoint             string            // required
	StreamEndpoint       string            // optional; empty disables streaming
	Commitment           solana.Commitment // query durability level
	RequestTimeout       time.Duration     // per-RPC-call timeout
	RetryAttempts        int               // read-operation retry budget
	RetryDelay           time.Duration     // first retry delay, also backoff base
	PingInterval         time.Duration     // liveness probe period
	MaxReconnectAttempts int               // reconnect budget before degrading
	StreamReconnectDelay time.Duration     // fixed stream redial delay
}

func (o Options) withDefaults() Options {
	if o.Commitment == "" {
		o.Commitment = solana.DefaultCommitment
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = solana.DefaultTimeout
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 1 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = DefaultPingInterval
	}
	if o.MaxReconnectAttempts <= 0 {
		o.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if o.StreamReconnectDelay <= 0 {
		o.StreamReconnectDelay = DefaultStreamReconnectDelay
	}
	return o
}

// OptionsFromConfig maps the loaded environment config onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Endpoint:             cfg.Endpoint,
		StreamEndpoint:       cfg.StreamEndpoint,
		Commitment:           solana.Commitment(cfg.CommitmentLevel),
		RequestTimeout:       cfg.RequestTimeout,
		RetryAttempts:        cfg.RetryAttempts,
		RetryDelay:           cfg.RetryDelay,
		PingInterval:         cfg.PingInterval,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		StreamReconnectDelay: cfg.StreamReconnectDelay,
	}
}

// reconnectDelay is the backoff for the attempt-th reconnect, doubling
// from base with no cap; the attempt budget bounds it instead.
func reconnectDelay(base time.Duration, attempt int) time.Duration {
	return base << uint(attempt)
}
