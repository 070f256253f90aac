package tracker

import (
	"time"

	"solana-tx-monitor/internal/config"
)

// Default option values. The poll defaults bound a transaction's fate
// to a 60-second worst case: 30 polls at a 2-second interval.
const (
	DefaultPollInterval    = 2 * time.Second
	DefaultMaxPollAttempts = 30
	DefaultPersistInterval = 30 * time.Second
	DefaultMaxHistorySize  = 10000
	DefaultSnapshotKey     = "tracker:history"
)

// Per-operation timeouts for calls the tracker issues on its own
// goroutines, where no caller context applies.
const (
	pollTimeout    = 10 * time.Second
	persistTimeout = 10 * time.Second
	archiveTimeout = 10 * time.Second
)

// Options configures a Tracker.
type Options struct {
	PollInterval    time.Duration // confirmation poll period
	MaxPollAttempts int           // unresolved polls before EXPIRED
	PersistInterval time.Duration // snapshot flush period
	MaxHistorySize  int           // entries retained across flushes
	SnapshotKey     string        // snapshot store key
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.MaxPollAttempts <= 0 {
		o.MaxPollAttempts = DefaultMaxPollAttempts
	}
	if o.PersistInterval <= 0 {
		o.PersistInterval = DefaultPersistInterval
	}
	if o.MaxHistorySize <= 0 {
		o.MaxHistorySize = DefaultMaxHistorySize
	}
	if o.SnapshotKey == "" {
		o.SnapshotKey = DefaultSnapshotKey
	}
	return o
}

// OptionsFromConfig maps the loaded environment config onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PollInterval:    cfg.PollInterval,
		MaxPollAttempts: cfg.MaxPollAttempts,
		PersistInterval: cfg.PersistInterval,
		MaxHistorySize:  cfg.MaxHistorySize,
	}
}
