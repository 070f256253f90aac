// Package config loads monitor configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Commitment levels accepted by COMMITMENT_LEVEL.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// RPC connection
	Endpoint        string        // required
	StreamEndpoint  string        // optional WebSocket endpoint
	CommitmentLevel string        // processed | confirmed | finalized
	RequestTimeout  time.Duration // per-call RPC timeout
	RetryAttempts   int           // read-operation retry budget
	RetryDelay      time.Duration // initial retry/reconnect delay

	// Connection monitoring
	PingInterval         time.Duration // liveness probe interval
	MaxReconnectAttempts int           // reconnect cap before degraded state
	StreamReconnectDelay time.Duration // fixed stream reconnect delay

	// Transaction tracking
	PollInterval    time.Duration // confirmation poll interval
	MaxPollAttempts int           // polls before EXPIRED
	PersistInterval time.Duration // snapshot flush interval
	MaxHistorySize  int           // snapshot retention cap

	// Observability
	MetricsAddr string
	LogLevel    string
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// RPC connection
	cfg.Endpoint = os.Getenv("RPC_ENDPOINT")
	if cfg.Endpoint == "" {
		errs = append(errs, fmt.Errorf("RPC_ENDPOINT is required"))
	}
	cfg.StreamEndpoint = os.Getenv("STREAM_ENDPOINT")
	cfg.CommitmentLevel = getEnvOrDefault("COMMITMENT_LEVEL", CommitmentConfirmed)

	timeout, err := parseDuration("RPC_TIMEOUT", "30s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.RequestTimeout = timeout
	}

	retryAttempts, err := parseInt("RETRY_ATTEMPTS", "3")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.RetryAttempts = retryAttempts
	}

	retryDelay, err := parseDuration("RETRY_DELAY", "1s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.RetryDelay = retryDelay
	}

	// Connection monitoring
	pingInterval, err := parseDuration("PING_INTERVAL", "30s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.PingInterval = pingInterval
	}

	maxReconnect, err := parseInt("MAX_RECONNECT_ATTEMPTS", "5")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.MaxReconnectAttempts = maxReconnect
	}

	streamDelay, err := parseDuration("STREAM_RECONNECT_DELAY", "5s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.StreamReconnectDelay = streamDelay
	}

	// Transaction tracking
	pollInterval, err := parseDuration("POLL_INTERVAL", "2s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.PollInterval = pollInterval
	}

	maxPolls, err := parseInt("MAX_POLL_ATTEMPTS", "30")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.MaxPollAttempts = maxPolls
	}

	persistInterval, err := parseDuration("PERSIST_INTERVAL", "30s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.PersistInterval = persistInterval
	}

	maxHistory, err := parseInt("MAX_HISTORY_SIZE", "10000")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.MaxHistorySize = maxHistory
	}

	// Observability
	cfg.MetricsAddr = getEnvOrDefault("METRICS_ADDR", ":9090")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.validateValues(&errs)

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.Endpoint == "" {
		errs = append(errs, fmt.Errorf("Endpoint is required"))
	}
	c.validateValues(&errs)

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}
	return nil
}

// validateValues appends range/enum violations shared by Load and Validate.
func (c *Config) validateValues(errs *[]error) {
	switch c.CommitmentLevel {
	case CommitmentProcessed, CommitmentConfirmed, CommitmentFinalized:
	default:
		*errs = append(*errs, fmt.Errorf("COMMITMENT_LEVEL must be one of processed|confirmed|finalized, got %q", c.CommitmentLevel))
	}

	if c.RetryAttempts < 1 {
		*errs = append(*errs, fmt.Errorf("RETRY_ATTEMPTS must be at least 1"))
	}
	if c.MaxReconnectAttempts < 1 {
		*errs = append(*errs, fmt.Errorf("MAX_RECONNECT_ATTEMPTS must be at least 1"))
	}
	if c.MaxPollAttempts < 1 {
		*errs = append(*errs, fmt.Errorf("MAX_POLL_ATTEMPTS must be at least 1"))
	}
	if c.MaxHistorySize < 1 {
		*errs = append(*errs, fmt.Errorf("MAX_HISTORY_SIZE must be at least 1"))
	}
	if c.PollInterval < 100*time.Millisecond {
		*errs = append(*errs, fmt.Errorf("POLL_INTERVAL must be at least 100ms"))
	}
	if c.PersistInterval < time.Second {
		*errs = append(*errs, fmt.Errorf("PERSIST_INTERVAL must be at least 1 second"))
	}
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key, defaultValue string) (int, error) {
	value := getEnvOrDefault(key, defaultValue)
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}
