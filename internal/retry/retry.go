// Package retry provides a bounded-attempt executor with exponential
// backoff, shared by every instrumented RPC read path.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Default policy values.
const (
	DefaultMaxAttempts = 3
	DefaultDelay       = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultMultiplier  = 2.0
)

// Policy bounds the attempt budget and shapes the backoff curve.
type Policy struct {
	MaxAttempts int           // total tries including the first; <=0 means DefaultMaxAttempts
	Delay       time.Duration // delay before the second attempt
	MaxDelay    time.Duration // backoff cap; 0 means DefaultMaxDelay
	Multiplier  float64       // delay growth factor; 0 means DefaultMultiplier
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Delay <= 0 {
		p.Delay = DefaultDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.Multiplier <= 0 {
		p.Multiplier = DefaultMultiplier
	}
	return p
}

// Executor runs operations under a retry policy.
type Executor struct {
	policy Policy
	log    *zap.SugaredLogger
}

// NewExecutor creates an executor with the given policy. A nil logger
// disables attempt logging.
func NewExecutor(policy Policy, log *zap.SugaredLogger) *Executor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Executor{policy: policy.withDefaults(), log: log}
}

// permanentError stops the retry loop immediately.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Run returns it without further attempts.
// Node-reported RPC errors are permanent: repeating the identical request
// yields the identical answer.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Run invokes op until it succeeds, returns a permanent error, exhausts the
// attempt budget, or ctx is cancelled. The delay between attempts doubles
// each time up to the policy cap.
func (e *Executor) Run(ctx context.Context, kind string, op func(ctx context.Context) error) error {
	delay := e.policy.Delay
	var lastErr error

	for attempt := 0; attempt < e.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * e.policy.Multiplier)
			if delay > e.policy.MaxDelay {
				delay = e.policy.MaxDelay
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = err
		e.log.Debugw("retryable operation failed",
			"kind", kind,
			"attempt", attempt+1,
			"max_attempts", e.policy.MaxAttempts,
			"error", err,
		)
	}

	return fmt.Errorf("max retries exceeded for %s: %w", kind, lastErr)
}
