package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		Delay:       time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestRun_SucceedsFirstAttempt(t *testing.T) {
	e := NewExecutor(fastPolicy(3), nil)

	calls := 0
	err := e.Run(context.Background(), "test", func(ctx context.Context) error {
		calls++
		return nil
	})

	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRun_RetriesTransientFailure(t *testing.T) {
	e := NewExecutor(fastPolicy(3), nil)

	calls := 0
	err := e.Run(context.Background(), "test", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRun_ExhaustsBudget(t *testing.T) {
	e := NewExecutor(fastPolicy(3), nil)

	wantErr := errors.New("always failing")
	calls := 0
	err := e.Run(context.Background(), "test", func(ctx context.Context) error {
		calls++
		return wantErr
	})

	if calls != 3 {
		t.Errorf("expected exactly 3 calls, got %d", calls)
	}
	if err == nil {
		t.Fatal("expected error after exhausting budget")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped original error, got %v", err)
	}
}

func TestRun_PermanentStopsImmediately(t *testing.T) {
	e := NewExecutor(fastPolicy(5), nil)

	wantErr := errors.New("node rejected request")
	calls := 0
	err := e.Run(context.Background(), "test", func(ctx context.Context) error {
		calls++
		return Permanent(wantErr)
	})

	if calls != 1 {
		t.Errorf("expected 1 call for permanent error, got %d", calls)
	}
	// The permanent wrapper is stripped before returning.
	if !errors.Is(err, wantErr) {
		t.Errorf("expected original error, got %v", err)
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	e := NewExecutor(Policy{MaxAttempts: 10, Delay: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- e.Run(ctx, "test", func(ctx context.Context) error {
			return errors.New("fail, then wait an hour")
		})
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestPolicy_Defaults(t *testing.T) {
	p := Policy{}.withDefaults()

	if p.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("expected default max attempts %d, got %d", DefaultMaxAttempts, p.MaxAttempts)
	}
	if p.Delay != DefaultDelay {
		t.Errorf("expected default delay %v, got %v", DefaultDelay, p.Delay)
	}
	if p.Multiplier != DefaultMultiplier {
		t.Errorf("expected default multiplier %v, got %v", DefaultMultiplier, p.Multiplier)
	}
}

func TestPermanent_NilPassthrough(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}
