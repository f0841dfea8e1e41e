package llm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/echoforge/echoforge-go/llm"
)

func fastRetry(attempts int) llm.RetryConfig {
	return llm.RetryConfig{
		Attempts:  attempts,
		BaseDelay: time.Millisecond,
		MaxDelay:  5 * time.Millisecond,
		Timeout:   time.Second,
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := llm.Retry(context.Background(), fastRetry(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &llm.CallError{Op: "beat", Err: errors.New("connection reset")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	wantErr := &llm.CallError{Op: "beat", Err: errors.New("always down")}
	err := llm.Retry(context.Background(), fastRetry(3), func(ctx context.Context) error {
		calls++
		return wantErr
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	var callErr *llm.CallError
	if !errors.As(err, &callErr) {
		t.Errorf("expected CallError, got %T", err)
	}
}

func TestRetry_ContractErrorNotRetried(t *testing.T) {
	calls := 0
	err := llm.Retry(context.Background(), fastRetry(3), func(ctx context.Context) error {
		calls++
		return &llm.ContractError{Reason: "beat text is missing"}
	})
	var contractErr *llm.ContractError
	if !errors.As(err, &contractErr) {
		t.Fatalf("expected ContractError, got %v", err)
	}
	if calls != 1 {
		t.Errorf("contract errors must not retry, got %d calls", calls)
	}
}

func TestRetry_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := llm.Retry(ctx, fastRetry(3), func(ctx context.Context) error {
		calls++
		return &llm.CallError{Op: "beat", Err: ctx.Err()}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls > 1 {
		t.Errorf("cancelled context must stop retrying, got %d calls", calls)
	}
}
