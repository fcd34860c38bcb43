package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type testNetError struct{}

func (e testNetError) Error() string   { return "net error" }
func (e testNetError) Timeout() bool   { return true }
func (e testNetError) Temporary() bool { return true }

func fastConfig() Config {
	return Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestDo_RetriesOnRetryableStatus(t *testing.T) {
	for _, status := range []int{
		http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
	} {
		attempts := 0
		err := Do(context.Background(), fastConfig(), IsRetryable, func(ctx context.Context) error {
			attempts++
			return &StatusError{Status: status}
		})

		if err == nil {
			t.Fatalf("status %d: expected error, got nil", status)
		}
		if attempts != 3 {
			t.Fatalf("status %d: expected 3 attempts, got %d", status, attempts)
		}
	}
}

func TestDo_TerminalStatusFailsFast(t *testing.T) {
	for _, status := range []int{
		http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound,
	} {
		attempts := 0
		err := Do(context.Background(), fastConfig(), IsRetryable, func(ctx context.Context) error {
			attempts++
			return &StatusError{Status: status, Message: "rejected"}
		})

		if err == nil {
			t.Fatalf("status %d: expected error, got nil", status)
		}
		if attempts != 1 {
			t.Fatalf("status %d: expected 1 attempt, got %d", status, attempts)
		}
	}
}

func TestDo_RetriesOnNetworkError(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(), IsRetryable, func(ctx context.Context) error {
		attempts++
		return testNetError{}
	})

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDo_SucceedsAfterRetry(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(), IsRetryable, func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return &StatusError{Status: http.StatusServiceUnavailable}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestDo_NoRetryOnUnclassifiedError(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(), IsRetryable, func(ctx context.Context) error {
		attempts++
		return errors.New("boom")
	})

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestDo_ContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := Do(ctx, Config{MaxAttempts: 5, BaseDelay: 50 * time.Millisecond}, IsRetryable, func(ctx context.Context) error {
		attempts++
		cancel()
		return testNetError{}
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestIsRetryable_ContextCanceledIsTerminal(t *testing.T) {
	if IsRetryable(context.Canceled) {
		t.Fatal("context.Canceled must not be retried")
	}
	if !IsRetryable(context.DeadlineExceeded) {
		t.Fatal("deadline exceeded should be retried")
	}
}
