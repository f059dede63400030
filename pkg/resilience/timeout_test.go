package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithTimeoutReturnsResultWhenFast(t *testing.T) {
	err := WithTimeout(context.Background(), 50*time.Millisecond, "fast", func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("WithTimeout() = %v, want nil", err)
	}
}

func TestWithTimeoutExceeded(t *testing.T) {
	err := WithTimeout(context.Background(), 5*time.Millisecond, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want wrapping context.DeadlineExceeded", err)
	}
}

func TestWithTimeoutZeroRunsDirectly(t *testing.T) {
	called := false
	err := WithTimeout(context.Background(), 0, "no-limit", func(ctx context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("WithTimeout() = %v, want nil", err)
	}
	if !called {
		t.Fatal("expected fn to be called")
	}
}

func TestWithTimeoutParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithTimeout(ctx, 50*time.Millisecond, "cancelled-parent", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err == nil {
		t.Fatal("expected error")
	}
}
