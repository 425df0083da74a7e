package rate

import (
	"context"
	"testing"
	"time"
)

func TestWaitFirstTokenImmediate(t *testing.T) {
	tb := NewTokenBucket(1)
	defer tb.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := tb.Wait(ctx); err != nil {
		t.Fatalf("first wait should not block: %v", err)
	}
}

func TestWaitCanceled(t *testing.T) {
	tb := NewTokenBucket(1)
	defer tb.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	if err := tb.Wait(ctx); err != nil {
		t.Fatalf("first wait should not block: %v", err)
	}
	cancel()
	if err := tb.Wait(ctx); err == nil {
		t.Fatalf("expected error after cancel")
	}
}

func TestStopReturns(t *testing.T) {
	tb := NewTokenBucket(5)

	done := make(chan struct{})
	go func() {
		tb.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop did not return: limiter goroutine never exited")
	}
}
