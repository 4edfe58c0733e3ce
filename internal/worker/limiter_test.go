package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 1 {
		t.Errorf("expected default burst 1 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "tenders_static"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	// Different table has its own bucket
	if err := limiter.Wait(ctx, "tenders_update"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_Throttles(t *testing.T) {
	limiter := NewLimiter(20, 1) // one token every 50ms
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx, "tenders_static"); err != nil {
			t.Fatalf("wait failed: %v", err)
		}
	}

	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected throttling of at least 80ms, got %v", elapsed)
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if !limiter.Allow("tenders_static") {
			t.Fatalf("expected unlimited limiter to allow write %d", i)
		}
	}
}

func TestLimiter_CancelledContext(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	limiter.Allow("tenders_update") // drain the only token

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Wait(ctx, "tenders_update"); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestLimiter_SetRate(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	limiter.SetRate("rivers", 1000, 10)

	for i := 0; i < 10; i++ {
		if !limiter.Allow("rivers") {
			t.Fatalf("expected burst of 10 to be allowed, failed at %d", i)
		}
	}
}
