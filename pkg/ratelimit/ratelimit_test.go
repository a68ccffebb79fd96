package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucket_AllowAndRefill(t *testing.T) {
	tb := NewTokenBucket(2, 1)
	now := time.Unix(1_700_000_000, 0)
	tb.now = func() time.Time { return now }
	tb.lastRefill = now

	if !tb.Allow() || !tb.Allow() {
		t.Fatalf("expected two tokens")
	}
	if tb.Allow() {
		t.Fatalf("bucket should be empty")
	}

	now = now.Add(500 * time.Millisecond)
	if tb.Allow() {
		t.Fatalf("half a token is not enough")
	}
	now = now.Add(600 * time.Millisecond)
	if !tb.Allow() {
		t.Fatalf("expected refilled token")
	}
}

func TestTokenBucket_WaitRespectsContext(t *testing.T) {
	tb := NewTokenBucket(1, 0.001)
	if err := tb.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := tb.Wait(ctx); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestManager_Fallback(t *testing.T) {
	m := NewManager()
	custom := NewTokenBucket(1, 1)
	m.Set("x", custom)
	if m.Limiter("x") != RateLimiter(custom) {
		t.Fatalf("custom limiter not returned")
	}
	if m.Limiter("unknown") != m.fallback {
		t.Fatalf("unknown endpoint should use fallback")
	}
	if err := m.Wait(context.Background(), EndpointOrderPost); err != nil {
		t.Fatalf("wait: %v", err)
	}
}
