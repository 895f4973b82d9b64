package http

import (
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(3)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !rl.allow("10.1.1.1") {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	if rl.allow("10.1.1.1") {
		t.Fatal("fourth request in window allowed")
	}
	if !rl.allow("10.1.1.2") {
		t.Fatal("other client should not share the budget")
	}
	if got := rl.rejectedCount(); got != 1 {
		t.Fatalf("rejected=%d want 1", got)
	}

	// Steady traffic must not extend the window.
	now = now.Add(30 * time.Second)
	if rl.allow("10.1.1.1") {
		t.Fatal("still inside the window")
	}
	now = now.Add(30 * time.Second)
	if !rl.allow("10.1.1.1") {
		t.Fatal("new window should reset the budget")
	}
}

func TestRateLimiterDefaultsAndCleanup(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(0)
	rl.now = func() time.Time { return now }
	if rl.limit != defaultRequestsPerMinute {
		t.Fatalf("limit=%d want %d", rl.limit, defaultRequestsPerMinute)
	}

	rl.allow("a")
	now = now.Add(5 * time.Minute)
	rl.allow("b")
	now = now.Add(6 * time.Minute)

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Fatalf("removed=%d want 1", removed)
	}
	if _, ok := rl.clients["b"]; !ok {
		t.Fatal("recent client was dropped")
	}

	rl.stop()
	rl.stop()
}
