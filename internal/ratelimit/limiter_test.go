package ratelimit

import (
	"testing"
	"time"

	"github.com/y-ui/yuictl/internal/clock"
)

func newTestLimiter(limit int) (*Limiter, *clock.MockClock) {
	mock := clock.NewMockClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewLimiter(limit, time.Minute, mock), mock
}

func TestLimiter_Allow_Basic(t *testing.T) {
	l, _ := newTestLimiter(3)

	// First 3 requests should succeed
	for i := 0; i < 3; i++ {
		if !l.Allow("ops") {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	if l.Allow("ops") {
		t.Error("4th request should be denied")
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1)

	if !l.Allow("ops") {
		t.Fatal("first ops attempt denied")
	}
	if !l.Allow("root") {
		t.Error("root should have its own bucket")
	}
	if l.Allow("ops") {
		t.Error("second ops attempt should be denied")
	}
}

func TestLimiter_RefillAfterInterval(t *testing.T) {
	l, mock := newTestLimiter(2)

	l.Allow("ops")
	l.Allow("ops")
	if l.Allow("ops") {
		t.Fatal("bucket should be empty")
	}

	mock.Advance(59 * time.Second)
	if l.Allow("ops") {
		t.Error("bucket refilled before the interval")
	}

	mock.Advance(time.Second)
	if !l.Allow("ops") {
		t.Error("bucket should refill after the interval")
	}
}

func TestLimiter_Wait(t *testing.T) {
	l, mock := newTestLimiter(1)

	if w := l.Wait("ops"); w != 0 {
		t.Errorf("Wait() on a full bucket = %v, want 0", w)
	}

	l.Allow("ops")
	mock.Advance(20 * time.Second)
	if w := l.Wait("ops"); w != 40*time.Second {
		t.Errorf("Wait() = %v, want 40s", w)
	}
}

func TestLimiter_Reset(t *testing.T) {
	l, _ := newTestLimiter(1)

	l.Allow("ops")
	l.Reset("ops")
	if !l.Allow("ops") {
		t.Error("Reset should restore the bucket")
	}
}

func TestLimiter_CleanupExpired(t *testing.T) {
	l, mock := newTestLimiter(1)

	l.Allow("old")
	mock.Advance(10 * time.Minute)
	l.Allow("new")

	if n := l.CleanupExpired(5 * time.Minute); n != 1 {
		t.Errorf("CleanupExpired() = %d, want 1", n)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.limiters["old"]; ok {
		t.Error("old bucket should be removed")
	}
	if _, ok := l.limiters["new"]; !ok {
		t.Error("new bucket should be kept")
	}
}
