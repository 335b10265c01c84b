package folio

import (
	"testing"
	"time"
)

func newTestLimiter(max int, window time.Duration) (*AuthLimiter, *time.Time) {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewAuthLimiter(max, window)
	l.now = func() time.Time { return clock }
	return l, &clock
}

// failLogin mirrors a rejected login: check first, then count the failure.
func failLogin(l *AuthLimiter, ip string) bool {
	if !l.Check(ip) {
		return false
	}
	l.Record(ip)
	return true
}

func TestAuthLimiterBlocksAfterMax(t *testing.T) {
	limiter, _ := newTestLimiter(2, time.Minute)
	defer limiter.Close()
	ip := "203.0.113.10"

	if !failLogin(limiter, ip) {
		t.Fatalf("expected first attempt to be allowed")
	}
	if !failLogin(limiter, ip) {
		t.Fatalf("expected second attempt to be allowed")
	}
	if failLogin(limiter, ip) {
		t.Fatalf("expected third attempt to be blocked")
	}
}

func TestAuthLimiterResetsAfterWindow(t *testing.T) {
	limiter, clock := newTestLimiter(1, time.Minute)
	defer limiter.Close()
	ip := "203.0.113.20"

	if !failLogin(limiter, ip) {
		t.Fatalf("expected first attempt to be allowed")
	}
	if failLogin(limiter, ip) {
		t.Fatalf("expected second attempt to be blocked")
	}

	*clock = clock.Add(61 * time.Second)
	if !failLogin(limiter, ip) {
		t.Fatalf("expected attempt after window to be allowed")
	}
}

func TestAuthLimiterIsPerIP(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Minute)
	defer limiter.Close()

	if !failLogin(limiter, "203.0.113.30") {
		t.Fatalf("expected first ip to be allowed")
	}
	if !failLogin(limiter, "203.0.113.31") {
		t.Fatalf("expected second ip to be allowed independently")
	}
	if failLogin(limiter, "203.0.113.30") {
		t.Fatalf("expected first ip to be blocked after max")
	}
}

func TestAuthLimiterCheckDoesNotRecord(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Minute)
	defer limiter.Close()
	ip := "203.0.113.40"

	for i := 0; i < 5; i++ {
		if !limiter.Check(ip) {
			t.Fatalf("check %d: expected allowed without recorded failures", i)
		}
	}
	limiter.Record(ip)
	if limiter.Check(ip) {
		t.Fatalf("expected block after recorded failure")
	}
}
