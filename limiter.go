package folio

import (
	"sync"
	"time"
)

// AuthLimiter rate-limits failed authentication attempts per IP address.
// It covers both the operator login and the bearer-secret endpoints.
type AuthLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

// NewAuthLimiter returns a limiter that blocks an IP after max failures
// inside window. Close stops its cleanup goroutine.
func NewAuthLimiter(max int, window time.Duration) *AuthLimiter {
	l := &AuthLimiter{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *AuthLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
		}
		l.mu.Lock()
		cutoff := l.now().Add(-l.window)
		for ip, hits := range l.attempts {
			if kept := recent(hits, cutoff); len(kept) == 0 {
				delete(l.attempts, ip)
			} else {
				l.attempts[ip] = kept
			}
		}
		l.mu.Unlock()
	}
}

func recent(hits []time.Time, cutoff time.Time) []time.Time {
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// Close stops the background cleanup.
func (l *AuthLimiter) Close() error {
	l.once.Do(func() { close(l.stop) })
	return nil
}

// Check reports whether ip is under the limit without counting anything.
func (l *AuthLimiter) Check(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := recent(l.attempts[ip], l.now().Add(-l.window))
	l.attempts[ip] = kept
	return len(kept) < l.max
}

// Record counts one failed attempt from ip.
func (l *AuthLimiter) Record(ip string) {
	l.mu.Lock()
	l.attempts[ip] = append(l.attempts[ip], l.now())
	l.mu.Unlock()
}
