package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long a caller's bucket survives without requests. A bucket refills
// completely well within this window, so dropping it loses no state.
const limiterIdleTTL = 5 * time.Minute

type callerBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// callerLimiter keeps one token bucket per caller and sweeps idle ones.
type callerLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	buckets   map[string]*callerBucket
	lastSweep time.Time
	now       func() time.Time
}

// newCallerLimiter returns nil when perMinute is not positive, which disables limiting.
func newCallerLimiter(perMinute int) *callerLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &callerLimiter{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   max(1, perMinute/6),
		buckets: make(map[string]*callerBucket),
		now:     time.Now,
	}
}

func (l *callerLimiter) Allow(caller string) bool {
	if l == nil {
		return true
	}
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= limiterIdleTTL {
		l.sweep(now)
	}
	b, ok := l.buckets[caller]
	if !ok {
		b = &callerBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[caller] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	return b.lim.AllowN(now, 1)
}

// sweep drops buckets idle for longer than limiterIdleTTL. Callers hold mu.
func (l *callerLimiter) sweep(now time.Time) {
	for caller, b := range l.buckets {
		if now.Sub(b.lastSeen) > limiterIdleTTL {
			delete(l.buckets, caller)
		}
	}
	l.lastSweep = now
}

func (l *callerLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
