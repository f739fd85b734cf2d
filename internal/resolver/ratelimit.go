package resolver

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/choosepower/tdsp-resolver/internal/config"
)

// limitClass separates request ceilings by cost. Address lookups are capped
// harder because each cache miss reaches the external registry.
type limitClass string

const (
	classZip     limitClass = "zip"
	classAddress limitClass = "address"
)

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// identityLimiter enforces per-identity token buckets, one per limit class.
// Idle identities are pruned so the map does not grow without bound.
type identityLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	cfg      config.RateLimitConfig

	nowFunc func() time.Time
}

const limiterIdleTTL = 10 * time.Minute

func newIdentityLimiter(cfg config.RateLimitConfig) *identityLimiter {
	return &identityLimiter{
		limiters: make(map[string]*limiterEntry),
		cfg:      cfg,
		nowFunc:  time.Now,
	}
}

// Allow reports whether identity may make one request of the given class.
// When denied, retryAfter is the positive wait until the next token.
func (l *identityLimiter) Allow(identity string, class limitClass) (retryAfter time.Duration, ok bool) {
	if l.cfg.Disabled {
		return 0, true
	}
	if identity == "" {
		identity = "anonymous"
	}

	l.mu.Lock()
	key := string(class) + ":" + identity
	entry, found := l.limiters[key]
	if !found {
		entry = &limiterEntry{lim: l.newLimiter(class)}
		l.limiters[key] = entry
		if len(l.limiters)%512 == 0 {
			l.pruneLocked()
		}
	}
	entry.lastSeen = l.nowFunc()
	l.mu.Unlock()

	r := entry.lim.Reserve()
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		return delay, false
	}
	return 0, true
}

func (l *identityLimiter) newLimiter(class limitClass) *rate.Limiter {
	perMinute, burst := l.cfg.ZipPerMinute, l.cfg.ZipBurst
	if class == classAddress {
		perMinute, burst = l.cfg.AddressPerMinute, l.cfg.AddressBurst
	}
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst)
}

// pruneLocked drops identities idle past limiterIdleTTL. Called with the
// lock held.
func (l *identityLimiter) pruneLocked() {
	cutoff := l.nowFunc().Add(-limiterIdleTTL)
	for k, e := range l.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(l.limiters, k)
		}
	}
}
