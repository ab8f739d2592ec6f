package channels

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedKeys caps the number of tracked senders so rotating ids cannot
// exhaust memory.
const maxTrackedKeys = 4096

type senderEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SenderRateLimiter is a token bucket per sender key: maxEvents tokens,
// refilled evenly over window. Safe for concurrent use.
type SenderRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*senderEntry
	limit   rate.Limit
	burst   int
	window  time.Duration
	maxKeys int
	now     func() time.Time
}

// NewSenderRateLimiter allows bursts of maxEvents per key, refilling the
// bucket over window.
func NewSenderRateLimiter(maxEvents int, window time.Duration) *SenderRateLimiter {
	if maxEvents <= 0 {
		maxEvents = 30
	}
	if window <= 0 {
		window = 10 * time.Second
	}
	return &SenderRateLimiter{
		entries: make(map[string]*senderEntry),
		limit:   rate.Limit(float64(maxEvents) / window.Seconds()),
		burst:   maxEvents,
		window:  window,
		maxKeys: maxTrackedKeys,
		now:     time.Now,
	}
}

// Allow reports whether key may send one more event now.
func (r *SenderRateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	e, ok := r.entries[key]
	if !ok {
		if len(r.entries) >= r.maxKeys {
			r.pruneLocked(now)
		}
		e = &senderEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (r *SenderRateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// pruneLocked drops keys idle for a full window (their bucket is full again,
// so forgetting them changes nothing), then evicts the least recently seen
// keys if still at the cap.
func (r *SenderRateLimiter) pruneLocked(now time.Time) {
	for k, e := range r.entries {
		if now.Sub(e.lastSeen) >= r.window {
			delete(r.entries, k)
		}
	}
	for len(r.entries) >= r.maxKeys {
		var (
			oldestKey string
			oldest    time.Time
			found     bool
		)
		for k, e := range r.entries {
			if !found || e.lastSeen.Before(oldest) {
				oldestKey, oldest, found = k, e.lastSeen, true
			}
		}
		delete(r.entries, oldestKey)
	}
}
