package relay

import (
	"sync"
	"time"
)

// DefaultMaxChallenges bounds how many pending challenges are kept in memory.
const DefaultMaxChallenges = 10000

// ChallengeStore keeps the live challenge per user. A new challenge for a
// user replaces the previous one. Safe for concurrent use.
type ChallengeStore struct {
	mu    sync.Mutex
	items map[int64]Challenge
	ttl   time.Duration
	max   int
	now   func() time.Time
}

// NewChallengeStore creates a store whose challenges live for ttl.
func NewChallengeStore(ttl time.Duration, max int) *ChallengeStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if max <= 0 {
		max = DefaultMaxChallenges
	}
	return &ChallengeStore{
		items: make(map[int64]Challenge),
		ttl:   ttl,
		max:   max,
		now:   time.Now,
	}
}

// Put stores c for its user, stamping the expiry.
func (s *ChallengeStore) Put(c Challenge) Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c.ExpiresAt = now.Add(s.ttl)

	if _, exists := s.items[c.UserID]; !exists && len(s.items) >= s.max {
		s.sweepLocked(now)
		if len(s.items) >= s.max {
			s.evictOldestLocked()
		}
	}
	s.items[c.UserID] = c
	return c
}

// Get returns the live challenge for userID. Expired entries are removed.
func (s *ChallengeStore) Get(userID int64) (Challenge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.items[userID]
	if !ok {
		return Challenge{}, false
	}
	if !s.now().Before(c.ExpiresAt) {
		delete(s.items, userID)
		return Challenge{}, false
	}
	return c, true
}

// Delete drops the challenge for userID.
func (s *ChallengeStore) Delete(userID int64) {
	s.mu.Lock()
	delete(s.items, userID)
	s.mu.Unlock()
}

// Len returns the number of stored challenges, expired ones included.
func (s *ChallengeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep removes expired challenges and returns how many went.
func (s *ChallengeStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

func (s *ChallengeStore) sweepLocked(now time.Time) int {
	n := 0
	for id, c := range s.items {
		if !now.Before(c.ExpiresAt) {
			delete(s.items, id)
			n++
		}
	}
	return n
}

func (s *ChallengeStore) evictOldestLocked() {
	var (
		oldestID int64
		oldest   time.Time
		found    bool
	)
	for id, c := range s.items {
		if !found || c.ExpiresAt.Before(oldest) {
			oldestID, oldest, found = id, c.ExpiresAt, true
		}
	}
	if found {
		delete(s.items, oldestID)
	}
}
