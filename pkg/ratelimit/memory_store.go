package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps attempt histories in a process-local map.
//
// This is a placeholder for a shared, durable, TTL-capable store (see
// RedisStore): it does not survive restarts and is not shared across
// horizontally scaled instances. A restart therefore resets every user's
// counters to zero (fail-open).
type MemoryStore struct {
	mu       sync.Mutex
	attempts map[string][]Attempt
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		attempts: make(map[string][]Attempt),
		now:      time.Now,
	}
}

// History returns the user's retained attempts, oldest first. Entries older
// than the retention window are pruned from the stored history on every read.
func (s *MemoryStore) History(_ context.Context, userID string) ([]Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.pruneLocked(userID)

	out := make([]Attempt, len(kept))
	copy(out, kept)
	return out, nil
}

// Append records an attempt and prunes aged-out entries for that user.
func (s *MemoryStore) Append(_ context.Context, attempt Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts[attempt.UserID] = append(s.attempts[attempt.UserID], attempt)
	s.pruneLocked(attempt.UserID)
	return nil
}

// Reset discards the user's history.
func (s *MemoryStore) Reset(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.attempts, userID)
	return nil
}

// Users lists every user with at least one retained attempt.
func (s *MemoryStore) Users(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userIDs := make([]string, 0, len(s.attempts))
	for userID := range s.attempts {
		if len(s.pruneLocked(userID)) > 0 {
			userIDs = append(userIDs, userID)
		}
	}
	return userIDs, nil
}

// pruneLocked drops entries past retention and returns what remains.
// Caller must hold s.mu.
func (s *MemoryStore) pruneLocked(userID string) []Attempt {
	cutoff := s.now().Add(-RetentionWindow)
	kept := pruneBefore(s.attempts[userID], cutoff)
	if len(kept) == 0 {
		delete(s.attempts, userID)
		return nil
	}
	s.attempts[userID] = kept
	return kept
}
