package lockout

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore keeps lockout records in a map guarded by a mutex.
type InMemoryStore struct {
	mu      sync.Mutex
	byEmail map[string]*Record
}

// NewInMemoryStore constructs an empty in-memory lockout store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byEmail: make(map[string]*Record)}
}

// Get returns a copy of the record, or nil when the email has no failures.
func (s *InMemoryStore) Get(_ context.Context, email string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byEmail[email]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

// RecordFailure increments the failure count, restarting it when the last
// failure predates the window.
func (s *InMemoryStore) RecordFailure(_ context.Context, email string, now, windowStart time.Time) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byEmail[email]
	if !ok {
		record = &Record{Email: email}
		s.byEmail[email] = record
	}
	if record.LastFailureAt.Before(windowStart) {
		record.FailureCount = 0
	}
	record.FailureCount++
	record.LastFailureAt = now

	copied := *record
	return &copied, nil
}

// Lock sets the hard-lock deadline.
func (s *InMemoryStore) Lock(_ context.Context, email string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byEmail[email]
	if !ok {
		record = &Record{Email: email}
		s.byEmail[email] = record
	}
	record.LockedUntil = until
	return nil
}

// Clear drops the record entirely.
func (s *InMemoryStore) Clear(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byEmail, email)
	return nil
}
