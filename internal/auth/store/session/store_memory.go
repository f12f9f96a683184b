package session

import (
	"context"
	"sync"
	"time"

	"vitalreg/internal/auth/models"
	"vitalreg/pkg/platform/sentinel"
)

// InMemory is a thread-safe in-memory session store used by tests and local
// development.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

func NewInMemory() *InMemory {
	return &InMemory{sessions: make(map[string]*models.Session)}
}

func (s *InMemory) Create(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.SID]; exists {
		return sentinel.ErrConflict
	}
	cp := *sess
	s.sessions[sess.SID] = &cp
	return nil
}

func (s *InMemory) Find(_ context.Context, sid string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *InMemory) Touch(_ context.Context, sid string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sid]
	if !ok {
		return sentinel.ErrNotFound
	}
	sess.ExpiresAt = expiresAt
	return nil
}

func (s *InMemory) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sid]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.sessions, sid)
	return nil
}

func (s *InMemory) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for sid, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, sid)
			pruned++
		}
	}
	return pruned, nil
}
