package user

import (
	"context"
	"strings"
	"sync"
	"time"

	"vitalreg/internal/auth/models"
	"vitalreg/pkg/platform/sentinel"
)

// InMemory is a thread-safe in-memory user store used by tests and local
// development.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

func (s *InMemory) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeEmail(u.Email)
	if _, exists := s.byEmail[key]; exists {
		return sentinel.ErrConflict
	}
	cp := *u
	s.byID[u.ID] = &cp
	s.byEmail[key] = u.ID
	return nil
}

func (s *InMemory) Upsert(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byID[u.ID]; ok {
		delete(s.byEmail, normalizeEmail(prev.Email))
	}
	cp := *u
	cp.UpdatedAt = time.Now().UTC()
	s.byID[u.ID] = &cp
	s.byEmail[normalizeEmail(u.Email)] = u.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *InMemory) FindByVerificationToken(_ context.Context, token string, now time.Time) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.byID {
		if u.VerificationToken == token && token != "" {
			if !u.VerificationTokenExpiry.IsZero() && u.VerificationTokenExpiry.Before(now) {
				return nil, sentinel.ErrNotFound
			}
			cp := *u
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByResetToken(_ context.Context, token string, now time.Time) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.byID {
		if u.ResetToken == token && token != "" {
			if !u.ResetTokenExpiry.IsZero() && u.ResetTokenExpiry.Before(now) {
				return nil, sentinel.ErrNotFound
			}
			cp := *u
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
