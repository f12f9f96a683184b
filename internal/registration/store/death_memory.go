package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"vitalreg/internal/registration/models"
	"vitalreg/pkg/platform/sentinel"
)

// InMemoryDeathStore is a thread-safe in-memory death registration store.
type InMemoryDeathStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*models.DeathRegistration
	certs  map[string]int64
	apps   map[string]int64
}

func NewInMemoryDeathStore() *InMemoryDeathStore {
	return &InMemoryDeathStore{
		nextID: 1,
		byID:   make(map[int64]*models.DeathRegistration),
		certs:  make(map[string]int64),
		apps:   make(map[string]int64),
	}
}

func (s *InMemoryDeathStore) Create(_ context.Context, reg *models.DeathRegistration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.apps[reg.ApplicationID]; exists {
		return sentinel.ErrConflict
	}
	reg.ID = s.nextID
	s.nextID++
	cp := *reg
	s.byID[reg.ID] = &cp
	s.apps[reg.ApplicationID] = reg.ID
	return nil
}

func (s *InMemoryDeathStore) FindByID(_ context.Context, id int64) (*models.DeathRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reg, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *reg
	return &cp, nil
}

func (s *InMemoryDeathStore) FindByApplicationID(_ context.Context, applicationID string) (*models.DeathRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.apps[applicationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *InMemoryDeathStore) FindByCertificateNumber(_ context.Context, certificateNumber string) (*models.DeathRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.certs[certificateNumber]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *InMemoryDeathStore) UpdateStatus(_ context.Context, id int64, update StatusUpdate) (*models.DeathRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if reg.Status != models.StatusPending {
		return nil, sentinel.ErrInvalidState
	}
	if update.CertificateNumber != "" {
		if _, taken := s.certs[update.CertificateNumber]; taken {
			return nil, sentinel.ErrConflict
		}
		s.certs[update.CertificateNumber] = id
	}

	reg.Status = update.Status
	reg.ReviewedBy = update.ReviewedBy
	reg.ReviewNotes = update.ReviewNotes
	reg.CertificateNumber = update.CertificateNumber
	reg.UpdatedAt = time.Now().UTC()

	cp := *reg
	return &cp, nil
}

func (s *InMemoryDeathStore) ListAll(_ context.Context) ([]*models.DeathRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(*models.DeathRegistration) bool { return true }), nil
}

func (s *InMemoryDeathStore) ListByStatus(_ context.Context, status models.Status) ([]*models.DeathRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(r *models.DeathRegistration) bool { return r.Status == status }), nil
}

func (s *InMemoryDeathStore) ListBySubmitter(_ context.Context, submitterID string) ([]*models.DeathRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(r *models.DeathRegistration) bool { return r.SubmittedBy == submitterID }), nil
}

func (s *InMemoryDeathStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

func (s *InMemoryDeathStore) CountByStatus(_ context.Context, status models.Status) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, reg := range s.byID {
		if reg.Status == status {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryDeathStore) collect(match func(*models.DeathRegistration) bool) []*models.DeathRegistration {
	out := make([]*models.DeathRegistration, 0)
	for _, reg := range s.byID {
		if match(reg) {
			cp := *reg
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
