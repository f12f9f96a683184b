package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"vitalreg/internal/registration/models"
	"vitalreg/pkg/platform/sentinel"
)

// InMemoryBirthStore is a thread-safe in-memory birth registration store.
type InMemoryBirthStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*models.BirthRegistration
	certs  map[string]int64
	apps   map[string]int64
}

func NewInMemoryBirthStore() *InMemoryBirthStore {
	return &InMemoryBirthStore{
		nextID: 1,
		byID:   make(map[int64]*models.BirthRegistration),
		certs:  make(map[string]int64),
		apps:   make(map[string]int64),
	}
}

func (s *InMemoryBirthStore) Create(_ context.Context, reg *models.BirthRegistration) error {
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

func (s *InMemoryBirthStore) FindByID(_ context.Context, id int64) (*models.BirthRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reg, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *reg
	return &cp, nil
}

func (s *InMemoryBirthStore) FindByApplicationID(_ context.Context, applicationID string) (*models.BirthRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.apps[applicationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *InMemoryBirthStore) FindByCertificateNumber(_ context.Context, certificateNumber string) (*models.BirthRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.certs[certificateNumber]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *InMemoryBirthStore) UpdateStatus(_ context.Context, id int64, update StatusUpdate) (*models.BirthRegistration, error) {
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

func (s *InMemoryBirthStore) ListAll(_ context.Context) ([]*models.BirthRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(*models.BirthRegistration) bool { return true }), nil
}

func (s *InMemoryBirthStore) ListByStatus(_ context.Context, status models.Status) ([]*models.BirthRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(r *models.BirthRegistration) bool { return r.Status == status }), nil
}

func (s *InMemoryBirthStore) ListBySubmitter(_ context.Context, submitterID string) ([]*models.BirthRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(r *models.BirthRegistration) bool { return r.SubmittedBy == submitterID }), nil
}

func (s *InMemoryBirthStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

func (s *InMemoryBirthStore) CountByStatus(_ context.Context, status models.Status) (int, error) {
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

// collect copies matching records ordered newest-first. Callers hold the
// read lock.
func (s *InMemoryBirthStore) collect(match func(*models.BirthRegistration) bool) []*models.BirthRegistration {
	out := make([]*models.BirthRegistration, 0)
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
