package document

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store persists document metadata. Lists return newest-first copies.
type Store interface {
	Create(ctx context.Context, doc *Document) error
	ListByApplication(ctx context.Context, applicationID, applicationType string) ([]*Document, error)
}

// InMemoryStore keeps document metadata in a map guarded by a RWMutex.
type InMemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*Document
}

// NewInMemoryStore constructs an empty in-memory document store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[int64]*Document)}
}

// Create assigns an id and stores a copy of the document.
func (s *InMemoryStore) Create(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	doc.ID = s.nextID
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	stored := *doc
	s.byID[doc.ID] = &stored
	return nil
}

// ListByApplication returns the documents attached to one application,
// newest first.
func (s *InMemoryStore) ListByApplication(_ context.Context, applicationID, applicationType string) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []*Document
	for _, doc := range s.byID {
		if doc.ApplicationID == applicationID && doc.ApplicationType == applicationType {
			copied := *doc
			docs = append(docs, &copied)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID > docs[j].ID
	})
	return docs, nil
}
