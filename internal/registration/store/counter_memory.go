package store

import (
	"context"
	"fmt"
	"sync"

	"vitalreg/internal/registration/models"
)

// InMemoryCounter is a thread-safe in-memory sequence counter.
type InMemoryCounter struct {
	mu       sync.Mutex
	counters map[string]int
}

func NewInMemoryCounter() *InMemoryCounter {
	return &InMemoryCounter{counters: make(map[string]int)}
}

func (c *InMemoryCounter) NextSequence(_ context.Context, kind models.Kind, year int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := fmt.Sprintf("%s:%d", kind, year)
	c.counters[key]++
	return c.counters[key], nil
}
