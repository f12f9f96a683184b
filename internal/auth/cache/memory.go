package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"vitalreg/internal/platform/middleware"
)

// Memory is a per-process identity cache backed by go-cache.
type Memory struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewMemory constructs an in-process identity cache with the given TTL.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		cache: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

func (m *Memory) Get(_ context.Context, sid string) (middleware.Identity, bool) {
	value, ok := m.cache.Get(sid)
	if !ok {
		return middleware.Identity{}, false
	}
	identity, ok := value.(middleware.Identity)
	return identity, ok
}

func (m *Memory) Set(_ context.Context, sid string, identity middleware.Identity) {
	m.cache.Set(sid, identity, m.ttl)
}

func (m *Memory) Delete(_ context.Context, sid string) {
	m.cache.Delete(sid)
}
