// Package cache provides the read-through identity cache that sits in front
// of the session store. Entries are keyed by session ID and expire on a
// short TTL so role or verification changes propagate within minutes.
package cache

import (
	"context"

	"vitalreg/internal/platform/middleware"
)

// IdentityCache caches resolved session identities. Misses are reported via
// the boolean; cache failures are treated as misses.
type IdentityCache interface {
	Get(ctx context.Context, sid string) (middleware.Identity, bool)
	Set(ctx context.Context, sid string, identity middleware.Identity)
	Delete(ctx context.Context, sid string)
}
