package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"vitalreg/internal/platform/middleware"
)

const redisKeyPrefix = "identity:"

// Redis is a shared identity cache backed by Redis, for multi-instance
// deployments. Redis errors degrade to cache misses.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis constructs a Redis-backed identity cache with the given TTL.
func NewRedis(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	return &Redis{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *Redis) Get(ctx context.Context, sid string) (middleware.Identity, bool) {
	payload, err := r.client.Get(ctx, redisKeyPrefix+sid).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.WarnContext(ctx, "identity cache read failed", "error", err)
		}
		return middleware.Identity{}, false
	}
	var identity middleware.Identity
	if err := json.Unmarshal(payload, &identity); err != nil {
		r.logger.WarnContext(ctx, "identity cache entry corrupt", "error", err)
		return middleware.Identity{}, false
	}
	return identity, true
}

func (r *Redis) Set(ctx context.Context, sid string, identity middleware.Identity) {
	payload, err := json.Marshal(identity)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, redisKeyPrefix+sid, payload, r.ttl).Err(); err != nil {
		r.logger.WarnContext(ctx, "identity cache write failed", "error", err)
	}
}

func (r *Redis) Delete(ctx context.Context, sid string) {
	if err := r.client.Del(ctx, redisKeyPrefix+sid).Err(); err != nil {
		r.logger.WarnContext(ctx, "identity cache delete failed", "error", err)
	}
}
