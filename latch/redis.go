package latch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"licoreria-pos/apperr"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired latch retaken by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a latch shared by every gateway process pointed at the same
// Redis. A zero TTL keeps the key until release.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, log *zap.Logger) *Redis {
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{client: client, prefix: "latch:", ttl: ttl, log: log}
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	k := r.prefix + key
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, k, token, r.ttl).Result()
	if err != nil {
		return nil, apperr.Transport("latch unavailable", fmt.Errorf("redis setnx %s: %w", k, err))
	}
	if !ok {
		return nil, apperr.ErrInFlight
	}
	return func() {
		// the caller's ctx may already be cancelled by the time we release
		if err := releaseScript.Run(context.Background(), r.client, []string{k}, token).Err(); err != nil {
			r.log.Warn("latch release failed", zap.String("key", k), zap.Error(err))
		}
	}, nil
}
