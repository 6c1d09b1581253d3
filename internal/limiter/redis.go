package limiter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	ExpireNX(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Redis is a Window backed by INCR + EXPIRE NX (Redis 7 or newer).
type Redis struct {
	client redisCounter
	limit  int
	window time.Duration
	prefix string
}

// NewRedis returns a Window allowing limit hits per window. *redis.Client
// satisfies the client parameter.
func NewRedis(client redisCounter, limit int, window time.Duration) *Redis {
	return &Redis{client: client, limit: limit, window: window, prefix: "login:"}
}

// Allow implements Window.
func (l *Redis) Allow(ctx context.Context, key string) (bool, error) {
	k := l.prefix + key
	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return true, err
	}
	// NX on every hit: a key whose first EXPIRE was lost still gets a TTL.
	if err := l.client.ExpireNX(ctx, k, l.window).Err(); err != nil {
		return true, err
	}
	return n <= int64(l.limit), nil
}
