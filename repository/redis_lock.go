package repository

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// RedisLock is a best-effort lease so only one instance runs the sweeper at a time.
type RedisLock struct {
	cli *redis.Client
	key string
}

func NewRedisLock(cli *redis.Client, key string) *RedisLock {
	return &RedisLock{cli: cli, key: key}
}

// NewRedisClient accepts either a redis:// URL or a bare host:port.
func NewRedisClient(raw string) (*redis.Client, error) {
	if opts, err := redis.ParseURL(raw); err == nil {
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: raw, DB: 0}), nil
}

// Acquire returns a release func when the lease was taken, nil when another
// holder owns it.
func (l *RedisLock) Acquire(ctx context.Context, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	ok, err := l.cli.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		releaseScript.Run(ctx, l.cli, []string{l.key}, token)
	}, nil
}
