package config

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"hotel-booking/repository"
)

const sweeperLockKey = "hotel-booking:sweeper:leader"

// ConnectRedis returns the sweeper leader lock, or nil when REDIS_URL is unset
// or unreachable (every replica then sweeps, which conditional updates make safe).
func ConnectRedis(cfg *Config, log logrus.FieldLogger) (*repository.RedisLock, *redis.Client) {
	if cfg.RedisURL == "" {
		log.Info("REDIS_URL not set, sweeper runs without a leader lock")
		return nil, nil
	}
	cli, err := repository.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.WithError(err).Warn("invalid REDIS_URL, sweeper runs without a leader lock")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("redis unreachable, sweeper runs without a leader lock")
		cli.Close()
		return nil, nil
	}
	log.Info("redis connected")
	return repository.NewRedisLock(cli, sweeperLockKey), cli
}
