package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"leetcode_deck/internal/domain"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
}

// RedisLock is a single-holder lock keyed in Redis. The TTL bounds how long a
// crashed harvester can keep others out.
type RedisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisLock connects and pings Redis.
func NewRedisLock(ctx context.Context, cfg Config, logger *slog.Logger) (*RedisLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("connected to redis", "addr", cfg.Addr, "key", cfg.Key)

	return &RedisLock{
		client: client,
		key:    cfg.Key,
		ttl:    cfg.TTL,
		logger: logger,
	}, nil
}

// Acquire takes the lock or returns domain.ErrLockHeld. The returned release
// func is safe to call after the TTL has expired.
func (l *RedisLock) Acquire(ctx context.Context) (func(context.Context) error, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("set lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}

	l.logger.Debug("acquired harvest lock", "key", l.key, "ttl", l.ttl)

	return func(ctx context.Context) error {
		deleted, err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Int64()
		if err != nil {
			return fmt.Errorf("release lock: %w", err)
		}
		if deleted == 0 {
			l.logger.Warn("harvest lock expired before release", "key", l.key)
		}
		return nil
	}, nil
}

func (l *RedisLock) Close() error {
	return l.client.Close()
}
