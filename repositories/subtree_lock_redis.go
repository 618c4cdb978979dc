package repositories

import (
	"context"
	"fmt"
	"time"

	"filerepo/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockRetryInterval = 50 * time.Millisecond

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSubtreeLocker shares subtree locks between service instances. Each key
// expires after ttl so a crashed holder cannot wedge a subtree.
type RedisSubtreeLocker struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisSubtreeLocker(redisClient *redis.Client, ttl time.Duration) *RedisSubtreeLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisSubtreeLocker{redis: redisClient, ttl: ttl}
}

func redisLockKey(key string) string {
	return fmt.Sprintf("filerepo:lock:%s", key)
}

func (l *RedisSubtreeLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	token := uuid.NewString()
	ordered := normalizeKeys(keys)
	held := make([]string, 0, len(ordered))
	for _, key := range ordered {
		if err := l.acquire(ctx, redisLockKey(key), token); err != nil {
			l.release(held, token)
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		held = append(held, redisLockKey(key))
	}
	return func() { l.release(held, token) }, nil
}

func (l *RedisSubtreeLocker) acquire(ctx context.Context, key string, token string) error {
	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()
	for {
		ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *RedisSubtreeLocker) release(keys []string, token string) {
	// The caller's ctx may already be cancelled; release must still run.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(keys) - 1; i >= 0; i-- {
		if err := releaseLockScript.Run(ctx, l.redis, []string{keys[i]}, token).Err(); err != nil {
			logger.Warnw("failed to release subtree lock", "key", keys[i], "ttl", l.ttl, "error", err)
		}
	}
}
