package lib

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var redisClient *redis.Client

func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		return nil
	}
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		zap.L().Error("error parsing redis connection string", zap.Error(err))
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

func PaymentCallbackLockKey(authority string) string {
	return fmt.Sprintf("lock:payments:callback:%s", authority)
}

func TicketURLKey(ticketID string) string {
	return fmt.Sprintf("tickets:%s:url", ticketID)
}

var ErrLockNotAcquired = errors.New("lock not acquired")

const unlockScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

var lockToken = func() string {
	return uuid.NewString()
}

// RedisLocker serializes work on a key across API instances. A nil client makes every lock a no-op.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, retry: 100 * time.Millisecond}
}

// WithLock runs fn while holding key. It waits for the lock until ctx is done.
func (l *RedisLocker) WithLock(ctx context.Context, key string, fn func() error) error {
	if l == nil || l.client == nil {
		return fn()
	}
	token := lockToken()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %s", ErrLockNotAcquired, key)
			}
			zap.L().Warn("redis lock unavailable, continuing without it", zap.String("key", key), zap.Error(err))
			return fn()
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s", ErrLockNotAcquired, key)
		case <-time.After(l.retry):
		}
	}
	defer func() {
		if err := l.client.Eval(context.WithoutCancel(ctx), unlockScript, []string{key}, token).Err(); err != nil {
			zap.L().Warn("failed to release redis lock", zap.String("key", key), zap.Error(err))
		}
	}()
	return fn()
}
