package locking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// RedisLocker provides ledger locks shared by stations on different hosts
type RedisLocker struct {
	rdb         redis.UniversalClient
	keyPrefix   string
	ttl         time.Duration
	waitTimeout time.Duration
	logger      *zap.Logger
}

// NewRedisLocker creates a new RedisLocker
func NewRedisLocker(rdb redis.UniversalClient, keyPrefix string, ttl, waitTimeout time.Duration, logger *zap.Logger) *RedisLocker {
	if keyPrefix == "" {
		keyPrefix = "lotcom:lock:"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{
		rdb:         rdb,
		keyPrefix:   keyPrefix,
		ttl:         ttl,
		waitTimeout: waitTimeout,
		logger:      logger,
	}
}

// RedisLock is a lock held in Redis, identified by a random token
type RedisLock struct {
	rdb    redis.UniversalClient
	key    string
	value  string
	logger *zap.Logger
}

// TryAcquire makes a single SET NX attempt
func (l *RedisLocker) TryAcquire(ctx context.Context, name string) (*RedisLock, error) {
	lockKey := l.keyPrefix + name
	lockValue := uuid.New().String()

	ok, err := l.rdb.SetNX(ctx, lockKey, lockValue, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	l.logger.Debug("acquired redis lock", zap.String("key", lockKey))
	return &RedisLock{rdb: l.rdb, key: lockKey, value: lockValue, logger: l.logger}, nil
}

// Acquire retries TryAcquire with capped exponential backoff until the wait timeout
func (l *RedisLocker) Acquire(ctx context.Context, name string) (Lock, error) {
	deadline := time.Now().Add(l.waitTimeout)
	backoff := 10 * time.Millisecond

	for {
		lock, err := l.TryAcquire(ctx, name)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, ErrLockNotAcquired) {
			return nil, err
		}
		if !time.Now().Before(deadline) {
			return nil, ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > 500*time.Millisecond {
				backoff = 500 * time.Millisecond
			}
		}
	}
}

// Release deletes the key only if this lock still owns it
func (lock *RedisLock) Release(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, lock.rdb, []string{lock.key}, lock.value).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	lock.logger.Debug("released redis lock", zap.String("key", lock.key))
	return nil
}

// Extend resets the TTL of a lock still owned by this holder
func (lock *RedisLock) Extend(ctx context.Context, ttl time.Duration) error {
	result, err := extendScript.Run(ctx, lock.rdb, []string{lock.key}, lock.value, ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Verify interface compliance
var (
	_ Locker = (*RedisLocker)(nil)
	_ Lock   = (*RedisLock)(nil)
)
