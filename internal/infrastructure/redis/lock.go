package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	// Only the owner may release the lock.
	releaseLockScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)

	ErrLockNotAcquired = errors.New("lock not acquired")
)

// DistributedLock is a single-owner lock held in Redis under a TTL.
type DistributedLock struct {
	client   redis.Cmdable
	key      string
	value    string
	ttl      time.Duration
	acquired bool
}

func NewDistributedLock(client redis.Cmdable, key string, ttl time.Duration) *DistributedLock {
	return &DistributedLock{
		client: client,
		key:    key,
		value:  uuid.New().String(),
		ttl:    ttl,
	}
}

// Acquire tries once to take the lock.
func (l *DistributedLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	l.acquired = ok
	return ok, nil
}

// AcquireWithRetry polls until the lock is taken, ctx is done or maxRetries is reached.
func (l *DistributedLock) AcquireWithRetry(ctx context.Context, maxRetries int, retryDelay time.Duration) error {
	for i := 0; i < maxRetries; i++ {
		ok, err := l.Acquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return fmt.Errorf("%w: %s after %d attempts", ErrLockNotAcquired, l.key, maxRetries)
}

// Release frees the lock if this instance still owns it.
func (l *DistributedLock) Release(ctx context.Context) error {
	if !l.acquired {
		return nil
	}

	result, err := releaseLockScript.Run(ctx, l.client, []string{l.key}, l.value).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	l.acquired = false

	if n, ok := result.(int64); !ok || n == 0 {
		return fmt.Errorf("lock %s expired before release", l.key)
	}
	return nil
}

// Locker hands out distributed locks under a common key prefix.
type Locker struct {
	client     redis.Cmdable
	prefix     string
	ttl        time.Duration
	retryDelay time.Duration
	logger     zerolog.Logger
}

func NewLocker(client redis.Cmdable, prefix string, ttl time.Duration, logger zerolog.Logger) *Locker {
	return &Locker{
		client:     client,
		prefix:     prefix,
		ttl:        ttl,
		retryDelay: 50 * time.Millisecond,
		logger:     logger,
	}
}

func (l *Locker) lockKey(key string) string {
	return fmt.Sprintf("%s:lock:%s", l.prefix, key)
}

// Lock blocks until the lock for key is held or the lock TTL has passed.
// The returned function releases it.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	lock := NewDistributedLock(l.client, l.lockKey(key), l.ttl)

	attempts := int(l.ttl/l.retryDelay) + 1
	if err := lock.AcquireWithRetry(ctx, attempts, l.retryDelay); err != nil {
		return nil, err
	}

	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			l.logger.Warn().Err(err).Str("key", key).Msg("Failed to release lock")
		}
	}, nil
}

// TryLock takes the lock for key without waiting. It returns
// ErrLockNotAcquired when another owner holds it.
func (l *Locker) TryLock(ctx context.Context, key string) (func(), error) {
	lock := NewDistributedLock(l.client, l.lockKey(key), l.ttl)

	ok, err := lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLockNotAcquired, key)
	}

	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			l.logger.Warn().Err(err).Str("key", key).Msg("Failed to release lock")
		}
	}, nil
}
