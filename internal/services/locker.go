package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harentsoaR/healthcare-api/internal/utils"
	"github.com/redis/go-redis/v9"
)

var ErrLockBusy = errors.New("lock is held by another request")

// SlotLocker serializes the check-then-write of a booking per doctor.
type SlotLocker interface {
	// Lock blocks until key is held or ctx is done. The returned func
	// releases it; a release error means the key stays held until ttl.
	Lock(ctx context.Context, key string, ttl time.Duration) (func() error, error)
}

// releaseScript deletes the key only when it still holds our token, so a
// lock that expired and was taken by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client redis.UniversalClient
	retry  utils.RetryOptions
}

func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{
		client: client,
		retry:  utils.RetryOptions{Attempts: 20, BaseDelay: 25 * time.Millisecond, MaxDelay: 250 * time.Millisecond},
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func() error, error) {
	redisKey := "slot-lock:" + key
	token := uuid.NewString()

	err := utils.Retry(ctx, l.retry, func() error {
		ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
		if err != nil {
			return err
		}
		if !ok {
			return ErrLockBusy
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
			return fmt.Errorf("release %s: %w", redisKey, err)
		}
		return nil
	}, nil
}

// MemoryLocker only serializes requests within one process.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: make(map[string]chan struct{})}
}

func (l *MemoryLocker) Lock(ctx context.Context, key string, _ time.Duration) (func() error, error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ErrLockBusy
	}

	var once sync.Once
	return func() error {
		once.Do(func() { <-slot })
		return nil
	}, nil
}
