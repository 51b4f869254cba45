package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	userLockKeyPattern = "leave:lock:%s"
	defaultLockTTL     = 5 * time.Second
)

// ErrStateLocked indicates that another step of the same user currently holds the lock.
var ErrStateLocked = errors.New("state is locked, try again later")

// Locker serialises the steps of a single user's workflow.
type Locker interface {
	// Lock acquires the user's lock and returns the function releasing it.
	Lock(ctx context.Context, userID string) (func(), error)
}

type lockEntry struct {
	slot chan struct{}
	refs int
}

// MemoryLocker is an in-process keyed mutex. Waiting callers block until the lock is
// released or their context ends.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

// NewMemoryLocker returns an empty MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*lockEntry)}
}

// Lock blocks until the user's lock is acquired.
func (l *MemoryLocker) Lock(ctx context.Context, userID string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[userID]
	if !ok {
		entry = &lockEntry{slot: make(chan struct{}, 1)}
		l.locks[userID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.slot <- struct{}{}:
	case <-ctx.Done():
		l.release(userID, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.slot
			l.release(userID, entry)
		})
	}, nil
}

func (l *MemoryLocker) release(userID string, entry *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, userID)
	}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a distributed lock shared by bot replicas. It fails fast with
// ErrStateLocked instead of waiting.
type RedisLocker struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
}

// NewRedisLocker creates a Redis-backed Locker.
func NewRedisLocker(client *redis.Client, log *slog.Logger, ttl time.Duration) *RedisLocker {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}

	return &RedisLocker{client: client, log: log, ttl: ttl}
}

// Lock acquires the user's lock with SETNX.
func (l *RedisLocker) Lock(ctx context.Context, userID string) (func(), error) {
	key := fmt.Sprintf(userLockKeyPattern, userID)
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		l.log.Error("failed to acquire user lock", "user_id", userID, "error", err)
		return nil, err
	}

	if !acquired {
		l.log.Warn("user lock already held", "user_id", userID)
		return nil, ErrStateLocked
	}

	return func() {
		if err := releaseScript.Run(context.WithoutCancel(ctx), l.client, []string{key}, token).Err(); err != nil {
			l.log.Error("failed to release user lock", "user_id", userID, "error", err)
		}
	}, nil
}
