package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
)

type Locker interface {
	// TryLock reports ok=false without error when someone else holds key.
	TryLock(ctx context.Context, key string, ttl time.Duration) (lease Lease, ok bool, err error)
}

// Lease is a held lock. Refresh extends it by ttl from now.
type Lease interface {
	Refresh(ctx context.Context, ttl time.Duration) error
	Release()
}

type RedisLocker struct {
	client *redislock.Client
}

func NewRedisLocker(client redislock.RedisClient) *RedisLocker {
	return &RedisLocker{client: redislock.New(client)}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return redisLease{lock: lock}, true, nil
}

type redisLease struct {
	lock *redislock.Lock
}

func (l redisLease) Refresh(ctx context.Context, ttl time.Duration) error {
	return l.lock.Refresh(ctx, ttl, nil)
}

func (l redisLease) Release() {
	_ = l.lock.Release(context.Background())
}

// LocalLocker only guards against overlapping runs inside this process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]bool{}}
}

func (l *LocalLocker) TryLock(_ context.Context, key string, _ time.Duration) (Lease, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return &localLease{locker: l, key: key}, true, nil
}

type localLease struct {
	locker *LocalLocker
	key    string
	once   sync.Once
}

// Refresh is a no-op: a local lease lives until Release.
func (l *localLease) Refresh(context.Context, time.Duration) error { return nil }

func (l *localLease) Release() {
	l.once.Do(func() {
		l.locker.mu.Lock()
		delete(l.locker.held, l.key)
		l.locker.mu.Unlock()
	})
}
