// Package runlock serializes long-running maintenance operations (matching
// runs, risk recalculation, drift sync) per scope, so two runs over the same
// scope never interleave. Backed by Redis when available so the guarantee
// holds across processes, with an in-process fallback for single-node
// deployments and tests.
package runlock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrAlreadyRunning is returned when the scope is held by another run.
var ErrAlreadyRunning = fmt.Errorf("run already in progress")

// Locker acquires an exclusive lock on a named scope. Release is returned on
// success and must be called when the run finishes; the TTL bounds how long a
// crashed holder can wedge the scope.
type Locker interface {
	Acquire(ctx context.Context, scope string, ttl time.Duration) (release func(), err error)
}

// RedisLocker implements Locker with SET NX EX. The lock value is a random
// token so a slow holder cannot release a lock it already lost to TTL expiry.
type RedisLocker struct {
	client *redis.Client
	prefix string
}

func NewRedisLocker(url string) (*RedisLocker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisLocker{client: client, prefix: "reconciler:runlock:"}, nil
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func (l *RedisLocker) Acquire(ctx context.Context, scope string, ttl time.Duration) (func(), error) {
	key := l.prefix + scope
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock %s: %w", scope, err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}
	return release, nil
}

// MemoryLocker is the single-process fallback. Leases carry a token like the
// Redis lock, so a holder releasing after its TTL expired cannot drop a lock
// someone else has since acquired.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryLease
	clock func() time.Time
}

type memoryLease struct {
	token  string
	expiry time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]memoryLease), clock: time.Now}
}

func (l *MemoryLocker) Acquire(_ context.Context, scope string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if lease, ok := l.held[scope]; ok && now.Before(lease.expiry) {
		return nil, ErrAlreadyRunning
	}
	token := uuid.NewString()
	l.held[scope] = memoryLease{token: token, expiry: now.Add(ttl)}

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if lease, ok := l.held[scope]; ok && lease.token == token {
			delete(l.held, scope)
		}
	}
	return release, nil
}
