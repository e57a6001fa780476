// internal/matchmaking/locks.go
// Scoped mutual exclusion for the read-check-write sequences in the
// service. Keys are per-user or per-match; the lock is held only across
// the critical section and always released, including on error paths.

package matchmaking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Locker hands out scoped locks by key. Acquire blocks until the lock is
// held or the context is done; the returned release function must be
// called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

func userLockKey(userID int64) string {
	return fmt.Sprintf("matchlock:user:%d", userID)
}

func matchLockKey(matchID uuid.UUID) string {
	return fmt.Sprintf("matchlock:match:%s", matchID)
}

// lockTable is the in-process Locker: a keyed table of channel mutexes
// with reference counting so idle entries are dropped.
type lockTable struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

// NewLockTable creates the in-process lock table. Sufficient for a single
// API instance; multi-instance deployments use NewRedisLocker instead.
func NewLockTable() Locker {
	return &lockTable{entries: make(map[string]*lockEntry)}
}

func (t *lockTable) Acquire(ctx context.Context, key string) (func(), error) {
	t.mu.Lock()
	entry, ok := t.entries[key]
	if !ok {
		entry = &lockEntry{ch: make(chan struct{}, 1)}
		t.entries[key] = entry
	}
	entry.refs++
	t.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		t.release(key, entry, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			t.release(key, entry, true)
		})
	}
	return release, nil
}

func (t *lockTable) release(key string, entry *lockEntry, held bool) {
	if held {
		<-entry.ch
	}

	t.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(t.entries, key)
	}
	t.mu.Unlock()
}

// redisLocker implements Locker with SET NX leases so the exclusion holds
// across API instances sharing one Redis.
type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

// releaseScript deletes the lease only if this locker still owns it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisLocker(client *redis.Client) Locker {
	return &redisLocker{
		client: client,
		ttl:    30 * time.Second,
		retry:  25 * time.Millisecond,
	}
}

func (l *redisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-time.After(l.retry):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// Background context: the lease must be released even when the
			// request context is already cancelled.
			releaseScript.Run(context.Background(), l.client, []string{key}, token)
		})
	}
	return release, nil
}
