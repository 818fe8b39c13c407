package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RunLock serializes pipeline runs across daemon replicas. Acquire returns
// false when another holder has the lock; that run is skipped, not queued.
type RunLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// NopLock always acquires. Single-instance deployments use it so the daemon
// works without Redis.
type NopLock struct{}

func (NopLock) Acquire(context.Context) (bool, error) { return true, nil }
func (NopLock) Release(context.Context) error         { return nil }

// RedisLock is a SET NX lock with a TTL. The TTL bounds how long a crashed
// holder can block other replicas; Release only deletes the key when this
// instance still owns it.
type RedisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	token  string
}

// NewRedisLock creates a lock on the given key. Each lock instance carries
// its own ownership token.
func NewRedisLock(client *redis.Client, key string, ttl time.Duration) *RedisLock {
	return &RedisLock{
		client: client,
		key:    key,
		ttl:    ttl,
		token:  uuid.NewString(),
	}
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquiring run lock: %w", err)
	}
	return ok, nil
}

// releaseScript deletes the key only when the caller still owns it, so a
// holder whose TTL expired cannot release a lock someone else re-acquired.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func (l *RedisLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("releasing run lock: %w", err)
	}
	return nil
}
