package creditanalysis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/telemetry"
)

// JobLocker guards a job so only one resolver works on it at a time.
type JobLocker interface {
	// Lock returns acquired=false when another holder owns key. unlock is non-nil only
	// when the lock was acquired.
	Lock(ctx context.Context, key string) (unlock func(), acquired bool, err error)
}

// MemoryLocker locks keys within the current process.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryLocker returns an empty in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

func (l *MemoryLocker) Lock(ctx context.Context, key string) (func(), bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, false, nil
	}
	l.held[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, true, nil
}

const (
	redisLockPrefix = "credit-analysis:job-lock:"
	defaultLockTTL  = 5 * time.Minute
	unlockTimeout   = 5 * time.Second
	releaseLockLua  = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`
)

// RedisClient is the subset of the go-redis client used by RedisLocker.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLocker locks keys across processes with SET NX PX and a token-checked release.
type RedisLocker struct {
	Client RedisClient
	TTL    time.Duration
}

// NewRedisLocker wraps client; ttl <= 0 uses five minutes.
func NewRedisLocker(client RedisClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{Client: client, TTL: ttl}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), bool, error) {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	redisKey := redisLockPrefix + key
	token := uuid.NewString()
	ok, err := l.Client.SetNX(ctx, redisKey, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unlockTimeout)
			defer cancel()
			if err := l.Client.Eval(releaseCtx, releaseLockLua, []string{redisKey}, token).Err(); err != nil {
				telemetry.Warn("poll.job.unlock_failed", map[string]any{"key": key, "error": err.Error()})
			}
		})
	}, true, nil
}
