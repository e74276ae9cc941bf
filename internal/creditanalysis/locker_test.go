package creditanalysis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	unlock, ok, err := l.Lock(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Lock(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = l.Lock(ctx, "job-2")
	require.NoError(t, err)
	assert.True(t, ok)

	unlock()
	unlock()
	_, ok, err = l.Lock(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

// fakeRedis implements SET NX and the compare-and-delete script in memory.
type fakeRedis struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = value.(string)
	f.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(keys) != 1 || len(args) != 1 {
		return redis.NewCmdResult(nil, redis.Nil)
	}
	if f.values[keys[0]] != args[0].(string) {
		return redis.NewCmdResult(int64(0), nil)
	}
	delete(f.values, keys[0])
	return redis.NewCmdResult(int64(1), nil)
}

func TestRedisLocker(t *testing.T) {
	client := newFakeRedis()
	l := NewRedisLocker(client, 0)
	ctx := context.Background()

	unlock, ok, err := l.Lock(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5*time.Minute, client.ttls[redisLockPrefix+"job-1"])

	_, ok, err = NewRedisLocker(client, time.Second).Lock(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, ok)

	unlock()
	_, ok, err = l.Lock(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockerReleaseKeepsForeignLock(t *testing.T) {
	client := newFakeRedis()
	l := NewRedisLocker(client, time.Second)
	ctx := context.Background()

	unlock, ok, err := l.Lock(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, ok)

	// The lock expired and another process took it.
	client.mu.Lock()
	client.values[redisLockPrefix+"job-1"] = "someone-else"
	client.mu.Unlock()

	unlock()
	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Equal(t, "someone-else", client.values[redisLockPrefix+"job-1"])
}

func TestRedisLockerError(t *testing.T) {
	client := newFakeRedis()
	client.err = redis.ErrClosed
	_, ok, err := NewRedisLocker(client, time.Second).Lock(context.Background(), "job-1")
	require.ErrorIs(t, err, redis.ErrClosed)
	assert.False(t, ok)
}
