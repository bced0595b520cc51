package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	locker := NewRedisLockerFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { locker.Close() })
	return locker, mr
}

func TestRedisLockerPing(t *testing.T) {
	locker, mr := newTestLocker(t)
	require.NoError(t, locker.Ping(context.Background()))

	mr.Close()
	assert.Error(t, locker.Ping(context.Background()))
}

func TestRedisLockerSecondAcquireWaitsForRelease(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "persona:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:persona:1"))

	acquired := make(chan func(), 1)
	go func() {
		r, err := locker.Acquire(ctx, "persona:1", time.Minute)
		assert.NoError(t, err)
		acquired <- r
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire returned while the lock was held")
	case <-time.After(3 * lockPollInterval):
	}

	release()

	select {
	case r := <-acquired:
		require.NotNil(t, r)
		r()
	case <-time.After(2 * time.Second):
		t.Fatal("second Acquire did not proceed after release")
	}
	assert.False(t, mr.Exists("lock:persona:1"))
}

func TestRedisLockerDeadlineReturnsLockHeld(t *testing.T) {
	locker, _ := newTestLocker(t)

	release, err := locker.Acquire(context.Background(), "persona:2", time.Minute)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 2*lockPollInterval)
	defer cancel()
	start := time.Now()
	_, err = locker.Acquire(ctx, "persona:2", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRedisLockerStaleReleaseKeepsNewHolder(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	releaseA, err := locker.Acquire(ctx, "persona:3", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	assert.False(t, mr.Exists("lock:persona:3"))

	releaseB, err := locker.Acquire(ctx, "persona:3", time.Minute)
	require.NoError(t, err)
	holder, err := mr.Get("lock:persona:3")
	require.NoError(t, err)

	releaseA()
	assert.True(t, mr.Exists("lock:persona:3"))
	got, err := mr.Get("lock:persona:3")
	require.NoError(t, err)
	assert.Equal(t, holder, got)

	releaseB()
	assert.False(t, mr.Exists("lock:persona:3"))
}

func TestRedisLockerKeysAreIndependent(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	r1, err := locker.Acquire(ctx, "persona:4", time.Minute)
	require.NoError(t, err)
	defer r1()
	r2, err := locker.Acquire(ctx, "persona:5", time.Minute)
	require.NoError(t, err)
	defer r2()
}
