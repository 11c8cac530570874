package lotto

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawLock_Acquire(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	lock := NewDrawLock(db, 30*time.Second, &SilentLogger{})
	ctx := context.Background()

	t.Run("acquired", func(t *testing.T) {
		mock.Regexp().ExpectSetNX(`lotto:drawlock:7`, `.*`, 30*time.Second).SetVal(true)

		value, err := lock.Acquire(ctx, 7)
		require.NoError(t, err)
		assert.Len(t, value, 32)
	})

	t.Run("held by another process", func(t *testing.T) {
		mock.Regexp().ExpectSetNX(`lotto:drawlock:7`, `.*`, 30*time.Second).SetVal(false)

		_, err := lock.Acquire(ctx, 7)
		assert.ErrorIs(t, err, ErrDrawLockHeld)
		assert.True(t, IsRetryable(err))
	})

	t.Run("redis error", func(t *testing.T) {
		mock.Regexp().ExpectSetNX(`lotto:drawlock:7`, `.*`, 30*time.Second).SetErr(redis.TxFailedErr)

		_, err := lock.Acquire(ctx, 7)
		assert.ErrorIs(t, err, ErrRedisConnectionFailed)
	})
}

func TestDrawLock_Release(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	lock := NewDrawLock(db, 30*time.Second, &SilentLogger{})
	ctx := context.Background()

	t.Run("owner releases", func(t *testing.T) {
		mock.ExpectEval(releaseDrawLockScript, []string{"lotto:drawlock:7"}, "my-value").SetVal(int64(1))

		released, err := lock.Release(ctx, 7, "my-value")
		require.NoError(t, err)
		assert.True(t, released)
	})

	t.Run("lock expired or foreign", func(t *testing.T) {
		mock.ExpectEval(releaseDrawLockScript, []string{"lotto:drawlock:7"}, "stale-value").SetVal(int64(0))

		released, err := lock.Release(ctx, 7, "stale-value")
		require.NoError(t, err)
		assert.False(t, released)
	})
}

func TestDrawLock_DefaultExpiration(t *testing.T) {
	db, _ := redismock.NewClientMock()
	defer db.Close()

	lock := NewDrawLock(db, 0, &SilentLogger{})
	assert.Equal(t, DefaultDrawLockExpiration, lock.expiration)
}
