package lotto

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Draw Lock Implementation Strategy:
// - Lock Acquisition: Redis SET NX (single network call)
// - Lock Release: Lua script, so only the lock owner can release
// The engine serializes everything in-process; this lock only guards against
// two operator processes finalizing the same round against a shared store.

// releaseDrawLockScript ensures only the lock owner can release the lock.
// Without the value check, a client whose lock expired could delete the lock
// a second client now holds.
const releaseDrawLockScript = `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`

// DrawLock is a Redis-backed mutual exclusion guard for round finalization
type DrawLock struct {
	redisClient *redis.Client
	expiration  time.Duration
	logger      Logger
}

// NewDrawLock creates a draw lock manager
func NewDrawLock(redisClient *redis.Client, expiration time.Duration, logger Logger) *DrawLock {
	if expiration <= 0 {
		expiration = DefaultDrawLockExpiration
	}
	return &DrawLock{
		redisClient: redisClient,
		expiration:  expiration,
		logger:      logger,
	}
}

// Acquire attempts to take the lock for a round. Returns the lock value needed
// for release, or ErrDrawLockHeld when another process holds it.
func (l *DrawLock) Acquire(ctx context.Context, roundID uint64) (string, error) {
	key := drawLockKey(roundID)
	value := generateLockValue()

	acquired, err := l.redisClient.SetNX(ctx, key, value, l.expiration).Result()
	if err != nil {
		l.logger.Error("Draw lock acquisition error for round %d: %v", roundID, err)
		return "", ErrRedisConnectionFailed
	}
	if !acquired {
		return "", ErrDrawLockHeld
	}

	l.logger.Debug("Draw lock acquired: round=%d", roundID)
	return value, nil
}

// Release releases the lock if the value matches. A false return means the
// lock already expired or belongs to someone else.
func (l *DrawLock) Release(ctx context.Context, roundID uint64, value string) (bool, error) {
	result, err := l.redisClient.Eval(ctx, releaseDrawLockScript, []string{drawLockKey(roundID)}, value).Result()
	if err != nil {
		l.logger.Error("Draw lock release error for round %d: %v", roundID, err)
		return false, ErrRedisConnectionFailed
	}
	return result.(int64) == 1, nil
}

func drawLockKey(roundID uint64) string {
	return DrawLockKeyPrefix + formatUint(roundID)
}
