package lotto

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// EngineMeta is the engine-level state persisted alongside rounds: the running
// counters the next round is created from, and the role wiring.
type EngineMeta struct {
	CurrentRoundID   uint64  `json:"current_round_id"`
	NextTicketID     uint64  `json:"next_ticket_id"`
	Owner            Address `json:"owner,omitempty"`
	Operator         Address `json:"operator,omitempty"`
	Treasury         Address `json:"treasury,omitempty"`
	Injector         Address `json:"injector,omitempty"`
	MaxTicketsPerBuy uint32  `json:"max_tickets_per_buy"`
}

// RoundStore persists round snapshots and engine meta as JSON in Redis.
// A snapshot must be sufficient to resume finalization after a restart, so it
// is written after every state-changing operation. Rounds have no TTL; they
// are the system of record while a process is down.
type RoundStore struct {
	redisClient    *redis.Client
	logger         Logger
	retryAttempts  int
	retryBaseDelay time.Duration
}

// NewRoundStore creates a round store with default retry settings
func NewRoundStore(redisClient *redis.Client, logger Logger) *RoundStore {
	return &RoundStore{
		redisClient:    redisClient,
		logger:         logger,
		retryAttempts:  DefaultStoreRetryAttempts,
		retryBaseDelay: DefaultStoreRetryInterval,
	}
}

// NewRoundStoreWithRetry creates a round store with custom retry settings
func NewRoundStoreWithRetry(redisClient *redis.Client, logger Logger, retryAttempts int, retryDelay time.Duration) *RoundStore {
	return &RoundStore{
		redisClient:    redisClient,
		logger:         logger,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryDelay,
	}
}

// isRetriableRedisError checks if a Redis error is worth another attempt
func isRetriableRedisError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	retriableErrors := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"network is unreachable",
		"temporary failure",
		"server closed",
		"broken pipe",
		"i/o timeout",
		"dial tcp",
		"read tcp",
		"write tcp",
		"no route to host",
		"host is down",
		"connection aborted",
		"redis: connection pool timeout",
		"redis: client is closed",
		"context deadline exceeded",
	}

	for _, retriableErr := range retriableErrors {
		if strings.Contains(errStr, retriableErr) {
			return true
		}
	}
	return false
}

// executeWithRetry runs a Redis operation with exponential backoff
func (s *RoundStore) executeWithRetry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= s.retryAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<(attempt-1)) * s.retryBaseDelay
			if delay > 5*time.Second {
				delay = 5 * time.Second
			}
			s.logger.Debug("Retrying %s operation (attempt %d/%d) after %v", operation, attempt, s.retryAttempts, delay)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during retry for %s: %w", operation, ctx.Err())
			case <-time.After(delay):
			}
		}

		err := fn()
		if err == nil {
			if attempt > 0 {
				s.logger.Info("Completed %s operation after %d retries", operation, attempt)
			}
			return nil
		}

		lastErr = err
		if !isRetriableRedisError(err) {
			break
		}
	}

	return fmt.Errorf("%s operation failed after %d attempts: %w", operation, s.retryAttempts+1, lastErr)
}

// SaveRound writes a round snapshot
func (s *RoundStore) SaveRound(ctx context.Context, round *Round) error {
	if round == nil {
		return ErrInvalidParameters
	}
	if err := round.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("failed to serialize round %d: %w", round.ID, err)
	}

	key := roundKey(round.ID)
	err = s.executeWithRetry(ctx, fmt.Sprintf("save[%s]", key), func() error {
		return s.redisClient.Set(ctx, key, data, 0).Err()
	})
	if err != nil {
		s.logger.Error("Failed to save round snapshot: round=%d, size=%d bytes, error=%v", round.ID, len(data), err)
		return ErrRedisConnectionFailed
	}

	s.logger.Debug("Saved round snapshot: round=%d, status=%s, size=%d bytes", round.ID, round.Status, len(data))
	return nil
}

// LoadRound reads a round snapshot. Returns (nil, nil) when no snapshot
// exists for the id.
func (s *RoundStore) LoadRound(ctx context.Context, roundID uint64) (*Round, error) {
	key := roundKey(roundID)

	var data []byte
	err := s.executeWithRetry(ctx, fmt.Sprintf("load[%s]", key), func() error {
		b, err := s.redisClient.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to load round snapshot: round=%d, error=%v", roundID, err)
		return nil, ErrRedisConnectionFailed
	}
	if len(data) == 0 {
		return nil, nil
	}

	var round Round
	if err := json.Unmarshal(data, &round); err != nil {
		s.logger.Error("Failed to deserialize round snapshot: round=%d, error=%v", roundID, err)
		return nil, ErrRoundStateCorrupted
	}
	if err := round.Validate(); err != nil {
		return nil, ErrRoundStateCorrupted
	}

	s.logger.Debug("Loaded round snapshot: round=%d, status=%s", round.ID, round.Status)
	return &round, nil
}

// SaveMeta writes the engine meta record
func (s *RoundStore) SaveMeta(ctx context.Context, meta *EngineMeta) error {
	if meta == nil {
		return ErrInvalidParameters
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to serialize engine meta: %w", err)
	}

	err = s.executeWithRetry(ctx, "save[meta]", func() error {
		return s.redisClient.Set(ctx, MetaKey, data, 0).Err()
	})
	if err != nil {
		s.logger.Error("Failed to save engine meta: %v", err)
		return ErrRedisConnectionFailed
	}
	return nil
}

// LoadMeta reads the engine meta record. Returns (nil, nil) on a fresh store.
func (s *RoundStore) LoadMeta(ctx context.Context) (*EngineMeta, error) {
	var data []byte
	err := s.executeWithRetry(ctx, "load[meta]", func() error {
		b, err := s.redisClient.Get(ctx, MetaKey).Bytes()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to load engine meta: %v", err)
		return nil, ErrRedisConnectionFailed
	}
	if len(data) == 0 {
		return nil, nil
	}

	var meta EngineMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, ErrRoundStateCorrupted
	}
	return &meta, nil
}

func roundKey(roundID uint64) string {
	return RoundKeyPrefix + formatUint(roundID)
}
