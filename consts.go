package lotto

import "time"

const (
	// MinTicketNumber is the lowest valid ticket number (leading digit fixed at 1)
	MinTicketNumber uint32 = 1_000_000

	// MaxTicketNumber is the highest valid ticket number
	MaxTicketNumber uint32 = 1_999_999

	// BpsDenominator is the basis-point denominator used for referral math
	BpsDenominator uint64 = 10_000

	// MaxReferralRateBps caps the referral rate a round may be started with
	MaxReferralRateBps uint32 = 2_000

	// DefaultMaxTicketsPerBuy is the default per-call purchase limit
	DefaultMaxTicketsPerBuy uint32 = 100

	// DefaultMinRoundLength is the shortest allowed sale window
	DefaultMinRoundLength = 4 * time.Hour

	// DefaultMaxRoundLength is the longest allowed sale window
	DefaultMaxRoundLength = 4 * 24 * time.Hour

	// DefaultMinTicketPrice is the default lower bound for the ticket price, in base units
	DefaultMinTicketPrice uint64 = 5_000

	// DefaultMaxTicketPrice is the default upper bound for the ticket price, in base units
	DefaultMaxTicketPrice uint64 = 50_000_000_000

	// MaxPrizeRanks bounds the prize list so finalization stays cheap
	MaxPrizeRanks = 64
)

const (
	// RoundKeyPrefix is the prefix for Redis round snapshot keys
	RoundKeyPrefix = "lotto:round:"

	// MetaKey is the Redis key holding engine-level counters and roles
	MetaKey = "lotto:meta"

	// DrawLockKeyPrefix is the prefix for Redis draw lock keys
	DrawLockKeyPrefix = "lotto:drawlock:"

	// DefaultDrawLockExpiration is the expiration for the finalization lock
	DefaultDrawLockExpiration = 30 * time.Second

	// DefaultStoreRetryAttempts is the default number of Redis retry attempts
	DefaultStoreRetryAttempts = 3

	// DefaultStoreRetryInterval is the base delay between Redis retries
	DefaultStoreRetryInterval = 100 * time.Millisecond
)

const (
	// DefaultCircuitBreakerName is the default name for the randomness breaker
	DefaultCircuitBreakerName = "lotto-randomness"

	// DefaultCircuitBreakerMaxRequests is the default max requests in half-open state
	DefaultCircuitBreakerMaxRequests = 3

	// DefaultCircuitBreakerInterval is the default counting interval
	DefaultCircuitBreakerInterval = 60 * time.Second

	// DefaultCircuitBreakerTimeout is the default open-state timeout
	DefaultCircuitBreakerTimeout = 30 * time.Second

	// DefaultCircuitBreakerFailureRatio is the default failure ratio
	DefaultCircuitBreakerFailureRatio = 0.6

	// DefaultCircuitBreakerMinRequests is the default min requests before tripping
	DefaultCircuitBreakerMinRequests = 3
)

const (
	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisPassword     = ""
	DefaultRedisDB           = 0
	DefaultRedisPoolSize     = 50
	DefaultRedisMinIdleConns = 10
	DefaultRedisMaxRetries   = 3
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisReadTimeout  = 3 * time.Second
	DefaultRedisWriteTimeout = 3 * time.Second
	DefaultRedisPoolTimeout  = 4 * time.Second
)
