package lotto

import "errors"

// Error codes and messages for the lottery engine.
//
// Round lifecycle and payout errors keep stable, user-facing messages; callers
// are expected to match them with errors.Is rather than string comparison.
var (
	// ErrRoundNotOpen indicates an operator action on a round that is not Open
	ErrRoundNotOpen = errors.New("LOTTO_001: lottery not open")

	// ErrNotOpenForPurchase indicates a purchase against a round that is not Open
	ErrNotOpenForPurchase = errors.New("LOTTO_002: lottery is not open")

	// ErrRoundOver indicates a purchase after the sale window closed
	ErrRoundOver = errors.New("LOTTO_003: lottery is over")

	// ErrRoundNotOver indicates closing before the round's end time
	ErrRoundNotOver = errors.New("LOTTO_004: lottery not over")

	// ErrRoundNotClosed indicates drawing a round that is not awaiting randomness
	ErrRoundNotClosed = errors.New("LOTTO_005: lottery not close")

	// ErrRoundNotClaimable indicates a claim or reward action before finalization
	ErrRoundNotClaimable = errors.New("LOTTO_006: lottery not claimable")

	// ErrRoundNotUnrealized indicates a refund against a round that met its minimum
	ErrRoundNotUnrealized = errors.New("LOTTO_007: lottery not refundable")

	// ErrNotTimeToStart indicates starting while the previous round is still live
	ErrNotTimeToStart = errors.New("LOTTO_008: not time to start lottery")

	// ErrLengthOutsideRange indicates an end time outside the allowed window
	ErrLengthOutsideRange = errors.New("LOTTO_009: lottery length outside of range")

	// ErrPriceOutsideLimits indicates a ticket price outside the configured bounds
	ErrPriceOutsideLimits = errors.New("LOTTO_010: ticket price outside of limits")

	// ErrNoTicketSpecified indicates an empty purchase
	ErrNoTicketSpecified = errors.New("LOTTO_011: no ticket specified")

	// ErrTooManyTickets indicates a purchase above the per-call limit
	ErrTooManyTickets = errors.New("LOTTO_012: too many tickets")

	// ErrNumberOutsideRange indicates a ticket number outside [1000000, 1999999]
	ErrNumberOutsideRange = errors.New("LOTTO_013: ticket number outside range")

	// ErrTicketAlreadySold indicates a duplicate ticket number within the round
	ErrTicketAlreadySold = errors.New("LOTTO_014: ticket already sold, choose another number and try it again")

	// ErrMaxTicketsSold indicates the round's sale cap would be exceeded
	ErrMaxTicketsSold = errors.New("LOTTO_015: maximum number of tickets sold")

	// ErrRandomnessNotReady indicates the randomness request is not fulfilled yet.
	// Retryable: poll and resubmit the draw call.
	ErrRandomnessNotReady = errors.New("LOTTO_016: numbers not drawn")

	// ErrRequestPending indicates a second randomness request for the same round
	ErrRequestPending = errors.New("LOTTO_017: randomness request already pending")

	// ErrUnknownRequest indicates a fulfillment for a request never issued
	ErrUnknownRequest = errors.New("LOTTO_018: unknown randomness request")

	// ErrNoPrize indicates a claim with a non-winning or foreign ticket
	ErrNoPrize = errors.New("LOTTO_019: no prize for this lottery")

	// ErrTicketAlreadyClaimed indicates a second claim of the same winning ticket
	ErrTicketAlreadyClaimed = errors.New("LOTTO_020: ticket already claimed")

	// ErrNoReferralRewards indicates no unpaid referral accrual for the caller
	ErrNoReferralRewards = errors.New("LOTTO_021: no rewards for this lottery")

	// ErrNothingToWithdraw indicates no refundable spend for the caller
	ErrNothingToWithdraw = errors.New("LOTTO_022: no amount to return for this lottery")

	// ErrInsufficientFunds indicates a debit that would overdraw the round pool.
	// Retryable after the pool is funded.
	ErrInsufficientFunds = errors.New("LOTTO_023: insufficient funds in round pool")

	// ErrRoundNotFound indicates an unknown round identifier
	ErrRoundNotFound = errors.New("LOTTO_024: lottery not found")

	// ErrNotOwner indicates a caller without the owner role
	ErrNotOwner = errors.New("LOTTO_030: not owner")

	// ErrNotOperator indicates a caller without the operator role
	ErrNotOperator = errors.New("LOTTO_031: not operator")

	// ErrNotOwnerOrInjector indicates a caller without owner or injector role
	ErrNotOwnerOrInjector = errors.New("LOTTO_032: not owner or injector")

	// ErrInvalidParameters indicates parameter validation failure
	ErrInvalidParameters = errors.New("LOTTO_040: parameter validation failed")

	// ErrMustBePositive indicates a zero value where a positive one is required
	ErrMustBePositive = errors.New("LOTTO_041: must be > 0")

	// ErrPrizesNotSorted indicates prize amounts that increase by rank
	ErrPrizesNotSorted = errors.New("LOTTO_042: prize amounts must be non-increasing by rank")

	// ErrInvalidReferralRate indicates a referral rate above the allowed cap
	ErrInvalidReferralRate = errors.New("LOTTO_043: invalid referral rate")

	// ErrInvalidTicketBounds indicates min/max ticket bounds that are inconsistent
	ErrInvalidTicketBounds = errors.New("LOTTO_044: invalid min/max ticket bounds")

	// ErrSourceNotChangeable indicates swapping the randomness source mid-round
	ErrSourceNotChangeable = errors.New("LOTTO_045: lottery not in claimable")

	// ErrRedisConnectionFailed indicates a Redis failure after retries
	ErrRedisConnectionFailed = errors.New("LOTTO_050: Redis connection failed")

	// ErrRoundStateCorrupted indicates an unreadable persisted round snapshot
	ErrRoundStateCorrupted = errors.New("LOTTO_051: round state corrupted")

	// ErrCircuitBreakerOpen indicates the randomness source breaker is open
	ErrCircuitBreakerOpen = errors.New("LOTTO_052: randomness circuit breaker is open")

	// ErrDrawLockHeld indicates another process is finalizing the same round
	ErrDrawLockHeld = errors.New("LOTTO_053: draw lock held by another process")
)

// retryable errors: callers should back off and resubmit the same call.
var retryableErrs = []error{
	ErrRandomnessNotReady,
	ErrInsufficientFunds,
	ErrRedisConnectionFailed,
	ErrCircuitBreakerOpen,
	ErrDrawLockHeld,
}

// IsRetryable reports whether err is transient and the call may be resubmitted
// unchanged once the underlying condition clears.
func IsRetryable(err error) bool {
	for _, r := range retryableErrs {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}
