package lotto

import "context"

// Address identifies an account that can hold and move value.
// The zero value is never a valid account.
type Address string

// ValueTransferor moves funds between accounts and the engine's custody.
// A failure from either method fails the enclosing engine operation with no
// state change.
type ValueTransferor interface {
	// TransferIn debits the payer into the engine's custody
	TransferIn(ctx context.Context, payer Address, amount uint64) error

	// TransferOut credits the recipient from the engine's custody
	TransferOut(ctx context.Context, recipient Address, amount uint64) error
}

// RandomnessSource is the external randomness collaborator. Requests are
// fulfilled asynchronously: the collaborator calls back into
// LotteryEngine.FulfillRandomness with the request id it was handed here.
type RandomnessSource interface {
	// RequestRandomness asks for random words for the given round and
	// returns an opaque request reference
	RequestRandomness(ctx context.Context, roundID uint64) (string, error)

	// LatestFulfilledRound returns the highest round id the source has
	// delivered words for; the draw is gated on it
	LatestFulfilledRound(ctx context.Context) (uint64, error)
}
