package lotto

import (
	"context"

	"github.com/sony/gobreaker"
)

// RandomnessGate manages the two-phase request/fulfillment protocol with the
// external randomness collaborator. Outbound calls go through a circuit
// breaker so a flapping collaborator cannot stall round closing indefinitely
// with slow failures.
type RandomnessGate struct {
	source  RandomnessSource
	breaker *gobreaker.CircuitBreaker
	logger  Logger
}

// NewRandomnessGate creates a gate around the given source. A nil or disabled
// breaker config yields a pass-through gate.
func NewRandomnessGate(source RandomnessSource, config *CircuitBreakerConfig, logger Logger) *RandomnessGate {
	g := &RandomnessGate{source: source, logger: logger}
	if config == nil || !config.Enabled {
		return g
	}

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= config.MinRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= config.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Info("Circuit breaker '%s' state changed from %s to %s", name, from, to)
			}
		},
	}
	g.breaker = gobreaker.NewCircuitBreaker(settings)
	return g
}

// SetSource swaps the underlying collaborator. The engine only allows this
// between rounds.
func (g *RandomnessGate) SetSource(source RandomnessSource) { g.source = source }

// execute runs the operation through the breaker when one is configured
func (g *RandomnessGate) execute(operation func() (any, error)) (any, error) {
	if g.breaker == nil {
		return operation()
	}

	result, err := g.breaker.Execute(operation)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, ErrCircuitBreakerOpen
	}
	return result, err
}

// Request issues a randomness request for the round and returns the opaque
// request reference the fulfillment will carry.
func (g *RandomnessGate) Request(ctx context.Context, roundID uint64) (string, error) {
	result, err := g.execute(func() (any, error) {
		return g.source.RequestRandomness(ctx, roundID)
	})
	if err != nil {
		g.logger.Error("Randomness request failed for round %d: %v", roundID, err)
		return "", err
	}

	requestID := result.(string)
	g.logger.Info("Randomness requested: round=%d, requestID=%s", roundID, requestID)
	return requestID, nil
}

// LatestFulfilledRound queries the collaborator for the highest round it has
// delivered words for.
func (g *RandomnessGate) LatestFulfilledRound(ctx context.Context) (uint64, error) {
	result, err := g.execute(func() (any, error) {
		return g.source.LatestFulfilledRound(ctx)
	})
	if err != nil {
		return 0, err
	}
	return result.(uint64), nil
}

// BreakerState returns the breaker state name, or "disabled" when no breaker
// is configured.
func (g *RandomnessGate) BreakerState() string {
	if g.breaker == nil {
		return "disabled"
	}

	switch g.breaker.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
