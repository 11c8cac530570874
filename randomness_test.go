package lotto

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakySource struct {
	err       error
	requestID string
	fulfilled uint64
}

func (f *flakySource) RequestRandomness(context.Context, uint64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.requestID, nil
}

func (f *flakySource) LatestFulfilledRound(context.Context) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.fulfilled, nil
}

func TestRandomnessGate_PassThrough(t *testing.T) {
	source := &flakySource{requestID: "req-a", fulfilled: 5}
	gate := NewRandomnessGate(source, nil, &SilentLogger{})
	ctx := context.Background()

	assert.Equal(t, "disabled", gate.BreakerState())

	requestID, err := gate.Request(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "req-a", requestID)

	latest, err := gate.LatestFulfilledRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), latest)

	// source errors pass through untouched when no breaker is configured
	source.err = errors.New("oracle offline")
	_, err = gate.Request(ctx, 2)
	assert.EqualError(t, err, "oracle offline")
}

func TestRandomnessGate_BreakerTrips(t *testing.T) {
	source := &flakySource{err: errors.New("oracle offline")}
	config := &CircuitBreakerConfig{
		Enabled:      true,
		Name:         "test-breaker",
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
	gate := NewRandomnessGate(source, config, &SilentLogger{})
	ctx := context.Background()

	assert.Equal(t, "closed", gate.BreakerState())

	// enough consecutive failures to trip
	for i := 0; i < 3; i++ {
		_, err := gate.Request(ctx, 1)
		assert.EqualError(t, err, "oracle offline")
	}

	assert.Equal(t, "open", gate.BreakerState())

	// open breaker fails fast with the engine's retryable sentinel,
	// even though the source has recovered
	source.err = nil
	source.requestID = "req-b"
	_, err := gate.Request(ctx, 1)
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.True(t, IsRetryable(err))

	_, err = gate.LatestFulfilledRound(ctx)
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
}

func TestRandomnessGate_SetSource(t *testing.T) {
	gate := NewRandomnessGate(&flakySource{requestID: "old"}, nil, &SilentLogger{})
	ctx := context.Background()

	gate.SetSource(&flakySource{requestID: "new"})

	requestID, err := gate.Request(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "new", requestID)
}
