package lotto

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"randomness not ready", ErrRandomnessNotReady, true},
		{"insufficient funds", ErrInsufficientFunds, true},
		{"redis connection failed", ErrRedisConnectionFailed, true},
		{"circuit breaker open", ErrCircuitBreakerOpen, true},
		{"draw lock held", ErrDrawLockHeld, true},
		{"wrapped retryable", fmt.Errorf("finalize round 3: %w", ErrRandomnessNotReady), true},
		{"round not open", ErrRoundNotOpen, false},
		{"ticket already sold", ErrTicketAlreadySold, false},
		{"not operator", ErrNotOperator, false},
		{"unrelated", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}
