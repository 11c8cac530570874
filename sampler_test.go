package lotto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWinnerSampler_SampleWinners(t *testing.T) {
	sampler := NewWinnerSampler(&SilentLogger{})
	words := []uint64{0x0123456789abcdef, 0xfedcba9876543210}

	t.Run("empty words is retryable", func(t *testing.T) {
		_, err := sampler.SampleWinners(nil, 100, 3)
		assert.ErrorIs(t, err, ErrRandomnessNotReady)
		assert.True(t, IsRetryable(err))
	})

	t.Run("zero tickets or ranks", func(t *testing.T) {
		winners, err := sampler.SampleWinners(words, 0, 3)
		require.NoError(t, err)
		assert.Empty(t, winners)

		winners, err = sampler.SampleWinners(words, 100, 0)
		require.NoError(t, err)
		assert.Empty(t, winners)
	})

	t.Run("winners are distinct and in range", func(t *testing.T) {
		const sold, ranks = 1_000, 64

		winners, err := sampler.SampleWinners(words, sold, ranks)
		require.NoError(t, err)
		require.Len(t, winners, ranks)

		seen := make(map[uint64]bool, ranks)
		for _, w := range winners {
			assert.Less(t, w, uint64(sold))
			assert.False(t, seen[w], "offset %d selected twice", w)
			seen[w] = true
		}
	})

	t.Run("more ranks than tickets clamps to tickets", func(t *testing.T) {
		winners, err := sampler.SampleWinners(words, 3, 10)
		require.NoError(t, err)
		assert.Len(t, winners, 3)
	})

	t.Run("all tickets selected is a permutation", func(t *testing.T) {
		const sold = 7

		winners, err := sampler.SampleWinners(words, sold, sold)
		require.NoError(t, err)
		require.Len(t, winners, sold)

		seen := make(map[uint64]bool, sold)
		for _, w := range winners {
			seen[w] = true
		}
		assert.Len(t, seen, sold, "every offset appears exactly once")
	})

	t.Run("deterministic for identical inputs", func(t *testing.T) {
		a, err := sampler.SampleWinners(words, 500, 5)
		require.NoError(t, err)
		b, err := sampler.SampleWinners(words, 500, 5)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("different words give a different draw", func(t *testing.T) {
		a, err := sampler.SampleWinners([]uint64{1}, 1_000_000, 8)
		require.NoError(t, err)
		b, err := sampler.SampleWinners([]uint64{2}, 1_000_000, 8)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("single word covers many ranks", func(t *testing.T) {
		winners, err := sampler.SampleWinners([]uint64{42}, 100, 10)
		require.NoError(t, err)
		require.Len(t, winners, 10)

		seen := make(map[uint64]bool, 10)
		for _, w := range winners {
			seen[w] = true
		}
		assert.Len(t, seen, 10)
	})
}

// TestWinnerSampler_Distribution drives many independent single-winner draws
// and checks no offset is wildly over- or under-represented.
func TestWinnerSampler_Distribution(t *testing.T) {
	sampler := NewWinnerSampler(&SilentLogger{})

	const (
		sold   = 10
		trials = 5_000
	)

	counts := make(map[uint64]int, sold)
	for i := 0; i < trials; i++ {
		winners, err := sampler.SampleWinners([]uint64{uint64(i)}, sold, 1)
		require.NoError(t, err)
		require.Len(t, winners, 1)
		counts[winners[0]]++
	}

	assert.Len(t, counts, sold, "every offset should win at least once")
	for offset, n := range counts {
		// expected 500 per offset; allow a wide band to keep the test stable
		assert.Greater(t, n, 250, "offset %d underrepresented: %d", offset, n)
		assert.Less(t, n, 1_000, "offset %d overrepresented: %d", offset, n)
	}
}
