package lotto

// WinnerSampler selects distinct winning ticket offsets from fulfilled random
// words. It runs a partial Fisher-Yates shuffle over a sparse permutation:
// conceptually an identity array of size N, but only entries that were ever
// written are stored, so selecting K winners touches O(K) map entries no
// matter how many tickets were sold.
type WinnerSampler struct {
	logger Logger
}

// NewWinnerSampler creates a sampler with the given logger
func NewWinnerSampler(logger Logger) *WinnerSampler {
	return &WinnerSampler{logger: logger}
}

// SampleWinners picks min(ranks, sold) distinct offsets in [0, sold) using the
// random words as the seed stream. Returns ErrRandomnessNotReady when the
// stream is empty; callers retry once more entropy is available.
//
// For every rank r the conceptual array position j is drawn uniformly from
// the remaining pool [0, sold-r); the chosen slot is then overwritten with
// the value from the shrinking tail, which removes it from the pool and
// guarantees no ticket is drawn twice.
func (s *WinnerSampler) SampleWinners(words []uint64, sold uint32, ranks uint32) ([]uint64, error) {
	if len(words) == 0 {
		return nil, ErrRandomnessNotReady
	}
	if sold == 0 || ranks == 0 {
		return nil, nil
	}
	if ranks > sold {
		ranks = sold
	}

	// touched-or-identity permutation: absent keys mean position[i] == i
	position := make(map[uint64]uint64, ranks)
	winners := make([]uint64, 0, ranks)

	for r := uint32(0); r < ranks; r++ {
		remaining := uint64(sold - r)
		j := deriveRankValue(words, r) % remaining

		winner := j
		if v, ok := position[j]; ok {
			winner = v
		}
		winners = append(winners, winner)

		last := remaining - 1
		if v, ok := position[last]; ok {
			position[j] = v
		} else {
			position[j] = last
		}
		delete(position, last)
	}

	s.logger.Debug("SampleWinners selected %d offsets out of %d tickets", len(winners), sold)
	return winners, nil
}
