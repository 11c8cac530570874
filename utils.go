package lotto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"
)

// formatUint renders an id as decimal for Redis key construction
func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// validTicketNumber reports whether n lies in the fixed-width ticket range.
// Pure integer comparison, no string parsing.
func validTicketNumber(n uint32) bool {
	return n >= MinTicketNumber && n <= MaxTicketNumber
}

// mulDivBps returns floor(amount * bps / 10000) without intermediate overflow.
// Splitting amount into quotient and remainder keeps every product below 1e8.
func mulDivBps(amount uint64, bps uint32) uint64 {
	q := amount / BpsDenominator
	r := amount % BpsDenominator
	return q*uint64(bps) + r*uint64(bps)/BpsDenominator
}

// deriveRankValue hashes one random word together with a prize rank into a
// uniform 64-bit value. Each rank gets an independent value even when the
// source delivered fewer words than ranks.
func deriveRankValue(words []uint64, rank uint32) uint64 {
	word := words[int(rank)%len(words)]

	var buf [12]byte
	binary.BigEndian.PutUint64(buf[:8], word)
	binary.BigEndian.PutUint32(buf[8:], rank)
	sum := sha256.Sum256(buf[:])
	return binary.BigEndian.Uint64(sum[:8])
}

// generateLockValue generates a unique draw lock value using crypto/rand
func generateLockValue() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based value if crypto/rand fails
		return fmt.Sprintf("lock_%d", time.Now().UnixNano())
	}

	const hexChars = "0123456789abcdef"
	result := make([]byte, 32)
	for i, b := range bytes {
		result[i*2] = hexChars[b>>4]
		result[i*2+1] = hexChars[b&0x0f]
	}
	return string(result)
}
