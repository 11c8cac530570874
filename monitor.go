package lotto

import (
	"sync"
	"sync/atomic"
	"time"
)

// EngineMetrics is a snapshot of the engine's operation counters
type EngineMetrics struct {
	RoundsOpened     int64 `json:"rounds_opened"`
	RoundsClosed     int64 `json:"rounds_closed"`
	RoundsFinalized  int64 `json:"rounds_finalized"`
	RoundsUnrealized int64 `json:"rounds_unrealized"`

	TicketsSold     int64 `json:"tickets_sold"`
	AmountCollected int64 `json:"amount_collected"`

	PrizesClaimed   int64 `json:"prizes_claimed"`
	RefundsPaid     int64 `json:"refunds_paid"`
	ReferralPayouts int64 `json:"referral_payouts"`

	TransferErrors int64 `json:"transfer_errors"`
	RedisErrors    int64 `json:"redis_errors"`

	StartTime      int64 `json:"start_time"`
	LastUpdateTime int64 `json:"last_update_time"`
}

// EngineMonitor collects operation counters with atomic updates
type EngineMonitor struct {
	metrics *EngineMetrics
	mu      sync.RWMutex
	enabled bool
}

// NewEngineMonitor creates an enabled monitor
func NewEngineMonitor() *EngineMonitor {
	m := &EngineMonitor{
		metrics: &EngineMetrics{},
		enabled: true,
	}
	m.ResetMetrics()
	return m
}

// Enable turns metric collection on
func (m *EngineMonitor) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
}

// Disable turns metric collection off
func (m *EngineMonitor) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
}

// IsEnabled reports whether metrics are being collected
func (m *EngineMonitor) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

func (m *EngineMonitor) touch() {
	atomic.StoreInt64(&m.metrics.LastUpdateTime, time.Now().UnixNano())
}

// RecordRoundOpened counts a started round
func (m *EngineMonitor) RecordRoundOpened() {
	if !m.IsEnabled() {
		return
	}
	atomic.AddInt64(&m.metrics.RoundsOpened, 1)
	m.touch()
}

// RecordRoundClosed counts a closed round; unrealized rounds count separately
func (m *EngineMonitor) RecordRoundClosed(unrealized bool) {
	if !m.IsEnabled() {
		return
	}
	atomic.AddInt64(&m.metrics.RoundsClosed, 1)
	if unrealized {
		atomic.AddInt64(&m.metrics.RoundsUnrealized, 1)
	}
	m.touch()
}

// RecordRoundFinalized counts a drawn round
func (m *EngineMonitor) RecordRoundFinalized() {
	if !m.IsEnabled() {
		return
	}
	atomic.AddInt64(&m.metrics.RoundsFinalized, 1)
	m.touch()
}

// RecordPurchase counts sold tickets and collected funds
func (m *EngineMonitor) RecordPurchase(count int, amount uint64) {
	if !m.IsEnabled() {
		return
	}
	atomic.AddInt64(&m.metrics.TicketsSold, int64(count))
	atomic.AddInt64(&m.metrics.AmountCollected, int64(amount))
	m.touch()
}

// RecordClaim counts claimed winning tickets
func (m *EngineMonitor) RecordClaim(count int) {
	if !m.IsEnabled() {
		return
	}
	atomic.AddInt64(&m.metrics.PrizesClaimed, int64(count))
	m.touch()
}

// RecordRefund counts a refund payout
func (m *EngineMonitor) RecordRefund() {
	if !m.IsEnabled() {
		return
	}
	atomic.AddInt64(&m.metrics.RefundsPaid, 1)
	m.touch()
}

// RecordReferralPayout counts a referral distribution
func (m *EngineMonitor) RecordReferralPayout() {
	if !m.IsEnabled() {
		return
	}
	atomic.AddInt64(&m.metrics.ReferralPayouts, 1)
	m.touch()
}

// RecordTransferError counts a value-transfer collaborator failure
func (m *EngineMonitor) RecordTransferError() {
	if !m.IsEnabled() {
		return
	}
	atomic.AddInt64(&m.metrics.TransferErrors, 1)
	m.touch()
}

// RecordRedisError counts a store failure
func (m *EngineMonitor) RecordRedisError() {
	if !m.IsEnabled() {
		return
	}
	atomic.AddInt64(&m.metrics.RedisErrors, 1)
	m.touch()
}

// GetMetrics returns a consistent copy of the counters
func (m *EngineMonitor) GetMetrics() EngineMetrics {
	return EngineMetrics{
		RoundsOpened:     atomic.LoadInt64(&m.metrics.RoundsOpened),
		RoundsClosed:     atomic.LoadInt64(&m.metrics.RoundsClosed),
		RoundsFinalized:  atomic.LoadInt64(&m.metrics.RoundsFinalized),
		RoundsUnrealized: atomic.LoadInt64(&m.metrics.RoundsUnrealized),
		TicketsSold:      atomic.LoadInt64(&m.metrics.TicketsSold),
		AmountCollected:  atomic.LoadInt64(&m.metrics.AmountCollected),
		PrizesClaimed:    atomic.LoadInt64(&m.metrics.PrizesClaimed),
		RefundsPaid:      atomic.LoadInt64(&m.metrics.RefundsPaid),
		ReferralPayouts:  atomic.LoadInt64(&m.metrics.ReferralPayouts),
		TransferErrors:   atomic.LoadInt64(&m.metrics.TransferErrors),
		RedisErrors:      atomic.LoadInt64(&m.metrics.RedisErrors),
		StartTime:        atomic.LoadInt64(&m.metrics.StartTime),
		LastUpdateTime:   atomic.LoadInt64(&m.metrics.LastUpdateTime),
	}
}

// ResetMetrics zeroes every counter
func (m *EngineMonitor) ResetMetrics() {
	atomic.StoreInt64(&m.metrics.RoundsOpened, 0)
	atomic.StoreInt64(&m.metrics.RoundsClosed, 0)
	atomic.StoreInt64(&m.metrics.RoundsFinalized, 0)
	atomic.StoreInt64(&m.metrics.RoundsUnrealized, 0)
	atomic.StoreInt64(&m.metrics.TicketsSold, 0)
	atomic.StoreInt64(&m.metrics.AmountCollected, 0)
	atomic.StoreInt64(&m.metrics.PrizesClaimed, 0)
	atomic.StoreInt64(&m.metrics.RefundsPaid, 0)
	atomic.StoreInt64(&m.metrics.ReferralPayouts, 0)
	atomic.StoreInt64(&m.metrics.TransferErrors, 0)
	atomic.StoreInt64(&m.metrics.RedisErrors, 0)
	atomic.StoreInt64(&m.metrics.StartTime, time.Now().UnixNano())
	atomic.StoreInt64(&m.metrics.LastUpdateTime, time.Now().UnixNano())
}
