package lotto

import (
	"context"
	"sync"
	"time"
)

// finalNumberDeriveRank is the derivation index reserved for the display
// number so it never collides with a prize rank.
const finalNumberDeriveRank = ^uint32(0)

// LotteryEngine runs numbered-ticket lottery rounds: it sells tickets against
// a fixed prize pool, closes the sale window, consumes externally supplied
// randomness to pick winners, and settles funds under a strict no-overdraft
// guarantee.
//
// Every state-changing call is serialized behind one mutex and runs to
// completion atomically; the only asynchrony is the randomness fulfillment
// callback, which is serialized the same way.
type LotteryEngine struct {
	mu sync.Mutex

	logger        Logger
	configManager *ConfigManager
	transfer      ValueTransferor
	gate          *RandomnessGate
	sampler       *WinnerSampler
	monitor       *EngineMonitor

	// optional Redis persistence; nil means in-memory only
	store    *RoundStore
	drawLock *DrawLock

	// role wiring; the caller address passed into each entry point is the
	// capability context
	owner    Address
	operator Address
	treasury Address
	injector Address

	maxTicketsPerBuy uint32
	currentRoundID   uint64
	nextTicketID     uint64
	rounds           map[uint64]*Round
	requests         map[string]uint64 // request id -> round id

	now func() time.Time
}

// NewLotteryEngine creates an engine with default configuration
func NewLotteryEngine(transfer ValueTransferor, source RandomnessSource, owner Address) *LotteryEngine {
	return NewLotteryEngineWithConfigAndLogger(transfer, source, owner, NewDefaultConfigManager(), &DefaultLogger{})
}

// NewLotteryEngineWithConfig creates an engine with custom configuration
func NewLotteryEngineWithConfig(transfer ValueTransferor, source RandomnessSource, owner Address, cm *ConfigManager) *LotteryEngine {
	return NewLotteryEngineWithConfigAndLogger(transfer, source, owner, cm, &DefaultLogger{})
}

// NewLotteryEngineWithConfigAndLogger creates an engine with custom
// configuration and logger
func NewLotteryEngineWithConfigAndLogger(
	transfer ValueTransferor, source RandomnessSource, owner Address,
	cm *ConfigManager, logger Logger,
) *LotteryEngine {
	return &LotteryEngine{
		logger:        logger,
		configManager: cm,
		transfer:      transfer,
		gate:          NewRandomnessGate(source, cm.GetConfig().CircuitBreaker, logger),
		sampler:       NewWinnerSampler(logger),
		monitor:       NewEngineMonitor(),

		owner:            owner,
		maxTicketsPerBuy: cm.GetConfig().Engine.MaxTicketsPerBuy,
		rounds:           make(map[uint64]*Round),
		requests:         make(map[string]uint64),

		now: time.Now,
	}
}

// UseStore attaches Redis persistence: round snapshots plus the inter-process
// draw lock. Without a store the engine is in-memory only.
func (e *LotteryEngine) UseStore(store *RoundStore, drawLock *DrawLock) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store = store
	e.drawLock = drawLock
}

// SetLogger updates the logger at runtime
func (e *LotteryEngine) SetLogger(logger Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// GetLogger returns the current logger
func (e *LotteryEngine) GetLogger() Logger { return e.logger }

// Metrics returns a snapshot of the engine's operation counters
func (e *LotteryEngine) Metrics() EngineMetrics { return e.monitor.GetMetrics() }

// CurrentRoundID returns the id of the most recently started round, 0 when no
// round was ever started.
func (e *LotteryEngine) CurrentRoundID() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentRoundID
}

// Restore rebuilds the in-memory state from the attached store after a
// process restart. Pending randomness requests are re-registered so a
// fulfillment arriving after the restart still lands on its round.
func (e *LotteryEngine) Restore(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store == nil {
		return ErrInvalidParameters
	}

	meta, err := e.store.LoadMeta(ctx)
	if err != nil {
		return err
	}
	if meta == nil {
		e.logger.Info("Restore found no persisted state, starting fresh")
		return nil
	}

	e.currentRoundID = meta.CurrentRoundID
	e.nextTicketID = meta.NextTicketID
	if meta.Owner != "" {
		e.owner = meta.Owner
	}
	e.operator = meta.Operator
	e.treasury = meta.Treasury
	e.injector = meta.Injector
	if meta.MaxTicketsPerBuy > 0 {
		e.maxTicketsPerBuy = meta.MaxTicketsPerBuy
	}

	for id := uint64(1); id <= meta.CurrentRoundID; id++ {
		round, err := e.store.LoadRound(ctx, id)
		if err != nil {
			return err
		}
		if round == nil {
			e.logger.Error("Restore missing round snapshot: round=%d", id)
			return ErrRoundStateCorrupted
		}
		e.rounds[id] = round
		if round.Status == StatusAwaitingRandomness && round.RequestID != "" && !round.RandomnessConsumed {
			e.requests[round.RequestID] = round.ID
		}
	}

	e.logger.Info("Restored engine state: rounds=%d, currentRound=%d, nextTicketID=%d",
		len(e.rounds), e.currentRoundID, e.nextTicketID)
	return nil
}

// SetOperatorAndTreasuryAndInjectorAddresses wires the operator, treasury and
// injector roles. Owner only.
func (e *LotteryEngine) SetOperatorAndTreasuryAndInjectorAddresses(
	ctx context.Context, caller, operator, treasury, injector Address,
) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrNotOwner
	}
	if operator == "" || treasury == "" || injector == "" {
		return ErrInvalidParameters
	}

	e.operator = operator
	e.treasury = treasury
	e.injector = injector
	e.persistMeta(ctx)

	e.logger.Info("Roles updated: operator=%s, treasury=%s, injector=%s", operator, treasury, injector)
	return nil
}

// SetMaxTicketsPerBuy updates the per-call purchase limit. Owner only.
func (e *LotteryEngine) SetMaxTicketsPerBuy(ctx context.Context, caller Address, limit uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrNotOwner
	}
	if limit == 0 {
		return ErrMustBePositive
	}

	e.maxTicketsPerBuy = limit
	e.persistMeta(ctx)

	e.logger.Info("Max tickets per buy updated to %d", limit)
	return nil
}

// ChangeRandomnessSource swaps the randomness collaborator. Owner only, and
// only while no round is live.
func (e *LotteryEngine) ChangeRandomnessSource(caller Address, source RandomnessSource) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrNotOwner
	}
	if source == nil {
		return ErrInvalidParameters
	}
	if e.currentRoundID != 0 && !e.rounds[e.currentRoundID].Status.IsTerminal() {
		return ErrSourceNotChangeable
	}

	e.gate.SetSource(source)
	e.logger.Info("Randomness source changed")
	return nil
}

// StartLottery opens a new round. Operator only; the previous round must be
// in a terminal state.
func (e *LotteryEngine) StartLottery(
	ctx context.Context, caller Address, endTime time.Time, price uint64,
	minTickets, maxTickets uint32, prizeAmounts []uint64, referralRateBps uint32,
) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Debug("StartLottery called: endTime=%v, price=%d, min=%d, max=%d, ranks=%d, referralBps=%d",
		endTime, price, minTickets, maxTickets, len(prizeAmounts), referralRateBps)

	if caller != e.operator {
		return 0, ErrNotOperator
	}
	if e.currentRoundID != 0 && !e.rounds[e.currentRoundID].Status.IsTerminal() {
		return 0, ErrNotTimeToStart
	}

	cfg := e.configManager.GetConfig().Engine
	now := e.now()
	length := endTime.Sub(now)
	if length < cfg.MinRoundLength || length > cfg.MaxRoundLength {
		return 0, ErrLengthOutsideRange
	}
	if price < cfg.MinTicketPrice || price > cfg.MaxTicketPrice {
		return 0, ErrPriceOutsideLimits
	}
	if len(prizeAmounts) == 0 || len(prizeAmounts) > MaxPrizeRanks {
		return 0, ErrInvalidParameters
	}
	for i := 1; i < len(prizeAmounts); i++ {
		if prizeAmounts[i] > prizeAmounts[i-1] {
			return 0, ErrPrizesNotSorted
		}
	}
	if minTickets == 0 || maxTickets < minTickets {
		return 0, ErrInvalidTicketBounds
	}
	if referralRateBps > MaxReferralRateBps {
		return 0, ErrInvalidReferralRate
	}

	id := e.currentRoundID + 1
	round := newRound(id, now.Unix(), endTime.Unix(), price, minTickets, maxTickets,
		prizeAmounts, referralRateBps, e.nextTicketID)
	e.rounds[id] = round
	e.currentRoundID = id

	e.monitor.RecordRoundOpened()
	e.persist(ctx, round)
	e.persistMeta(ctx)

	e.logger.Info("Lottery started: round=%d, endTime=%d, price=%d, firstTicketID=%d",
		id, round.EndTime, price, round.FirstTicketID)
	return id, nil
}

// BuyTickets purchases tickets with the given numbers for the caller.
// The call is all-or-nothing: the first invalid or already-sold number rejects
// the whole batch before any funds move.
func (e *LotteryEngine) BuyTickets(
	ctx context.Context, caller Address, roundID uint64, numbers []uint32, referrer Address,
) ([]uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	round := e.rounds[roundID]
	if round == nil || round.Status != StatusOpen {
		return nil, ErrNotOpenForPurchase
	}
	if e.now().Unix() >= round.EndTime {
		return nil, ErrRoundOver
	}
	if len(numbers) == 0 {
		return nil, ErrNoTicketSpecified
	}
	if uint32(len(numbers)) > e.maxTicketsPerBuy {
		return nil, ErrTooManyTickets
	}
	if round.TicketsSold+uint32(len(numbers)) > round.MaxTickets {
		return nil, ErrMaxTicketsSold
	}
	if err := round.validateNumbers(numbers); err != nil {
		return nil, err
	}

	cost := round.TicketPrice * uint64(len(numbers))
	if err := e.transfer.TransferIn(ctx, caller, cost); err != nil {
		e.monitor.RecordTransferError()
		e.logger.Error("BuyTickets transfer failed: buyer=%s, cost=%d, error=%v", caller, cost, err)
		return nil, err
	}

	ids, err := round.recordPurchase(caller, numbers, referrer)
	if err != nil {
		// unreachable after validateNumbers; compensate to keep the
		// no-partial-effect contract anyway
		if rerr := e.transfer.TransferOut(ctx, caller, cost); rerr != nil {
			e.logger.Error("BuyTickets compensation failed: buyer=%s, cost=%d, error=%v", caller, cost, rerr)
		}
		return nil, err
	}
	e.nextTicketID += uint64(len(ids))

	e.monitor.RecordPurchase(len(ids), cost)
	e.persist(ctx, round)
	e.persistMeta(ctx)

	e.logger.Info("Tickets purchased: round=%d, buyer=%s, count=%d, cost=%d",
		roundID, caller, len(ids), cost)
	return ids, nil
}

// CloseLottery ends the sale window. Operator only, at or after the round's
// end time. Rounds below the minimum go straight to the refundable terminal
// state and never request randomness.
func (e *LotteryEngine) CloseLottery(ctx context.Context, caller Address, roundID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.operator {
		return ErrNotOperator
	}
	round := e.rounds[roundID]
	if round == nil || round.Status != StatusOpen {
		return ErrRoundNotOpen
	}
	if e.now().Unix() < round.EndTime {
		return ErrRoundNotOver
	}

	if round.TicketsSold < round.MinTickets {
		round.Status = StatusClosedUnrealized
		e.monitor.RecordRoundClosed(true)
		e.persist(ctx, round)
		e.logger.Info("Lottery closed unrealized: round=%d, sold=%d, min=%d",
			roundID, round.TicketsSold, round.MinTickets)
		return nil
	}

	requestID, err := e.gate.Request(ctx, roundID)
	if err != nil {
		return err
	}

	round.RequestID = requestID
	round.Status = StatusAwaitingRandomness
	e.requests[requestID] = roundID

	e.monitor.RecordRoundClosed(false)
	e.persist(ctx, round)

	e.logger.Info("Lottery closed: round=%d, sold=%d, requestID=%s", roundID, round.TicketsSold, requestID)
	return nil
}

// FulfillRandomness is the asynchronous callback from the randomness
// collaborator. It records the delivered words against the round the request
// was issued for; the draw consumes them exactly once.
func (e *LotteryEngine) FulfillRandomness(ctx context.Context, requestID string, words []uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	roundID, ok := e.requests[requestID]
	if !ok {
		return ErrUnknownRequest
	}
	round := e.rounds[roundID]
	if round == nil || round.Status != StatusAwaitingRandomness || round.RandomnessConsumed {
		return ErrUnknownRequest
	}

	round.RandomWords = make([]uint64, len(words))
	copy(round.RandomWords, words)
	e.persist(ctx, round)

	e.logger.Info("Randomness fulfilled: round=%d, requestID=%s, words=%d", roundID, requestID, len(words))
	return nil
}

// DrawAndMakeLotteryClaimable consumes the fulfilled randomness, samples the
// winning tickets and finalizes the payouts. Operator only. Safe to retry
// before fulfillment: it fails with a retryable error and consumes nothing.
func (e *LotteryEngine) DrawAndMakeLotteryClaimable(ctx context.Context, caller Address, roundID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.operator {
		return ErrNotOperator
	}
	round := e.rounds[roundID]
	if round == nil || round.Status != StatusAwaitingRandomness {
		return ErrRoundNotClosed
	}

	latest, err := e.gate.LatestFulfilledRound(ctx)
	if err != nil {
		return err
	}
	if latest < roundID || len(round.RandomWords) == 0 {
		return ErrRandomnessNotReady
	}

	// guard against a second operator process finalizing the same round
	// against a shared store
	if e.drawLock != nil {
		lockValue, err := e.drawLock.Acquire(ctx, roundID)
		if err != nil {
			return err
		}
		defer func() {
			if _, rerr := e.drawLock.Release(ctx, roundID, lockValue); rerr != nil {
				e.logger.Error("Failed to release draw lock for round %d: %v", roundID, rerr)
			}
		}()
	}

	offsets, err := e.sampler.SampleWinners(round.RandomWords, round.TicketsSold, uint32(len(round.PrizeAmounts)))
	if err != nil {
		return err
	}

	winners := make([]uint64, len(offsets))
	for i, offset := range offsets {
		winners[i] = round.FirstTicketID + offset
	}

	// settlement: referral share comes off the collected amount, awarded
	// prizes are reserved for claims, and the residual pool (including
	// any unawarded ranks) is realized to the treasury
	referralAmount := mulDivBps(round.AmountCollected, round.ReferralRateBps)
	var awarded uint64
	for rank := range winners {
		awarded += round.PrizeAmounts[rank]
	}

	var treasuryAmount uint64
	if reserved := referralAmount + awarded; round.Pool() > reserved {
		treasuryAmount = round.Pool() - reserved
	}

	if treasuryAmount > 0 && e.treasury != "" {
		if err := e.transfer.TransferOut(ctx, e.treasury, treasuryAmount); err != nil {
			e.monitor.RecordTransferError()
			e.logger.Error("Treasury transfer failed: round=%d, amount=%d, error=%v", roundID, treasuryAmount, err)
			return err
		}
	} else {
		treasuryAmount = 0
	}

	round.WinningTicketIDs = winners
	round.FinalNumber = MinTicketNumber + uint32(deriveRankValue(round.RandomWords, finalNumberDeriveRank)%1_000_000)
	round.ReferralRealized = referralAmount
	round.TreasuryRealized = treasuryAmount
	round.DebitsTotal += treasuryAmount
	round.RandomnessConsumed = true
	round.Status = StatusClaimable
	delete(e.requests, round.RequestID)

	e.monitor.RecordRoundFinalized()
	e.persist(ctx, round)

	e.logger.Info("Lottery drawn: round=%d, winners=%d, finalNumber=%d, treasury=%d, referral=%d",
		roundID, len(winners), round.FinalNumber, treasuryAmount, referralAmount)
	return nil
}

// ClaimTickets pays out the prizes for the caller's winning tickets. The call
// is all-or-nothing: one failing ticket aborts the whole batch.
func (e *LotteryEngine) ClaimTickets(ctx context.Context, caller Address, roundID uint64, ticketIDs []uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	round := e.rounds[roundID]
	if round == nil || round.Status != StatusClaimable {
		return 0, ErrRoundNotClaimable
	}
	if len(ticketIDs) == 0 {
		return 0, ErrNoTicketSpecified
	}

	// validate the full batch before moving any funds
	var total uint64
	seen := make(map[uint64]struct{}, len(ticketIDs))
	for _, id := range ticketIDs {
		if _, dup := seen[id]; dup {
			return 0, ErrTicketAlreadyClaimed
		}
		seen[id] = struct{}{}

		ticket := round.ticketByID(id)
		if ticket == nil || ticket.Owner != caller {
			return 0, ErrNoPrize
		}
		rank, won := round.prizeRankForTicket(id)
		if !won {
			return 0, ErrNoPrize
		}
		if ticket.Claimed {
			return 0, ErrTicketAlreadyClaimed
		}
		total += round.PrizeAmounts[rank]
	}

	if round.DebitsTotal+total > round.Pool() {
		return 0, ErrInsufficientFunds
	}
	if err := e.transfer.TransferOut(ctx, caller, total); err != nil {
		e.monitor.RecordTransferError()
		e.logger.Error("ClaimTickets transfer failed: round=%d, claimer=%s, amount=%d, error=%v",
			roundID, caller, total, err)
		return 0, err
	}

	for _, id := range ticketIDs {
		round.ticketByID(id).Claimed = true
	}
	round.DebitsTotal += total

	e.monitor.RecordClaim(len(ticketIDs))
	e.persist(ctx, round)

	e.logger.Info("Tickets claimed: round=%d, claimer=%s, count=%d, amount=%d",
		roundID, caller, len(ticketIDs), total)
	return total, nil
}

// DistributeReferralRewards pays the caller's referral accrual for the round,
// once. The payout is floor(accrued x rateBps / 10000).
func (e *LotteryEngine) DistributeReferralRewards(ctx context.Context, caller Address, roundID uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	round := e.rounds[roundID]
	if round == nil || round.Status != StatusClaimable {
		return 0, ErrRoundNotClaimable
	}
	if round.ReferralPaid[caller] {
		return 0, ErrNoReferralRewards
	}

	amount := mulDivBps(round.ReferralAccrued[caller], round.ReferralRateBps)
	if amount == 0 {
		return 0, ErrNoReferralRewards
	}
	if round.DebitsTotal+amount > round.Pool() {
		return 0, ErrInsufficientFunds
	}

	if err := e.transfer.TransferOut(ctx, caller, amount); err != nil {
		e.monitor.RecordTransferError()
		e.logger.Error("Referral transfer failed: round=%d, referrer=%s, amount=%d, error=%v",
			roundID, caller, amount, err)
		return 0, err
	}

	round.ReferralPaid[caller] = true
	round.DebitsTotal += amount

	e.monitor.RecordReferralPayout()
	e.persist(ctx, round)

	e.logger.Info("Referral rewards distributed: round=%d, referrer=%s, amount=%d", roundID, caller, amount)
	return amount, nil
}

// WithdrawFunds refunds the caller's total spend for an unrealized round,
// exactly once.
func (e *LotteryEngine) WithdrawFunds(ctx context.Context, caller Address, roundID uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	round := e.rounds[roundID]
	if round == nil || round.Status != StatusClosedUnrealized {
		return 0, ErrRoundNotUnrealized
	}

	spend := round.SpendByBuyer[caller]
	if spend == 0 || round.Refunded[caller] {
		return 0, ErrNothingToWithdraw
	}
	if round.DebitsTotal+spend > round.Pool() {
		return 0, ErrInsufficientFunds
	}

	if err := e.transfer.TransferOut(ctx, caller, spend); err != nil {
		e.monitor.RecordTransferError()
		e.logger.Error("Refund transfer failed: round=%d, buyer=%s, amount=%d, error=%v",
			roundID, caller, spend, err)
		return 0, err
	}

	round.Refunded[caller] = true
	round.DebitsTotal += spend

	e.monitor.RecordRefund()
	e.persist(ctx, round)

	e.logger.Info("Funds withdrawn: round=%d, buyer=%s, amount=%d", roundID, caller, spend)
	return spend, nil
}

// InjectFunds adds to the round's backing pool, pre-funding fixed prize
// totals. Owner or injector only, while the round is Open.
func (e *LotteryEngine) InjectFunds(ctx context.Context, caller Address, roundID uint64, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner && caller != e.injector {
		return ErrNotOwnerOrInjector
	}
	if amount == 0 {
		return ErrMustBePositive
	}
	round := e.rounds[roundID]
	if round == nil || round.Status != StatusOpen {
		return ErrRoundNotOpen
	}

	if err := e.transfer.TransferIn(ctx, caller, amount); err != nil {
		e.monitor.RecordTransferError()
		e.logger.Error("Injection transfer failed: round=%d, injector=%s, amount=%d, error=%v",
			roundID, caller, amount, err)
		return err
	}

	round.AmountInjected += amount
	e.persist(ctx, round)

	e.logger.Info("Funds injected: round=%d, injector=%s, amount=%d", roundID, caller, amount)
	return nil
}

// persist writes the round snapshot through the store. Persistence failures
// are logged and counted but do not fail the operation: the in-memory state
// is authoritative while the process lives, and the store catches up on the
// next successful write.
func (e *LotteryEngine) persist(ctx context.Context, round *Round) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveRound(ctx, round); err != nil {
		e.monitor.RecordRedisError()
		e.logger.Error("Failed to persist round %d: %v", round.ID, err)
	}
}

// persistMeta writes the engine meta record through the store
func (e *LotteryEngine) persistMeta(ctx context.Context) {
	if e.store == nil {
		return
	}
	meta := &EngineMeta{
		CurrentRoundID:   e.currentRoundID,
		NextTicketID:     e.nextTicketID,
		Owner:            e.owner,
		Operator:         e.operator,
		Treasury:         e.treasury,
		Injector:         e.injector,
		MaxTicketsPerBuy: e.maxTicketsPerBuy,
	}
	if err := e.store.SaveMeta(ctx, meta); err != nil {
		e.monitor.RecordRedisError()
		e.logger.Error("Failed to persist engine meta: %v", err)
	}
}
