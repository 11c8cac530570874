package lotto

// RoundStatus is the lifecycle state of a lottery round. Transitions only move
// forward: Open -> AwaitingRandomness -> Claimable, or Open -> ClosedUnrealized
// when the minimum ticket threshold was missed.
type RoundStatus uint8

const (
	// StatusOpen means tickets are on sale
	StatusOpen RoundStatus = iota + 1

	// StatusAwaitingRandomness means the sale closed and a randomness
	// request is outstanding
	StatusAwaitingRandomness

	// StatusClaimable means winners are drawn and prizes can be claimed
	StatusClaimable

	// StatusClosedUnrealized means the round missed its minimum and is
	// settled via refunds
	StatusClosedUnrealized
)

// String returns a human-readable status name
func (s RoundStatus) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusAwaitingRandomness:
		return "awaiting_randomness"
	case StatusClaimable:
		return "claimable"
	case StatusClosedUnrealized:
		return "closed_unrealized"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition is possible
func (s RoundStatus) IsTerminal() bool {
	return s == StatusClaimable || s == StatusClosedUnrealized
}

// Ticket is one purchased entry. Round, owner and number are immutable after
// creation; only the claimed flag ever mutates.
type Ticket struct {
	ID      uint64  `json:"id"`
	RoundID uint64  `json:"round_id"`
	Owner   Address `json:"owner"`
	Number  uint32  `json:"number"`
	Claimed bool    `json:"claimed"`
}

// Round is one complete sale-to-settlement cycle. It carries the full ticket
// ledger and payout bookkeeping so that a persisted snapshot alone is enough
// to resume finalization after a restart.
type Round struct {
	ID              uint64      `json:"id"`
	Status          RoundStatus `json:"status"`
	StartTime       int64       `json:"start_time"` // unix seconds
	EndTime         int64       `json:"end_time"`   // unix seconds
	TicketPrice     uint64      `json:"ticket_price"`
	MinTickets      uint32      `json:"min_tickets"`
	MaxTickets      uint32      `json:"max_tickets"`
	PrizeAmounts    []uint64    `json:"prize_amounts"` // rank 0 = largest
	ReferralRateBps uint32      `json:"referral_rate_bps"`
	FirstTicketID   uint64      `json:"first_ticket_id"`
	TicketsSold     uint32      `json:"tickets_sold"`

	// Randomness bookkeeping. At most one outstanding request; consumption
	// by the sampler is exactly-once.
	RequestID          string   `json:"request_id,omitempty"`
	RandomWords        []uint64 `json:"random_words,omitempty"`
	RandomnessConsumed bool     `json:"randomness_consumed"`

	// Draw outcome. WinningTicketIDs is ordered by prize rank.
	FinalNumber      uint32   `json:"final_number,omitempty"`
	WinningTicketIDs []uint64 `json:"winning_ticket_ids,omitempty"`

	// Fund pool. Debits may never exceed credits (collected + injected).
	AmountCollected  uint64 `json:"amount_collected"`
	AmountInjected   uint64 `json:"amount_injected"`
	TreasuryRealized uint64 `json:"treasury_realized"`
	ReferralRealized uint64 `json:"referral_realized"`
	DebitsTotal      uint64 `json:"debits_total"`

	// Ticket ledger. Tickets is indexed by offset (id - FirstTicketID).
	Tickets        []Ticket             `json:"tickets,omitempty"`
	SoldNumbers    map[uint32]uint64    `json:"sold_numbers,omitempty"` // number -> ticket id
	TicketsByOwner map[Address][]uint64 `json:"tickets_by_owner,omitempty"`

	// Refund and referral bookkeeping, each paid at most once per address.
	SpendByBuyer    map[Address]uint64 `json:"spend_by_buyer,omitempty"`
	Refunded        map[Address]bool   `json:"refunded,omitempty"`
	ReferralAccrued map[Address]uint64 `json:"referral_accrued,omitempty"`
	ReferralPaid    map[Address]bool   `json:"referral_paid,omitempty"`
}

// newRound creates an Open round. Parameter validation is the caller's job.
func newRound(
	id uint64, startTime, endTime int64, price uint64,
	minTickets, maxTickets uint32, prizeAmounts []uint64,
	referralRateBps uint32, firstTicketID uint64,
) *Round {
	prizes := make([]uint64, len(prizeAmounts))
	copy(prizes, prizeAmounts)

	return &Round{
		ID:              id,
		Status:          StatusOpen,
		StartTime:       startTime,
		EndTime:         endTime,
		TicketPrice:     price,
		MinTickets:      minTickets,
		MaxTickets:      maxTickets,
		PrizeAmounts:    prizes,
		ReferralRateBps: referralRateBps,
		FirstTicketID:   firstTicketID,
		SoldNumbers:     make(map[uint32]uint64),
		TicketsByOwner:  make(map[Address][]uint64),
		SpendByBuyer:    make(map[Address]uint64),
		Refunded:        make(map[Address]bool),
		ReferralAccrued: make(map[Address]uint64),
		ReferralPaid:    make(map[Address]bool),
	}
}

// Validate checks structural invariants of a round snapshot. Used after
// deserialization from the store.
func (r *Round) Validate() error {
	if r.ID == 0 || r.Status < StatusOpen || r.Status > StatusClosedUnrealized {
		return ErrRoundStateCorrupted
	}
	if len(r.PrizeAmounts) == 0 || r.TicketPrice == 0 {
		return ErrRoundStateCorrupted
	}
	for i := 1; i < len(r.PrizeAmounts); i++ {
		if r.PrizeAmounts[i] > r.PrizeAmounts[i-1] {
			return ErrRoundStateCorrupted
		}
	}
	if uint32(len(r.Tickets)) != r.TicketsSold || len(r.SoldNumbers) != len(r.Tickets) {
		return ErrRoundStateCorrupted
	}
	if r.DebitsTotal > r.Pool() {
		return ErrRoundStateCorrupted
	}
	if len(r.WinningTicketIDs) > len(r.PrizeAmounts) {
		return ErrRoundStateCorrupted
	}
	return nil
}

// Pool returns the total custodied credits of the round
func (r *Round) Pool() uint64 {
	return r.AmountCollected + r.AmountInjected
}

// debit consumes amount from the round pool, enforcing the no-overdraft
// invariant: cumulative debits never exceed cumulative credits.
func (r *Round) debit(amount uint64) error {
	if r.DebitsTotal+amount > r.Pool() || r.DebitsTotal+amount < r.DebitsTotal {
		return ErrInsufficientFunds
	}
	r.DebitsTotal += amount
	return nil
}

// validateNumbers checks a purchase batch against the number range, the
// already-sold set and in-batch duplicates, without mutating the round.
func (r *Round) validateNumbers(numbers []uint32) error {
	seen := make(map[uint32]struct{}, len(numbers))
	for _, n := range numbers {
		if !validTicketNumber(n) {
			return ErrNumberOutsideRange
		}
		if _, sold := r.SoldNumbers[n]; sold {
			return ErrTicketAlreadySold
		}
		if _, dup := seen[n]; dup {
			return ErrTicketAlreadySold
		}
		seen[n] = struct{}{}
	}
	return nil
}

// recordPurchase applies one validated purchase to the ledger: assigns
// sequential ticket ids, indexes by owner, accrues referral attribution.
// All duplicate checks happen before any mutation, so a rejection leaves the
// round untouched.
func (r *Round) recordPurchase(buyer Address, numbers []uint32, referrer Address) ([]uint64, error) {
	if err := r.validateNumbers(numbers); err != nil {
		return nil, err
	}

	cost := r.TicketPrice * uint64(len(numbers))
	ids := make([]uint64, 0, len(numbers))
	for _, n := range numbers {
		id := r.FirstTicketID + uint64(r.TicketsSold)
		r.Tickets = append(r.Tickets, Ticket{
			ID:      id,
			RoundID: r.ID,
			Owner:   buyer,
			Number:  n,
		})
		r.SoldNumbers[n] = id
		r.TicketsByOwner[buyer] = append(r.TicketsByOwner[buyer], id)
		r.TicketsSold++
		ids = append(ids, id)
	}

	r.AmountCollected += cost
	r.SpendByBuyer[buyer] += cost
	if referrer != "" {
		r.ReferralAccrued[referrer] += cost
	}
	return ids, nil
}

// ticketByID returns a pointer into the ledger, or nil when the id does not
// belong to this round.
func (r *Round) ticketByID(id uint64) *Ticket {
	if id < r.FirstTicketID {
		return nil
	}
	offset := id - r.FirstTicketID
	if offset >= uint64(len(r.Tickets)) {
		return nil
	}
	return &r.Tickets[offset]
}

// prizeRankForTicket returns the rank a winning ticket was awarded, or false
// when the ticket won nothing. K is small, a linear scan is fine.
func (r *Round) prizeRankForTicket(id uint64) (uint32, bool) {
	for rank, winner := range r.WinningTicketIDs {
		if winner == id {
			return uint32(rank), true
		}
	}
	return 0, false
}
