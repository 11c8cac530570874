package lotto

// RoundSummary is a read-only snapshot of one round for callers that must not
// touch the live ledger.
type RoundSummary struct {
	ID               uint64      `json:"id"`
	Status           RoundStatus `json:"status"`
	StartTime        int64       `json:"start_time"`
	EndTime          int64       `json:"end_time"`
	TicketPrice      uint64      `json:"ticket_price"`
	MinTickets       uint32      `json:"min_tickets"`
	MaxTickets       uint32      `json:"max_tickets"`
	PrizeAmounts     []uint64    `json:"prize_amounts"`
	ReferralRateBps  uint32      `json:"referral_rate_bps"`
	FirstTicketID    uint64      `json:"first_ticket_id"`
	TicketsSold      uint32      `json:"tickets_sold"`
	FinalNumber      uint32      `json:"final_number,omitempty"`
	WinningTicketIDs []uint64    `json:"winning_ticket_ids,omitempty"`
	AmountCollected  uint64      `json:"amount_collected"`
	AmountInjected   uint64      `json:"amount_injected"`
	TreasuryRealized uint64      `json:"treasury_realized"`
	ReferralRealized uint64      `json:"referral_realized"`
}

// OwnedTicket is one ticket in a paginated owner listing, carrying enough to
// decide claimability without a second lookup.
type OwnedTicket struct {
	ID      uint64 `json:"id"`
	Number  uint32 `json:"number"`
	Claimed bool   `json:"claimed"`
	Winner  bool   `json:"winner"`
}

// ViewRound returns a summary of the round, or ErrRoundNotFound.
func (e *LotteryEngine) ViewRound(roundID uint64) (*RoundSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	round := e.rounds[roundID]
	if round == nil {
		return nil, ErrRoundNotFound
	}

	summary := &RoundSummary{
		ID:               round.ID,
		Status:           round.Status,
		StartTime:        round.StartTime,
		EndTime:          round.EndTime,
		TicketPrice:      round.TicketPrice,
		MinTickets:       round.MinTickets,
		MaxTickets:       round.MaxTickets,
		PrizeAmounts:     append([]uint64(nil), round.PrizeAmounts...),
		ReferralRateBps:  round.ReferralRateBps,
		FirstTicketID:    round.FirstTicketID,
		TicketsSold:      round.TicketsSold,
		FinalNumber:      round.FinalNumber,
		WinningTicketIDs: append([]uint64(nil), round.WinningTicketIDs...),
		AmountCollected:  round.AmountCollected,
		AmountInjected:   round.AmountInjected,
		TreasuryRealized: round.TreasuryRealized,
		ReferralRealized: round.ReferralRealized,
	}
	return summary, nil
}

// TicketsForOwner lists the owner's tickets in purchase order, starting at
// cursor, at most size entries. The second return is the cursor to pass on the
// next call, equal to the owner's total ticket count once exhausted.
func (e *LotteryEngine) TicketsForOwner(roundID uint64, owner Address, cursor, size uint32) ([]OwnedTicket, uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	round := e.rounds[roundID]
	if round == nil {
		return nil, 0, ErrRoundNotFound
	}
	if size == 0 {
		return nil, 0, ErrMustBePositive
	}

	owned := round.TicketsByOwner[owner]
	total := uint32(len(owned))
	if cursor >= total {
		return nil, total, nil
	}

	end := cursor + size
	if end > total {
		end = total
	}

	page := make([]OwnedTicket, 0, end-cursor)
	for _, id := range owned[cursor:end] {
		ticket := round.ticketByID(id)
		_, winner := round.prizeRankForTicket(id)
		page = append(page, OwnedTicket{
			ID:      ticket.ID,
			Number:  ticket.Number,
			Claimed: ticket.Claimed,
			Winner:  winner,
		})
	}
	return page, end, nil
}

// HasReferralRewardsToClaim reports whether the address has an unpaid,
// non-zero referral payout on a claimable round.
func (e *LotteryEngine) HasReferralRewardsToClaim(roundID uint64, referrer Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	round := e.rounds[roundID]
	if round == nil || round.Status != StatusClaimable || round.ReferralPaid[referrer] {
		return false
	}
	return mulDivBps(round.ReferralAccrued[referrer], round.ReferralRateBps) > 0
}

// HasFundsToWithdraw reports whether the address still has a refund pending on
// an unrealized round.
func (e *LotteryEngine) HasFundsToWithdraw(roundID uint64, buyer Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	round := e.rounds[roundID]
	if round == nil || round.Status != StatusClosedUnrealized || round.Refunded[buyer] {
		return false
	}
	return round.SpendByBuyer[buyer] > 0
}
